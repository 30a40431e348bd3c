// Package typing animates a sequence of phrases the way a person types them:
// characters are revealed one at a time, held, deleted, and the next phrase
// begins. The Sequencer is a pure state machine; the Animator drives it from
// timers and exposes the displayed text, the active colour and the cursor
// visibility to whatever surface paints them.
package typing

import (
	"errors"
	"math/rand"
	"time"
)

// ErrNoPhrases is returned when an animator is built without any phrase.
var ErrNoPhrases = errors.New("typing: at least one phrase is required")

// ColorInherit is the colour reported when no rotation is configured.
const ColorInherit = "inherit"

const (
	DefaultTypingSpeed   = 50 * time.Millisecond
	DefaultDeletingSpeed = 30 * time.Millisecond
	DefaultPauseDuration = 2 * time.Second
	DefaultCursorBlink   = 500 * time.Millisecond
)

// Range bounds a randomised duration.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Random returns a duration uniformly distributed in [Min, Max).
// A range whose Max does not exceed Min always yields Min.
func (value Range) Random(rng *rand.Rand) time.Duration {
	if value.Max <= value.Min {
		return value.Min
	}
	delta := value.Max - value.Min
	return value.Min + time.Duration(rng.Int63n(int64(delta)))
}

// Config is the full set of animation options. Start from DefaultConfig so
// options whose default is "on" are not disabled by the zero value.
type Config struct {
	Phrases []string

	TypingSpeed   time.Duration
	DeletingSpeed time.Duration
	InitialDelay  time.Duration
	PauseDuration time.Duration
	VariableSpeed *Range

	Loop    bool
	Reverse bool

	ShowCursor            bool
	HideCursorWhileTyping bool
	CursorBlink           time.Duration

	Colors       []string
	DefaultColor string

	StartOnVisible bool

	// OnPhraseComplete runs after a phrase has been typed and fully deleted.
	OnPhraseComplete func(phrase string, index int)
}

// DefaultConfig returns the stock timing for the given phrases.
func DefaultConfig(phrases ...string) Config {
	return Config{
		Phrases:       append([]string(nil), phrases...),
		TypingSpeed:   DefaultTypingSpeed,
		DeletingSpeed: DefaultDeletingSpeed,
		PauseDuration: DefaultPauseDuration,
		Loop:          true,
		ShowCursor:    true,
		CursorBlink:   DefaultCursorBlink,
		DefaultColor:  ColorInherit,
	}
}

// Normalize clamps negative durations to zero and fills an empty default
// colour. It never rejects a configuration.
func (cfg Config) Normalize() Config {
	cfg.Phrases = append([]string(nil), cfg.Phrases...)
	cfg.Colors = append([]string(nil), cfg.Colors...)
	cfg.TypingSpeed = clamp(cfg.TypingSpeed)
	cfg.DeletingSpeed = clamp(cfg.DeletingSpeed)
	cfg.InitialDelay = clamp(cfg.InitialDelay)
	cfg.PauseDuration = clamp(cfg.PauseDuration)
	cfg.CursorBlink = clamp(cfg.CursorBlink)
	if cfg.VariableSpeed != nil {
		r := Range{Min: clamp(cfg.VariableSpeed.Min), Max: clamp(cfg.VariableSpeed.Max)}
		cfg.VariableSpeed = &r
	}
	if cfg.DefaultColor == "" {
		cfg.DefaultColor = ColorInherit
	}
	return cfg
}

// ColorFor returns the rotation colour for a phrase index.
func (cfg Config) ColorFor(index int) string {
	if len(cfg.Colors) == 0 || index < 0 {
		return cfg.DefaultColor
	}
	if c := cfg.Colors[index%len(cfg.Colors)]; c != "" {
		return c
	}
	return cfg.DefaultColor
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
