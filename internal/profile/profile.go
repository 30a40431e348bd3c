// Package profile loads animation profiles: the phrases to type and the
// timing, cursor and colour options applied to them.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/csheth/typewriter/internal/typing"
)

// ErrNoPhrases is returned when a profile resolves to zero phrases.
var ErrNoPhrases = errors.New("profile: no phrases configured")

const defaultCursorCharacter = "|"

// Profile is a resolved animation profile.
type Profile struct {
	Path            string
	Animation       typing.Config
	CursorCharacter string
}

// Warning is a non-fatal problem found while loading a profile.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	if w.Field == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

type fileSpeedRange struct {
	MinMS int `yaml:"min_ms" toml:"min_ms"`
	MaxMS int `yaml:"max_ms" toml:"max_ms"`
}

type fileProfile struct {
	Phrases         []string        `yaml:"phrases" toml:"phrases"`
	PhrasesFile     string          `yaml:"phrases_file" toml:"phrases_file"`
	PhrasesURL      string          `yaml:"phrases_url" toml:"phrases_url"`
	TypingSpeedMS   *int            `yaml:"typing_speed_ms" toml:"typing_speed_ms"`
	DeletingSpeedMS *int            `yaml:"deleting_speed_ms" toml:"deleting_speed_ms"`
	InitialDelayMS  *int            `yaml:"initial_delay_ms" toml:"initial_delay_ms"`
	PauseMS         *int            `yaml:"pause_ms" toml:"pause_ms"`
	VariableSpeed   *fileSpeedRange `yaml:"variable_speed" toml:"variable_speed"`
	Loop            *bool           `yaml:"loop" toml:"loop"`
	Reverse         bool            `yaml:"reverse" toml:"reverse"`
	ShowCursor      *bool           `yaml:"show_cursor" toml:"show_cursor"`
	HideWhileTyping bool            `yaml:"hide_cursor_while_typing" toml:"hide_cursor_while_typing"`
	CursorBlinkMS   *int            `yaml:"cursor_blink_ms" toml:"cursor_blink_ms"`
	CursorCharacter string          `yaml:"cursor_character" toml:"cursor_character"`
	Colors          []string        `yaml:"colors" toml:"colors"`
	StartOnVisible  bool            `yaml:"start_on_visible" toml:"start_on_visible"`
}

// Default returns a profile for inline phrases with stock timing.
func Default(phrases ...string) Profile {
	return Profile{
		Animation:       typing.DefaultConfig(phrases...),
		CursorCharacter: defaultCursorCharacter,
	}
}

// Load reads a profile file. YAML and TOML files carry full options; text
// and PDF files are treated as phrase lists with default options.
func Load(ctx context.Context, path string) (Profile, []Warning, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
	default:
		phrases, err := LoadPhrases(ctx, path)
		if err != nil {
			return Profile{}, nil, err
		}
		p := Default(phrases...)
		p.Path = path
		warnings, err := Validate(&p)
		return p, warnings, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, nil, fmt.Errorf("read profile: %w", err)
	}
	file, err := decode(path, raw)
	if err != nil {
		return Profile{}, nil, err
	}

	p := Default()
	p.Path = path
	applyFileProfile(&p, file)

	base := filepath.Dir(path)
	if file.PhrasesFile != "" {
		source := file.PhrasesFile
		if !filepath.IsAbs(source) {
			source = filepath.Join(base, source)
		}
		extra, err := LoadPhrases(ctx, source)
		if err != nil {
			return Profile{}, nil, fmt.Errorf("phrases_file: %w", err)
		}
		p.Animation.Phrases = append(p.Animation.Phrases, extra...)
	}
	if file.PhrasesURL != "" {
		extra, err := LoadPhrases(ctx, file.PhrasesURL)
		if err != nil {
			return Profile{}, nil, fmt.Errorf("phrases_url: %w", err)
		}
		p.Animation.Phrases = append(p.Animation.Phrases, extra...)
	}

	warnings, err := Validate(&p)
	return p, warnings, err
}

func decode(path string, raw []byte) (fileProfile, error) {
	var file fileProfile
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		meta, err := toml.Decode(string(raw), &file)
		if err != nil {
			return file, fmt.Errorf("parse profile toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			sort.Strings(keys)
			return file, fmt.Errorf("parse profile toml: unknown keys %s", strings.Join(keys, ", "))
		}
		return file, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return file, nil
		}
		return file, fmt.Errorf("parse profile yaml: %w", err)
	}
	return file, nil
}

func applyFileProfile(p *Profile, file fileProfile) {
	cfg := &p.Animation
	cfg.Phrases = append(cfg.Phrases, file.Phrases...)
	if file.TypingSpeedMS != nil {
		cfg.TypingSpeed = millis(*file.TypingSpeedMS)
	}
	if file.DeletingSpeedMS != nil {
		cfg.DeletingSpeed = millis(*file.DeletingSpeedMS)
	}
	if file.InitialDelayMS != nil {
		cfg.InitialDelay = millis(*file.InitialDelayMS)
	}
	if file.PauseMS != nil {
		cfg.PauseDuration = millis(*file.PauseMS)
	}
	if file.VariableSpeed != nil {
		cfg.VariableSpeed = &typing.Range{
			Min: millis(file.VariableSpeed.MinMS),
			Max: millis(file.VariableSpeed.MaxMS),
		}
	}
	if file.Loop != nil {
		cfg.Loop = *file.Loop
	}
	if file.ShowCursor != nil {
		cfg.ShowCursor = *file.ShowCursor
	}
	if file.CursorBlinkMS != nil {
		cfg.CursorBlink = millis(*file.CursorBlinkMS)
	}
	cfg.Reverse = file.Reverse
	cfg.HideCursorWhileTyping = file.HideWhileTyping
	cfg.StartOnVisible = file.StartOnVisible
	cfg.Colors = append([]string(nil), file.Colors...)
	if file.CursorCharacter != "" {
		p.CursorCharacter = file.CursorCharacter
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
