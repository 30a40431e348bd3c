package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/csheth/typewriter/internal/typing"
)

// Validate checks p, drops unusable colours and returns warnings for
// settings that animate in a degenerate way. Only an empty phrase list is an
// error.
func Validate(p *Profile) ([]Warning, error) {
	var warnings []Warning
	cfg := &p.Animation

	if len(cfg.Phrases) == 0 {
		return nil, ErrNoPhrases
	}
	for i, phrase := range cfg.Phrases {
		if strings.TrimSpace(phrase) == "" {
			warnings = append(warnings, Warning{Field: fmt.Sprintf("phrases[%d]", i), Message: "empty phrase is skipped straight to deletion"})
		}
	}

	durations := []struct {
		field string
		value int64
	}{
		{"typing_speed_ms", int64(cfg.TypingSpeed)},
		{"deleting_speed_ms", int64(cfg.DeletingSpeed)},
		{"initial_delay_ms", int64(cfg.InitialDelay)},
		{"pause_ms", int64(cfg.PauseDuration)},
		{"cursor_blink_ms", int64(cfg.CursorBlink)},
	}
	for _, d := range durations {
		if d.value < 0 {
			warnings = append(warnings, Warning{Field: d.field, Message: "negative duration treated as 0"})
		}
	}
	if cfg.ShowCursor && cfg.CursorBlink <= 0 {
		warnings = append(warnings, Warning{Field: "cursor_blink_ms", Message: "blink disabled; cursor stays on"})
	}
	if r := cfg.VariableSpeed; r != nil && r.Max < r.Min {
		warnings = append(warnings, Warning{Field: "variable_speed", Message: "max below min; typing uses min_ms"})
	}

	colors := make([]string, 0, len(cfg.Colors))
	for i, c := range cfg.Colors {
		normalized, ok := NormalizeColor(c)
		if !ok {
			warnings = append(warnings, Warning{Field: fmt.Sprintf("colors[%d]", i), Message: fmt.Sprintf("unrecognised colour %q replaced with inherit", c)})
			normalized = typing.ColorInherit
		}
		colors = append(colors, normalized)
	}
	cfg.Colors = colors

	if p.CursorCharacter == "" {
		p.CursorCharacter = defaultCursorCharacter
	}
	return warnings, nil
}

// NormalizeColor accepts "#rgb", "#rrggbb", an ANSI index 0-255, or
// "inherit". Hex colours are returned in lower-case "#rrggbb" form.
func NormalizeColor(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, typing.ColorInherit) {
		return typing.ColorInherit, true
	}
	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return "", false
		}
		return c.Hex(), true
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 255 {
		return "", false
	}
	return strconv.Itoa(n), true
}
