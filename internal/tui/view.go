package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/typewriter/internal/typing"
)

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	parts := []string{m.heroView(), m.lineView(), m.statusView()}
	if m.stage == stageAddPhrase {
		parts = append(parts, m.phraseInputView())
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	for _, w := range m.warnings {
		parts = append(parts, warningStyle.Render("warning: "+w))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.jobs.Busy() > 0 {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	title := titleStyle.Render("typewriter")
	if m.source != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, helperStyle.Render("  "+m.source))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, taglineStyle.Render(heroTagline))
}

// lineView paints the typed text in the active rotation colour followed by
// the cursor glyph. A hidden cursor keeps its width so the line does not
// jitter while blinking.
func (m *model) lineView() string {
	snap := m.snapshot
	var body string
	if m.waiting() {
		body = helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), waitingLabel(snap.Phase)))
	} else {
		text := wordwrap.String(snap.Text, m.layout.lineWidth)
		body = textStyle(snap.Color).Render(text)
		if snap.CursorVisible {
			body += cursorStyle.Render(m.cursorChar)
		} else {
			body += strings.Repeat(" ", lipgloss.Width(m.cursorChar))
		}
	}
	return lineBoxStyle.Width(m.layout.boxWidth).Render(body)
}

func (m *model) statusView() string {
	snap := m.snapshot
	phrases := len(m.animation.Phrases)
	stats := []string{
		fmt.Sprintf("Phase %s", snap.Phase),
		fmt.Sprintf("Mode %s", snap.Mode),
		fmt.Sprintf("Phrase %d/%d", snap.PhraseIndex+1, phrases),
		fmt.Sprintf("Chars %d/%d", snap.Offset, snap.Length),
		fmt.Sprintf("Completed %d", m.completed.Load()),
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) phraseInputView() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Add Phrase"))
	b.WriteRune('\n')
	b.WriteString(m.phraseInput.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press Enter to append, Esc to cancel."))
	return b.String()
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"v", "Mark visible"},
		{"r", "Restart"},
		{"a", "Add phrase"},
		{"y", "Copy text"},
		{"l", "Reload profile"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Keys")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func waitingLabel(phase typing.Phase) string {
	if phase == typing.PhaseAwaitingVisibility {
		return "Waiting to be seen. Press v."
	}
	return "Starting…"
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

// textStyle maps a rotation colour onto a lipgloss style. Colours arrive
// normalised as "#rrggbb", an ANSI index, or typing.ColorInherit.
func textStyle(color string) lipgloss.Style {
	if color == "" || color == typing.ColorInherit {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

var (
	accentColor = lipgloss.Color("#f6bd60")

	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#c2a59b")).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle        = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	lineBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 3)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
)
