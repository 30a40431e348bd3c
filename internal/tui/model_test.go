package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/typewriter/internal/profile"
	"github.com/csheth/typewriter/internal/typing"
)

// slowProfile never fires a character timer during a test.
func slowProfile(phrases ...string) profile.Profile {
	p := profile.Default(phrases...)
	p.Animation.TypingSpeed = time.Hour
	p.Animation.CursorBlink = 0
	return p
}

func newTestModel(t *testing.T, config Config) *model {
	t.Helper()
	m, ok := New(config).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", m)
	}
	t.Cleanup(m.stopAnimator)
	return m
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelWaitsForVisibility(t *testing.T) {
	p := slowProfile("Hello")
	p.Animation.StartOnVisible = true
	m := newTestModel(t, Config{Profile: p})
	m.Init()

	if m.snapshot.Phase != typing.PhaseAwaitingVisibility {
		t.Fatalf("expected gate to hold the animation, got %s", m.snapshot.Phase)
	}
	if view := m.View(); !strings.Contains(view, "Waiting to be seen") {
		t.Fatalf("expected waiting label in view:\n%s", view)
	}

	m.Update(runeKey("v"))
	deadline := time.Now().Add(2 * time.Second)
	for !m.animator.Visible() {
		if time.Now().After(deadline) {
			t.Fatal("visibility signal never reached the animator")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if phase := m.animator.Snapshot().Phase; phase != typing.PhaseRunning {
		t.Fatalf("expected running after visibility, got %s", phase)
	}
}

func TestModelIgnoresStaleSnapshots(t *testing.T) {
	m := newTestModel(t, Config{Profile: slowProfile("abc")})
	m.Init()

	stale := snapshotMsg{generation: m.generation - 1, snapshot: typing.Snapshot{Text: "stale"}}
	if _, cmd := m.Update(stale); cmd != nil {
		t.Fatal("stale stream should not be resubscribed")
	}
	if m.snapshot.Text == "stale" {
		t.Fatal("stale snapshot applied")
	}

	fresh := snapshotMsg{generation: m.generation, snapshot: typing.Snapshot{Text: "ab", Color: "#ff0000", CursorVisible: true}}
	if _, cmd := m.Update(fresh); cmd == nil {
		t.Fatal("expected wait command for the next snapshot")
	}
	if !strings.Contains(m.View(), "ab|") {
		t.Fatalf("expected typed text with cursor in view:\n%s", m.View())
	}
}

func TestModelAddPhraseReconfigures(t *testing.T) {
	m := newTestModel(t, Config{Profile: slowProfile("one")})
	m.Init()

	m.Update(runeKey("a"))
	if m.stage != stageAddPhrase {
		t.Fatalf("expected add-phrase stage, got %v", m.stage)
	}
	m.Update(runeKey("two"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.stage != stageAnimate {
		t.Fatalf("expected animate stage after enter, got %v", m.stage)
	}
	if got := m.animation.Phrases; len(got) != 2 || got[1] != "two" {
		t.Fatalf("unexpected phrases %v", got)
	}
	if m.infoMessage != "Phrase added (2 total)." {
		t.Fatalf("unexpected info message %q", m.infoMessage)
	}

	m.Update(runeKey("a"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.stage != stageAnimate || len(m.animation.Phrases) != 2 {
		t.Fatal("escape should cancel without changing phrases")
	}
}

func TestModelCountsCompletionsAndCallsThrough(t *testing.T) {
	var seen []string
	p := slowProfile("x")
	p.Animation.OnPhraseComplete = func(phrase string, index int) {
		seen = append(seen, phrase)
	}
	m := newTestModel(t, Config{Profile: p})

	m.animation.OnPhraseComplete("x", 0)
	m.animation.OnPhraseComplete("x", 0)
	if got := m.completed.Load(); got != 2 {
		t.Fatalf("expected 2 completions, got %d", got)
	}
	if len(seen) != 2 {
		t.Fatalf("user callback not invoked: %v", seen)
	}
	if !strings.Contains(m.statusView(), "Completed 2") {
		t.Fatalf("status bar missing completion count: %s", m.statusView())
	}

	m.Init()
	generation := m.generation
	m.Update(runeKey("r"))
	if m.completed.Load() != 0 {
		t.Fatal("restart should reset the completion count")
	}
	if m.generation != generation+1 {
		t.Fatalf("restart should start a new stream generation")
	}
}

func TestModelAppliesReloads(t *testing.T) {
	m := newTestModel(t, Config{Profile: slowProfile("old")})
	m.Init()

	m.Update(reloadMsg{reload: profile.Reload{Err: errors.New("boom")}})
	if !strings.Contains(m.errorMessage, "boom") {
		t.Fatalf("expected reload error, got %q", m.errorMessage)
	}

	next := slowProfile("new", "newer")
	next.Path = "/tmp/hero.yaml"
	m.Update(reloadMsg{reload: profile.Reload{Profile: next, Warnings: []profile.Warning{{Field: "colors[0]", Message: "dropped"}}}})
	if m.errorMessage != "" {
		t.Fatalf("error should clear after a good reload, got %q", m.errorMessage)
	}
	if got := m.animation.Phrases; len(got) != 2 || got[0] != "new" {
		t.Fatalf("unexpected phrases after reload: %v", got)
	}
	if m.source != "hero.yaml" {
		t.Fatalf("unexpected source %q", m.source)
	}
	if !strings.Contains(m.View(), "warning: colors[0]: dropped") {
		t.Fatalf("expected warning in view:\n%s", m.View())
	}
}

func TestModelQuitStopsAnimator(t *testing.T) {
	m := newTestModel(t, Config{Profile: slowProfile("bye")})
	m.Init()

	_, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if phase := m.animator.Snapshot().Phase; phase != typing.PhaseStopped {
		t.Fatalf("expected stopped animator, got %s", phase)
	}
	if m.View() != "" {
		t.Fatal("view should be empty after quitting")
	}
}

func TestModelReportsEmptyProfile(t *testing.T) {
	m := newTestModel(t, Config{Profile: profile.Default()})
	if m.animator != nil {
		t.Fatal("animator should not be built without phrases")
	}
	if cmd := m.startAnimator(); cmd != nil {
		t.Fatal("no stream without an animator")
	}
	if !strings.Contains(m.View(), "at least one phrase") {
		t.Fatalf("expected error in view:\n%s", m.View())
	}
}

func TestModelStartsAnimatorAddedAfterEmptyProfile(t *testing.T) {
	m := newTestModel(t, Config{Profile: slowProfile()})
	m.Init()
	if m.animator != nil {
		t.Fatal("animator should not exist without phrases")
	}

	m.Update(runeKey("a"))
	m.Update(runeKey("first"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected the new animator's stream command")
	}
	if m.animator == nil || m.generation != 1 {
		t.Fatalf("expected a started animator, generation=%d", m.generation)
	}
	if phase := m.animator.Snapshot().Phase; phase == typing.PhaseIdle {
		t.Fatal("animator built from an added phrase was never started")
	}
	if m.errorMessage != "" {
		t.Fatalf("error should clear once a phrase exists, got %q", m.errorMessage)
	}
}
