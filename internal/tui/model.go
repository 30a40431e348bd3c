package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/typewriter/internal/profile"
	"github.com/csheth/typewriter/internal/typing"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Profile profile.Profile
	// Reloads delivers re-read profiles, usually from profile.Watch.
	Reloads <-chan profile.Reload
	// Options are passed to every animator the model builds.
	Options []typing.Option
	// Clipboard receives the displayed text on "y". Defaults to the system
	// clipboard.
	Clipboard func(string) error
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Clipboard == nil {
		config.Clipboard = clipboard.WriteAll
	}

	phraseInput := textinput.New()
	phraseInput.Placeholder = phraseInputPlaceholder
	phraseInput.CharLimit = phraseCharLimit
	phraseInput.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &model{
		config:      config,
		stage:       stageAnimate,
		phraseInput: phraseInput,
		spinner:     spin,
		layout:      newPageLayout(),
		jobs:        newJobBus(),
		completed:   new(atomic.Int64),
		onComplete:  config.Profile.Animation.OnPhraseComplete,
		infoMessage: "Press ? for keys.",
	}
	m.applyProfile(config.Profile)
	if err := m.buildAnimator(); err != nil {
		m.errorMessage = err.Error()
	}
	return m
}

type model struct {
	config Config
	stage  stage

	animation  typing.Config
	cursorChar string
	source     string
	onComplete func(string, int)

	animator    *typing.Animator
	updates     <-chan typing.Snapshot
	generation  int
	snapshot    typing.Snapshot
	visibility  visibilityChannel
	seenVisible bool
	cancelWatch context.CancelFunc
	completed   *atomic.Int64

	phraseInput textinput.Model
	spinner     spinner.Model
	layout      pageLayout
	jobs        *jobBus

	infoMessage  string
	errorMessage string
	warnings     []string
	helpVisible  bool
	quitting     bool
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.startAnimator(), waitForReload(m.config.Reloads))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.waiting() || m.jobs.Busy() > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		if m.stage == stageAddPhrase {
			return m.handlePhraseKey(msg)
		}
		return m.handleAnimateKey(msg)
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.phraseInput.Width = m.layout.inputWidth
		return m, nil
	case snapshotMsg:
		if msg.generation != m.generation {
			return m, nil
		}
		m.snapshot = msg.snapshot
		return m, waitForSnapshot(m.generation, m.updates)
	case streamClosedMsg:
		return m, nil
	case reloadMsg:
		return m, tea.Batch(m.applyReload(msg.reload), waitForReload(m.config.Reloads))
	case jobStartedMsg:
		m.infoMessage = fmt.Sprintf("%s…", jobLabel(msg.kind))
		return m, m.spinner.Tick
	case jobDoneMsg:
		var cmd tea.Cmd
		switch payload := msg.payload.(type) {
		case reloadMsg:
			cmd = m.applyReload(payload.reload)
		case copyResultMsg:
			if payload.err == nil {
				m.errorMessage = ""
				m.infoMessage = fmt.Sprintf("Copied %d character(s).", payload.chars)
			} else {
				m.infoMessage = "Copy failed."
			}
		}
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("%s failed: %v", msg.kind, msg.err)
		}
		return m, cmd
	}
	return m, nil
}

func (m *model) handleAnimateKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "esc":
		return m, m.quit()
	case "?":
		m.helpVisible = !m.helpVisible
	case "v":
		m.markVisible()
	case "r":
		return m, m.restart()
	case "a":
		m.stage = stageAddPhrase
		m.phraseInput.SetValue("")
		m.phraseInput.Focus()
		m.infoMessage = "Enter appends the phrase, Esc cancels."
		return m, textinput.Blink
	case "y":
		return m, m.jobs.Start(jobKindCopy, copyTextJob(m.config.Clipboard, m.snapshot.Text))
	case "l":
		if m.source == "" {
			m.infoMessage = "Inline phrases have no profile to reload."
			return m, nil
		}
		return m, m.jobs.Start(jobKindReload, reloadProfileJob(m.config.Profile.Path))
	}
	return m, nil
}

func (m *model) handlePhraseKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.stage = stageAnimate
		m.phraseInput.Blur()
		m.infoMessage = "Add phrase canceled."
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.phraseInput.Value())
		m.phraseInput.SetValue("")
		m.phraseInput.Blur()
		m.stage = stageAnimate
		if value == "" {
			m.infoMessage = "Empty phrase ignored."
			return m, nil
		}
		next := m.animation
		next.Phrases = append(append([]string(nil), m.animation.Phrases...), value)
		cmd, err := m.reconfigure(next)
		if err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Phrase added (%d total).", len(m.animation.Phrases))
		return m, cmd
	}
	var cmd tea.Cmd
	m.phraseInput, cmd = m.phraseInput.Update(key)
	return m, cmd
}

// applyProfile adopts p as the current animation and keeps the completion
// counter wired into its callback.
func (m *model) applyProfile(p profile.Profile) {
	m.config.Profile = p
	m.cursorChar = p.CursorCharacter
	if m.cursorChar == "" {
		m.cursorChar = "|"
	}
	m.source = ""
	if p.Path != "" {
		m.source = filepath.Base(p.Path)
	}
	m.warnings = nil
	cfg := p.Animation
	counter := m.completed
	user := m.onComplete
	cfg.OnPhraseComplete = func(phrase string, index int) {
		counter.Add(1)
		if user != nil {
			user(phrase, index)
		}
	}
	m.animation = cfg
}

func (m *model) applyReload(r profile.Reload) tea.Cmd {
	if r.Err != nil {
		m.errorMessage = fmt.Sprintf("reload failed: %v", r.Err)
		return nil
	}
	m.applyProfile(r.Profile)
	for _, w := range r.Warnings {
		m.warnings = append(m.warnings, w.String())
	}
	cmd, err := m.reconfigure(m.animation)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Reloaded %s (%d phrases).", m.source, len(m.animation.Phrases))
	return cmd
}

// reconfigure hands cfg to the running animator. When no animator could be
// built earlier, it builds one and returns the command that starts it.
func (m *model) reconfigure(cfg typing.Config) (tea.Cmd, error) {
	if m.animator == nil {
		m.animation = cfg
		if err := m.buildAnimator(); err != nil {
			return nil, err
		}
		return m.startAnimator(), nil
	}
	if err := m.animator.Reconfigure(cfg); err != nil {
		return nil, err
	}
	m.animation = cfg
	m.snapshot = m.animator.Snapshot()
	return nil, nil
}

func (m *model) buildAnimator() error {
	animator, err := typing.New(m.animation, m.config.Options...)
	if err != nil {
		return err
	}
	m.animator = animator
	m.snapshot = animator.Snapshot()
	return nil
}

// startAnimator subscribes to the current animator, starts it and returns
// the command that streams its snapshots.
func (m *model) startAnimator() tea.Cmd {
	if m.animator == nil {
		return nil
	}
	m.generation++
	m.updates = m.animator.Subscribe(snapshotBuffer)
	m.visibility = make(visibilityChannel, 1)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelWatch = cancel
	go typing.WatchVisibility(ctx, m.animator, m.visibility)
	m.animator.Start()
	if m.seenVisible {
		m.animator.SetVisible(true)
	}
	m.snapshot = m.animator.Snapshot()
	return tea.Batch(waitForSnapshot(m.generation, m.updates), m.spinner.Tick)
}

func (m *model) stopAnimator() {
	if m.cancelWatch != nil {
		m.cancelWatch()
		m.cancelWatch = nil
	}
	if m.animator != nil {
		m.animator.Stop()
	}
}

func (m *model) restart() tea.Cmd {
	m.stopAnimator()
	m.completed.Store(0)
	if err := m.buildAnimator(); err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.errorMessage = ""
	m.infoMessage = "Restarted."
	return m.startAnimator()
}

func (m *model) markVisible() {
	m.seenVisible = true
	if m.animator == nil || m.animator.Visible() {
		return
	}
	select {
	case m.visibility <- true:
	default:
	}
	m.infoMessage = "Surface marked visible."
}

func (m *model) quit() tea.Cmd {
	m.quitting = true
	m.stopAnimator()
	return tea.Quit
}

// waiting reports whether the animation is held by the visibility gate or
// the initial delay.
func (m *model) waiting() bool {
	switch m.snapshot.Phase {
	case typing.PhaseAwaitingVisibility, typing.PhaseAwaitingInitialDelay:
		return true
	default:
		return false
	}
}

func jobLabel(kind jobKind) string {
	switch kind {
	case jobKindReload:
		return "Reloading profile"
	case jobKindCopy:
		return "Copying to clipboard"
	default:
		return string(kind)
	}
}
