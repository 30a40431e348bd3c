package tui

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type jobKind string

const (
	jobKindReload jobKind = "reload"
	jobKindCopy   jobKind = "copy"
)

// jobStartedMsg is delivered before the runner begins so the status line can
// switch to the busy label.
type jobStartedMsg struct {
	id   string
	kind jobKind
}

// jobDoneMsg carries the runner's message back into Update.
type jobDoneMsg struct {
	id      string
	kind    jobKind
	elapsed time.Duration
	err     error
	payload tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs side work off the update loop. Only one job of each kind runs
// at a time; pressing "l" while a reload is in flight does not queue another.
type jobBus struct {
	mu       sync.Mutex
	serial   int
	inFlight map[jobKind]string
}

func newJobBus() *jobBus {
	return &jobBus{inFlight: make(map[jobKind]string)}
}

// Busy reports how many jobs have started and not finished.
func (b *jobBus) Busy() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inFlight)
}

// InFlight reports whether a job of kind is running.
func (b *jobBus) InFlight(kind jobKind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inFlight[kind]
	return ok
}

// Start claims kind and returns the command pair that announces and runs the
// job. It returns nil when a job of the same kind is already running.
func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	announce, run, ok := b.claim(kind, runner)
	if !ok {
		return nil
	}
	return tea.Sequence(announce, run)
}

func (b *jobBus) claim(kind jobKind, runner jobRunner) (announce, run tea.Cmd, ok bool) {
	b.mu.Lock()
	if id, busy := b.inFlight[kind]; busy {
		b.mu.Unlock()
		log.Printf("[jobs] %s already running as %s", kind, id)
		return nil, nil, false
	}
	b.serial++
	id := fmt.Sprintf("%s-%d", kind, b.serial)
	b.inFlight[kind] = id
	b.mu.Unlock()

	started := time.Now()
	announce = func() tea.Msg {
		return jobStartedMsg{id: id, kind: kind}
	}
	run = func() tea.Msg {
		payload, err := runner(context.Background())
		b.finish(kind, id)
		elapsed := time.Since(started)
		if err != nil {
			log.Printf("[jobs] %s failed after %s: %v", id, elapsed, err)
		} else {
			log.Printf("[jobs] %s done in %s", id, elapsed)
		}
		return jobDoneMsg{id: id, kind: kind, elapsed: elapsed, err: err, payload: payload}
	}
	return announce, run, true
}

func (b *jobBus) finish(kind jobKind, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight[kind] == id {
		delete(b.inFlight, kind)
	}
}
