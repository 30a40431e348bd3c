package typing

import (
	"log"
	"math/rand"
	"sync"
	"time"
)

// Phase describes where the animator is in its lifetime.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingVisibility
	PhaseAwaitingInitialDelay
	PhaseRunning
	PhaseDone
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingVisibility:
		return "awaiting-visibility"
	case PhaseAwaitingInitialDelay:
		return "initial-delay"
	case PhaseRunning:
		return "running"
	case PhaseDone:
		return "done"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot is what a display layer paints.
type Snapshot struct {
	Text          string
	Color         string
	CursorVisible bool

	PhraseIndex int
	Offset      int
	Length      int
	Mode        Mode
	Phase       Phase
}

// Option customises an Animator.
type Option func(*Animator)

// WithClock replaces the timer source.
func WithClock(clock Clock) Option {
	return func(a *Animator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithRand fixes the random source used for variable typing speed.
func WithRand(rng *rand.Rand) Option {
	return func(a *Animator) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// Animator drives a Sequencer from timers. At most one character timer is
// pending at any time; the cursor blink runs on its own timer and only reads
// sequencer state through CursorSuppressed.
type Animator struct {
	mu      sync.Mutex
	cfg     Config
	next    *Config
	seq     *Sequencer
	gate    *Gate
	clock   Clock
	rng     *rand.Rand
	started bool
	stopped bool

	stepGen   uint64
	stepTimer Timer
	pending   *Step

	blinkGen   uint64
	blinkTimer Timer
	blinkOn    bool

	// version stamps every snapshot taken for publishing; published is the
	// newest version handed to subscribers.
	version     uint64
	subMu       sync.Mutex
	published   uint64
	subscribers []chan Snapshot
}

// stamped pairs a snapshot with the version it was taken at.
type stamped struct {
	version uint64
	snap    Snapshot
}

// New validates cfg and returns an animator that has not started yet.
func New(cfg Config, opts ...Option) (*Animator, error) {
	if len(cfg.Phrases) == 0 {
		return nil, ErrNoPhrases
	}
	a := &Animator{
		cfg:     cfg.Normalize(),
		clock:   SystemClock,
		blinkOn: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	seq, err := NewSequencer(a.cfg, a.rng)
	if err != nil {
		return nil, err
	}
	a.seq = seq
	a.gate = NewGate(a.cfg.StartOnVisible)
	return a, nil
}

// Start begins the blink driver and, when the gate is open, the typing
// sequence. Calling Start twice or after Stop does nothing.
func (a *Animator) Start() {
	a.mu.Lock()
	if a.started || a.stopped {
		a.mu.Unlock()
		return
	}
	a.started = true
	log.Printf("[typing] start (phrases=%d, loop=%t, gated=%t)", len(a.cfg.Phrases), a.cfg.Loop, !a.gate.Opened())
	a.startBlinkLocked()
	if a.gate.Opened() {
		a.scheduleLocked()
	}
	snap := a.stampLocked()
	a.mu.Unlock()
	a.publish(snap)
}

// SetVisible feeds the visibility gate. The first true signal starts typing.
func (a *Animator) SetVisible(visible bool) {
	a.mu.Lock()
	if a.stopped || !a.gate.Observe(visible) {
		a.mu.Unlock()
		return
	}
	log.Printf("[typing] surface visible")
	if a.started && a.pending == nil {
		a.scheduleLocked()
	}
	snap := a.stampLocked()
	a.mu.Unlock()
	a.publish(snap)
}

// Visible reports whether the gate has opened.
func (a *Animator) Visible() bool {
	return a.gate.Opened()
}

// Reconfigure replaces the options. A step already in flight still applies
// to the phrase it was planned for; the new configuration takes effect at
// the next scheduling decision.
func (a *Animator) Reconfigure(cfg Config) error {
	if len(cfg.Phrases) == 0 {
		return ErrNoPhrases
	}
	cfg = cfg.Normalize()
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	if a.pending != nil {
		a.next = &cfg
		a.mu.Unlock()
		return nil
	}
	if err := a.applyConfigLocked(cfg); err != nil {
		a.mu.Unlock()
		return err
	}
	if a.started && a.gate.Opened() {
		a.scheduleLocked()
	}
	snap := a.stampLocked()
	a.mu.Unlock()
	a.publish(snap)
	return nil
}

func (a *Animator) applyConfigLocked(cfg Config) error {
	if err := a.seq.Reconfigure(cfg); err != nil {
		return err
	}
	blinkChanged := cfg.ShowCursor != a.cfg.ShowCursor || cfg.CursorBlink != a.cfg.CursorBlink
	a.cfg = cfg
	if !cfg.StartOnVisible {
		a.gate.Open()
	}
	if blinkChanged && a.started {
		a.startBlinkLocked()
	}
	return nil
}

// Stop cancels both timers and closes every subscription. Timers that fire
// after Stop are ignored and no completion callback starts once Stop has
// returned; a callback already running on a timer goroutine may still finish.
func (a *Animator) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.stepGen++
	a.blinkGen++
	if a.stepTimer != nil {
		a.stepTimer.Stop()
		a.stepTimer = nil
	}
	if a.blinkTimer != nil {
		a.blinkTimer.Stop()
		a.blinkTimer = nil
	}
	a.pending = nil
	a.mu.Unlock()

	a.subMu.Lock()
	subs := a.subscribers
	a.subscribers = nil
	for _, ch := range subs {
		close(ch)
	}
	a.subMu.Unlock()
	log.Printf("[typing] stopped")
}

func (a *Animator) halted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Snapshot returns the current observable outputs.
func (a *Animator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change. Slow
// readers miss intermediate snapshots rather than stall the timers. The
// channel closes on Stop.
func (a *Animator) Subscribe(buffer int) <-chan Snapshot {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.halted() {
		close(ch)
		return ch
	}
	a.subscribers = append(a.subscribers, ch)
	return ch
}

func (a *Animator) stampLocked() stamped {
	a.version++
	return stamped{version: a.version, snap: a.snapshotLocked()}
}

// publish fans s out to subscribers. Timer callbacks run on their own
// goroutines and may reach here out of order; a snapshot older than one
// already delivered is dropped so subscribers only ever move forward.
func (a *Animator) publish(s stamped) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if s.version <= a.published {
		return
	}
	a.published = s.version
	for _, ch := range a.subscribers {
		select {
		case ch <- s.snap:
		default:
		}
	}
}

func (a *Animator) scheduleLocked() {
	step, ok := a.seq.Next()
	if !ok {
		a.pending = nil
		log.Printf("[typing] sequence complete at phrase %d", a.seq.State().PhraseIndex)
		return
	}
	a.stepGen++
	gen := a.stepGen
	a.pending = &step
	a.stepTimer = a.clock.AfterFunc(step.Delay, func() { a.fire(gen) })
}

func (a *Animator) fire(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.stepGen || a.pending == nil {
		a.mu.Unlock()
		return
	}
	step := *a.pending
	a.pending = nil
	a.stepTimer = nil
	tr := a.seq.Apply(step)
	// The step belongs to the configuration it was planned under, so its
	// completion goes to that configuration's callback.
	callback := a.cfg.OnPhraseComplete
	if a.next != nil {
		cfg := *a.next
		a.next = nil
		if err := a.applyConfigLocked(cfg); err != nil {
			log.Printf("[typing] reconfigure rejected: %v", err)
		}
	}
	if a.gate.Opened() {
		a.scheduleLocked()
	}
	snap := a.stampLocked()
	a.mu.Unlock()

	if tr.Completed != nil && callback != nil && !a.halted() {
		callback(tr.Completed.Phrase, tr.Completed.Index)
	}
	a.publish(snap)
}

func (a *Animator) startBlinkLocked() {
	a.blinkGen++
	if a.blinkTimer != nil {
		a.blinkTimer.Stop()
		a.blinkTimer = nil
	}
	a.blinkOn = true
	if !a.cfg.ShowCursor || a.cfg.CursorBlink <= 0 {
		return
	}
	gen := a.blinkGen
	a.blinkTimer = a.clock.AfterFunc(a.cfg.CursorBlink, func() { a.toggleBlink(gen) })
}

func (a *Animator) toggleBlink(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.blinkGen {
		a.mu.Unlock()
		return
	}
	a.blinkOn = !a.blinkOn
	a.blinkTimer = a.clock.AfterFunc(a.cfg.CursorBlink, func() { a.toggleBlink(gen) })
	snap := a.stampLocked()
	a.mu.Unlock()
	a.publish(snap)
}

func (a *Animator) snapshotLocked() Snapshot {
	st := a.seq.State()
	return Snapshot{
		Text:          st.Text,
		Color:         a.cfg.ColorFor(st.PhraseIndex),
		CursorVisible: CursorVisible(a.cfg, st, a.blinkOn),
		PhraseIndex:   st.PhraseIndex,
		Offset:        st.Offset,
		Length:        st.Length,
		Mode:          st.Mode,
		Phase:         a.phaseLocked(st),
	}
}

func (a *Animator) phaseLocked(st State) Phase {
	switch {
	case a.stopped:
		return PhaseStopped
	case !a.started:
		return PhaseIdle
	case !a.gate.Opened():
		return PhaseAwaitingVisibility
	case st.Done:
		return PhaseDone
	case !a.seq.Revealed() && a.cfg.InitialDelay > 0:
		return PhaseAwaitingInitialDelay
	default:
		return PhaseRunning
	}
}
