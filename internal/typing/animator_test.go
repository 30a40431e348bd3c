package typing

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestAnimator(t *testing.T, cfg Config) (*Animator, *manualClock) {
	t.Helper()
	clock := newManualClock()
	a, err := New(cfg, WithClock(clock), WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a, clock
}

func distinctTexts(ch <-chan Snapshot) []string {
	var texts []string
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return texts
			}
			if len(texts) == 0 || texts[len(texts)-1] != snap.Text {
				texts = append(texts, snap.Text)
			}
		default:
			return texts
		}
	}
}

func TestAnimatorTypesSinglePhraseAndStops(t *testing.T) {
	cfg := DefaultConfig("Hi")
	cfg.TypingSpeed = 10 * time.Millisecond
	cfg.PauseDuration = 100 * time.Millisecond
	cfg.Loop = false
	cfg.ShowCursor = false
	a, clock := newTestAnimator(t, cfg)
	updates := a.Subscribe(32)

	a.Start()
	clock.Advance(time.Second)

	require.Equal(t, []string{"", "H", "Hi"}, distinctTexts(updates))
	require.Zero(t, clock.Pending(), "no timers after the terminal state")
	snap := a.Snapshot()
	require.Equal(t, "Hi", snap.Text)
	require.Equal(t, PhaseDone, snap.Phase)

	clock.Advance(time.Minute)
	require.Equal(t, "Hi", a.Snapshot().Text)
}

func TestAnimatorFiresCompletionThenTypesNextPhrase(t *testing.T) {
	var mu sync.Mutex
	var completions []Completion
	cfg := DefaultConfig("Ab", "Cd")
	cfg.ShowCursor = false
	cfg.OnPhraseComplete = func(phrase string, index int) {
		mu.Lock()
		defer mu.Unlock()
		completions = append(completions, Completion{Phrase: phrase, Index: index})
	}
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	// two reveals, pause, two removals
	clock.Advance(2*DefaultTypingSpeed + DefaultPauseDuration + 2*DefaultDeletingSpeed)

	mu.Lock()
	require.Equal(t, []Completion{{Phrase: "Ab", Index: 0}}, completions)
	mu.Unlock()
	snap := a.Snapshot()
	require.Equal(t, "", snap.Text)
	require.Equal(t, 1, snap.PhraseIndex)

	clock.Advance(DefaultPauseDuration + DefaultTypingSpeed)
	require.Equal(t, "C", a.Snapshot().Text)
}

func TestAnimatorStopCancelsTimers(t *testing.T) {
	cfg := DefaultConfig("hello")
	a, clock := newTestAnimator(t, cfg)
	updates := a.Subscribe(64)

	a.Start()
	clock.Advance(2 * DefaultTypingSpeed)
	require.Equal(t, "he", a.Snapshot().Text)

	a.Stop()
	require.Zero(t, clock.Pending())
	clock.Advance(time.Minute)
	snap := a.Snapshot()
	require.Equal(t, "he", snap.Text)
	require.Equal(t, PhaseStopped, snap.Phase)

	for range updates {
	}
	_, open := <-updates
	require.False(t, open, "subscription closes on stop")

	a.Start()
	require.Zero(t, clock.Pending(), "start after stop is ignored")
}

func TestAnimatorIgnoresTimerFiringAfterStop(t *testing.T) {
	a, _ := newTestAnimator(t, DefaultConfig("x"))
	a.Start()
	a.mu.Lock()
	gen := a.stepGen
	a.mu.Unlock()

	a.Stop()
	a.fire(gen)
	require.Equal(t, "", a.Snapshot().Text)
}

func TestAnimatorWaitsForVisibility(t *testing.T) {
	cfg := DefaultConfig("go")
	cfg.StartOnVisible = true
	cfg.ShowCursor = false
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	clock.Advance(time.Second)
	snap := a.Snapshot()
	require.Equal(t, "", snap.Text)
	require.Equal(t, PhaseAwaitingVisibility, snap.Phase)
	require.False(t, a.Visible())

	a.SetVisible(false)
	clock.Advance(time.Second)
	require.Equal(t, "", a.Snapshot().Text)

	a.SetVisible(true)
	clock.Advance(DefaultTypingSpeed)
	require.Equal(t, "g", a.Snapshot().Text)

	a.SetVisible(false)
	clock.Advance(DefaultTypingSpeed)
	require.Equal(t, "go", a.Snapshot().Text, "leaving the viewport does not pause")
}

type chanSource chan bool

func (c chanSource) Visible() <-chan bool { return c }

func TestWatchVisibilityOpensGate(t *testing.T) {
	cfg := DefaultConfig("go")
	cfg.StartOnVisible = true
	a, _ := newTestAnimator(t, cfg)
	a.Start()

	src := make(chanSource, 2)
	src <- false
	src <- true
	done := make(chan struct{})
	go func() {
		WatchVisibility(context.Background(), a, src)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not return after the gate opened")
	}
	require.True(t, a.Visible())
}

func TestAnimatorInitialDelayPhase(t *testing.T) {
	cfg := DefaultConfig("x")
	cfg.InitialDelay = time.Second
	cfg.TypingSpeed = 10 * time.Millisecond
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	require.Equal(t, PhaseAwaitingInitialDelay, a.Snapshot().Phase)
	clock.Advance(time.Second)
	require.Equal(t, "", a.Snapshot().Text)
	clock.Advance(10 * time.Millisecond)
	snap := a.Snapshot()
	require.Equal(t, "x", snap.Text)
	require.Equal(t, PhaseRunning, snap.Phase)
}

func TestAnimatorCursorBlinks(t *testing.T) {
	cfg := DefaultConfig("x")
	cfg.Loop = false
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	clock.Advance(DefaultTypingSpeed)
	require.Equal(t, "x", a.Snapshot().Text)
	require.True(t, a.Snapshot().CursorVisible)

	clock.Advance(DefaultCursorBlink - DefaultTypingSpeed)
	require.False(t, a.Snapshot().CursorVisible)
	clock.Advance(DefaultCursorBlink)
	require.True(t, a.Snapshot().CursorVisible)
	require.Equal(t, 1, clock.Pending(), "only the blink timer remains")
}

func TestAnimatorHidesCursorWhileTyping(t *testing.T) {
	cfg := DefaultConfig("abc")
	cfg.HideCursorWhileTyping = true
	cfg.CursorBlink = time.Hour
	cfg.TypingSpeed = 10 * time.Millisecond
	cfg.DeletingSpeed = 10 * time.Millisecond
	cfg.PauseDuration = 100 * time.Millisecond
	a, clock := newTestAnimator(t, cfg)
	updates := a.Subscribe(256)

	a.Start()
	clock.Advance(2 * time.Second)

	sawVisible := false
	for len(updates) > 0 {
		snap := <-updates
		typing := snap.Mode == ModeTyping && snap.Offset < snap.Length
		if snap.Mode == ModeDeleting || typing {
			require.False(t, snap.CursorVisible, "cursor shown at %+v", snap)
		}
		if snap.CursorVisible {
			sawVisible = true
		}
	}
	require.True(t, sawVisible, "cursor shows once a phrase is fully typed")
}

func TestAnimatorColorRotation(t *testing.T) {
	cfg := DefaultConfig("a", "b", "c")
	cfg.Colors = []string{"#ff0000", "#00ff00"}
	cfg.PauseDuration = 0
	cfg.ShowCursor = false
	a, clock := newTestAnimator(t, cfg)

	require.Equal(t, "#ff0000", a.Snapshot().Color)
	a.Start()
	clock.Advance(DefaultTypingSpeed + DefaultDeletingSpeed)
	require.Equal(t, 1, a.Snapshot().PhraseIndex)
	require.Equal(t, "#00ff00", a.Snapshot().Color)
	clock.Advance(DefaultTypingSpeed + DefaultDeletingSpeed)
	require.Equal(t, 2, a.Snapshot().PhraseIndex)
	require.Equal(t, "#ff0000", a.Snapshot().Color)
}

func TestAnimatorReconfigureAppliesAfterInFlightStep(t *testing.T) {
	cfg := DefaultConfig("abc")
	cfg.TypingSpeed = 10 * time.Millisecond
	cfg.ShowCursor = false
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	clock.Advance(10 * time.Millisecond)
	require.Equal(t, "a", a.Snapshot().Text)

	slower := cfg
	slower.Phrases = []string{"abc"}
	slower.TypingSpeed = 50 * time.Millisecond
	require.NoError(t, a.Reconfigure(slower))

	clock.Advance(10 * time.Millisecond)
	require.Equal(t, "ab", a.Snapshot().Text, "in-flight delay keeps its old duration")
	clock.Advance(49 * time.Millisecond)
	require.Equal(t, "ab", a.Snapshot().Text)
	clock.Advance(time.Millisecond)
	require.Equal(t, "abc", a.Snapshot().Text)
}

func TestAnimatorReconfigureWithNewPhrases(t *testing.T) {
	cfg := DefaultConfig("abc")
	cfg.TypingSpeed = 10 * time.Millisecond
	cfg.ShowCursor = false
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	clock.Advance(10 * time.Millisecond)

	next := cfg
	next.Phrases = []string{"xyz"}
	next.TypingSpeed = 20 * time.Millisecond
	require.NoError(t, a.Reconfigure(next))
	require.Equal(t, "a", a.Snapshot().Text, "nothing changes before the in-flight step fires")

	clock.Advance(10 * time.Millisecond)
	require.Equal(t, "", a.Snapshot().Text, "new sequence restarts at the first phrase")
	clock.Advance(20 * time.Millisecond)
	require.Equal(t, "x", a.Snapshot().Text)

	require.ErrorIs(t, a.Reconfigure(DefaultConfig()), ErrNoPhrases)
}

func TestAnimatorReconfigureResumesFinishedSequence(t *testing.T) {
	cfg := DefaultConfig("a")
	cfg.Loop = false
	cfg.ShowCursor = false
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	clock.Advance(time.Second)
	require.Equal(t, PhaseDone, a.Snapshot().Phase)

	looping := cfg
	looping.Loop = true
	require.NoError(t, a.Reconfigure(looping))
	clock.Advance(DefaultPauseDuration + DefaultDeletingSpeed)
	snap := a.Snapshot()
	require.Equal(t, "", snap.Text)
	require.Equal(t, PhaseRunning, snap.Phase)
}

func TestNewRejectsEmptyPhrases(t *testing.T) {
	_, err := New(DefaultConfig())
	require.ErrorIs(t, err, ErrNoPhrases)
}

func TestAnimatorPublishesInOrderWithZeroDelays(t *testing.T) {
	phrase := strings.Repeat("x", 400)
	for run := 0; run < 25; run++ {
		cfg := DefaultConfig(phrase)
		cfg.TypingSpeed = 0
		cfg.InitialDelay = 0
		cfg.Loop = false
		cfg.ShowCursor = false
		a, err := New(cfg)
		require.NoError(t, err)
		updates := a.Subscribe(4096)
		a.Start()

		last := -1
		deadline := time.After(5 * time.Second)
	read:
		for {
			select {
			case snap, ok := <-updates:
				require.True(t, ok, "stream closed before the phrase finished")
				require.GreaterOrEqual(t, len(snap.Text), last, "run %d: text shrank while typing", run)
				last = len(snap.Text)
				if snap.Phase == PhaseDone {
					break read
				}
			case <-deadline:
				a.Stop()
				t.Fatalf("run %d: phrase never finished, last length %d", run, last)
			}
		}
		require.Equal(t, len(phrase), last)
		a.Stop()
	}
}

func TestAnimatorDeferredReconfigureKeepsCompletionCallback(t *testing.T) {
	var oldSeen, newSeen []Completion
	cfg := DefaultConfig("Ab", "Cd")
	cfg.TypingSpeed = 10 * time.Millisecond
	cfg.DeletingSpeed = 10 * time.Millisecond
	cfg.PauseDuration = 100 * time.Millisecond
	cfg.ShowCursor = false
	cfg.OnPhraseComplete = func(phrase string, index int) {
		oldSeen = append(oldSeen, Completion{Phrase: phrase, Index: index})
	}
	a, clock := newTestAnimator(t, cfg)

	a.Start()
	// two reveals, pause, first removal
	clock.Advance(20*time.Millisecond + 100*time.Millisecond + 10*time.Millisecond)
	require.Equal(t, "A", a.Snapshot().Text)

	next := cfg
	next.OnPhraseComplete = func(phrase string, index int) {
		newSeen = append(newSeen, Completion{Phrase: phrase, Index: index})
	}
	require.NoError(t, a.Reconfigure(next))

	// the in-flight removal empties "Ab"
	clock.Advance(10 * time.Millisecond)
	require.Equal(t, []Completion{{Phrase: "Ab", Index: 0}}, oldSeen)
	require.Empty(t, newSeen)
}

func TestAnimatorNoCompletionsAfterStop(t *testing.T) {
	var completions atomic.Int64
	cfg := DefaultConfig("a")
	cfg.TypingSpeed = 0
	cfg.DeletingSpeed = 0
	cfg.PauseDuration = 0
	cfg.ShowCursor = false
	cfg.OnPhraseComplete = func(string, int) { completions.Add(1) }
	a, err := New(cfg)
	require.NoError(t, err)

	a.Start()
	require.Eventually(t, func() bool { return completions.Load() > 3 }, 2*time.Second, time.Millisecond)
	a.Stop()

	// a callback that was already running may land; nothing starts after that
	time.Sleep(50 * time.Millisecond)
	settled := completions.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, settled, completions.Load())
	require.Equal(t, PhaseStopped, a.Snapshot().Phase)
}
