package typing

import (
	"math/rand"
	"time"
)

// Mode is the direction the sequencer is moving through the active phrase.
type Mode int

const (
	ModeTyping Mode = iota
	ModeDeleting
)

func (m Mode) String() string {
	switch m {
	case ModeTyping:
		return "typing"
	case ModeDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// Action is the kind of mutation a Step performs when its delay elapses.
type Action int

const (
	// ActionReveal appends one character to the displayed text.
	ActionReveal Action = iota
	// ActionBeginDelete switches a fully typed phrase to deleting.
	ActionBeginDelete
	// ActionRemove drops the last displayed character.
	ActionRemove
	// ActionResume ends the pause between two phrases.
	ActionResume
)

func (a Action) String() string {
	switch a {
	case ActionReveal:
		return "reveal"
	case ActionBeginDelete:
		return "begin-delete"
	case ActionRemove:
		return "remove"
	case ActionResume:
		return "resume"
	default:
		return "unknown"
	}
}

// Step is the next scheduled transition. Char is captured when the step is
// planned, so a reveal applies to the phrase it was scheduled against.
type Step struct {
	Action      Action
	Delay       time.Duration
	PhraseIndex int
	Char        string
}

// Completion reports a phrase that finished its type/delete cycle.
type Completion struct {
	Phrase string
	Index  int
}

// Transition is the outcome of applying a Step.
type Transition struct {
	Completed *Completion
	Done      bool
}

// State is a read-only view of the sequencer.
type State struct {
	PhraseIndex int
	Offset      int
	Length      int
	Mode        Mode
	Text        string
	Paused      bool
	Done        bool
}

type phrase struct {
	source string
	chars  []string
}

// Sequencer is the typing state machine. It owns no timers: callers ask for
// the Next step, wait its delay, then Apply it. It is not safe for
// concurrent use.
type Sequencer struct {
	phrases []phrase
	loop    bool
	reverse bool
	timing  *TimingPolicy

	index    int
	offset   int
	mode     Mode
	shown    []string
	paused   bool
	finished bool
	revealed bool
}

// NewSequencer builds a sequencer positioned before the first character of
// the first phrase.
func NewSequencer(cfg Config, rng *rand.Rand) (*Sequencer, error) {
	if len(cfg.Phrases) == 0 {
		return nil, ErrNoPhrases
	}
	cfg = cfg.Normalize()
	seq := &Sequencer{
		phrases: buildPhrases(cfg.Phrases, cfg.Reverse),
		loop:    cfg.Loop,
		reverse: cfg.Reverse,
		timing:  NewTimingPolicy(cfg, rng),
	}
	return seq, nil
}

func buildPhrases(sources []string, reverse bool) []phrase {
	out := make([]phrase, len(sources))
	for i, src := range sources {
		chars := Graphemes(src)
		if reverse {
			reverseInPlace(chars)
		}
		out[i] = phrase{source: src, chars: chars}
	}
	return out
}

// Reconfigure swaps in new options. Timing and looping apply to the next
// planned step. A different phrase sequence (or reverse setting) restarts at
// the first phrase; the initial delay is not replayed.
func (s *Sequencer) Reconfigure(cfg Config) error {
	if len(cfg.Phrases) == 0 {
		return ErrNoPhrases
	}
	cfg = cfg.Normalize()
	s.timing.update(cfg)
	s.loop = cfg.Loop
	if cfg.Reverse == s.reverse && samePhrases(s.phrases, cfg.Phrases) {
		return nil
	}
	s.reverse = cfg.Reverse
	s.phrases = buildPhrases(cfg.Phrases, cfg.Reverse)
	s.reset()
	return nil
}

func samePhrases(current []phrase, next []string) bool {
	if len(current) != len(next) {
		return false
	}
	for i := range current {
		if current[i].source != next[i] {
			return false
		}
	}
	return true
}

func (s *Sequencer) reset() {
	s.index = 0
	s.offset = 0
	s.mode = ModeTyping
	s.shown = nil
	s.paused = false
	s.finished = false
}

// State reports the current position.
func (s *Sequencer) State() State {
	return State{
		PhraseIndex: s.index,
		Offset:      s.offset,
		Length:      len(s.active().chars),
		Mode:        s.mode,
		Text:        join(s.shown),
		Paused:      s.paused,
		Done:        s.Done(),
	}
}

// Revealed reports whether any character has been typed yet.
func (s *Sequencer) Revealed() bool {
	return s.revealed
}

// Done reports whether the sequence reached its terminal state.
func (s *Sequencer) Done() bool {
	if s.finished {
		return true
	}
	return !s.loop &&
		s.mode == ModeTyping &&
		!s.paused &&
		s.index == len(s.phrases)-1 &&
		s.offset == len(s.active().chars)
}

func (s *Sequencer) active() phrase {
	return s.phrases[s.index]
}

// Next plans the pending step. It returns false once the sequence is done.
func (s *Sequencer) Next() (Step, bool) {
	if s.Done() {
		return Step{}, false
	}
	current := s.active()
	switch s.mode {
	case ModeDeleting:
		return Step{Action: ActionRemove, Delay: s.timing.NextDeletingDelay(), PhraseIndex: s.index}, true
	default:
		if s.paused {
			return Step{Action: ActionResume, Delay: s.timing.Pause(), PhraseIndex: s.index}, true
		}
		if s.offset < len(current.chars) {
			delay := s.timing.NextTypingDelay()
			if !s.revealed {
				delay += s.timing.InitialDelay()
			}
			return Step{
				Action:      ActionReveal,
				Delay:       delay,
				PhraseIndex: s.index,
				Char:        current.chars[s.offset],
			}, true
		}
		return Step{Action: ActionBeginDelete, Delay: s.timing.Pause(), PhraseIndex: s.index}, true
	}
}

// Apply performs step. Steps must come from Next and be applied in order.
func (s *Sequencer) Apply(step Step) Transition {
	var tr Transition
	switch step.Action {
	case ActionReveal:
		s.shown = append(s.shown, step.Char)
		s.offset++
		s.revealed = true
	case ActionBeginDelete:
		s.mode = ModeDeleting
		if len(s.shown) == 0 {
			tr.Completed = s.completePhrase()
		}
	case ActionRemove:
		if n := len(s.shown); n > 0 {
			s.shown = s.shown[:n-1]
			s.offset--
		}
		if len(s.shown) == 0 {
			tr.Completed = s.completePhrase()
		}
	case ActionResume:
		s.paused = false
	}
	if s.offset > len(s.active().chars) {
		s.offset = len(s.active().chars)
	}
	tr.Done = s.Done()
	return tr
}

// completePhrase runs the empty-after-deleting branch: notify, advance,
// then pause before typing again.
func (s *Sequencer) completePhrase() *Completion {
	done := &Completion{Phrase: s.active().source, Index: s.index}
	s.offset = 0
	s.shown = nil
	s.mode = ModeTyping
	last := s.index == len(s.phrases)-1
	if last && !s.loop {
		s.finished = true
		return done
	}
	s.index = (s.index + 1) % len(s.phrases)
	s.paused = true
	return done
}
