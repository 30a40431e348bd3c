package tuitest

import (
	"bytes"
	"io"
)

// TerminalState is what the program left the pseudo terminal in, as far as
// the typewriter cares: whether the real cursor is hidden behind the drawn
// glyph and whether the alternate screen was used.
type TerminalState struct {
	CursorHidden     bool
	HidCursor        bool
	AltScreen        bool
	EnteredAltScreen bool
	// Queries counts the startup probes that were answered.
	Queries int
}

// terminalReplies are canned answers for the probes bubbletea and termenv
// send at startup. Without them termenv waits for its query timeout.
var terminalReplies = []struct {
	query string
	reply string
}{
	{"\x1b[6n", "\x1b[1;1R"},
	{"\x1b]10;?\x07", "\x1b]10;rgb:cccc/cccc/cccc\x07"},
	{"\x1b]10;?\x1b\\", "\x1b]10;rgb:cccc/cccc/cccc\x1b\\"},
	{"\x1b]11;?\x07", "\x1b]11;rgb:0000/0000/0000\x07"},
	{"\x1b]11;?\x1b\\", "\x1b]11;rgb:0000/0000/0000\x1b\\"},
}

var modeSwitches = []struct {
	seq   string
	apply func(*TerminalState)
}{
	{"\x1b[?25l", func(s *TerminalState) { s.CursorHidden, s.HidCursor = true, true }},
	{"\x1b[?25h", func(s *TerminalState) { s.CursorHidden = false }},
	{"\x1b[?1049h", func(s *TerminalState) { s.AltScreen, s.EnteredAltScreen = true, true }},
	{"\x1b[?1049l", func(s *TerminalState) { s.AltScreen = false }},
}

// longestSequence bounds the tail kept between reads.
var longestSequence = func() int {
	n := 0
	for _, r := range terminalReplies {
		n = max(n, len(r.query))
	}
	for _, m := range modeSwitches {
		n = max(n, len(m.seq))
	}
	return n
}()

// terminalEmulator plays the terminal side of the pty: it answers probes
// and follows the mode switches the program writes.
type terminalEmulator struct {
	w     io.Writer
	buf   []byte
	state TerminalState
}

func newTerminalEmulator(w io.Writer) *terminalEmulator {
	return &terminalEmulator{w: w}
}

// Process consumes program output in arrival order. Sequences split across
// reads are matched once the rest arrives.
func (e *terminalEmulator) Process(chunk []byte) {
	e.buf = append(e.buf, chunk...)
	for e.step() {
	}
	if keep := longestSequence - 1; len(e.buf) > keep {
		e.buf = append(e.buf[:0], e.buf[len(e.buf)-keep:]...)
	}
}

// step handles the earliest known sequence in the buffer so that a hide
// followed by a show in the same chunk ends with the cursor shown.
func (e *terminalEmulator) step() bool {
	at, end := -1, 0
	var reply string
	var apply func(*TerminalState)
	consider := func(seq string) bool {
		idx := bytes.Index(e.buf, []byte(seq))
		if idx < 0 || (at >= 0 && idx >= at) {
			return false
		}
		at, end = idx, idx+len(seq)
		return true
	}
	for _, r := range terminalReplies {
		if consider(r.query) {
			reply, apply = r.reply, nil
		}
	}
	for _, m := range modeSwitches {
		if consider(m.seq) {
			reply, apply = "", m.apply
		}
	}
	if at < 0 {
		return false
	}
	e.buf = e.buf[end:]
	if apply != nil {
		apply(&e.state)
		return true
	}
	e.state.Queries++
	_, _ = io.WriteString(e.w, reply)
	return true
}

// State returns the terminal state after everything processed so far.
func (e *terminalEmulator) State() TerminalState {
	return e.state
}
