// Package plain paints animator snapshots to a writer that is not a
// terminal UI: a pipe, a log file or a dumb terminal.
package plain

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/csheth/typewriter/internal/typing"
)

// Options configures a Renderer.
type Options struct {
	// Lines prints one line per text change instead of rewriting a single
	// line with carriage returns.
	Lines bool
	// Cursor is appended while the snapshot reports a visible cursor.
	// Ignored in line mode.
	Cursor string
}

// Renderer writes snapshots to an io.Writer.
type Renderer struct {
	w    io.Writer
	opts Options

	lastText  string
	lastWidth int
	painted   bool
}

// New returns a renderer writing to w.
func New(w io.Writer, opts Options) *Renderer {
	return &Renderer{w: w, opts: opts}
}

// Render paints one snapshot.
func (r *Renderer) Render(snap typing.Snapshot) error {
	if r.opts.Lines {
		return r.renderLine(snap)
	}
	line := snap.Text
	if snap.CursorVisible {
		line += r.opts.Cursor
	}
	width := runewidth.StringWidth(line)
	pad := 0
	if r.lastWidth > width {
		pad = r.lastWidth - width
	}
	r.lastWidth = width
	r.painted = true
	_, err := fmt.Fprintf(r.w, "\r%s%s", line, strings.Repeat(" ", pad))
	return err
}

func (r *Renderer) renderLine(snap typing.Snapshot) error {
	if snap.Text == "" || snap.Text == r.lastText {
		return nil
	}
	r.painted = true
	r.lastText = snap.Text
	_, err := fmt.Fprintln(r.w, snap.Text)
	return err
}

// Finish terminates a rewritten line so later output starts on its own row.
func (r *Renderer) Finish() error {
	if r.opts.Lines || !r.painted {
		return nil
	}
	_, err := io.WriteString(r.w, "\n")
	return err
}

// Run renders snapshots until the channel closes, ctx is cancelled or the
// animator reports it has finished.
func (r *Renderer) Run(ctx context.Context, snaps <-chan typing.Snapshot) error {
	defer r.Finish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if err := r.Render(snap); err != nil {
				return err
			}
			if snap.Phase == typing.PhaseDone || snap.Phase == typing.PhaseStopped {
				return nil
			}
		}
	}
}
