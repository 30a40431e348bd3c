package typing

import (
	"context"
	"sync"
)

// Gate is a one-shot latch that holds the animation until the host surface
// is first seen. Once open it never closes.
type Gate struct {
	mu   sync.Mutex
	open bool
}

// NewGate returns a gate that starts closed only when enabled.
func NewGate(enabled bool) *Gate {
	return &Gate{open: !enabled}
}

// Observe feeds an intersection signal and reports whether this call opened
// the gate.
func (g *Gate) Observe(intersecting bool) bool {
	if !intersecting {
		return false
	}
	return g.Open()
}

// Open forces the gate open and reports whether it was closed before.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return false
	}
	g.open = true
	return true
}

func (g *Gate) Opened() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// VisibilitySource produces intersection signals for a host surface.
type VisibilitySource interface {
	Visible() <-chan bool
}

// WatchVisibility forwards signals from src into the animator until the gate
// opens, the source closes, or ctx is cancelled.
func WatchVisibility(ctx context.Context, animator *Animator, src VisibilitySource) {
	signals := src.Visible()
	for {
		if animator.Visible() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case visible, ok := <-signals:
			if !ok {
				return
			}
			animator.SetVisible(visible)
		}
	}
}
