package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/typewriter/internal/profile"
	"github.com/csheth/typewriter/internal/typing"
)

type snapshotMsg struct {
	generation int
	snapshot   typing.Snapshot
}

type streamClosedMsg struct {
	generation int
}

type reloadMsg struct {
	reload profile.Reload
}

type copyResultMsg struct {
	chars int
	err   error
}

// waitForSnapshot blocks on the animator subscription. Each message carries
// the generation of the animator that produced it so that a restart can
// retire the old stream.
func waitForSnapshot(generation int, updates <-chan typing.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return streamClosedMsg{generation: generation}
		}
		return snapshotMsg{generation: generation, snapshot: snap}
	}
}

func waitForReload(reloads <-chan profile.Reload) tea.Cmd {
	if reloads == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-reloads
		if !ok {
			return nil
		}
		return reloadMsg{reload: r}
	}
}

func reloadProfileJob(path string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 35*time.Second)
		defer cancel()
		p, warnings, err := profile.Load(ctx, path)
		return reloadMsg{reload: profile.Reload{Profile: p, Warnings: warnings, Err: err}}, err
	}
}

func copyTextJob(write func(string) error, text string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		if write == nil {
			err := errors.New("clipboard unavailable")
			return copyResultMsg{err: err}, err
		}
		if err := write(text); err != nil {
			return copyResultMsg{err: err}, err
		}
		return copyResultMsg{chars: len(typing.Graphemes(text))}, nil
	}
}
