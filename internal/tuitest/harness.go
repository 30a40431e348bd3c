package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 100
	defaultHeight  = 32
	defaultTimeout = 8 * time.Second
	pollInterval   = 10 * time.Millisecond
)

// Step is one scripted interaction. The harness first sleeps for Delay, then
// waits until WaitFor shows up in the escape-free output, then writes Input.
// Any of the three may be empty.
type Step struct {
	Delay   time.Duration
	WaitFor string
	Input   []byte
}

// Config describes the program run inside the pseudo terminal.
type Config struct {
	Command []string
	Dir     string
	// Env is appended to the caller's environment minus TYPEWRITER_* and
	// NO_COLOR, so a developer's own profile never leaks into a run.
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

// Recording is everything the program wrote plus the terminal state it left.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Terminal TerminalState
	Duration time.Duration
}

// session owns the pty and the output captured from it.
type session struct {
	ptmx     *os.File
	mu       sync.Mutex
	output   bytes.Buffer
	emulator *terminalEmulator
	drained  chan struct{}
}

func (s *session) pump() {
	defer close(s.drained)
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.emulator.Process(buf[:n])
			s.output.Write(buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *session) plain() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stripANSI(strings.ReplaceAll(s.output.String(), "\r", ""))
}

func (s *session) waitFor(ctx context.Context, text string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for !strings.Contains(s.plain(), text) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("tuitest: %q never appeared: %w", text, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func (s *session) play(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tuitest: step %d: %w", i, ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if step.WaitFor != "" {
			if err := s.waitFor(ctx, step.WaitFor); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		if len(step.Input) > 0 {
			if _, err := s.ptmx.Write(step.Input); err != nil {
				return fmt.Errorf("tuitest: step %d: write input: %w", i, err)
			}
		}
	}
	return nil
}

// Run starts cfg.Command in a pseudo terminal, plays the steps and waits for
// the program to exit.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(cfg.Timeout, defaultTimeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	size := &pty.Winsize{
		Rows: uint16(orDefault(cfg.Height, defaultHeight)),
		Cols: uint16(orDefault(cfg.Width, defaultWidth)),
	}
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	s := &session{ptmx: ptmx, drained: make(chan struct{})}
	s.emulator = newTerminalEmulator(ptmx)
	go s.pump()

	start := time.Now()
	if err := s.play(ctx, cfg.Steps); err != nil {
		return nil, err
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	select {
	case err := <-exited:
		if err != nil && !exitAllowed(err, cfg) {
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}

	// Closing the pty ends the pump once the remaining output is read.
	_ = ptmx.Close()
	<-s.drained

	s.mu.Lock()
	raw := append([]byte(nil), s.output.Bytes()...)
	state := s.emulator.State()
	s.mu.Unlock()
	return &Recording{
		Raw:      raw,
		Frames:   parseFrames(raw),
		Terminal: state,
		Duration: time.Since(start),
	}, nil
}

func exitAllowed(err error, cfg Config) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	for _, code := range cfg.AllowedExitCodes {
		if exitErr.ExitCode() == code {
			return true
		}
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && cfg.AllowInterrupt {
		return status.Signaled() && status.Signal() == syscall.SIGINT
	}
	return false
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func buildEnv(extra []string) []string {
	env := make([]string, 0, len(extra)+8)
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "TYPEWRITER_") || strings.HasPrefix(entry, "NO_COLOR=") {
			continue
		}
		env = append(env, entry)
	}
	env = append(env, extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

// Keys the typewriter TUI listens for.
var (
	KeyCtrlC   = []byte{3}
	KeyEsc     = []byte{27}
	KeyEnter   = []byte{'\r'}
	KeyHelp    = []byte{'?'}
	KeyVisible = []byte{'v'}
	KeyRestart = []byte{'r'}
	KeyAdd     = []byte{'a'}
	KeyReload  = []byte{'l'}
	KeyQuit    = []byte{'q'}
)

// Keys returns printable input for a step.
func Keys(s string) []byte {
	return []byte(s)
}
