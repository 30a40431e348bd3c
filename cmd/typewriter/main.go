package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/csheth/typewriter/internal/journal"
	"github.com/csheth/typewriter/internal/plain"
	"github.com/csheth/typewriter/internal/profile"
	"github.com/csheth/typewriter/internal/tui"
	"github.com/csheth/typewriter/internal/typing"
)

const (
	profileEnvVar = "TYPEWRITER_PROFILE"
	logEnvVar     = "TYPEWRITER_LOG"
)

var demoPhrases = []string{
	"Hello, world.",
	"Pass -text or -profile to type your own phrases.",
}

func main() {
	profilePath := flag.String("profile", os.Getenv(profileEnvVar), "animation profile (.yaml, .toml, .txt, .pdf or an http(s) phrase list)")
	text := flag.String("text", "", "phrases separated by '|' (overrides -profile)")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	plainMode := flag.Bool("plain", false, "render without the terminal UI")
	lines := flag.Bool("lines", false, "plain output: print one line per change instead of rewriting a single line")
	journalPath := flag.String("journal", "", "append completed phrases as JSON lines to this file")
	noColor := flag.Bool("no-color", os.Getenv("NO_COLOR") != "", "disable colour output")
	seed := flag.Int64("seed", 0, "seed for variable typing speed (0 seeds from the clock)")
	watch := flag.Bool("watch", false, "reload the profile when the file changes")
	flag.Parse()

	useTUI := !*plainMode && isatty.IsTerminal(os.Stdout.Fd())

	logFile, err := setupLogging(os.Getenv(logEnvVar))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if *noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof, warnings, err := loadProfile(ctx, *profilePath, *text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load profile:", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "profile warning:", w)
	}

	if *journalPath != "" {
		j, err := journal.Open(*journalPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to open journal:", err)
			os.Exit(1)
		}
		prof.Animation.OnPhraseComplete = func(phrase string, index int) {
			if _, err := j.Record(phrase, index); err != nil {
				log.Printf("[journal] record failed: %v", err)
			}
		}
	}

	var opts []typing.Option
	if *seed != 0 {
		opts = append(opts, typing.WithRand(rand.New(rand.NewSource(*seed))))
	}

	var reloads <-chan profile.Reload
	if *watch {
		if prof.Path == "" || strings.Contains(prof.Path, "://") {
			fmt.Fprintln(os.Stderr, "-watch needs a local -profile file; ignoring")
		} else if reloads, err = profile.Watch(ctx, prof.Path); err != nil {
			fmt.Fprintln(os.Stderr, "failed to watch profile:", err)
			os.Exit(1)
		}
	}

	if useTUI {
		err = runTUI(prof, reloads, opts, *noAltScreen)
	} else {
		err = runPlain(ctx, prof, reloads, opts, *lines)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "program error:", err)
		os.Exit(1)
	}
}

// setupLogging sends log output to path, or discards it so log lines never
// interleave with the animation.
func setupLogging(path string) (*os.File, error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	return tea.LogToFile(path, "typewriter")
}

func loadProfile(ctx context.Context, path, text string) (profile.Profile, []profile.Warning, error) {
	if text != "" || path == "" {
		phrases := demoPhrases
		if text != "" {
			phrases = strings.Split(text, "|")
		}
		p := profile.Default(phrases...)
		warnings, err := profile.Validate(&p)
		return p, warnings, err
	}
	return profile.Load(ctx, path)
}

func runTUI(prof profile.Profile, reloads <-chan profile.Reload, opts []typing.Option, noAltScreen bool) error {
	teaOpts := []tea.ProgramOption{}
	if !noAltScreen {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Profile: prof,
			Reloads: reloads,
			Options: opts,
		}),
		teaOpts...,
	)
	_, err := program.Run()
	return err
}

// runPlain treats stdout as always visible, so a gated profile starts
// straight away.
func runPlain(ctx context.Context, prof profile.Profile, reloads <-chan profile.Reload, opts []typing.Option, lines bool) error {
	animator, err := typing.New(prof.Animation, opts...)
	if err != nil {
		return err
	}
	defer animator.Stop()

	updates := animator.Subscribe(64)
	animator.Start()
	animator.SetVisible(true)

	if reloads != nil {
		onComplete := prof.Animation.OnPhraseComplete
		go func() {
			for r := range reloads {
				if r.Err != nil {
					log.Printf("[profile] keeping previous profile: %v", r.Err)
					continue
				}
				cfg := r.Profile.Animation
				cfg.OnPhraseComplete = onComplete
				if err := animator.Reconfigure(cfg); err != nil {
					log.Printf("[profile] reconfigure failed: %v", err)
				}
			}
		}()
	}

	renderer := plain.New(os.Stdout, plain.Options{Lines: lines, Cursor: prof.CursorCharacter})
	return renderer.Run(ctx, updates)
}
