package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/backend"
	"github.com/atomicstack/tmux-popup-find/internal/document"
	"github.com/atomicstack/tmux-popup-find/internal/logging"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"github.com/atomicstack/tmux-popup-find/internal/theme"
	"github.com/atomicstack/tmux-popup-find/internal/tmux"
	"github.com/atomicstack/tmux-popup-find/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

// Config describes user-provided application options.
type Config struct {
	SocketPath string
	// Pane selects a tmux pane to search. When both Pane and Document are
	// empty the current pane is used.
	Pane string
	// Document is a file to page through, or "-" for stdin.
	Document   string
	MatchMode  string
	Preload    bool
	FocusDelay time.Duration
	ThemePath  string
	Inspect    bool
	Follow     bool
	Hints      bool
	Width      int
	Height     int
}

const (
	stdinName    = "-"
	paneInterval = 500 * time.Millisecond
)

// relay hands search results from target goroutines to the running program.
// Results that arrive before the program starts, or after it exits, are
// dropped; the session ignores them either way.
type relay struct {
	program atomic.Pointer[tea.Program]
}

func (r *relay) deliver(fn func()) {
	if p := r.program.Load(); p != nil {
		p.Send(ui.Callback(fn))
	}
}

// runtime holds everything Run needs to tear down after the program exits.
type runtime struct {
	model    *ui.Model
	pane     *tmux.Pane
	watcher  *backend.Watcher
	inputTTY bool
}

func (rt *runtime) close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if rt.pane != nil {
		if err := rt.pane.Close(); err != nil {
			logging.Error(err)
		}
	}
}

// Run bootstraps and executes the Bubble Tea program.
func Run(cfg Config) (err error) {
	defer func() { events.App.Exit(err) }()

	r := &relay{}
	rt, err := prepare(cfg, r.deliver, os.Stdin)
	if err != nil {
		return err
	}
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if rt.inputTTY {
		// stdin carried the document, so keys come from the terminal.
		opts = append(opts, tea.WithInputTTY())
	}
	program := tea.NewProgram(rt.model, opts...)
	r.program.Store(program)
	_, err = program.Run()
	r.program.Store(nil)
	// The pane worker may be blocked in Send until the program has stopped.
	rt.close()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func prepare(cfg Config, deliver func(func()), stdin io.Reader) (*runtime, error) {
	mode, err := match.ParseMode(cfg.MatchMode)
	if err != nil {
		return nil, err
	}
	matcher := match.New(mode)

	styles := theme.Default()
	if cfg.ThemePath != "" {
		if styles, err = theme.Load(cfg.ThemePath); err != nil {
			return nil, err
		}
	}

	opts := ui.Options{
		Styles:     styles,
		Preload:    cfg.Preload,
		FocusDelay: cfg.FocusDelay,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Inspect:    cfg.Inspect,
		Hints:      cfg.Hints,
	}
	rt := &runtime{}

	if cfg.Document == "" {
		if err := preparePane(cfg, matcher, deliver, rt, &opts); err != nil {
			return nil, err
		}
	} else if err := prepareDocument(cfg, matcher, deliver, stdin, rt, &opts); err != nil {
		return nil, err
	}

	model, err := ui.NewModel(opts)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.model = model
	return rt, nil
}

func preparePane(cfg Config, matcher *match.Matcher, deliver func(func()), rt *runtime, opts *ui.Options) error {
	socketPath, err := tmux.ResolveSocketPath(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}
	target := strings.TrimSpace(cfg.Pane)
	if target == "" {
		if target, err = tmux.CurrentPaneID(socketPath); err != nil {
			return err
		}
	}
	pane, err := tmux.OpenPane(socketPath, target, matcher, deliver)
	if err != nil {
		return err
	}
	rt.pane = pane
	opts.Pane = pane
	if cfg.Follow {
		rt.watcher = backend.WatchPane(target, pane.Capture, paneInterval)
		opts.Watcher = rt.watcher
	}
	return nil
}

func prepareDocument(cfg Config, matcher *match.Matcher, deliver func(func()), stdin io.Reader, rt *runtime, opts *ui.Options) error {
	var (
		lines []string
		err   error
		name  = cfg.Document
	)
	if name == stdinName {
		name = "stdin"
		lines, err = document.Read(stdin)
		rt.inputTTY = true
	} else {
		lines, err = document.ReadFile(cfg.Document)
	}
	if err != nil {
		return err
	}
	opts.Document = document.New(name, lines, matcher, deliver)
	if cfg.Follow && cfg.Document != stdinName {
		watcher, err := backend.WatchFile(cfg.Document, 0)
		if err != nil {
			return err
		}
		rt.watcher = watcher
		opts.Watcher = watcher
	}
	return nil
}
