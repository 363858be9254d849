package main

import (
	"fmt"
	"io"
	"os"

	"github.com/atomicstack/tmux-popup-find/internal/app"
	"github.com/atomicstack/tmux-popup-find/internal/config"
	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/logging"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), os.Stderr))
}

// run loads configuration, starts the popup and returns the exit status.
func run(args, environ []string, stderr io.Writer) int {
	runtimeCfg, err := config.LoadArgs(args, environ)
	if err == nil {
		err = config.Validate(runtimeCfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 2
	}
	logging.Configure(runtimeCfg.Logging.FilePath)
	logging.SetTraceEnabled(runtimeCfg.Logging.Trace)

	traceStartup(runtimeCfg)

	if err := app.Run(runtimeCfg.App); err != nil {
		logging.Error(err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func traceStartup(cfg config.Config) {
	events.App.Start(startupTracePayload(cfg))
}

// startupTracePayload bundles runtime context for trace logging.
func startupTracePayload(cfg config.Config) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	payload := map[string]interface{}{
		"argv":    cfg.Args,
		"flags":   flags,
		"config":  cfg,
		"target":  describeTarget(cfg),
		"session": describeSession(cfg.App),
	}
	if cfg.File != "" {
		payload["configFile"] = cfg.File
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	} else {
		payload["executableError"] = err.Error()
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	} else {
		payload["cwdError"] = err.Error()
	}
	payload["tty"] = collectTTYDetails()
	return payload
}

// describeTarget names what the session will search, for the startup trace.
func describeTarget(cfg config.Config) string {
	switch {
	case cfg.App.Document == "-":
		return "document:stdin"
	case cfg.App.Document != "":
		return "document:" + cfg.App.Document
	case cfg.App.Pane != "":
		return "pane:" + cfg.App.Pane
	default:
		return "pane:current"
	}
}

type sessionDetails struct {
	Wiring     string `json:"wiring"`
	MatchMode  string `json:"match_mode"`
	FocusDelay string `json:"focus_delay"`
	Preload    bool   `json:"preload"`
	Follow     bool   `json:"follow"`
	Inspect    bool   `json:"inspect"`
	Hints      bool   `json:"hints"`
	Theme      string `json:"theme,omitempty"`
	Size       string `json:"size,omitempty"`
}

// describeSession records how the find session will behave once running: the
// target wiring, the resolved match mode and the effective focus delay.
func describeSession(a app.Config) sessionDetails {
	wiring := findbar.TargetWindow
	if a.Document != "" {
		wiring = findbar.TargetEmbedded
	}
	mode, err := match.ParseMode(a.MatchMode)
	if err != nil {
		mode = match.Mode(a.MatchMode)
	}
	delay := a.FocusDelay
	if delay <= 0 {
		delay = findbar.DefaultFocusDelay
	}
	details := sessionDetails{
		Wiring:     wiring.String(),
		MatchMode:  string(mode),
		FocusDelay: delay.String(),
		Preload:    a.Preload,
		Follow:     a.Follow,
		Inspect:    a.Inspect,
		Hints:      a.Hints,
		Theme:      a.ThemePath,
	}
	if a.Width > 0 || a.Height > 0 {
		details.Size = fmt.Sprintf("%dx%d", a.Width, a.Height)
	}
	return details
}

type ttyDetails struct {
	Detected *ttyDetected     `json:"detected,omitempty"`
	Probes   []ttyProbeResult `json:"probes"`
}

type ttyDetected struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ttyProbeResult struct {
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

// collectTTYDetails inspects standard descriptors for terminal support and dimensions.
func collectTTYDetails() ttyDetails {
	probes := []struct {
		name string
		fd   uintptr
	}{
		{"stdin", os.Stdin.Fd()},
		{"stdout", os.Stdout.Fd()},
		{"stderr", os.Stderr.Fd()},
	}
	results := make([]ttyProbeResult, 0, len(probes))
	var detected *ttyDetected
	for _, probe := range probes {
		entry := ttyProbeResult{Name: probe.name}
		fd := int(probe.fd)
		if fd >= 0 && term.IsTerminal(fd) {
			entry.IsTerminal = true
			if width, height, err := term.GetSize(fd); err == nil {
				entry.Width = width
				entry.Height = height
				if detected == nil {
					detected = &ttyDetected{Source: probe.name, Width: width, Height: height}
				}
			} else {
				entry.Error = err.Error()
			}
		} else {
			entry.IsTerminal = false
		}
		results = append(results, entry)
	}
	return ttyDetails{Detected: detected, Probes: results}
}
