package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/app"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"github.com/pelletier/go-toml/v2"
)

// Config captures runtime configuration for the application.
type Config struct {
	App     app.Config
	Logging Logging
	// File is the config file that supplied defaults, or "" when none was read.
	File  string
	Flags map[string]string
	Args  []string
}

type Logging struct {
	FilePath string
	Trace    bool
}

const (
	envSocketPath = "TMUX_POPUP_FIND_SOCKET"
	envPane       = "TMUX_POPUP_FIND_PANE"
	envMatch      = "TMUX_POPUP_FIND_MATCH"
	envPreload    = "TMUX_POPUP_FIND_PRELOAD"
	envFocusDelay = "TMUX_POPUP_FIND_FOCUS_DELAY"
	envTheme      = "TMUX_POPUP_FIND_THEME"
	envInspect    = "TMUX_POPUP_FIND_INSPECT"
	envFollow     = "TMUX_POPUP_FIND_FOLLOW"
	envHints      = "TMUX_POPUP_FIND_HINTS"
	envWidth      = "TMUX_POPUP_FIND_WIDTH"
	envHeight     = "TMUX_POPUP_FIND_HEIGHT"
	envTrace      = "TMUX_POPUP_FIND_TRACE"
	envLogFile    = "TMUX_POPUP_FIND_LOG_FILE"
	envConfig     = "TMUX_POPUP_FIND_CONFIG"
)

// fileConfig is the TOML layout of the optional config file. Pointer fields
// distinguish "unset" from an explicit false or zero.
type fileConfig struct {
	Socket     string `toml:"socket"`
	Match      string `toml:"match"`
	Preload    *bool  `toml:"preload"`
	FocusDelay string `toml:"focus_delay"`
	Theme      string `toml:"theme"`
	Inspect    *bool  `toml:"inspect"`
	Follow     *bool  `toml:"follow"`
	Hints      *bool  `toml:"hints"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Trace      *bool  `toml:"trace"`
	LogFile    string `toml:"log_file"`
}

// LoadArgs parses configuration from CLI arguments and environment variables.
// Precedence, from lowest: config file, environment, flags.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	path, explicit := configPath(args, env)
	file, err := readFile(path, explicit)
	if err != nil {
		return Config{}, err
	}
	usedFile := ""
	if file != nil {
		usedFile = path
	} else {
		file = &fileConfig{}
	}

	fileDelay := time.Duration(0)
	if file.FocusDelay != "" {
		fileDelay, err = time.ParseDuration(file.FocusDelay)
		if err != nil {
			return Config{}, fmt.Errorf("%s: focus_delay: %w", path, err)
		}
	}

	fset := flag.NewFlagSet("tmux-popup-find", flag.ContinueOnError)
	fset.SetOutput(new(strings.Builder))

	socket := fset.String("socket", envOrDefault(env, envSocketPath, file.Socket), "path to the tmux socket (overrides environment detection)")
	pane := fset.String("pane", envOrDefault(env, envPane, ""), "tmux pane to search (defaults to the current pane when no document is given)")
	mode := fset.String("match", envOrDefault(env, envMatch, file.Match), "match mode: literal or fuzzy")
	preload := fset.Bool("preload", envOrBool(env, envPreload, boolOr(file.Preload, false)), "wire the find bar at startup instead of on first open")
	focusDelay := fset.Duration("focus-delay", envOrDuration(env, envFocusDelay, fileDelay), "delay before refocusing the input after landing on the last pane match (0 uses the default)")
	themePath := fset.String("theme", envOrDefault(env, envTheme, file.Theme), "path to a TOML theme file")
	inspect := fset.Bool("inspect", envOrBool(env, envInspect, boolOr(file.Inspect, false)), "show the find session inspector panel")
	follow := fset.Bool("follow", envOrBool(env, envFollow, boolOr(file.Follow, false)), "reload the document or pane as it changes")
	hints := fset.Bool("hints", envOrBool(env, envHints, boolOr(file.Hints, true)), "show the key hint row in the find bar")
	width := fset.Int("width", envOrInt(env, envWidth, file.Width), "desired viewport width in cells (0 uses terminal width)")
	height := fset.Int("height", envOrInt(env, envHeight, file.Height), "desired viewport height in rows (0 uses terminal height)")
	trace := fset.Bool("trace", envOrBool(env, envTrace, boolOr(file.Trace, false)), "enable verbose JSON trace logging")
	logFile := fset.String("log-file", envOrDefault(env, envLogFile, file.LogFile), "path to the log file")
	fset.String("config", path, "path to a TOML config file")

	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}
	if fset.NArg() > 1 {
		return Config{}, fmt.Errorf("expected at most one document path, got %d", fset.NArg())
	}
	document := fset.Arg(0)

	cfg := Config{
		App: app.Config{
			SocketPath: *socket,
			Pane:       *pane,
			Document:   document,
			MatchMode:  *mode,
			Preload:    *preload,
			FocusDelay: *focusDelay,
			ThemePath:  *themePath,
			Inspect:    *inspect,
			Follow:     *follow,
			Hints:      *hints,
			Width:      *width,
			Height:     *height,
		},
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		File: usedFile,
		Flags: map[string]string{
			"socket":     *socket,
			"pane":       *pane,
			"match":      *mode,
			"preload":    strconv.FormatBool(*preload),
			"focusDelay": focusDelay.String(),
			"theme":      *themePath,
			"inspect":    strconv.FormatBool(*inspect),
			"follow":     strconv.FormatBool(*follow),
			"hints":      strconv.FormatBool(*hints),
			"width":      strconv.Itoa(*width),
			"height":     strconv.Itoa(*height),
			"trace":      strconv.FormatBool(*trace),
			"logFile":    *logFile,
			"config":     usedFile,
		},
		Args: append([]string(nil), args...),
	}

	return cfg, nil
}

// configPath finds the config file before the flag set is built, since the
// file supplies the flags' defaults. It reports whether the path was asked
// for explicitly, in which case a missing file is an error.
func configPath(args []string, env map[string]string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, "config="); ok {
			return value, true
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	if v := strings.TrimSpace(env[envConfig]); v != "" {
		return v, true
	}
	base := env["XDG_CONFIG_HOME"]
	if base == "" {
		home := env["HOME"]
		if home == "" {
			return "", false
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tmux-popup-find", "config.toml"), false
}

func readFile(path string, explicit bool) (*fileConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var file fileConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &file, nil
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) int {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDuration(env map[string]string, key string, fallback time.Duration) time.Duration {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// Validate rejects option combinations the app cannot run with.
func Validate(cfg Config) error {
	a := cfg.App
	if a.FocusDelay < 0 {
		return fmt.Errorf("focus-delay must be >= 0 (got %s)", a.FocusDelay)
	}
	if a.Width < 0 {
		return fmt.Errorf("width must be >= 0 (got %d)", a.Width)
	}
	if a.Height < 0 {
		return fmt.Errorf("height must be >= 0 (got %d)", a.Height)
	}
	if _, err := match.ParseMode(a.MatchMode); err != nil {
		return err
	}
	if strings.TrimSpace(a.Pane) != "" && a.Document != "" {
		return errors.New("choose either -pane or a document path, not both")
	}
	return nil
}
