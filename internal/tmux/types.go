package tmux

import (
	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
)

// tmuxClient is the subset of the control-mode client the pane target uses.
type tmuxClient interface {
	Command(parts ...string) (string, error)
	DisplayMessage(target, format string) (string, error)
	Close() error
}

var newTmux = func(socketPath string) (tmuxClient, error) {
	if socketPath != "" {
		return gotmux.NewTmux(socketPath)
	}
	return gotmux.DefaultTmux()
}
