package tmux

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ResolveSocketPath picks the tmux server socket: the flag value, then
// TMUX_POPUP_FIND_SOCKET, then the socket from $TMUX, then tmux's default.
func ResolveSocketPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if envSocket := os.Getenv("TMUX_POPUP_FIND_SOCKET"); envSocket != "" {
		return envSocket, nil
	}
	if tmuxEnv := os.Getenv("TMUX"); tmuxEnv != "" {
		parts := strings.Split(tmuxEnv, ",")
		if len(parts) > 0 && parts[0] != "" {
			return parts[0], nil
		}
	}
	baseDir := os.Getenv("TMUX_TMPDIR")
	if baseDir == "" {
		baseDir = "/tmp"
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, fmt.Sprintf("tmux-%s", u.Uid), "default"), nil
}

// CurrentPaneID returns the pane the popup was launched from. TMUX_PANE wins;
// otherwise the server is asked for the active pane of the attached client.
func CurrentPaneID(socketPath string) (string, error) {
	if pane := strings.TrimSpace(os.Getenv("TMUX_PANE")); pane != "" {
		return pane, nil
	}
	client, err := newTmux(socketPath)
	if err != nil {
		return "", err
	}
	defer client.Close()
	id, err := client.DisplayMessage("", "#{pane_id}")
	if err != nil {
		return "", fmt.Errorf("resolve current pane: %w", err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("resolve current pane: tmux returned no pane id")
	}
	return id, nil
}
