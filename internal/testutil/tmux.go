package testutil

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
)

// TestSession is the session StartTmuxServer creates.
const TestSession = "tmux-popup-find-test"

// RequireTmux aborts the calling test when tmux is not present on PATH.
func RequireTmux(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("tmux")
	if err != nil {
		t.Skip("skipping: tmux binary not available")
	}
	return path
}

// StartTmuxServer boots a temporary tmux server bound to a unique socket. The
// first pane runs command (a long sleep when empty). The returned cleanup
// function terminates the server.
func StartTmuxServer(t *testing.T, command ...string) (string, func()) {
	t.Helper()
	RequireTmux(t)
	baseDir, err := os.MkdirTemp("/tmp", "tmux-popup-find-*")
	if err != nil {
		t.Fatalf("failed to create tmux temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(baseDir) })
	socketPath := filepath.Join(baseDir, "tmux-test.sock")
	if len(command) == 0 {
		command = []string{"sleep", "600"}
	}
	args := append([]string{"-f", "/dev/null", "new-session", "-d", "-x", "120", "-y", "40", "-s", TestSession}, command...)
	if err := tmuxCommand(socketPath, args...).Run(); err != nil {
		t.Skipf("skipping: failed to start tmux server: %v", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := killTmuxServerControl(ctx, socketPath); err != nil {
			t.Logf("control-mode kill failed for socket %s: %v; falling back to tmux kill-server", socketPath, err)
			_ = tmuxCommand(socketPath, "kill-server").Run()
		}
	}
	return socketPath, cleanup
}

// PaneID returns the id of the first pane in the test session.
func PaneID(t *testing.T, socketPath string) string {
	t.Helper()
	out, err := tmuxCommand(socketPath, "display-message", "-p", "-t", TestSession, "#{pane_id}").Output()
	if err != nil {
		t.Fatalf("display-message failed: %v", err)
	}
	return strings.TrimSpace(string(out))
}

// PaneMode reports the mode the pane is in ("copy-mode" or empty).
func PaneMode(t *testing.T, socketPath, target string) string {
	t.Helper()
	out, err := tmuxCommand(socketPath, "display-message", "-p", "-t", target, "#{pane_mode}").Output()
	if err != nil {
		t.Fatalf("display-message failed: %v", err)
	}
	return strings.TrimSpace(string(out))
}

// WaitForContent polls capture-pane until the pane shows want.
func WaitForContent(t *testing.T, socketPath, target, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		out, err := tmuxCommand(socketPath, "capture-pane", "-p", "-t", target).Output()
		if err == nil && strings.Contains(string(out), want) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("pane %s never showed %q", target, want)
}

func tmuxCommand(socket string, extra ...string) *exec.Cmd {
	trimmed := strings.TrimSpace(socket)
	args := make([]string, 0, len(extra)+2)
	if trimmed != "" {
		args = append(args, "-S", trimmed)
	}
	args = append(args, extra...)
	cmd := exec.Command("tmux", args...)
	env := make([]string, 0, len(os.Environ())+2)
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "TMUX=") {
			continue
		}
		env = append(env, entry)
	}
	env = append(env, "TMUX=")
	if trimmed != "" {
		env = append(env, "TMUX_TMPDIR="+filepath.Dir(trimmed))
	}
	cmd.Env = env
	return cmd
}

func killTmuxServerControl(ctx context.Context, socket string) error {
	if strings.TrimSpace(socket) == "" {
		return errors.New("empty tmux socket path")
	}
	client, err := gotmux.NewTmuxWithOptions(socket, gotmux.WithContext(ctx))
	if err != nil {
		return err
	}
	defer client.Close()
	return client.KillServer()
}
