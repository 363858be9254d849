package ui

import (
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	tea "github.com/charmbracelet/bubbletea"
)

// loopScheduler implements findbar.Scheduler on top of Bubble Tea commands.
// Tasks come back to Update as taskMsg, so they always run on the event loop,
// after the message that scheduled them.
type loopScheduler struct {
	pending []tea.Cmd
}

type loopTask struct {
	fn        func()
	cancelled bool
}

func (t *loopTask) Cancel() { t.cancelled = true }

type taskMsg struct {
	task *loopTask
}

func (s *loopScheduler) Defer(fn func()) findbar.Task {
	task := &loopTask{fn: fn}
	s.pending = append(s.pending, func() tea.Msg { return taskMsg{task: task} })
	return task
}

func (s *loopScheduler) After(d time.Duration, fn func()) findbar.Task {
	task := &loopTask{fn: fn}
	s.pending = append(s.pending, tea.Tick(d, func(time.Time) tea.Msg { return taskMsg{task: task} }))
	return task
}

func (s *loopScheduler) drain() []tea.Cmd {
	cmds := s.pending
	s.pending = nil
	return cmds
}

func (m *Model) handleTaskMsg(msg tea.Msg) tea.Cmd {
	task := msg.(taskMsg).task
	if task == nil || task.cancelled || task.fn == nil {
		return nil
	}
	task.fn()
	return nil
}

// callbackMsg carries work from a target's background goroutine onto the loop.
type callbackMsg struct {
	fn func()
}

// Callback wraps fn in a message for tea.Program.Send. Targets use it as their
// deliver function so results are applied on the event loop.
func Callback(fn func()) tea.Msg {
	return callbackMsg{fn: fn}
}

func (m *Model) handleCallbackMsg(msg tea.Msg) tea.Cmd {
	if fn := msg.(callbackMsg).fn; fn != nil {
		fn()
	}
	return nil
}
