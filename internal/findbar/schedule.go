package findbar

import "time"

// DefaultFocusDelay is how long focus is held back after a window target
// settles on its last match, so the native highlight scroll can finish first.
const DefaultFocusDelay = 100 * time.Millisecond

// Task is a handle to a scheduled callback.
type Task interface {
	Cancel()
}

// Scheduler runs callbacks on the session's event loop.
type Scheduler interface {
	// Defer runs fn on the next turn of the loop.
	Defer(fn func()) Task
	// After runs fn on the loop once d has elapsed.
	After(d time.Duration, fn func()) Task
}

// Logger receives diagnostic trace entries.
type Logger interface {
	Trace(event string, payload map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Trace(string, map[string]interface{}) {}

// ManualScheduler queues tasks until Run or Advance is called. It lets tests
// and headless hosts control exactly when deferred work happens.
type ManualScheduler struct {
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() {
	t.cancelled = true
}

// Defer implements Scheduler.
func (s *ManualScheduler) Defer(fn func()) Task {
	return s.After(0, fn)
}

// After implements Scheduler.
func (s *ManualScheduler) After(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}
	task := &manualTask{due: s.now + d, fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

// Pending reports how many uncancelled tasks are queued.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Run executes every task that is due now, including tasks queued by the
// tasks it runs.
func (s *ManualScheduler) Run() int {
	return s.Advance(0)
}

// Advance moves the clock forward by d and runs every task that became due,
// in due order. It returns the number of tasks executed.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.now += d
	ran := 0
	for {
		idx := -1
		for i, t := range s.tasks {
			if t.due > s.now {
				continue
			}
			if idx < 0 || t.due < s.tasks[idx].due {
				idx = i
			}
		}
		if idx < 0 {
			return ran
		}
		task := s.tasks[idx]
		s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
		if task.cancelled || task.fn == nil {
			continue
		}
		task.fn()
		ran++
	}
}
