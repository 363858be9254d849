package ui

import (
	"fmt"

	"github.com/atomicstack/tmux-popup-find/internal/backend"
	"github.com/atomicstack/tmux-popup-find/internal/logging"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	tea "github.com/charmbracelet/bubbletea"
)

func waitForBackendEvent(w *backend.Watcher) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-w.Events()
		if !ok {
			return backendDoneMsg{}
		}
		return backendEventMsg{event: evt}
	}
}

type backendEventMsg struct {
	event backend.Event
}

type backendDoneMsg struct{}

func (m *Model) handleBackendEventMsg(msg tea.Msg) tea.Cmd {
	m.applyBackendEvent(msg.(backendEventMsg).event)
	if m.backend != nil {
		return waitForBackendEvent(m.backend)
	}
	return nil
}

func (m *Model) handleBackendDoneMsg(tea.Msg) tea.Cmd {
	m.backend = nil
	return nil
}

// applyBackendEvent swaps in refreshed content and, when a search is active,
// runs it again so the counter matches what is on screen.
func (m *Model) applyBackendEvent(evt backend.Event) {
	if evt.Err != nil {
		logging.Error(evt.Err)
		m.errMsg = fmt.Sprintf("reload failed: %v", evt.Err)
		m.dirty = true
		return
	}
	events.App.Reload(evt.Source, len(evt.Lines))
	switch evt.Kind {
	case backend.KindDocument:
		if m.doc == nil {
			return
		}
		m.doc.SetLines(evt.Lines)
		m.lines = m.doc.Lines()
	case backend.KindPane:
		m.lines = evt.Lines
	}
	m.infoMsg = fmt.Sprintf("reloaded %d lines", len(evt.Lines))
	m.dirty = true
	if m.session.IsSearching() {
		if err := m.session.Refresh(); err != nil {
			logging.Error(err)
		}
	}
}
