package ui

import (
	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/logging"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	key := msg.(tea.KeyMsg)
	if key.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.session.IsOpen() && m.overlay.Focused() {
		return m.overlay.Update(key)
	}
	m.errMsg = ""
	switch key.String() {
	case "q":
		return m.quit()
	case "ctrl+f", "/":
		m.session.Open()
		return nil
	case "esc":
		if m.session.IsOpen() {
			m.session.Close()
		} else {
			m.session.Cancel()
		}
		return nil
	case "n", "N":
		m.findNext(key.String() == "n")
		return nil
	case "i":
		m.inspect = !m.inspect
		m.dirty = true
		return nil
	}
	if m.doc == nil {
		return nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	return cmd
}

// findNext steps through the current search. Once the overlay has been
// closed the last query is searched again from the top of the pager, and
// further presses step from there.
func (m *Model) findNext(forward bool) {
	var err error
	switch {
	case m.session.IsSearching():
		err = m.session.FindNext(forward)
	case m.lastQuery != "":
		err = m.session.StartToFind(m.lastQuery)
	default:
		err = m.session.FindNext(forward)
	}
	if err != nil {
		logging.Error(err)
		m.errMsg = "no search yet: press / to find"
		m.dirty = true
	}
}

func (m *Model) quit() tea.Cmd {
	if m.quitting {
		return tea.Quit
	}
	m.quitting = true
	if m.session.IsOpen() {
		m.session.Close()
	}
	m.session.Dispose()
	return tea.Quit
}

// Quitting reports whether the model asked the program to exit.
func (m *Model) Quitting() bool { return m.quitting }

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	size := msg.(tea.WindowSizeMsg)
	if !m.fixedWidth {
		m.width = size.Width
	}
	if !m.fixedHeight {
		m.height = size.Height
	}
	m.dirty = true
	return nil
}

var _ findbar.Container = (*Model)(nil)
