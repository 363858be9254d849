package ui

import tea "github.com/charmbracelet/bubbletea"

// Harness drives the UI model programmatically for integration tests.
// Commands returned by Update run synchronously, batches included, so a
// single Send settles everything the message triggered except ticks.
type Harness struct {
	model *Model
}

// NewHarness creates a harness for the provided model.
func NewHarness(model *Model) *Harness {
	return &Harness{model: model}
}

// Send routes a message through the model and executes any returned commands.
func (h *Harness) Send(msg tea.Msg) {
	if h.model == nil || msg == nil {
		return
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, cmd := range batch {
			h.processCmd(cmd)
		}
		return
	}
	mdl, cmd := h.model.Update(msg)
	if updated, ok := mdl.(*Model); ok {
		h.model = updated
	}
	h.processCmd(cmd)
}

// Init runs the model's initial command.
func (h *Harness) Init() {
	if h.model == nil {
		return
	}
	h.processCmd(h.model.Init())
}

// Type sends each rune of text as a key press.
func (h *Harness) Type(text string) {
	for _, r := range text {
		h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// Key sends a single non-rune key press.
func (h *Harness) Key(t tea.KeyType) {
	h.Send(tea.KeyMsg{Type: t})
}

func (h *Harness) processCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	h.Send(cmd())
}

// View returns the current view string.
func (h *Harness) View() string {
	if h.model == nil {
		return ""
	}
	return h.model.View()
}

// Model exposes the underlying model.
func (h *Harness) Model() *Model {
	return h.model
}
