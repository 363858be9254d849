// Package overlay renders the find bar: a single-line query input with a
// result counter, drawn over the pager by the ui package. It implements
// findbar.Overlay, so a findbar.Session drives it through commands and tags
// while key presses come back to the session as messages.
package overlay

import (
	"fmt"
	"strings"

	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	"github.com/atomicstack/tmux-popup-find/internal/theme"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	defaultWidth = 48
	hintText     = "enter next · shift+tab prev · esc close"
)

// Overlay is not safe for concurrent use; it lives on the Bubble Tea loop.
type Overlay struct {
	input   textinput.Model
	styles  *theme.Styles
	handler func(findbar.Message)
	tags    map[findbar.Tag]bool

	attached  bool
	focused   bool
	hasResult bool
	active    int
	total     int
	width     int
	showHints bool
}

// New returns a detached, hidden overlay.
func New(styles *theme.Styles) *Overlay {
	if styles == nil {
		styles = theme.Default()
	}
	ti := textinput.New()
	ti.Prompt = "find: "
	ti.Placeholder = "search"
	ti.CharLimit = 256
	ti.Cursor.SetMode(cursor.CursorStatic)
	if styles.Prompt != nil {
		ti.PromptStyle = *styles.Prompt
	}
	if styles.Input != nil {
		ti.TextStyle = *styles.Input
	}
	if styles.Placeholder != nil {
		ti.PlaceholderStyle = *styles.Placeholder
	}
	return &Overlay{
		input:     ti,
		styles:    styles,
		tags:      map[findbar.Tag]bool{},
		width:     defaultWidth,
		showHints: true,
	}
}

// SetWidth bounds the rendered width in cells, borders included.
func (o *Overlay) SetWidth(width int) {
	if width <= 0 {
		width = defaultWidth
	}
	o.width = width
	o.input.Width = max(width-24, 8)
}

// SetHints toggles the key hint row.
func (o *Overlay) SetHints(show bool) { o.showHints = show }

// SetAttached is called by the container that hosts the overlay.
func (o *Overlay) SetAttached(attached bool) {
	o.attached = attached
	events.Overlay.Attach(attached)
}

// Value returns the text in the query input.
func (o *Overlay) Value() string { return o.input.Value() }

// SetValue replaces the text in the query input.
func (o *Overlay) SetValue(text string) {
	o.input.SetValue(text)
	o.input.CursorEnd()
}

// Focused reports whether key presses should be routed to the overlay.
func (o *Overlay) Focused() bool { return o.focused }

// Visible reports whether the overlay is drawn.
func (o *Overlay) Visible() bool {
	return o.attached && o.tags[findbar.TagActive] && !o.tags[findbar.TagFirstPaint]
}

// HasTag reports whether tag is currently applied.
func (o *Overlay) HasTag(tag findbar.Tag) bool { return o.tags[tag] }

// Counter returns the last result shown, and whether one has been received.
func (o *Overlay) Counter() (active, total int, ok bool) {
	return o.active, o.total, o.hasResult
}

// Send implements findbar.Overlay.
func (o *Overlay) Send(cmd findbar.Command) {
	events.Overlay.Command(string(cmd.Kind), cmd.Active, cmd.Total)
	switch cmd.Kind {
	case findbar.CommandClose:
		o.focused = false
		o.input.Blur()
		o.hasResult = false
	case findbar.CommandFocus:
		o.input.Focus()
		o.input.CursorEnd()
	case findbar.CommandResult:
		o.active = cmd.Active
		o.total = cmd.Total
		o.hasResult = true
	}
}

// OnMessage implements findbar.Overlay.
func (o *Overlay) OnMessage(fn func(findbar.Message)) { o.handler = fn }

// Focus implements findbar.Overlay.
func (o *Overlay) Focus() { o.focused = true }

// Attached implements findbar.Overlay.
func (o *Overlay) Attached() bool { return o.attached }

// AddTag implements findbar.Overlay.
func (o *Overlay) AddTag(tags ...findbar.Tag) {
	for _, t := range tags {
		o.tags[t] = true
	}
}

// RemoveTag implements findbar.Overlay.
func (o *Overlay) RemoveTag(tags ...findbar.Tag) {
	for _, t := range tags {
		delete(o.tags, t)
	}
}

// Update handles a key press while the overlay has focus. Submitting a query
// hands focus back to the host until the session returns it.
func (o *Overlay) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		o.input, cmd = o.input.Update(msg)
		return cmd
	}
	events.Overlay.Key(key.String(), o.focused)
	switch key.String() {
	case "esc":
		o.post(findbar.MessageClose)
		return nil
	case "enter":
		o.blur()
		o.post(findbar.MessageQuery)
		return nil
	case "shift+tab", "ctrl+p", "up":
		o.blur()
		o.post(findbar.MessageBack)
		return nil
	case "tab", "ctrl+n", "down":
		o.blur()
		o.post(findbar.MessageForward)
		return nil
	}
	var cmd tea.Cmd
	o.input, cmd = o.input.Update(msg)
	return cmd
}

func (o *Overlay) blur() {
	o.focused = false
}

func (o *Overlay) post(kind findbar.MessageKind) {
	text := o.input.Value()
	if kind == findbar.MessageClose {
		text = ""
	}
	events.Overlay.Message(string(kind), text)
	if o.handler != nil {
		o.handler(findbar.Message{Kind: kind, Text: text})
	}
}

// View renders the overlay, or an empty string while it is hidden.
func (o *Overlay) View() string {
	if !o.Visible() {
		return ""
	}
	frame := o.styles.OverlayActive
	if !o.focused {
		frame = o.styles.OverlayInactive
	}
	inner := max(o.width-frame.GetHorizontalFrameSize(), 1)
	box := frame.Width(inner + frame.GetHorizontalPadding())

	counter := o.counterView()
	line := o.input.View()
	if counter != "" {
		gap := inner - lipgloss.Width(line) - lipgloss.Width(counter)
		line += strings.Repeat(" ", max(gap, 1)) + counter
	}
	rows := []string{ansi.Truncate(line, inner, "…")}
	if o.showHints {
		rows = append(rows, o.styles.Hint.Render(ansi.Truncate(hintText, inner, "…")))
	}
	return box.Render(strings.Join(rows, "\n"))
}

func (o *Overlay) counterView() string {
	if !o.hasResult {
		return ""
	}
	if o.total == 0 {
		return o.styles.CounterEmpty.Render("No results")
	}
	return o.styles.Counter.Render(fmt.Sprintf("%d/%d", o.active, o.total))
}
