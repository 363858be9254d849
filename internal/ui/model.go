package ui

import (
	"errors"
	"reflect"
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/backend"
	"github.com/atomicstack/tmux-popup-find/internal/document"
	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/logging"
	"github.com/atomicstack/tmux-popup-find/internal/overlay"
	"github.com/atomicstack/tmux-popup-find/internal/theme"
	"github.com/atomicstack/tmux-popup-find/internal/tmux"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const maxInspectEvents = 6

type msgHandler func(tea.Msg) tea.Cmd

// Options configures a Model. Exactly one of Document and Pane must be set.
type Options struct {
	Document *document.Document
	Pane     *tmux.Pane
	Watcher  *backend.Watcher
	Styles   *theme.Styles

	Preload    bool
	FocusDelay time.Duration
	// Scheduler overrides the loop scheduler; tests pass a
	// findbar.ManualScheduler.
	Scheduler findbar.Scheduler

	Width   int
	Height  int
	Inspect bool
	Hints   bool
}

// Model implements the Bubble Tea model hosting the pager and the find bar.
type Model struct {
	session   *findbar.Session
	overlay   *overlay.Overlay
	doc       *document.Document
	pane      *tmux.Pane
	scheduler *loopScheduler
	backend   *backend.Watcher
	styles    *theme.Styles

	viewport    viewport.Model
	lines       []string
	title       string
	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool

	inspect   bool
	recent    []inspectEntry
	eventSeq  int
	dirty     bool
	follow    bool
	lastQuery string
	errMsg    string
	infoMsg   string
	quitting  bool

	handlers map[reflect.Type]msgHandler
}

// NewModel wires a find session to the configured target, using the model as
// the overlay's container.
func NewModel(opts Options) (*Model, error) {
	if (opts.Document == nil) == (opts.Pane == nil) {
		return nil, errors.New("ui: exactly one of document or pane is required")
	}
	styles := opts.Styles
	if styles == nil {
		styles = theme.Default()
	}
	m := &Model{
		overlay:  overlay.New(styles),
		doc:      opts.Document,
		pane:     opts.Pane,
		backend:  opts.Watcher,
		styles:   styles,
		viewport: viewport.New(0, 0),
		inspect:  opts.Inspect,
		dirty:    true,
	}
	m.overlay.SetHints(opts.Hints)

	var target findbar.Target
	if m.doc != nil {
		target = m.doc
		m.title = m.doc.Name()
		m.lines = m.doc.Lines()
	} else {
		target = m.pane
		m.title = "pane " + m.pane.ID()
		m.lines = m.pane.Lines()
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		m.scheduler = &loopScheduler{}
		scheduler = m.scheduler
	}
	session, err := findbar.New(m.overlay, m, target, findbar.Options{
		Preload:    opts.Preload,
		FocusDelay: opts.FocusDelay,
		Scheduler:  scheduler,
		Logger:     logging.Tracer{},
	})
	if err != nil {
		return nil, err
	}
	m.session = session
	for _, kind := range []findbar.EventKind{
		findbar.EventOpen, findbar.EventStop, findbar.EventStart,
		findbar.EventNext, findbar.EventFound, findbar.EventFocusInput,
	} {
		session.On(kind, m.recordEvent)
	}

	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	m.layout()
	m.registerHandlers()
	return m, nil
}

// Session exposes the find session, mainly for tests and the app's shutdown.
func (m *Model) Session() *findbar.Session { return m.session }

// Overlay exposes the find bar component.
func (m *Model) Overlay() *overlay.Overlay { return m.overlay }

// Append implements findbar.Container.
func (m *Model) Append(o findbar.Overlay) {
	if ov, ok := o.(*overlay.Overlay); ok {
		ov.SetAttached(true)
	}
	m.dirty = true
}

// Remove implements findbar.Container.
func (m *Model) Remove(o findbar.Overlay) {
	if ov, ok := o.(*overlay.Overlay); ok {
		ov.SetAttached(false)
	}
	m.dirty = true
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	if m.backend != nil {
		return waitForBackendEvent(m.backend)
	}
	return nil
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, 4)
	if handler := m.handlerFor(msg); handler != nil {
		if cmd := handler(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, m.finishUpdate(cmds)
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(taskMsg{}):           m.handleTaskMsg,
		reflect.TypeOf(callbackMsg{}):       m.handleCallbackMsg,
		reflect.TypeOf(backendEventMsg{}):   m.handleBackendEventMsg,
		reflect.TypeOf(backendDoneMsg{}):    m.handleBackendDoneMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) finishUpdate(cmds []tea.Cmd) tea.Cmd {
	if m.scheduler != nil {
		cmds = append(cmds, m.scheduler.drain()...)
	}
	if m.dirty {
		m.dirty = false
		m.layout()
		m.refreshContent()
	}
	if m.doc != nil {
		m.doc.SetAnchor(m.viewport.YOffset)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

type inspectEntry struct {
	seq   int
	event findbar.Event
}

func (m *Model) recordEvent(evt findbar.Event) {
	m.eventSeq++
	m.recent = append(m.recent, inspectEntry{seq: m.eventSeq, event: evt})
	if len(m.recent) > maxInspectEvents {
		m.recent = m.recent[len(m.recent)-maxInspectEvents:]
	}
	m.dirty = true
	switch evt.Kind {
	case findbar.EventStart:
		m.lastQuery = evt.Query
	case findbar.EventFound:
		m.follow = true
	}
}
