package findbar

type fakeOverlay struct {
	attached bool
	tags     map[Tag]bool
	commands []Command
	focused  int
	handler  func(Message)
}

func newFakeOverlay() *fakeOverlay {
	return &fakeOverlay{tags: map[Tag]bool{}}
}

func (o *fakeOverlay) Send(cmd Command)           { o.commands = append(o.commands, cmd) }
func (o *fakeOverlay) OnMessage(fn func(Message)) { o.handler = fn }
func (o *fakeOverlay) Focus()                     { o.focused++ }
func (o *fakeOverlay) Attached() bool             { return o.attached }

func (o *fakeOverlay) AddTag(tags ...Tag) {
	for _, t := range tags {
		o.tags[t] = true
	}
}

func (o *fakeOverlay) RemoveTag(tags ...Tag) {
	for _, t := range tags {
		delete(o.tags, t)
	}
}

func (o *fakeOverlay) emit(kind MessageKind, text string) {
	o.handler(Message{Kind: kind, Text: text})
}

func (o *fakeOverlay) commandsOf(kind CommandKind) []Command {
	var out []Command
	for _, c := range o.commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fakeContainer struct {
	appended int
	removed  int
}

func (c *fakeContainer) Append(o Overlay) {
	c.appended++
	if fo, ok := o.(*fakeOverlay); ok {
		fo.attached = true
	}
}

func (c *fakeContainer) Remove(o Overlay) {
	c.removed++
	if fo, ok := o.(*fakeOverlay); ok {
		fo.attached = false
	}
}

type findCall struct {
	query string
	opts  *FindOptions
}

// fakeTarget records find calls and hands out sequential tokens.
type fakeTarget struct {
	next  Token
	calls []findCall
	stops []StopAction
}

func (t *fakeTarget) Find(query string, opts *FindOptions) Token {
	t.next++
	t.calls = append(t.calls, findCall{query: query, opts: opts})
	return t.next
}

func (t *fakeTarget) StopFind(action StopAction) {
	t.stops = append(t.stops, action)
}

type fakeEmbedded struct {
	fakeTarget
	listeners []func(FoundEvent)
}

func (t *fakeEmbedded) AddFoundListener(fn func(FoundEvent)) {
	t.listeners = append(t.listeners, fn)
}

func (t *fakeEmbedded) deliver(r FoundResult) {
	for _, fn := range t.listeners {
		fn(FoundEvent{Result: r})
	}
}

type fakeWindow struct {
	fakeTarget
	listeners []func(string, FoundResult)
}

func (t *fakeWindow) OnFound(fn func(string, FoundResult)) {
	t.listeners = append(t.listeners, fn)
}

func (t *fakeWindow) deliver(r FoundResult) {
	for _, fn := range t.listeners {
		fn("%1", r)
	}
}

type recordedLogger struct {
	events []string
}

func (l *recordedLogger) Trace(event string, _ map[string]interface{}) {
	l.events = append(l.events, event)
}

func (l *recordedLogger) has(event string) bool {
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

type eventLog struct {
	events []Event
}

func (l *eventLog) subscribeAll(s *Session) {
	for _, kind := range []EventKind{EventOpen, EventStop, EventStart, EventNext, EventFound, EventFocusInput} {
		s.On(kind, func(e Event) { l.events = append(l.events, e) })
	}
}

func (l *eventLog) kinds() []EventKind {
	out := make([]EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

func (l *eventLog) of(kind EventKind) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
