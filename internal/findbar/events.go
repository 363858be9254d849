package findbar

// EventKind names a session notification.
type EventKind string

const (
	EventOpen       EventKind = "open"
	EventStop       EventKind = "stop"
	EventStart      EventKind = "start"
	EventNext       EventKind = "next"
	EventFound      EventKind = "found"
	EventFocusInput EventKind = "focus-input"
)

// Event is a notification published to subscribers. Only the fields relevant
// to Kind are populated.
type Event struct {
	Kind    EventKind
	Query   string
	Forward bool
	Active  int
	Total   int
}

// Handler receives session notifications.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// emitter delivers events synchronously, in subscription order.
type emitter struct {
	nextID   int
	handlers map[EventKind][]subscription
}

func (e *emitter) on(kind EventKind, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	if e.handlers == nil {
		e.handlers = make(map[EventKind][]subscription)
	}
	e.nextID++
	id := e.nextID
	e.handlers[kind] = append(e.handlers[kind], subscription{id: id, handler: handler})
	return func() {
		subs := e.handlers[kind]
		for i, sub := range subs {
			if sub.id == id {
				e.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(evt Event) {
	subs := e.handlers[evt.Kind]
	if len(subs) == 0 {
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	for _, sub := range snapshot {
		sub.handler(evt)
	}
}
