package findbar

// CommandKind names a display command sent to the overlay.
type CommandKind string

const (
	CommandClose  CommandKind = "close"
	CommandFocus  CommandKind = "focus"
	CommandResult CommandKind = "result"
)

// Command is a display command. Active and Total are only meaningful for
// CommandResult.
type Command struct {
	Kind   CommandKind
	Active int
	Total  int
}

// MessageKind names a user-originated message emitted by the overlay.
type MessageKind string

const (
	MessageQuery   MessageKind = "query"
	MessageClose   MessageKind = "close"
	MessageBack    MessageKind = "back"
	MessageForward MessageKind = "forward"
)

// Message is emitted by the overlay. Text is empty for MessageClose.
type Message struct {
	Kind MessageKind
	Text string
}

// Tag is a presentation state marker. Tags only drive styling; the session
// never reads them back.
type Tag string

const (
	TagInactive   Tag = "inactive"
	TagFirstPaint Tag = "first-paint"
	TagActive     Tag = "active"
)

// Overlay is the UI surface holding the search input.
type Overlay interface {
	Send(cmd Command)
	OnMessage(fn func(Message))
	Focus()
	Attached() bool
	AddTag(tags ...Tag)
	RemoveTag(tags ...Tag)
}

// Container hosts the overlay.
type Container interface {
	Append(o Overlay)
	Remove(o Overlay)
}
