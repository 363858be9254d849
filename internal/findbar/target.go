package findbar

// Token identifies a find request. Targets never issue the zero token.
type Token int64

// FindOptions mirrors the options a find-next request carries.
type FindOptions struct {
	Forward  bool
	FindNext bool
}

// StopAction tells a target what to do with the current selection when a
// find is cancelled.
type StopAction string

const (
	StopClearSelection StopAction = "clearSelection"
	StopKeepSelection  StopAction = "keepSelection"
)

// FoundResult is a match-progress update. Optional fields are nil when the
// target did not report them in this update.
type FoundResult struct {
	RequestID          Token
	ActiveMatchOrdinal *int
	Matches            *int
	FinalUpdate        bool
}

// FoundEvent wraps a FoundResult the way embedded surfaces deliver it.
type FoundEvent struct {
	Result FoundResult
}

// Target is the surface being searched.
type Target interface {
	Find(query string, opts *FindOptions) Token
	StopFind(action StopAction)
}

// EmbeddedTarget is a surface hosted inside the same view as the overlay. It
// reports progress through a plain event listener.
type EmbeddedTarget interface {
	Target
	AddFoundListener(fn func(FoundEvent))
}

// WindowTarget is a top-level surface that competes with the overlay for
// focus. Its progress callback carries the sender as a leading argument which
// the session ignores.
type WindowTarget interface {
	Target
	OnFound(fn func(sender string, result FoundResult))
}

// TargetKind distinguishes the two target variants.
type TargetKind int

const (
	TargetEmbedded TargetKind = iota
	TargetWindow
)

func (k TargetKind) String() string {
	switch k {
	case TargetEmbedded:
		return "embedded"
	case TargetWindow:
		return "window"
	default:
		return "unknown"
	}
}

// subscriber normalises the two event wiring strategies into one call.
type subscriber interface {
	kind() TargetKind
	subscribe(handler func(FoundResult))
}

type embeddedWiring struct {
	target EmbeddedTarget
}

func (w embeddedWiring) kind() TargetKind { return TargetEmbedded }

func (w embeddedWiring) subscribe(handler func(FoundResult)) {
	w.target.AddFoundListener(func(evt FoundEvent) {
		handler(evt.Result)
	})
}

type windowWiring struct {
	target WindowTarget
}

func (w windowWiring) kind() TargetKind { return TargetWindow }

func (w windowWiring) subscribe(handler func(FoundResult)) {
	w.target.OnFound(func(_ string, result FoundResult) {
		handler(result)
	})
}

// wiringFor picks the wiring strategy for target. Targets implementing
// neither listener interface cannot report progress and are rejected.
func wiringFor(target Target) (subscriber, bool) {
	switch t := target.(type) {
	case EmbeddedTarget:
		return embeddedWiring{target: t}, true
	case WindowTarget:
		return windowWiring{target: t}, true
	default:
		return nil, false
	}
}

// Int returns a pointer to v, for building FoundResult values.
func Int(v int) *int {
	return &v
}
