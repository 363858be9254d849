package findbar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidState is returned by FindNext before any search has started.
	ErrInvalidState = errors.New("search has not started")
	// ErrEmptyQuery is returned by StartToFind for an empty query.
	ErrEmptyQuery = errors.New("query must not be empty")
)

// Options configures a Session.
type Options struct {
	// Preload performs initialization at construction instead of on first Open.
	Preload bool
	// FocusDelay overrides DefaultFocusDelay when positive.
	FocusDelay time.Duration
	Scheduler  Scheduler
	Logger     Logger
}

// Session coordinates one overlay with one search target.
type Session struct {
	overlay   Overlay
	container Container
	target    Target
	wiring    subscriber
	scheduler Scheduler
	log       Logger
	emitter   emitter

	focusDelay time.Duration
	focusTask  Task

	opened      bool
	initialized bool
	requestID   Token
	prevQuery   string
	activeIdx   int
	maxIdx      int
}

// New binds a session to its overlay, the overlay's container and the target.
func New(overlay Overlay, container Container, target Target, opts Options) (*Session, error) {
	if overlay == nil {
		return nil, fmt.Errorf("findbar: overlay required")
	}
	if container == nil {
		return nil, fmt.Errorf("findbar: container required")
	}
	if target == nil {
		return nil, fmt.Errorf("findbar: target required")
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("findbar: scheduler required")
	}
	wiring, ok := wiringFor(target)
	if !ok {
		return nil, fmt.Errorf("findbar: target %T does not report match progress", target)
	}
	s := &Session{
		overlay:    overlay,
		container:  container,
		target:     target,
		wiring:     wiring,
		scheduler:  opts.Scheduler,
		log:        opts.Logger,
		focusDelay: opts.FocusDelay,
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	if s.focusDelay <= 0 {
		s.focusDelay = DefaultFocusDelay
	}
	if opts.Preload {
		s.initialize()
	}
	return s, nil
}

// On subscribes handler to notifications of the given kind and returns a
// function that removes the subscription.
func (s *Session) On(kind EventKind, handler Handler) func() {
	return s.emitter.on(kind, handler)
}

// IsOpen reports whether the overlay is showing.
func (s *Session) IsOpen() bool { return s.opened }

// Initialized reports whether event wiring has been performed.
func (s *Session) Initialized() bool { return s.initialized }

// IsSearching reports whether a find request is pending.
func (s *Session) IsSearching() bool { return s.requestID != 0 }

// Query returns the last submitted query, or "" when no search is active.
func (s *Session) Query() string { return s.prevQuery }

// PendingRequest returns the token of the current request, or 0.
func (s *Session) PendingRequest() Token { return s.requestID }

// ActiveMatch returns the 1-based ordinal of the highlighted match, or 0.
func (s *Session) ActiveMatch() int { return s.activeIdx }

// MatchCount returns the number of matches reported for the current request.
func (s *Session) MatchCount() int { return s.maxIdx }

// TargetKind reports which wiring variant the target uses.
func (s *Session) TargetKind() TargetKind { return s.wiring.kind() }

// Open shows the overlay and moves focus to its input.
func (s *Session) Open() {
	if s.opened {
		s.log.Trace("search.open.skip", map[string]interface{}{"reason": "already open"})
		return
	}
	s.initialize()
	s.overlay.RemoveTag(TagInactive, TagFirstPaint)
	s.overlay.AddTag(TagActive)
	s.opened = true
	s.log.Trace("search.open", nil)
	s.emitter.emit(Event{Kind: EventOpen})
	s.scheduleFocus(0)
}

// Close cancels any search in progress and hides the overlay. Event wiring is
// kept so the session can be reopened.
func (s *Session) Close() {
	if !s.opened {
		s.log.Trace("search.close.skip", map[string]interface{}{"reason": "already closed"})
		return
	}
	s.cancelFocus()
	s.StopFind()
	s.overlay.Send(Command{Kind: CommandClose})
	s.overlay.RemoveTag(TagActive)
	s.overlay.AddTag(TagInactive)
	s.emitter.emit(Event{Kind: EventStop})
	s.requestID = 0
	s.prevQuery = ""
	s.opened = false
	s.log.Trace("search.close", nil)
}

// Dispose detaches the overlay from its container. Close the session first;
// Dispose must not be called twice.
func (s *Session) Dispose() {
	s.cancelFocus()
	s.container.Remove(s.overlay)
	s.log.Trace("search.dispose", nil)
}

// StartToFind issues a new find request for query, replacing any request in
// flight.
func (s *Session) StartToFind(query string) error {
	if query == "" {
		return ErrEmptyQuery
	}
	s.requestID = s.target.Find(query, nil)
	s.activeIdx = 0
	s.maxIdx = 0
	s.prevQuery = query
	s.log.Trace("search.start", map[string]interface{}{"query": query, "request": int64(s.requestID)})
	s.emitter.emit(Event{Kind: EventStart, Query: query})
	s.focusAfterFind()
	return nil
}

// FindNext moves to the next (or previous) occurrence of the current query.
func (s *Session) FindNext(forward bool) error {
	if !s.IsSearching() {
		return fmt.Errorf("find next: %w; call StartToFind first", ErrInvalidState)
	}
	s.requestID = s.target.Find(s.prevQuery, &FindOptions{Forward: forward, FindNext: true})
	s.log.Trace("search.next", map[string]interface{}{"query": s.prevQuery, "forward": forward, "request": int64(s.requestID)})
	s.emitter.emit(Event{Kind: EventNext, Query: s.prevQuery, Forward: forward})
	s.focusAfterFind()
	return nil
}

// Refresh re-issues the current query, typically after the target's content
// changed. Counters reset as for a new search, but no start event is emitted
// and focus stays where it is.
func (s *Session) Refresh() error {
	if !s.IsSearching() {
		return fmt.Errorf("refresh: %w", ErrInvalidState)
	}
	s.requestID = s.target.Find(s.prevQuery, nil)
	s.activeIdx = 0
	s.maxIdx = 0
	s.log.Trace("search.refresh", map[string]interface{}{"query": s.prevQuery, "request": int64(s.requestID)})
	return nil
}

// Cancel ends the current search and clears the target's highlight without
// hiding the overlay. It is how a search started while the overlay is closed
// gets stopped.
func (s *Session) Cancel() {
	if !s.IsSearching() {
		s.log.Trace("search.cancel.skip", map[string]interface{}{"reason": "not searching"})
		return
	}
	s.cancelFocus()
	s.StopFind()
	s.requestID = 0
	s.prevQuery = ""
	s.activeIdx = 0
	s.maxIdx = 0
	s.log.Trace("search.cancel", nil)
	s.emitter.emit(Event{Kind: EventStop})
}

// StopFind cancels the target's current find and clears its highlight,
// whether or not the overlay is open.
func (s *Session) StopFind() {
	s.target.StopFind(StopClearSelection)
}

func (s *Session) initialize() {
	if s.initialized {
		return
	}
	s.wiring.subscribe(s.onFound)
	s.overlay.AddTag(TagInactive, TagFirstPaint)
	if !s.overlay.Attached() {
		s.container.Append(s.overlay)
	}
	s.overlay.OnMessage(s.handleMessage)
	s.initialized = true
	s.log.Trace("search.init", map[string]interface{}{"target": s.wiring.kind().String()})
}

func (s *Session) handleMessage(msg Message) {
	switch msg.Kind {
	case MessageQuery:
		s.onSearchQuery(msg.Text)
	case MessageClose:
		s.Close()
	case MessageBack:
		s.navigate(msg.Text, false)
	case MessageForward:
		s.navigate(msg.Text, true)
	default:
		s.log.Trace("search.message.ignore", map[string]interface{}{"kind": string(msg.Kind)})
	}
}

// onSearchQuery applies the query decision policy: an empty query closes the
// session, a new term starts a search, the same term finds the next match.
func (s *Session) onSearchQuery(text string) {
	s.log.Trace("search.query", map[string]interface{}{"text": text})
	if text == "" {
		s.Close()
		return
	}
	var err error
	if !s.IsSearching() || s.prevQuery != text {
		err = s.StartToFind(text)
	} else {
		err = s.FindNext(true)
	}
	if err != nil {
		s.log.Trace("search.query.error", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Session) navigate(text string, forward bool) {
	if s.IsSearching() && text == s.prevQuery {
		if err := s.FindNext(forward); err != nil {
			s.log.Trace("search.navigate.error", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	if text != "" {
		s.onSearchQuery(text)
	}
}

func (s *Session) onFound(result FoundResult) {
	if result.RequestID != s.requestID {
		s.log.Trace("search.found.stale", map[string]interface{}{
			"request": int64(result.RequestID),
			"pending": int64(s.requestID),
		})
		return
	}
	if result.ActiveMatchOrdinal != nil {
		s.activeIdx = *result.ActiveMatchOrdinal
	}
	if result.Matches != nil {
		s.maxIdx = *result.Matches
	}
	if result.FinalUpdate {
		s.sendResult()
	}
}

func (s *Session) sendResult() {
	nth, all := s.activeIdx, s.maxIdx
	s.log.Trace("search.result", map[string]interface{}{"active": nth, "total": all})
	s.overlay.Send(Command{Kind: CommandResult, Active: nth, Total: all})
	s.emitter.emit(Event{Kind: EventFound, Query: s.prevQuery, Active: nth, Total: all})
}

// focusAfterFind returns focus to the overlay input once a find call has been
// issued. A window target that just settled on its last match gets a short
// delay so the native highlight scroll is not interrupted. Nothing is
// scheduled while the overlay is closed.
func (s *Session) focusAfterFind() {
	if !s.opened {
		return
	}
	if s.wiring.kind() == TargetWindow && s.maxIdx != 0 && s.activeIdx == s.maxIdx {
		s.scheduleFocus(s.focusDelay)
		return
	}
	s.scheduleFocus(0)
}

func (s *Session) scheduleFocus(delay time.Duration) {
	s.cancelFocus()
	if delay > 0 {
		s.focusTask = s.scheduler.After(delay, s.focusOnInput)
		return
	}
	s.focusTask = s.scheduler.Defer(s.focusOnInput)
}

func (s *Session) cancelFocus() {
	if s.focusTask != nil {
		s.focusTask.Cancel()
		s.focusTask = nil
	}
}

func (s *Session) focusOnInput() {
	s.focusTask = nil
	s.log.Trace("search.focus", nil)
	s.overlay.Focus()
	s.overlay.Send(Command{Kind: CommandFocus})
	s.emitter.emit(Event{Kind: EventFocusInput})
}
