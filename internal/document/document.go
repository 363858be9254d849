// Package document provides an in-process text surface that can be searched
// by a findbar session. It is the embedded-surface target: the pager renders
// it in the same view as the overlay, and it reports progress through a plain
// listener.
package document

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"github.com/charmbracelet/x/ansi"
)

const maxLineBytes = 1024 * 1024

// Document is not safe for concurrent use. Find, StopFind and every callback
// passed to the deliver function must run on the host's event loop; only the
// matching itself happens on a separate goroutine.
type Document struct {
	name      string
	lines     []string
	matcher   *match.Matcher
	deliver   func(func())
	listeners []func(findbar.FoundEvent)

	nextID  findbar.Token
	latest  findbar.Token
	query   string
	matches []match.Match
	active  int
	anchor  int

	// Steps requested since the last applied result, and whether a fresh
	// search is among them. Applied together when the latest result lands.
	pendingSteps int
	restart      bool
}

// New returns a document over lines. deliver must hand callbacks to the event
// loop that owns the document.
func New(name string, lines []string, matcher *match.Matcher, deliver func(func())) *Document {
	if matcher == nil {
		matcher = match.New(match.Literal)
	}
	return &Document{
		name:    name,
		lines:   lines,
		matcher: matcher,
		deliver: deliver,
		active:  -1,
	}
}

// Read loads text from r, one entry per line, with ANSI sequences removed.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lines = append(lines, ansi.Strip(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return lines, nil
}

// ReadFile loads a document from path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Name returns the label the document was created with.
func (d *Document) Name() string { return d.name }

// Lines returns the current content.
func (d *Document) Lines() []string { return d.lines }

// SetLines replaces the content and drops any highlight computed for the old
// content. Results still in flight for earlier requests are discarded.
func (d *Document) SetLines(lines []string) {
	d.lines = lines
	d.latest = 0
	d.resetPending()
	d.clearSelection()
	events.Document.Reload(d.name, len(lines))
}

// SetAnchor records the first visible line. A fresh search selects the first
// match at or below it.
func (d *Document) SetAnchor(line int) {
	if line < 0 {
		line = 0
	}
	d.anchor = line
}

// AddFoundListener implements findbar.EmbeddedTarget.
func (d *Document) AddFoundListener(fn func(findbar.FoundEvent)) {
	if fn != nil {
		d.listeners = append(d.listeners, fn)
	}
}

// Find implements findbar.Target. Matching runs in the background; a partial
// update with the match count and a final update with the active ordinal are
// delivered afterwards.
func (d *Document) Find(query string, opts *findbar.FindOptions) findbar.Token {
	d.nextID++
	token := d.nextID
	d.latest = token
	step := 0
	if opts != nil && opts.FindNext {
		step = 1
		if !opts.Forward {
			step = -1
		}
	}
	if step == 0 {
		d.restart = true
		d.pendingSteps = 0
	} else {
		d.pendingSteps += step
	}
	snapshot := d.lines
	events.Document.Find(d.name, query, int64(token), step)
	go func() {
		found := d.matcher.Find(snapshot, query)
		d.deliver(func() {
			d.apply(token, query, found)
		})
	}()
	return token
}

// StopFind implements findbar.Target.
func (d *Document) StopFind(action findbar.StopAction) {
	d.latest = 0
	d.resetPending()
	if action == findbar.StopClearSelection {
		d.clearSelection()
	}
	events.Document.Stop(d.name, string(action))
}

// Highlight returns the matches of the current query and the index of the
// active one, or -1.
func (d *Document) Highlight() ([]match.Match, int) {
	return d.matches, d.active
}

// ActiveLine returns the line of the active match, or -1.
func (d *Document) ActiveLine() int {
	if d.active < 0 || d.active >= len(d.matches) {
		return -1
	}
	return d.matches[d.active].Line
}

func (d *Document) clearSelection() {
	d.query = ""
	d.matches = nil
	d.active = -1
}

func (d *Document) apply(token findbar.Token, query string, found []match.Match) {
	if token == d.latest {
		d.selectMatch(query, found)
		d.resetPending()
	}
	total := len(found)
	d.emit(findbar.FoundResult{RequestID: token, Matches: findbar.Int(total)})
	ordinal := 0
	if token == d.latest && d.active >= 0 {
		ordinal = d.active + 1
	}
	d.emit(findbar.FoundResult{
		RequestID:          token,
		ActiveMatchOrdinal: findbar.Int(ordinal),
		Matches:            findbar.Int(total),
		FinalUpdate:        true,
	})
}

func (d *Document) selectMatch(query string, found []match.Match) {
	steps := d.pendingSteps
	continuing := !d.restart && steps != 0 && query == d.query && d.active >= 0 && len(found) == len(d.matches)
	prev := d.active
	d.query = query
	d.matches = found
	n := len(found)
	switch {
	case n == 0:
		d.active = -1
	case continuing:
		d.active = wrap(prev+steps, n)
	case d.restart:
		d.active = wrap(d.firstFromAnchor(false)+steps, n)
	default:
		d.active = d.firstFromAnchor(steps < 0)
	}
}

func (d *Document) resetPending() {
	d.pendingSteps = 0
	d.restart = false
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func (d *Document) firstFromAnchor(backward bool) int {
	if backward {
		for i := len(d.matches) - 1; i >= 0; i-- {
			if d.matches[i].Line < d.anchor {
				return i
			}
		}
		return len(d.matches) - 1
	}
	for i, m := range d.matches {
		if m.Line >= d.anchor {
			return i
		}
	}
	return 0
}

func (d *Document) emit(result findbar.FoundResult) {
	evt := findbar.FoundEvent{Result: result}
	for _, fn := range d.listeners {
		fn(evt)
	}
}
