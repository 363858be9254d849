package ui

import (
	"fmt"
	"testing"
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/backend"
	"github.com/atomicstack/tmux-popup-find/internal/document"
	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relay collects callbacks from the document's search goroutines so the test
// can feed them through the harness, as tea.Program.Send would.
type relay struct {
	ch chan func()
}

func newRelay() *relay { return &relay{ch: make(chan func(), 16)} }

func (r *relay) deliver(fn func()) { r.ch <- fn }

func (r *relay) flush(t *testing.T, h *Harness, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case fn := <-r.ch:
			h.Send(Callback(fn))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d of %d", i+1, n)
		}
	}
}

type fixture struct {
	h     *Harness
	sched *findbar.ManualScheduler
	relay *relay
	doc   *document.Document
}

func newFixture(t *testing.T, lines []string, opts Options) *fixture {
	t.Helper()
	sched := &findbar.ManualScheduler{}
	opts.Scheduler = sched
	f := buildFixture(t, lines, opts)
	f.sched = sched
	return f
}

// newLoopFixture keeps the model's own scheduler, so deferred focus runs
// inside the Send that scheduled it, as it does under tea.Program.
func newLoopFixture(t *testing.T, lines []string, opts Options) *fixture {
	t.Helper()
	return buildFixture(t, lines, opts)
}

func buildFixture(t *testing.T, lines []string, opts Options) *fixture {
	t.Helper()
	r := newRelay()
	doc := document.New("notes.txt", lines, match.New(match.Literal), r.deliver)
	opts.Document = doc
	if opts.Width == 0 {
		opts.Width = 80
	}
	if opts.Height == 0 {
		opts.Height = 20
	}
	m, err := NewModel(opts)
	require.NoError(t, err)
	return &fixture{h: NewHarness(m), relay: r, doc: doc}
}

func (f *fixture) model() *Model { return f.h.Model() }

func (f *fixture) open(t *testing.T) {
	t.Helper()
	f.h.Type("/")
	require.True(t, f.model().Session().IsOpen())
	f.sched.Run()
	require.True(t, f.model().Overlay().Focused())
}

func TestNewModelRequiresOneTarget(t *testing.T) {
	_, err := NewModel(Options{Scheduler: &findbar.ManualScheduler{}})
	assert.Error(t, err)
}

func TestOpenShowsOverlayAndFocusesLater(t *testing.T) {
	f := newFixture(t, []string{"alpha"}, Options{})
	assert.NotContains(t, f.h.View(), "find:")

	f.h.Type("/")
	assert.True(t, f.model().Overlay().Visible())
	assert.False(t, f.model().Overlay().Focused())
	assert.Contains(t, f.h.View(), "find:")

	assert.Equal(t, 1, f.sched.Run())
	assert.True(t, f.model().Overlay().Focused())
}

func TestTypingAndEnterFindsAndCycles(t *testing.T) {
	f := newFixture(t, []string{"one fish", "two fish", "red fish"}, Options{})
	f.open(t)

	f.h.Type("fish")
	assert.Equal(t, "fish", f.model().Overlay().Value())
	f.h.Key(tea.KeyEnter)
	assert.False(t, f.model().Overlay().Focused())
	f.relay.flush(t, f.h, 1)

	s := f.model().Session()
	assert.Equal(t, 1, s.ActiveMatch())
	assert.Equal(t, 3, s.MatchCount())
	assert.Contains(t, f.h.View(), "1/3")

	f.sched.Run()
	require.True(t, f.model().Overlay().Focused())
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 2, s.ActiveMatch())
	assert.Equal(t, 1, f.doc.ActiveLine())

	f.sched.Run()
	f.h.Key(tea.KeyShiftTab)
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 1, s.ActiveMatch())
}

func TestNoResultsCounter(t *testing.T) {
	f := newFixture(t, []string{"abc"}, Options{})
	f.open(t)
	f.h.Type("zzz")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	assert.Contains(t, f.h.View(), "No results")
}

func TestEscapeClosesAndClearsHighlight(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.open(t)
	f.h.Type("cat")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	f.sched.Run()

	f.h.Key(tea.KeyEsc)
	s := f.model().Session()
	assert.False(t, s.IsOpen())
	assert.False(t, s.IsSearching())
	assert.False(t, f.model().Overlay().Visible())
	matches, _ := f.doc.Highlight()
	assert.Empty(t, matches)
}

func TestEmptyEnterCloses(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.open(t)
	f.h.Key(tea.KeyEnter)
	assert.False(t, f.model().Session().IsOpen())
}

func TestFindNextWithoutSearchShowsError(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.h.Type("n")
	assert.Contains(t, f.h.View(), "no search yet")
}

func TestOverlayStepsWhileFocused(t *testing.T) {
	f := newLoopFixture(t, []string{"x", "x", "x"}, Options{})
	f.h.Type("/")
	require.True(t, f.model().Overlay().Focused())
	f.h.Type("x")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	require.True(t, f.model().Overlay().Focused())

	f.h.Key(tea.KeyTab)
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 2, f.model().Session().ActiveMatch())
	f.h.Key(tea.KeyShiftTab)
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 1, f.model().Session().ActiveMatch())
	assert.Equal(t, "x", f.model().Overlay().Value())
	assert.True(t, f.model().Overlay().Focused())
}

func TestNextKeysRepeatLastSearchAfterClose(t *testing.T) {
	f := newLoopFixture(t, []string{"x", "x", "x"}, Options{})
	f.h.Type("/")
	f.h.Type("x")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	f.h.Key(tea.KeyEsc)
	s := f.model().Session()
	require.False(t, s.IsOpen())
	require.False(t, s.IsSearching())
	require.Equal(t, -1, f.doc.ActiveLine())

	f.h.Type("n")
	f.relay.flush(t, f.h, 1)
	assert.True(t, s.IsSearching())
	assert.Equal(t, 1, s.ActiveMatch())
	assert.Equal(t, 0, f.doc.ActiveLine())
	assert.Empty(t, f.model().errMsg)

	f.h.Type("n")
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 2, s.ActiveMatch())
	f.h.Type("N")
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 1, s.ActiveMatch())

	f.h.Type("nn")
	f.relay.flush(t, f.h, 2)
	assert.Equal(t, 3, s.ActiveMatch())
	assert.Equal(t, 2, f.doc.ActiveLine())

	assert.False(t, s.IsOpen())
	assert.False(t, f.model().Overlay().Focused())
	assert.Equal(t, "x", f.model().Overlay().Value())
}

func TestEscapeInPagerCancelsRepeatedSearch(t *testing.T) {
	f := newLoopFixture(t, []string{"x", "x"}, Options{})
	f.h.Type("/x")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	f.h.Key(tea.KeyEsc)
	f.h.Type("n")
	f.relay.flush(t, f.h, 1)
	require.True(t, f.model().Session().IsSearching())

	f.h.Key(tea.KeyEsc)
	assert.False(t, f.model().Session().IsSearching())
	assert.Equal(t, -1, f.doc.ActiveLine())
	assert.NotContains(t, f.h.View(), `"x"`)
}

func TestActiveMatchScrollsIntoView(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	lines[80] = "needle"
	f := newFixture(t, lines, Options{Height: 10})
	f.open(t)
	f.h.Type("needle")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)

	vp := f.model().viewport
	assert.LessOrEqual(t, vp.YOffset, 80)
	assert.Greater(t, vp.YOffset+vp.Height, 80)
	assert.Contains(t, f.h.View(), "needle")
}

func TestInspectToggle(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.h.Type("i")
	assert.Contains(t, f.h.View(), "find session")
	assert.Contains(t, f.h.View(), "target=embedded")
	f.h.Type("i")
	assert.NotContains(t, f.h.View(), "find session")
}

func TestInspectRecordsEvents(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{Inspect: true})
	f.open(t)
	f.h.Type("cat")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	view := f.h.View()
	assert.Regexp(t, `start\s+"cat"`, view)
	assert.Regexp(t, `found\s+1/1`, view)
}

func TestPreloadAttachesBeforeOpen(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{Preload: true})
	s := f.model().Session()
	assert.True(t, s.Initialized())
	assert.False(t, s.IsOpen())
	assert.True(t, f.model().Overlay().Attached())
	assert.False(t, f.model().Overlay().Visible())
}

func TestQuitDisposesSession(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.open(t)
	f.h.Key(tea.KeyCtrlC)
	assert.True(t, f.model().Quitting())
	assert.False(t, f.model().Session().IsOpen())
	assert.False(t, f.model().Overlay().Attached())
	assert.Empty(t, f.h.View())
}

func TestWindowSizeResizesPager(t *testing.T) {
	r := newRelay()
	doc := document.New("doc", []string{"a"}, nil, r.deliver)
	m, err := NewModel(Options{Document: doc, Scheduler: &findbar.ManualScheduler{}})
	require.NoError(t, err)
	h := NewHarness(m)
	h.Send(tea.WindowSizeMsg{Width: 70, Height: 30})
	assert.Equal(t, 70, m.viewport.Width)
	assert.Equal(t, 29, m.viewport.Height)
}

func TestBackendReloadRerunsSearch(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.open(t)
	f.h.Type("cat")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	require.Equal(t, 1, f.model().Session().MatchCount())

	f.h.Send(backendEventMsg{event: backend.Event{
		Kind:   backend.KindDocument,
		Source: "notes.txt",
		Lines:  []string{"cat", "cat", "dog"},
	}})
	assert.Len(t, f.doc.Lines(), 3)
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 2, f.model().Session().MatchCount())
	assert.Contains(t, f.h.View(), "reloaded 3 lines")
}

func TestBackendReloadKeepsPagerFocus(t *testing.T) {
	f := newLoopFixture(t, []string{"cat", "dog"}, Options{})
	f.h.Type("/cat")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	f.h.Key(tea.KeyEsc)
	f.h.Type("n")
	f.relay.flush(t, f.h, 1)
	require.True(t, f.model().Session().IsSearching())
	seq := f.model().eventSeq

	f.h.Send(backendEventMsg{event: backend.Event{
		Kind:   backend.KindDocument,
		Source: "notes.txt",
		Lines:  []string{"cat", "cat"},
	}})
	f.relay.flush(t, f.h, 1)

	s := f.model().Session()
	assert.Equal(t, 2, s.MatchCount())
	assert.Equal(t, 1, s.ActiveMatch())
	assert.False(t, s.IsOpen())
	assert.False(t, f.model().Overlay().Focused())
	for _, entry := range f.model().recent {
		if entry.seq > seq {
			assert.NotEqual(t, findbar.EventStart, entry.event.Kind)
			assert.NotEqual(t, findbar.EventFocusInput, entry.event.Kind)
		}
	}
}

func TestBackendReloadLeavesPendingFocusAlone(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.open(t)
	f.h.Type("cat")
	f.h.Key(tea.KeyEnter)
	f.relay.flush(t, f.h, 1)
	require.Equal(t, 1, f.sched.Pending())

	f.h.Send(backendEventMsg{event: backend.Event{Kind: backend.KindDocument, Source: "notes.txt", Lines: []string{"cat", "cat"}}})
	f.relay.flush(t, f.h, 1)
	assert.Equal(t, 1, f.sched.Pending())
	assert.Equal(t, 2, f.model().Session().MatchCount())
}

func TestBackendErrorShowsMessage(t *testing.T) {
	f := newFixture(t, []string{"cat"}, Options{})
	f.h.Send(backendEventMsg{event: backend.Event{Kind: backend.KindDocument, Err: fmt.Errorf("gone")}})
	assert.Contains(t, f.h.View(), "reload failed")
	assert.Equal(t, []string{"cat"}, f.doc.Lines())
}
