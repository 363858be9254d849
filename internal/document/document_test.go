package document

import (
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loop stands in for the host event loop: callbacks queued by the document
// run only when the test drains them.
type loop struct {
	queue chan func()
}

func newLoop() *loop {
	return &loop{queue: make(chan func(), 16)}
}

func (l *loop) deliver(fn func()) { l.queue <- fn }

func (l *loop) drain(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case fn := <-l.queue:
			fn()
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for callback %d of %d", i+1, n)
		}
	}
}

func newDoc(lines ...string) (*Document, *loop, *[]findbar.FoundResult) {
	l := newLoop()
	doc := New("test", lines, match.New(match.Literal), l.deliver)
	var got []findbar.FoundResult
	doc.AddFoundListener(func(evt findbar.FoundEvent) { got = append(got, evt.Result) })
	return doc, l, &got
}

func finals(results []findbar.FoundResult) []findbar.FoundResult {
	var out []findbar.FoundResult
	for _, r := range results {
		if r.FinalUpdate {
			out = append(out, r)
		}
	}
	return out
}

func TestReadStripsAnsiAndCarriageReturns(t *testing.T) {
	lines, err := Read(strings.NewReader("\x1b[31mred\x1b[0m line\r\nplain\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"red line", "plain"}, lines)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile("/nonexistent/doc.txt")
	assert.Error(t, err)
}

func TestFindReturnsTokenBeforeDelivering(t *testing.T) {
	doc, l, got := newDoc("cat", "dog", "cat")
	token := doc.Find("cat", nil)
	assert.Equal(t, findbar.Token(1), token)
	assert.Empty(t, *got)

	l.drain(t, 1)
	require.Len(t, *got, 2)
	partial, final := (*got)[0], (*got)[1]
	assert.False(t, partial.FinalUpdate)
	assert.Nil(t, partial.ActiveMatchOrdinal)
	assert.Equal(t, 2, *partial.Matches)
	assert.True(t, final.FinalUpdate)
	assert.Equal(t, token, final.RequestID)
	assert.Equal(t, 1, *final.ActiveMatchOrdinal)
	assert.Equal(t, 2, *final.Matches)
	assert.Equal(t, 0, doc.ActiveLine())
}

func TestTokensIncrease(t *testing.T) {
	doc, l, _ := newDoc("a")
	first := doc.Find("a", nil)
	second := doc.Find("a", nil)
	assert.Greater(t, int64(second), int64(first))
	l.drain(t, 2)
}

func TestFindNextWrapsBothWays(t *testing.T) {
	doc, l, got := newDoc("x", "x", "x")
	doc.Find("x", nil)
	l.drain(t, 1)

	forward := &findbar.FindOptions{Forward: true, FindNext: true}
	backward := &findbar.FindOptions{Forward: false, FindNext: true}
	for _, opts := range []*findbar.FindOptions{forward, forward, forward, backward} {
		doc.Find("x", opts)
		l.drain(t, 1)
	}
	var ordinals []int
	for _, r := range finals(*got) {
		ordinals = append(ordinals, *r.ActiveMatchOrdinal)
	}
	assert.Equal(t, []int{1, 2, 3, 1, 3}, ordinals)
}

func TestQueuedFindNextStepsAllApply(t *testing.T) {
	doc, l, got := newDoc("x", "x", "x")
	doc.Find("x", nil)
	l.drain(t, 1)

	forward := &findbar.FindOptions{Forward: true, FindNext: true}
	doc.Find("x", forward)
	last := doc.Find("x", forward)
	l.drain(t, 2)

	assert.Equal(t, 2, doc.ActiveLine())
	for _, r := range finals(*got) {
		if r.RequestID == last {
			assert.Equal(t, 3, *r.ActiveMatchOrdinal)
		}
	}
}

func TestQueuedStepsCancelOut(t *testing.T) {
	doc, l, _ := newDoc("x", "x", "x")
	doc.Find("x", nil)
	l.drain(t, 1)

	doc.Find("x", &findbar.FindOptions{Forward: false, FindNext: true})
	doc.Find("x", &findbar.FindOptions{Forward: false, FindNext: true})
	doc.Find("x", &findbar.FindOptions{Forward: true, FindNext: true})
	l.drain(t, 3)
	assert.Equal(t, 2, doc.ActiveLine())
}

func TestStepsQueuedBehindFreshSearchCountFromAnchor(t *testing.T) {
	doc, l, _ := newDoc("x", "x", "x", "x")
	doc.SetAnchor(1)
	doc.Find("x", nil)
	doc.Find("x", &findbar.FindOptions{Forward: true, FindNext: true})
	l.drain(t, 2)
	assert.Equal(t, 2, doc.ActiveLine())
}

func TestFreshSearchStartsFromAnchor(t *testing.T) {
	doc, l, got := newDoc("hit", "miss", "hit", "miss", "hit")
	doc.SetAnchor(3)
	doc.Find("hit", nil)
	l.drain(t, 1)
	assert.Equal(t, 3, *finals(*got)[0].ActiveMatchOrdinal)
	assert.Equal(t, 4, doc.ActiveLine())
}

func TestNoMatchesReportsZero(t *testing.T) {
	doc, l, got := newDoc("abc")
	doc.Find("zzz", nil)
	l.drain(t, 1)
	final := finals(*got)[0]
	assert.Equal(t, 0, *final.ActiveMatchOrdinal)
	assert.Equal(t, 0, *final.Matches)
	assert.Equal(t, -1, doc.ActiveLine())
}

func TestSupersededResultDoesNotMoveSelection(t *testing.T) {
	doc, l, got := newDoc("apple", "banana", "banana")
	first := doc.Find("apple", nil)
	second := doc.Find("banana", nil)
	l.drain(t, 2)

	matches, active := doc.Highlight()
	assert.Len(t, matches, 2)
	assert.Equal(t, 0, active)
	for _, r := range finals(*got) {
		if r.RequestID == first {
			assert.Equal(t, 0, *r.ActiveMatchOrdinal)
		}
		if r.RequestID == second {
			assert.Equal(t, 1, *r.ActiveMatchOrdinal)
		}
	}
}

func TestStopFindClearOrKeep(t *testing.T) {
	doc, l, _ := newDoc("cat")
	doc.Find("cat", nil)
	l.drain(t, 1)

	doc.StopFind(findbar.StopKeepSelection)
	matches, active := doc.Highlight()
	assert.Len(t, matches, 1)
	assert.Equal(t, 0, active)

	doc.StopFind(findbar.StopClearSelection)
	matches, active = doc.Highlight()
	assert.Empty(t, matches)
	assert.Equal(t, -1, active)
}

func TestResultAfterStopIsNotApplied(t *testing.T) {
	doc, l, got := newDoc("cat")
	doc.Find("cat", nil)
	doc.StopFind(findbar.StopClearSelection)
	l.drain(t, 1)

	matches, _ := doc.Highlight()
	assert.Empty(t, matches)
	require.Len(t, finals(*got), 1)
	assert.Equal(t, 1, *finals(*got)[0].Matches)
}

func TestSetLinesDropsHighlight(t *testing.T) {
	doc, l, _ := newDoc("cat")
	doc.Find("cat", nil)
	l.drain(t, 1)

	doc.SetLines([]string{"dog", "cat", "cat"})
	matches, active := doc.Highlight()
	assert.Empty(t, matches)
	assert.Equal(t, -1, active)
	assert.Len(t, doc.Lines(), 3)

	doc.Find("cat", nil)
	l.drain(t, 1)
	matches, _ = doc.Highlight()
	assert.Len(t, matches, 2)
}

func TestSessionDrivesDocument(t *testing.T) {
	l := newLoop()
	doc := New("doc", []string{"one fish", "two fish"}, nil, l.deliver)
	overlay := &stubOverlay{}
	sched := &findbar.ManualScheduler{}
	session, err := findbar.New(overlay, overlay, doc, findbar.Options{Scheduler: sched})
	require.NoError(t, err)
	assert.Equal(t, findbar.TargetEmbedded, session.TargetKind())

	session.Open()
	require.NoError(t, session.StartToFind("fish"))
	l.drain(t, 1)
	assert.Equal(t, 1, session.ActiveMatch())
	assert.Equal(t, 2, session.MatchCount())

	require.NoError(t, session.FindNext(true))
	l.drain(t, 1)
	assert.Equal(t, 2, session.ActiveMatch())
	assert.Equal(t, 1, doc.ActiveLine())
}

type stubOverlay struct {
	attached bool
}

func (o *stubOverlay) Send(findbar.Command)            {}
func (o *stubOverlay) OnMessage(func(findbar.Message)) {}
func (o *stubOverlay) Focus()                          {}
func (o *stubOverlay) Attached() bool                  { return o.attached }
func (o *stubOverlay) AddTag(...findbar.Tag)           {}
func (o *stubOverlay) RemoveTag(...findbar.Tag)        {}
func (o *stubOverlay) Append(findbar.Overlay)          { o.attached = true }
func (o *stubOverlay) Remove(findbar.Overlay)          { o.attached = false }
