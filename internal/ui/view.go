package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atomicstack/tmux-popup-find/internal/findbar"
	"github.com/atomicstack/tmux-popup-find/internal/format/table"
	"github.com/atomicstack/tmux-popup-find/internal/match"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const maxOverlayWidth = 60

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	parts := make([]string, 0, 4)
	if ov := m.overlay.View(); ov != "" {
		parts = append(parts, ov)
	}
	if m.doc != nil {
		parts = append(parts, m.viewport.View())
	} else if !m.overlay.Visible() {
		parts = append(parts, m.styles.Info.Render(fmt.Sprintf("press / to search %s", m.title)))
	}
	if m.inspect {
		parts = append(parts, m.inspectView())
	}
	parts = append(parts, m.statusView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// layout sizes the overlay and the pager from the current window size.
func (m *Model) layout() {
	if m.width > 0 {
		m.overlay.SetWidth(min(m.width, maxOverlayWidth))
	}
	if m.doc == nil {
		return
	}
	used := 1
	if ov := m.overlay.View(); ov != "" {
		used += lipgloss.Height(ov)
	}
	if m.inspect {
		used += lipgloss.Height(m.inspectView())
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-used, 1)
}

// refreshContent re-renders the pager with match highlights and, after a new
// result, scrolls the active match into view.
func (m *Model) refreshContent() {
	if m.doc == nil {
		if lines := m.pane.Lines(); lines != nil {
			m.lines = lines
		}
		m.follow = false
		return
	}
	m.lines = m.doc.Lines()
	m.viewport.SetContent(m.renderLines())
	if !m.follow {
		return
	}
	m.follow = false
	line := m.doc.ActiveLine()
	if line < 0 {
		return
	}
	top := m.viewport.YOffset
	if line < top || line >= top+m.viewport.Height {
		m.viewport.SetYOffset(max(line-m.viewport.Height/3, 0))
	}
}

func (m *Model) renderLines() string {
	matches, active := m.doc.Highlight()
	byLine := make(map[int][]int, len(matches))
	for i, mt := range matches {
		byLine[mt.Line] = append(byLine[mt.Line], i)
	}
	text := m.styles.Text
	var b strings.Builder
	for i, line := range m.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		pos := 0
		for _, seg := range lineSegments(line, matches, byLine[i], active) {
			if seg.start > pos {
				b.WriteString(text.Render(line[pos:seg.start]))
			}
			style := m.styles.Match
			if seg.active {
				style = m.styles.ActiveMatch
			}
			b.WriteString(style.Render(line[seg.start:seg.end]))
			pos = seg.end
		}
		if pos < len(line) || pos == 0 {
			b.WriteString(text.Render(line[pos:]))
		}
	}
	return b.String()
}

type segment struct {
	start, end int
	active     bool
}

// lineSegments turns the matches of one line into ordered, disjoint
// highlight spans. A match overlapping the previous span is merged into it,
// so an active match is never hidden behind an earlier one.
func lineSegments(line string, matches []match.Match, idxs []int, active int) []segment {
	var segs []segment
	for _, idx := range idxs {
		mt := matches[idx]
		if mt.Start < 0 || mt.End > len(line) || mt.Start >= mt.End {
			continue
		}
		if n := len(segs); n > 0 && mt.Start < segs[n-1].end {
			last := &segs[n-1]
			last.end = max(last.end, mt.End)
			last.active = last.active || idx == active
			continue
		}
		segs = append(segs, segment{start: mt.Start, end: mt.End, active: idx == active})
	}
	return segs
}

func (m *Model) statusView() string {
	segments := []string{m.title}
	if m.doc != nil && len(m.lines) > 0 {
		first := m.viewport.YOffset + 1
		last := min(m.viewport.YOffset+m.viewport.Height, len(m.lines))
		segments = append(segments, fmt.Sprintf("lines %d-%d/%d", first, last, len(m.lines)))
	} else if m.doc == nil {
		segments = append(segments, fmt.Sprintf("%d lines", len(m.lines)))
	}
	if m.session.IsSearching() {
		segments = append(segments, fmt.Sprintf("%q %d/%d", m.session.Query(), m.session.ActiveMatch(), m.session.MatchCount()))
	}
	line := strings.Join(segments, " · ")
	switch {
	case m.errMsg != "":
		line += "  " + m.styles.Error.Render(m.errMsg)
	case m.infoMsg != "":
		line += "  " + m.infoMsg
	}
	if m.width > 0 {
		line = ansi.Truncate(line, m.width, "…")
		return m.styles.Status.Width(m.width).Render(line)
	}
	return m.styles.Status.Render(line)
}

func (m *Model) inspectView() string {
	s := m.session
	rows := []string{
		fmt.Sprintf("open=%t initialized=%t searching=%t target=%s", s.IsOpen(), s.Initialized(), s.IsSearching(), s.TargetKind()),
		fmt.Sprintf("query=%q request=%d match=%d/%d", s.Query(), s.PendingRequest(), s.ActiveMatch(), s.MatchCount()),
	}
	entries := make([][]string, 0, len(m.recent))
	for _, entry := range m.recent {
		entries = append(entries, append([]string{strconv.Itoa(entry.seq)}, describeEvent(entry.event)...))
	}
	for _, line := range table.Format(entries, []table.Alignment{table.AlignRight}, 2) {
		rows = append(rows, "  "+line)
	}
	if m.width > 0 {
		for i := range rows {
			rows[i] = ansi.Truncate(rows[i], m.width, "")
		}
	}
	title := m.styles.InspectTitle.Render("find session")
	return title + "\n" + m.styles.InspectBody.Render(strings.Join(rows, "\n"))
}

// describeEvent returns the kind and detail columns of an inspector row.
func describeEvent(evt findbar.Event) []string {
	switch evt.Kind {
	case findbar.EventStart:
		return []string{string(evt.Kind), strconv.Quote(evt.Query)}
	case findbar.EventNext:
		dir := "back"
		if evt.Forward {
			dir = "forward"
		}
		return []string{string(evt.Kind), strconv.Quote(evt.Query), dir}
	case findbar.EventFound:
		return []string{string(evt.Kind), fmt.Sprintf("%d/%d", evt.Active, evt.Total)}
	default:
		return []string{string(evt.Kind)}
	}
}
