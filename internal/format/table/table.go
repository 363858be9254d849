// Package table lays out rows of cells in aligned columns. The find session
// inspector uses it for its event log.
package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Format pads every cell to the widest entry of its column and joins the
// cells with gap spaces. Rows may be ragged; a missing cell counts as empty.
// Widths are measured in terminal cells, so styled cells line up too.
func Format(rows [][]string, alignments []Alignment, gap int) []string {
	if len(rows) == 0 {
		return nil
	}
	if gap < 1 {
		gap = 1
	}
	var widths []int
	for _, row := range rows {
		for c, cell := range row {
			if c >= len(widths) {
				widths = append(widths, 0)
			}
			widths[c] = max(widths[c], lipgloss.Width(cell))
		}
	}
	sep := strings.Repeat(" ", gap)
	out := make([]string, len(rows))
	for i, row := range rows {
		var b strings.Builder
		for c, width := range widths {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			if c > 0 {
				b.WriteString(sep)
			}
			pad := strings.Repeat(" ", width-lipgloss.Width(cell))
			if c < len(alignments) && alignments[c] == AlignRight {
				b.WriteString(pad)
				b.WriteString(cell)
				continue
			}
			b.WriteString(cell)
			b.WriteString(pad)
		}
		out[i] = strings.TrimRight(b.String(), " ")
	}
	return out
}
