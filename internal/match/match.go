// Package match locates query occurrences in lines of text for the search
// targets.
package match

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
)

// Mode selects how queries are compared with text.
type Mode string

const (
	// Literal finds every case-insensitive occurrence of the query.
	Literal Mode = "literal"
	// Fuzzy counts each line the query fuzzy-matches as one match.
	Fuzzy Mode = "fuzzy"
)

// ParseMode validates a mode name. The empty string selects Literal.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", Literal:
		return Literal, nil
	case Fuzzy:
		return Fuzzy, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (want literal or fuzzy)", name)
	}
}

// Match is one occurrence. Start and End are byte offsets into the line; a
// match covering a whole line has Start 0 and End len(line).
type Match struct {
	Line  int
	Start int
	End   int
}

// Matcher finds matches using a fixed mode. It is safe for concurrent use.
type Matcher struct {
	mode Mode
}

// New returns a matcher for mode.
func New(mode Mode) *Matcher {
	if mode == "" {
		mode = Literal
	}
	return &Matcher{mode: mode}
}

// Mode reports the matcher's mode.
func (m *Matcher) Mode() Mode {
	return m.mode
}

// Find returns matches for query in reading order.
func (m *Matcher) Find(lines []string, query string) []Match {
	if query == "" || len(lines) == 0 {
		return nil
	}
	if m.mode == Fuzzy {
		return m.findFuzzy(lines, query)
	}
	return m.findLiteral(lines, query)
}

func (m *Matcher) findFuzzy(lines []string, query string) []Match {
	var out []Match
	for i, line := range lines {
		if fuzzy.MatchNormalizedFold(query, line) {
			out = append(out, Match{Line: i, Start: 0, End: len(line)})
		}
	}
	return out
}

func (m *Matcher) findLiteral(lines []string, query string) []Match {
	// Casers carry transform state, so each call gets its own.
	fold := cases.Fold()
	needle := fold.String(query)
	if needle == "" {
		return nil
	}
	var out []Match
	for i, line := range lines {
		folded, starts, ends := foldLine(fold, line)
		offset := 0
		for {
			idx := strings.Index(folded[offset:], needle)
			if idx < 0 {
				break
			}
			start := offset + idx
			end := start + len(needle)
			out = append(out, Match{Line: i, Start: starts[start], End: ends[end-1]})
			offset = end
		}
	}
	return out
}

// foldLine case-folds line and maps each folded byte back to the line. For
// folded byte j, starts[j] and ends[j] bound the rune of line that produced
// it.
func foldLine(fold cases.Caser, line string) (string, []int, []int) {
	starts := make([]int, 0, len(line))
	ends := make([]int, 0, len(line))
	if isASCII(line) {
		for i := range len(line) {
			starts = append(starts, i)
			ends = append(ends, i+1)
		}
		return fold.String(line), starts, ends
	}
	var b strings.Builder
	for i, r := range line {
		size := utf8.RuneLen(r)
		if r == utf8.RuneError {
			_, size = utf8.DecodeRuneInString(line[i:])
		}
		f := fold.String(string(r))
		b.WriteString(f)
		for range len(f) {
			starts = append(starts, i)
			ends = append(ends, i+size)
		}
	}
	return b.String(), starts, ends
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Count is shorthand for len(Find(lines, query)).
func (m *Matcher) Count(lines []string, query string) int {
	return len(m.Find(lines, query))
}
