package theme

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// Styles describes reusable Lip Gloss styles shared across the UI.
type Styles struct {
	OverlayActive   *lipgloss.Style
	OverlayInactive *lipgloss.Style
	Prompt          *lipgloss.Style
	Input           *lipgloss.Style
	Placeholder     *lipgloss.Style
	Counter         *lipgloss.Style
	CounterEmpty    *lipgloss.Style
	Hint            *lipgloss.Style
	Text            *lipgloss.Style
	Match           *lipgloss.Style
	ActiveMatch     *lipgloss.Style
	Status          *lipgloss.Style
	InspectTitle    *lipgloss.Style
	InspectBody     *lipgloss.Style
	Error           *lipgloss.Style
	Info            *lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		OverlayActive: ptr(
			lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("33")).Padding(0, 1),
		),
		OverlayInactive: ptr(
			lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1),
		),
		Prompt: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		),
		Input: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		),
		Placeholder: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		),
		Counter: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
		),
		CounterEmpty: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Italic(true),
		),
		Hint: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		),
		Text: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		),
		Match: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220")),
		),
		ActiveMatch: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("208")).Bold(true),
		),
		Status: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236")),
		),
		InspectTitle: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
		),
		InspectBody: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		),
		Error: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		),
		Info: ptr(
			lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
		),
	}
}

var defaults = defaultStyles()

// Default exposes the standard style set used across the application.
func Default() *Styles {
	return &defaults
}

// Spec is the TOML form of one style override. Colours accept anything
// lipgloss.Color does: ANSI indexes ("33") or hex ("#ff8700").
type Spec struct {
	Foreground string `toml:"fg"`
	Background string `toml:"bg"`
	Border     string `toml:"border"`
	Bold       *bool  `toml:"bold"`
	Italic     *bool  `toml:"italic"`
	Underline  *bool  `toml:"underline"`
}

// Load reads a TOML theme file and applies its tables on top of the default
// styles, for example:
//
//	[active_match]
//	bg = "#ff8700"
//	bold = true
func Load(path string) (*Styles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Styles, error) {
	var specs map[string]Spec
	if err := toml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse theme: %w", err)
	}
	styles := defaultStyles()
	slots := styles.slots()
	for name, spec := range specs {
		slot, ok := slots[name]
		if !ok {
			return nil, fmt.Errorf("parse theme: unknown style %q (known: %s)", name, strings.Join(knownNames(slots), ", "))
		}
		*slot = ptr(spec.apply(**slot))
	}
	return &styles, nil
}

func (s *Styles) slots() map[string]**lipgloss.Style {
	return map[string]**lipgloss.Style{
		"overlay_active":   &s.OverlayActive,
		"overlay_inactive": &s.OverlayInactive,
		"prompt":           &s.Prompt,
		"input":            &s.Input,
		"placeholder":      &s.Placeholder,
		"counter":          &s.Counter,
		"counter_empty":    &s.CounterEmpty,
		"hint":             &s.Hint,
		"text":             &s.Text,
		"match":            &s.Match,
		"active_match":     &s.ActiveMatch,
		"status":           &s.Status,
		"inspect_title":    &s.InspectTitle,
		"inspect_body":     &s.InspectBody,
		"error":            &s.Error,
		"info":             &s.Info,
	}
}

func knownNames(slots map[string]**lipgloss.Style) []string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Spec) apply(style lipgloss.Style) lipgloss.Style {
	if s.Foreground != "" {
		style = style.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		style = style.Background(lipgloss.Color(s.Background))
	}
	if s.Border != "" {
		style = style.BorderForeground(lipgloss.Color(s.Border))
	}
	if s.Bold != nil {
		style = style.Bold(*s.Bold)
	}
	if s.Italic != nil {
		style = style.Italic(*s.Italic)
	}
	if s.Underline != nil {
		style = style.Underline(*s.Underline)
	}
	return style
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
