package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/tmln/vocab"
)

// Theme maps span categories and value kinds to terminal styles
type Theme struct {
	Categories map[vocab.Category]lipgloss.Style
	Values     map[ValueKind]lipgloss.Style
	// Unknown styles spans whose category the theme does not know, such as
	// regions a recovering tokenizer could not classify.
	Unknown lipgloss.Style
}

func style(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).TabWidth(lipgloss.NoTabConversion)
}

// DefaultTheme mirrors the editor's colour scheme
var DefaultTheme = Theme{
	Categories: map[vocab.Category]lipgloss.Style{
		vocab.Comment:  style("241").Italic(true),
		vocab.String:   style("108"),
		vocab.Number:   style("173"),
		vocab.Keyword:  style("69").Bold(true),
		vocab.Property: style("140"),
		vocab.Constant: style("179"),
		vocab.Operator: style("250"),
	},
	Values: map[ValueKind]lipgloss.Style{
		ValueKey:     style("69"),
		ValueString:  style("108"),
		ValueNumber:  style("173"),
		ValueBoolean: style("179"),
		ValueNull:    style("241").Italic(true),
	},
	Unknown: style("167").Underline(true),
}

// RenderSpans colours classified source for a terminal. Whitespace is
// written unstyled.
func (t Theme) RenderSpans(spans []lexer.Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Category == vocab.Whitespace {
			b.WriteString(s.Text)
			continue
		}
		st, ok := t.Categories[s.Category]
		if !ok {
			st = t.Unknown
		}
		renderLines(&b, st, s.Text)
	}
	return b.String()
}

// RenderValue colours an indented JSON document for a terminal
func (t Theme) RenderValue(text string) string {
	var b strings.Builder
	for _, s := range TokenizeValue(text) {
		st, ok := t.Values[s.Kind]
		if !ok {
			b.WriteString(s.Text)
			continue
		}
		renderLines(&b, st, s.Text)
	}
	return b.String()
}

// renderLines styles each line separately; lipgloss pads multi-line
// blocks to a common width, which would alter the source.
func renderLines(b *strings.Builder, st lipgloss.Style, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if line != "" {
			b.WriteString(st.Render(line))
		}
	}
}
