package display

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/teranos/chrono/errors"
)

// ValueKind classifies a literal found in a serialized result document
type ValueKind string

const (
	ValuePlain   ValueKind = "plain"
	ValueKey     ValueKind = "key"
	ValueString  ValueKind = "string"
	ValueBoolean ValueKind = "boolean"
	ValueNull    ValueKind = "null"
	ValueNumber  ValueKind = "number"
)

// ValueSpan is a classified piece of a serialized result document.
// Offsets are byte offsets into the unescaped text.
type ValueSpan struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Kind  ValueKind `json:"kind"`
	Text  string    `json:"text"`
}

// One pass, one pattern. Groups: 1 = quoted string, 2 = trailing colon,
// 3 = boolean, 4 = null. Anything else that matches is a number.
var valuePattern = regexp.MustCompile(
	`("(?:\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*")(\s*:)?` +
		`|\b(true|false)\b` +
		`|\b(null)\b` +
		`|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?`)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// TokenizeValue splits text into contiguous spans. Literal shapes get a
// typed kind; punctuation and whitespace between them are ValuePlain.
// Input is not validated; unbalanced quotes are passed through best effort.
func TokenizeValue(text string) []ValueSpan {
	matches := valuePattern.FindAllStringSubmatchIndex(text, -1)
	spans := make([]ValueSpan, 0, 2*len(matches)+1)

	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			spans = append(spans, ValueSpan{Start: pos, End: m[0], Kind: ValuePlain, Text: text[pos:m[0]]})
		}
		spans = append(spans, ValueSpan{Start: m[0], End: m[1], Kind: kindOf(m), Text: text[m[0]:m[1]]})
		pos = m[1]
	}
	if pos < len(text) {
		spans = append(spans, ValueSpan{Start: pos, End: len(text), Kind: ValuePlain, Text: text[pos:]})
	}
	return spans
}

func kindOf(m []int) ValueKind {
	switch {
	case m[2] >= 0 && m[4] >= 0:
		return ValueKey
	case m[2] >= 0:
		return ValueString
	case m[6] >= 0:
		return ValueBoolean
	case m[8] >= 0:
		return ValueNull
	default:
		return ValueNumber
	}
}

// HighlightHTML renders an indented JSON document as HTML. The reserved
// characters &, < and > are escaped exactly once, typed literals are
// wrapped in <span class="json-KIND">, newlines become <br> and each pair
// of spaces becomes two non-breaking spaces.
func HighlightHTML(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)

	for _, s := range TokenizeValue(text) {
		escaped := htmlEscaper.Replace(s.Text)
		if s.Kind == ValuePlain {
			b.WriteString(escaped)
			continue
		}
		b.WriteString(`<span class="json-`)
		b.WriteString(string(s.Kind))
		b.WriteString(`">`)
		b.WriteString(escaped)
		b.WriteString(`</span>`)
	}

	out := strings.ReplaceAll(b.String(), "\n", "<br>")
	return strings.ReplaceAll(out, "  ", "&nbsp;&nbsp;")
}

// IndentJSON re-serializes raw JSON with two-space indentation, the layout
// HighlightHTML expects.
func IndentJSON(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", errors.Wrap(err, "failed to indent result document")
	}
	return buf.String(), nil
}
