// Package lexer classifies timeline source into contiguous category spans.
//
// The lexer is a two-mode state machine. In default mode the ordered Rules
// are tried at the cursor and the first match wins; a block-comment opener
// switches to block-comment mode, which consumes text up to and including
// the closer. A block comment is always reported as a single span.
//
// Spans cover the input without gaps or overlaps, so concatenating their
// Text reproduces the source exactly.
package lexer

import (
	"unicode/utf8"

	"github.com/teranos/chrono/tmln/vocab"
)

// Tokenize classifies text from the beginning in default mode.
// On a LexicalError the spans preceding the failing offset are returned
// alongside the error.
func Tokenize(text string) ([]Span, error) {
	spans, _, err := TokenizeFrom(text, 0, ModeDefault)
	return spans, err
}

// TokenizeFrom classifies text[offset:] starting in mode, returning the
// spans, the mode at end of input and any LexicalError. Span offsets are
// relative to text, not to offset.
func TokenizeFrom(text string, offset int, mode Mode) ([]Span, Mode, error) {
	if offset < 0 {
		offset = 0
	}
	spans := make([]Span, 0, (len(text)-min(offset, len(text)))/3+1)
	pos := offset
	// continuing is set while the last span is an open block comment that
	// further comment text should extend rather than follow.
	continuing := false

	for pos < len(text) {
		if mode == ModeBlockComment {
			end, closed := scanBlockComment(text, pos)
			if continuing && len(spans) > 0 {
				last := &spans[len(spans)-1]
				last.End = end
				last.Text = text[last.Start:end]
			} else {
				spans = append(spans, Span{Start: pos, End: end, Category: vocab.Comment, Text: text[pos:end]})
			}
			pos = end
			continuing = false
			if closed {
				mode = ModeDefault
			}
			continue
		}

		n, rule := match(text, pos)
		if n == 0 {
			r, _ := utf8.DecodeRuneInString(text[pos:])
			return spans, mode, &LexicalError{Offset: pos, Char: r}
		}
		spans = append(spans, Span{Start: pos, End: pos + n, Category: rule.Category, Text: text[pos : pos+n]})
		pos += n
		mode = rule.Next
		continuing = rule.Next == ModeBlockComment
	}

	return spans, mode, nil
}

// match runs the default-mode rules at pos and returns the first hit
func match(text string, pos int) (int, Rule) {
	for _, rule := range Rules {
		if n := rule.Match(text, pos); n > 0 {
			return n, rule
		}
	}
	return 0, Rule{}
}

// Relex re-classifies text after an edit whose first changed byte is at
// offset edit, reusing the prefix of previous that the edit cannot affect.
//
// edit is first moved back to the start of its rune. A span is reused only
// when it ends strictly before that point: every rule decides its extent by
// looking at most one rune past the span, and that rune is then unchanged.
// Lexing restarts in default mode at the end of the last reused span. The
// result equals Tokenize(text).
func Relex(text string, previous []Span, edit int) ([]Span, error) {
	edit = max(0, min(edit, len(text)))
	for edit > 0 && edit < len(text) && !utf8.RuneStart(text[edit]) {
		edit--
	}

	keep := 0
	for keep < len(previous) && previous[keep].End < edit {
		keep++
	}
	start := 0
	if keep > 0 {
		start = previous[keep-1].End
	}

	rest, _, err := TokenizeFrom(text, start, ModeDefault)
	spans := make([]Span, 0, keep+len(rest))
	spans = append(spans, previous[:keep]...)
	spans = append(spans, rest...)
	return spans, err
}

// Reassemble concatenates span texts. For a complete tokenization it
// returns the original source.
func Reassemble(spans []Span) string {
	n := 0
	for _, s := range spans {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range spans {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}
