package lexer

import "unicode/utf8"

// Position is a point in source text.
// Line is 1-based; Character counts UTF-16 code units within the line,
// which is what LSP clients expect.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
	Offset    int `json:"offset"`
}

// Range is the start and end position of a span
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// PositionTracker walks source text forward, tracking line and character
type PositionTracker struct {
	source    string
	line      int
	character int
	offset    int
}

// NewPositionTracker starts a tracker at the beginning of source
func NewPositionTracker(source string) *PositionTracker {
	return &PositionTracker{source: source, line: 1}
}

// AdvanceTo moves the tracker forward to byte offset off.
// Offsets behind the tracker are ignored.
func (pt *PositionTracker) AdvanceTo(off int) {
	off = min(off, len(pt.source))
	for pt.offset < off {
		r, size := utf8.DecodeRuneInString(pt.source[pt.offset:])
		if r == '\n' {
			pt.line++
			pt.character = 0
		} else {
			pt.character += utf16Len(r)
		}
		pt.offset += size
	}
}

// Mark returns the current position
func (pt *PositionTracker) Mark() Position {
	return Position{Line: pt.line, Character: pt.character, Offset: pt.offset}
}

// Locate returns the range of every span, in order. Spans must be sorted
// by Start, as Tokenize produces them.
func Locate(text string, spans []Span) []Range {
	pt := NewPositionTracker(text)
	ranges := make([]Range, len(spans))
	for i, s := range spans {
		pt.AdvanceTo(s.Start)
		start := pt.Mark()
		pt.AdvanceTo(s.End)
		ranges[i] = Range{Start: start, End: pt.Mark()}
	}
	return ranges
}

// OffsetAt converts a 0-based line and UTF-16 character into a byte
// offset, clamping to the end of the line and of the text.
func OffsetAt(text string, line, character int) int {
	off := 0
	for l := 0; l < line; l++ {
		i := indexByteFrom(text, off, '\n')
		if i < 0 {
			return len(text)
		}
		off = i + 1
	}
	units := 0
	for off < len(text) && units < character {
		r, size := utf8.DecodeRuneInString(text[off:])
		if r == '\n' {
			break
		}
		units += utf16Len(r)
		off += size
	}
	return off
}

func indexByteFrom(s string, from int, b byte) int {
	for i := from; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
