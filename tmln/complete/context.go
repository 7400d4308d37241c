// Package complete decides which part of the timeline vocabulary is
// plausible at a cursor and ranks it.
//
// Context detection is a line-local heuristic over the text before the
// caret. It does not know whether the caret sits inside a string or a
// comment, so `title = "importance = ` still offers importance levels.
package complete

import (
	"regexp"
	"strings"
	"unicode"
)

// Context is the syntactic situation at the cursor
type Context int

const (
	Unconstrained Context = iota
	ImportanceValue
	RelationshipTypeValue
	AfterBlockOpen
)

func (c Context) String() string {
	switch c {
	case ImportanceValue:
		return "importance-value"
	case RelationshipTypeValue:
		return "relationship-type-value"
	case AfterBlockOpen:
		return "after-block-open"
	default:
		return "unconstrained"
	}
}

// MarshalText encodes the context by name
func (c Context) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

var (
	importanceAssign = regexp.MustCompile(`\bimportance\s*=$`)
	typeAssign       = regexp.MustCompile(`\btype\s*=$`)
)

// ClassifyContext inspects line up to column (in characters, clamped to the
// line) with trailing whitespace removed. The first matching situation wins.
func ClassifyContext(line string, column int) Context {
	before := strings.TrimRightFunc(prefix(line, column), unicode.IsSpace)

	switch {
	case importanceAssign.MatchString(before):
		return ImportanceValue
	case typeAssign.MatchString(before):
		return RelationshipTypeValue
	case strings.HasSuffix(before, "{"):
		return AfterBlockOpen
	default:
		return Unconstrained
	}
}

func prefix(line string, column int) string {
	if column <= 0 {
		return ""
	}
	n := 0
	for i := range line {
		if n == column {
			return line[:i]
		}
		n++
	}
	return line
}
