package lexer

import (
	"fmt"

	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/tmln/vocab"
)

// Mode is the lexer state threaded between spans
type Mode int

const (
	ModeDefault Mode = iota
	ModeBlockComment
)

// String returns the mode name used in logs and JSON
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeBlockComment:
		return "in-block-comment"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Span is a classified, contiguous piece of source.
// Start and End are byte offsets, End exclusive.
type Span struct {
	Start    int            `json:"start" yaml:"start"`
	End      int            `json:"end" yaml:"end"`
	Category vocab.Category `json:"category" yaml:"category"`
	Text     string         `json:"text" yaml:"text"`
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// ErrLexical is wrapped by every LexicalError
var ErrLexical = errors.New("no lexical rule matches")

// LexicalError reports the first offset at which no rule matched
type LexicalError struct {
	Offset int
	Char   rune
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("lexical error at offset %d: unexpected %q", e.Offset, e.Char)
}

// Unwrap lets errors.Is(err, ErrLexical) succeed
func (e *LexicalError) Unwrap() error {
	return ErrLexical
}

// AsLexicalError extracts a *LexicalError from err's chain
func AsLexicalError(err error) (*LexicalError, bool) {
	var lexErr *LexicalError
	if errors.As(err, &lexErr) {
		return lexErr, true
	}
	return nil, false
}
