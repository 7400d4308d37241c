// Package lsp provides editor-facing language intelligence for timeline
// source: tolerant tokenization with diagnostics, completion narrowed to
// the word being typed, hover text and LSP semantic tokens.
//
// The lexer itself is strict. Timeline programs also contain identifiers
// (event and period ids) that no rule classifies, so this package skips
// past each lexical error, marks the skipped text Unclassified and resumes.
package lsp

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/tmln/complete"
	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/tmln/vocab"
)

// Engine is the capability a presentation surface needs from the language core
type Engine interface {
	Tokenize(text string) ([]lexer.Span, error)
	Complete(line string, column int) []complete.Candidate
}

// Service implements Engine and the editor features built on it
type Service struct {
	logger *zap.SugaredLogger
}

var _ Engine = (*Service)(nil)

// NewService creates a language service. A nil logger uses the global one.
func NewService(log *zap.SugaredLogger) *Service {
	if log == nil {
		log = logger.Logger
	}
	return &Service{logger: log.Named("lsp")}
}

// Tokenize classifies text strictly; see lexer.Tokenize
func (s *Service) Tokenize(text string) ([]lexer.Span, error) {
	return lexer.Tokenize(text)
}

// Complete returns ranked candidates for the caret at column (characters) in line
func (s *Service) Complete(line string, column int) []complete.Candidate {
	return complete.CompleteAt(line, column)
}

// Diagnostic is a problem found while tokenizing
type Diagnostic struct {
	Range    lexer.Range `json:"range"`
	Severity string      `json:"severity"` // error, warning, information, hint
	Message  string      `json:"message"`
}

// Analysis is the result of a recovering tokenization
type Analysis struct {
	Spans       []lexer.Span  `json:"spans"`
	Ranges      []lexer.Range `json:"ranges"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
	// Identifiers lists the unclassified words in order of appearance
	Identifiers []string `json:"identifiers"`
}

// Analyze tokenizes text, recovering from lexical errors. Word-shaped
// unclassified text is treated as an identifier and produces no
// diagnostic; anything else is reported as an error.
func (s *Service) Analyze(text string) *Analysis {
	spans, offsets := s.tokenizeRecover(text)
	ranges := lexer.Locate(text, spans)

	a := &Analysis{
		Spans:       spans,
		Ranges:      ranges,
		Diagnostics: []Diagnostic{},
		Identifiers: []string{},
	}
	for i, sp := range spans {
		if sp.Category != Unclassified {
			continue
		}
		if isIdentifier(sp.Text) {
			a.Identifiers = append(a.Identifiers, sp.Text)
			continue
		}
		a.Diagnostics = append(a.Diagnostics, Diagnostic{
			Range:    ranges[i],
			Severity: "error",
			Message:  diagnosticMessage(sp.Text),
		})
	}
	if len(offsets) > 0 {
		s.logger.Debugw("recovered from lexical errors",
			logger.FieldCount, len(offsets),
			"identifiers", len(a.Identifiers),
			"diagnostics", len(a.Diagnostics))
	}
	return a
}

// TokenizeRecover is Tokenize with skip-and-mark recovery. The returned
// spans always cover text completely.
func (s *Service) TokenizeRecover(text string) []lexer.Span {
	spans, _ := s.tokenizeRecover(text)
	return spans
}

func (s *Service) tokenizeRecover(text string) ([]lexer.Span, []int) {
	var spans []lexer.Span
	var errOffsets []int

	off := 0
	for {
		part, _, err := lexer.TokenizeFrom(text, off, lexer.ModeDefault)
		spans = append(spans, part...)

		lexErr, ok := lexer.AsLexicalError(err)
		if !ok {
			break
		}
		skipped := lexer.WordAt(text, lexErr.Offset)
		spans = append(spans, lexer.Span{
			Start:    lexErr.Offset,
			End:      lexErr.Offset + len(skipped),
			Category: Unclassified,
			Text:     skipped,
		})
		errOffsets = append(errOffsets, lexErr.Offset)
		off = lexErr.Offset + len(skipped)
	}
	if spans == nil {
		spans = []lexer.Span{}
	}
	return spans, errOffsets
}

// HasKeyword reports whether the recovered token stream contains word as a keyword
func (s *Service) HasKeyword(text, word string) bool {
	for _, sp := range s.TokenizeRecover(text) {
		if sp.Category == vocab.Keyword && sp.Text == word {
			return true
		}
	}
	return false
}

func isIdentifier(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return r == '_' || unicode.IsLetter(r)
}

func diagnosticMessage(text string) string {
	switch {
	case text == `"`:
		return "unterminated string"
	case text != "" && text[0] >= '0' && text[0] <= '9':
		return fmt.Sprintf("invalid number %q", text)
	default:
		return fmt.Sprintf("unexpected %q", text)
	}
}

// CompletionItem is a candidate prepared for an editor
type CompletionItem struct {
	complete.Candidate
	SortText string `json:"sortText"`
}

// CompleteInDocument completes at an LSP position (0-based line, UTF-16
// character) in a full document and narrows the candidates to those
// starting with the word before the caret. The context is taken at the
// start of that word, so `importance = hi` still offers importance levels.
func (s *Service) CompleteInDocument(text string, line, character int) []CompletionItem {
	lineText := lineAt(text, line)
	column := runeColumn(lineText, character)
	prefix := extractPrefix(lineText, column)

	candidates := s.Complete(lineText, column-utf8.RuneCountInString(prefix))

	items := make([]CompletionItem, 0, len(candidates))
	for i, c := range candidates {
		if prefix != "" && !strings.HasPrefix(c.Label, prefix) {
			continue
		}
		items = append(items, CompletionItem{
			Candidate: c,
			SortText:  fmt.Sprintf("%04d", i),
		})
	}
	return items
}

// HoverInfo describes the vocabulary word under the cursor
type HoverInfo struct {
	Word     string         `json:"word"`
	Category vocab.Category `json:"category"`
	Contents string         `json:"contents"` // markdown
	Range    lexer.Range    `json:"range"`
}

// Hover returns documentation for the vocabulary word at an LSP position,
// or nil when the cursor is not on one.
func (s *Service) Hover(text string, line, character int) *HoverInfo {
	off := lexer.OffsetAt(text, line, character)

	spans := s.TokenizeRecover(text)
	for i, sp := range spans {
		if off < sp.Start || off >= sp.End {
			continue
		}
		l, ok := vocab.Find(sp.Text)
		if !ok || l.Category != sp.Category {
			return nil
		}
		contents := fmt.Sprintf("**%s** _(%s)_\n\n%s", l.Word, l.Category, l.Doc)
		if l.Sub != vocab.SubNone {
			contents = fmt.Sprintf("**%s** _(%s, %s)_\n\n%s", l.Word, l.Category, l.Sub, l.Doc)
		}
		return &HoverInfo{
			Word:     l.Word,
			Category: l.Category,
			Contents: contents,
			Range:    lexer.Locate(text, spans[i:i+1])[0],
		}
	}
	return nil
}

// lineAt returns the 0-based line of text without its terminator
func lineAt(text string, line int) string {
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			return ""
		}
		text = text[nl+1:]
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	return strings.TrimSuffix(text, "\r")
}

// runeColumn converts a UTF-16 character offset into a rune column
func runeColumn(line string, character int) int {
	units, col := 0, 0
	for _, r := range line {
		if units >= character {
			break
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		col++
	}
	return col
}

// extractPrefix gets the partial word ending at column
func extractPrefix(line string, column int) string {
	runes := []rune(line)
	if column > len(runes) {
		column = len(runes)
	}
	start := column
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	return string(runes[start:column])
}

func isWordRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
