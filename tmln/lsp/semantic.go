package lsp

import (
	"strings"
	"unicode/utf8"

	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/tmln/vocab"
)

// SemanticToken is one single-line token in LSP coordinates
// (0-based line, UTF-16 start and length).
type SemanticToken struct {
	Line      uint32 `json:"line"`
	StartChar uint32 `json:"start_char"`
	Length    uint32 `json:"length"`
	Type      uint32 `json:"type"`
}

// SemanticTokens classifies text with recovery and returns tokens in
// document order. Whitespace is omitted. Spans crossing newlines (block
// comments, multi-line strings) are split into one token per line, since
// LSP tokens cannot span lines.
func (s *Service) SemanticTokens(text string) []SemanticToken {
	spans := s.TokenizeRecover(text)
	ranges := lexer.Locate(text, spans)

	tokens := make([]SemanticToken, 0, len(spans))
	for i, sp := range spans {
		if sp.Category == vocab.Whitespace {
			continue
		}
		typ, ok := tokenType(sp.Category)
		if !ok {
			continue
		}
		line := uint32(ranges[i].Start.Line - 1)
		char := uint32(ranges[i].Start.Character)
		for j, part := range strings.Split(sp.Text, "\n") {
			if j > 0 {
				line++
				char = 0
			}
			part = strings.TrimSuffix(part, "\r")
			if n := utf16Len(part); n > 0 {
				tokens = append(tokens, SemanticToken{Line: line, StartChar: char, Length: n, Type: typ})
			}
		}
	}
	return tokens
}

// EncodeSemanticTokens produces the LSP relative encoding: five integers
// per token (delta line, delta start, length, type, modifiers).
func EncodeSemanticTokens(tokens []SemanticToken) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar uint32

	for _, tok := range tokens {
		deltaLine := tok.Line - prevLine
		deltaStart := tok.StartChar
		if deltaLine == 0 {
			deltaStart = tok.StartChar - prevChar
		}
		data = append(data, deltaLine, deltaStart, tok.Length, tok.Type, 0)
		prevLine = tok.Line
		prevChar = tok.StartChar
	}
	return data
}

func utf16Len(s string) uint32 {
	var n uint32
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		s = s[size:]
	}
	return n
}
