package lexer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teranos/chrono/tmln/vocab"
)

// Matcher reports how many bytes of src, starting exactly at pos, the rule
// consumes. Zero means no match.
type Matcher func(src string, pos int) int

// Rule is one entry of the ordered default-mode rule set
type Rule struct {
	Name     string
	Match    Matcher
	Category vocab.Category
	Next     Mode
}

// Rules is the default-mode rule set. The first rule that matches at the
// cursor wins, so order is part of the language definition.
var Rules = []Rule{
	{Name: "line-comment", Match: matchLineComment, Category: vocab.Comment, Next: ModeDefault},
	{Name: "block-comment-open", Match: matchLiteral(blockOpen), Category: vocab.Comment, Next: ModeBlockComment},
	{Name: "string", Match: matchPattern(stringPattern), Category: vocab.String, Next: ModeDefault},
	{Name: "number", Match: matchInteger, Category: vocab.Number, Next: ModeDefault},
	{Name: "keyword", Match: matchWord(vocab.Keyword), Category: vocab.Keyword, Next: ModeDefault},
	{Name: "property", Match: matchWord(vocab.Property), Category: vocab.Property, Next: ModeDefault},
	{Name: "constant", Match: matchWord(vocab.Constant), Category: vocab.Constant, Next: ModeDefault},
	{Name: "operator", Match: matchAnyOf(operators), Category: vocab.Operator, Next: ModeDefault},
	{Name: "whitespace", Match: matchWhitespace, Category: vocab.Whitespace, Next: ModeDefault},
}

const (
	lineComment = "//"
	blockOpen   = "/*"
	blockClose  = "*/"
	operators   = "=,;{}"
)

// Strings end on their line and may contain backslash escapes
var stringPattern = regexp.MustCompile(`\A"(?:[^"\\\n]|\\.)*"`)

func matchLineComment(src string, pos int) int {
	if !strings.HasPrefix(src[pos:], lineComment) {
		return 0
	}
	end := strings.IndexAny(src[pos:], "\r\n")
	if end < 0 {
		return len(src) - pos
	}
	return end
}

func matchLiteral(lit string) Matcher {
	return func(src string, pos int) int {
		if strings.HasPrefix(src[pos:], lit) {
			return len(lit)
		}
		return 0
	}
}

func matchPattern(re *regexp.Regexp) Matcher {
	return func(src string, pos int) int {
		loc := re.FindStringIndex(src[pos:])
		if loc == nil {
			return 0
		}
		return loc[1]
	}
}

func matchAnyOf(chars string) Matcher {
	return func(src string, pos int) int {
		if strings.IndexByte(chars, src[pos]) >= 0 {
			return 1
		}
		return 0
	}
}

// matchInteger accepts a digit run that is not glued to a following word
// character. A hyphen ends the run, so "1453-05" starts with the number 1453.
func matchInteger(src string, pos int) int {
	end := pos
	for end < len(src) && src[end] >= '0' && src[end] <= '9' {
		end++
	}
	if end == pos {
		return 0
	}
	if r, _ := utf8.DecodeRuneInString(src[end:]); end < len(src) && isWordChar(r) && r != '-' {
		return 0
	}
	return end - pos
}

// matchWord accepts a whole word found in the given vocabulary table.
// Whole-word matching keeps "type" from matching inside "typeface".
func matchWord(cat vocab.Category) Matcher {
	return func(src string, pos int) int {
		n := scanWord(src, pos)
		if n == 0 {
			return 0
		}
		if l, ok := vocab.Find(src[pos : pos+n]); ok && l.Category == cat {
			return n
		}
		return 0
	}
}

func matchWhitespace(src string, pos int) int {
	end := pos
	for end < len(src) {
		r, size := utf8.DecodeRuneInString(src[end:])
		if !unicode.IsSpace(r) {
			break
		}
		end += size
	}
	return end - pos
}

// scanWord returns the byte length of the word starting at pos, or 0.
// Words start with a letter or underscore and continue with letters,
// digits, underscores and hyphens (for constants such as cause-effect).
func scanWord(src string, pos int) int {
	r, size := utf8.DecodeRuneInString(src[pos:])
	if !unicode.IsLetter(r) && r != '_' {
		return 0
	}
	end := pos + size
	for end < len(src) {
		r, size = utf8.DecodeRuneInString(src[end:])
		if !isWordChar(r) {
			break
		}
		end += size
	}
	return end - pos
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// scanBlockComment consumes block-comment text from pos through the closer.
// Without a closer the rest of src is consumed and closed is false.
func scanBlockComment(src string, pos int) (end int, closed bool) {
	idx := strings.Index(src[pos:], blockClose)
	if idx < 0 {
		return len(src), false
	}
	return pos + idx + len(blockClose), true
}

// WordAt returns the run of word characters starting at pos, or the single
// rune there when it is not a word character. Recovery code uses it to size
// the region it skips after a LexicalError.
func WordAt(src string, pos int) string {
	if pos >= len(src) {
		return ""
	}
	r, size := utf8.DecodeRuneInString(src[pos:])
	if !isWordChar(r) {
		return src[pos : pos+size]
	}
	end := pos + size
	for end < len(src) {
		r, size = utf8.DecodeRuneInString(src[end:])
		if !isWordChar(r) {
			break
		}
		end += size
	}
	return src[pos:end]
}
