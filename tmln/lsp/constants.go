package lsp

import "github.com/teranos/chrono/tmln/vocab"

// LSP semantic token type indices.
// Must match the order of TokenTypes.
const (
	TokenTypeKeyword    uint32 = 0
	TokenTypeProperty   uint32 = 1
	TokenTypeEnumMember uint32 = 2 // constants
	TokenTypeString     uint32 = 3
	TokenTypeNumber     uint32 = 4
	TokenTypeComment    uint32 = 5
	TokenTypeOperator   uint32 = 6
	TokenTypeVariable   uint32 = 7 // identifiers the lexer does not classify
)

// TokenTypes is the semantic token legend advertised to clients
var TokenTypes = []string{
	"keyword",
	"property",
	"enumMember",
	"string",
	"number",
	"comment",
	"operator",
	"variable",
}

// Unclassified marks source the recovering tokenizer skipped. It is not
// one of the lexer's categories and never leaves this package's results
// without the recovery path having been asked for.
const Unclassified vocab.Category = "unclassified"

// tokenType maps a category to its legend index
func tokenType(cat vocab.Category) (uint32, bool) {
	switch cat {
	case vocab.Keyword:
		return TokenTypeKeyword, true
	case vocab.Property:
		return TokenTypeProperty, true
	case vocab.Constant:
		return TokenTypeEnumMember, true
	case vocab.String:
		return TokenTypeString, true
	case vocab.Number:
		return TokenTypeNumber, true
	case vocab.Comment:
		return TokenTypeComment, true
	case vocab.Operator:
		return TokenTypeOperator, true
	case Unclassified:
		return TokenTypeVariable, true
	default:
		return 0, false
	}
}
