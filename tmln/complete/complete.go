package complete

import (
	"sort"

	"github.com/teranos/chrono/tmln/vocab"
)

// Candidate categories reported to clients
const (
	CategoryKeyword          = "keyword"
	CategoryProperty         = "property"
	CategoryConstant         = "constant"
	CategoryImportance       = "importance"
	CategoryRelationshipType = "relationship-type"
)

// Scores; higher sorts first
const (
	ScoreContextual = 1000
	ScoreKeyword    = 1000
	ScoreProperty   = 900
	ScoreConstant   = 800
)

// Candidate is one ranked completion suggestion
type Candidate struct {
	Label      string `json:"label"`
	InsertText string `json:"insertText"`
	Category   string `json:"category"`
	Score      int    `json:"score"`
	Doc        string `json:"doc,omitempty"`
}

// Complete returns the ranked candidates for ctx. It never returns an
// empty list and does no prefix filtering; narrowing by the word under
// the cursor is left to the client.
func Complete(ctx Context) []Candidate {
	var out []Candidate

	switch ctx {
	case ImportanceValue:
		out = appendEntries(out, vocab.ConstantsOf(vocab.SubImportance), CategoryImportance, ScoreContextual, "")
	case RelationshipTypeValue:
		out = appendEntries(out, vocab.ConstantsOf(vocab.SubRelationshipType), CategoryRelationshipType, ScoreContextual, "")
	case AfterBlockOpen:
		out = appendEntries(out, vocab.Properties, CategoryProperty, ScoreContextual, "= ")
	default:
		out = appendEntries(out, vocab.Keywords, CategoryKeyword, ScoreKeyword, "")
		out = appendEntries(out, vocab.Properties, CategoryProperty, ScoreProperty, "")
		out = appendEntries(out, vocab.Constants, CategoryConstant, ScoreConstant, "")
	}

	// Stable: equal scores keep vocabulary order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// CompleteAt classifies the cursor and completes for it
func CompleteAt(line string, column int) []Candidate {
	return Complete(ClassifyContext(line, column))
}

func appendEntries(out []Candidate, entries []vocab.Entry, category string, score int, suffix string) []Candidate {
	for _, e := range entries {
		out = append(out, Candidate{
			Label:      e.Word,
			InsertText: e.Word + suffix,
			Category:   category,
			Score:      score,
			Doc:        e.Doc,
		})
	}
	return out
}
