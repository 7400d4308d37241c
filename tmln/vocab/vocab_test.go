package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesAreDisjoint(t *testing.T) {
	seen := map[string]Category{}
	for _, cat := range []Category{Keyword, Property, Constant} {
		for _, e := range Table(cat) {
			prev, dup := seen[e.Word]
			assert.False(t, dup, "%q appears in both %s and %s", e.Word, prev, cat)
			seen[e.Word] = cat
		}
	}
	assert.Len(t, seen, Size())
}

func TestConstantSubPartitions(t *testing.T) {
	assert.Equal(t, []string{"high", "medium", "low"}, words(ConstantsOf(SubImportance)))
	assert.Equal(t,
		[]string{"cause-effect", "contemporaneous", "precedes", "follows", "includes", "excludes"},
		words(ConstantsOf(SubRelationshipType)))
	assert.Equal(t, []string{"true", "false"}, words(ConstantsOf(SubBoolean)))
	assert.Equal(t, []string{"BCE", "CE"}, words(ConstantsOf(SubEra)))

	total := 0
	for _, sub := range []SubCategory{SubImportance, SubRelationshipType, SubBoolean, SubEra} {
		total += len(ConstantsOf(sub))
	}
	assert.Equal(t, len(Constants), total, "every constant belongs to exactly one sub-category")
}

func TestFind(t *testing.T) {
	tests := []struct {
		word string
		cat  Category
		pos  int
		ok   bool
	}{
		{"event", Keyword, 0, true},
		{"modify", Keyword, 10, true},
		{"importance", Property, 4, true},
		{"cause-effect", Constant, 3, true},
		{"CE", Constant, 12, true},
		{"ce", "", 0, false},
		{"typeface", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			l, ok := Find(tt.word)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.cat, l.Category)
				assert.Equal(t, tt.pos, l.Position)
				assert.NotEmpty(t, l.Doc)
			}
		})
	}
}

func TestTable_NoTableCategories(t *testing.T) {
	assert.Nil(t, Table(Comment))
	assert.Nil(t, Table(Whitespace))
}

func words(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Word
	}
	return out
}
