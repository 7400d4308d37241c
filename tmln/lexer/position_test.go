package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	text := "event\n  title"
	spans, err := Tokenize(text)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	ranges := Locate(text, spans)
	assert.Equal(t, Range{
		Start: Position{Line: 1, Character: 0, Offset: 0},
		End:   Position{Line: 1, Character: 5, Offset: 5},
	}, ranges[0])
	assert.Equal(t, Range{
		Start: Position{Line: 1, Character: 5, Offset: 5},
		End:   Position{Line: 2, Character: 2, Offset: 8},
	}, ranges[1])
	assert.Equal(t, Range{
		Start: Position{Line: 2, Character: 2, Offset: 8},
		End:   Position{Line: 2, Character: 7, Offset: 13},
	}, ranges[2])
}

func TestLocate_CountsUTF16Units(t *testing.T) {
	text := "\"\U0001F600é\" title"
	spans, err := Tokenize(text)
	require.NoError(t, err)

	ranges := Locate(text, spans)
	// quote + surrogate pair + é + quote
	assert.Equal(t, 5, ranges[0].End.Character)
	assert.Equal(t, len("\"\U0001F600é\""), ranges[0].End.Offset)
	assert.Equal(t, 11, ranges[2].End.Character)
}

func TestOffsetAt(t *testing.T) {
	text := "event {\n  title = \"é\"\n}"

	tests := []struct {
		name      string
		line      int
		character int
		want      int
	}{
		{"origin", 0, 0, 0},
		{"first line", 0, 5, 5},
		{"past end of line clamps", 0, 99, 7},
		{"second line", 1, 2, 10},
		{"after multibyte rune", 1, 12, 21},
		{"past last line", 9, 0, len(text)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OffsetAt(text, tt.line, tt.character))
		})
	}
}
