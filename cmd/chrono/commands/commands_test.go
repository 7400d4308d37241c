package commands

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/tmln/vocab"
)

func TestLexSource_Strict(t *testing.T) {
	lexRecover = false

	out, err := lexSource("event e1 {}")
	require.Error(t, err)
	require.NotNil(t, out.Error)
	assert.Equal(t, 6, out.Error.Offset)
	assert.Equal(t, 1, out.Error.Line)
	assert.Equal(t, 7, out.Error.Column)
	// spans before the error are kept
	assert.Len(t, out.Spans, 2)

	out, err = lexSource("event {\n  title = \"Moon\"\n}")
	require.NoError(t, err)
	assert.Nil(t, out.Error)
	assert.Equal(t, vocab.Keyword, out.Spans[0].Category)
}

func TestLexSource_Recover(t *testing.T) {
	lexRecover = true
	defer func() { lexRecover = false }()

	out, err := lexSource("event e1 { } @")
	require.NoError(t, err)
	assert.Len(t, out.Diagnostics, 1)
	assert.Equal(t, `unexpected "@"`, out.Diagnostics[0].Message)
}

func TestCompleteCmd_JSON(t *testing.T) {
	var buf bytes.Buffer
	CompleteCmd.SetOut(&buf)
	CompleteCmd.SetArgs([]string{"--line", "  importance = ", "--format", "json"})
	require.NoError(t, CompleteCmd.Execute())

	var out struct {
		Context    string `json:"context"`
		Candidates []struct {
			Label string `json:"label"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "importance-value", out.Context)
	require.Len(t, out.Candidates, 3)
	assert.Equal(t, "high", out.Candidates[0].Label)
}

func TestWriteComponents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	png := []byte{0x89, 'P', 'N', 'G'}

	err := writeComponents(dir, []evaluator.Component{
		{ID: "t1", Type: "timeline", JSON: `{"id":"t1"}`, Image: base64.StdEncoding.EncodeToString(png)},
		{ID: "../e1", Type: "event", JSON: `{"id":"e1"}`},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "t1.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"t1"}`, string(data))

	// ids cannot escape the output directory
	_, err = os.Stat(filepath.Join(dir, "e1.json"))
	assert.NoError(t, err)

	img, err := os.ReadFile(filepath.Join(dir, "timeline.png"))
	require.NoError(t, err)
	assert.Equal(t, png, img)
}

func TestReadSource_Missing(t *testing.T) {
	_, err := readSource(filepath.Join(t.TempDir(), "missing.tmln"))
	assert.Error(t, err)
}
