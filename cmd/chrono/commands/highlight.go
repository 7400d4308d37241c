package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/chrono/display"
)

// HighlightCmd highlights a JSON result document
var HighlightCmd = &cobra.Command{
	Use:   "highlight <file>",
	Short: "Highlight a JSON result document",
	Long: `Indent a JSON document and print it with terminal colours, or as the
HTML markup the editor shows with --html. Malformed JSON is highlighted
as far as it goes without indentation.

Use "-" to read the document from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

var (
	highlightHTML  bool
	highlightSpans bool
)

func init() {
	HighlightCmd.Flags().BoolVar(&highlightHTML, "html", false, "Print HTML markup")
	HighlightCmd.Flags().BoolVar(&highlightSpans, "spans", false, "Print the classified value spans as JSON")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	raw, err := readSource(args[0])
	if err != nil {
		return err
	}
	text := raw
	if indented, err := display.IndentJSON([]byte(raw)); err == nil {
		text = indented
	}

	w := cmd.OutOrStdout()
	switch {
	case highlightSpans:
		return display.Encode(w, display.TokenizeValue(text), display.FormatJSON)
	case highlightHTML:
		fmt.Fprintln(w, display.HighlightHTML(text))
	default:
		fmt.Fprintln(w, display.DefaultTheme.RenderValue(text))
	}
	return nil
}
