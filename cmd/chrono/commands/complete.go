package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/tmln/complete"
)

// CompleteCmd shows the completion candidates for a caret position
var CompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Show completion candidates for a caret position",
	Long: `Classify the text before the caret and list ranked candidates.

--column counts characters from the start of the line and defaults to the
end of the line.

Examples:
  chrono complete --line '  importance = '
  chrono complete --line 'event e1 {' --format json`,
	Args: cobra.NoArgs,
	RunE: runComplete,
}

var (
	completeLine   string
	completeColumn int
)

func init() {
	CompleteCmd.Flags().StringVar(&completeLine, "line", "", "Line text")
	CompleteCmd.Flags().IntVar(&completeColumn, "column", -1, "Caret column in characters (default: end of line)")
	CompleteCmd.Flags().String("format", "text", "Output format: text, json, yaml")
}

type completeOutput struct {
	Context    complete.Context     `json:"context" yaml:"context"`
	Candidates []complete.Candidate `json:"candidates" yaml:"candidates"`
}

func runComplete(cmd *cobra.Command, args []string) error {
	format, err := display.FormatFromCommand(cmd)
	if err != nil {
		return err
	}

	column := completeColumn
	if column < 0 {
		if cmd.Flags().Changed("column") {
			return errors.NewInvalidRequestError("--column must not be negative")
		}
		column = len([]rune(completeLine))
	}

	out := completeOutput{
		Context:    complete.ClassifyContext(completeLine, column),
		Candidates: complete.CompleteAt(completeLine, column),
	}
	if format != display.FormatText {
		return display.Encode(cmd.OutOrStdout(), out, format)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "context: %s\n", out.Context)
	data := pterm.TableData{{"LABEL", "CATEGORY", "SCORE", "INSERT"}}
	for _, c := range out.Candidates {
		data = append(data, []string{c.Label, c.Category, strconv.Itoa(c.Score), strconv.Quote(c.InsertText)})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}
