package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/tmln/lsp"
	"github.com/teranos/chrono/tmln/vocab"
)

// LexCmd classifies a program into spans
var LexCmd = &cobra.Command{
	Use:   "lex <file>",
	Short: "Classify a program into highlighted spans",
	Long: `Tokenize a timeline program and print its spans.

Strict mode stops at the first character no rule matches and reports its
line and column. --recover skips unclassifiable words instead and reports
them as diagnostics.

Use "-" to read the program from stdin.

Examples:
  chrono lex moon.tmln                  # Span table
  chrono lex moon.tmln --color          # Source with syntax colours
  chrono lex moon.tmln --format yaml    # Spans as YAML`,
	Args: cobra.ExactArgs(1),
	RunE: runLex,
}

var (
	lexColor   bool
	lexRecover bool
	lexAll     bool
)

func init() {
	LexCmd.Flags().String("format", "text", "Output format: text, json, yaml")
	LexCmd.Flags().BoolVar(&lexColor, "color", false, "Print the source with syntax colours instead of a span table")
	LexCmd.Flags().BoolVar(&lexRecover, "recover", false, "Skip unclassifiable text instead of stopping")
	LexCmd.Flags().BoolVar(&lexAll, "whitespace", false, "Include whitespace spans in the table")
}

// lexOutput is the structured form of a lex run
type lexOutput struct {
	Spans       []lexer.Span     `json:"spans" yaml:"spans"`
	Diagnostics []lsp.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Error       *lexErrorOutput  `json:"error,omitempty" yaml:"error,omitempty"`
}

type lexErrorOutput struct {
	Message string `json:"message" yaml:"message"`
	Offset  int    `json:"offset" yaml:"offset"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
}

func runLex(cmd *cobra.Command, args []string) error {
	format, err := display.FormatFromCommand(cmd)
	if err != nil {
		return err
	}
	text, err := readSource(args[0])
	if err != nil {
		return err
	}

	out, lexErr := lexSource(text)
	log := logger.Logger.Named("lex")
	log.Debugw("Tokenized", logger.FieldFile, args[0], logger.FieldCount, len(out.Spans))

	w := cmd.OutOrStdout()
	switch {
	case format != display.FormatText:
		if err := display.Encode(w, out, format); err != nil {
			return err
		}
	case lexColor:
		fmt.Fprintln(w, display.DefaultTheme.RenderSpans(out.Spans))
	default:
		printSpanTable(w, out.Spans)
		for _, d := range out.Diagnostics {
			pterm.Warning.Printfln("%d:%d %s", d.Range.Start.Line, d.Range.Start.Character+1, d.Message)
		}
	}

	if lexErr != nil {
		return errors.WithHint(
			errors.Newf("%s:%d:%d: %s", args[0], out.Error.Line, out.Error.Column, lexErr.Error()),
			"run with --recover to continue past unclassifiable text")
	}
	return nil
}

// lexSource tokenizes strictly, or with recovery when --recover is set.
// A strict failure keeps the spans before the error.
func lexSource(text string) (*lexOutput, error) {
	if lexRecover {
		a := lsp.NewService(logger.Logger).Analyze(text)
		return &lexOutput{Spans: a.Spans, Diagnostics: a.Diagnostics}, nil
	}

	spans, err := lexer.Tokenize(text)
	out := &lexOutput{Spans: spans}
	if out.Spans == nil {
		out.Spans = []lexer.Span{}
	}
	if lexErr, ok := lexer.AsLexicalError(err); ok {
		pt := lexer.NewPositionTracker(text)
		pt.AdvanceTo(lexErr.Offset)
		pos := pt.Mark()
		out.Error = &lexErrorOutput{
			Message: lexErr.Error(),
			Offset:  lexErr.Offset,
			Line:    pos.Line,
			Column:  pos.Character + 1,
		}
		return out, lexErr
	}
	return out, err
}

func printSpanTable(w io.Writer, spans []lexer.Span) {
	data := pterm.TableData{{"START", "END", "CATEGORY", "TEXT"}}
	for _, s := range spans {
		if s.Category == vocab.Whitespace && !lexAll {
			continue
		}
		data = append(data, []string{
			strconv.Itoa(s.Start),
			strconv.Itoa(s.End),
			string(s.Category),
			strconv.Quote(s.Text),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, table)
}
