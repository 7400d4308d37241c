package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/history"
	"github.com/teranos/chrono/logger"
)

// EvalCmd evaluates a program with the remote evaluator
var EvalCmd = &cobra.Command{
	Use:   "eval <file>",
	Short: "Evaluate a program with the remote evaluator",
	Long: `Send a timeline program to the evaluator and print the resulting
components. With --out, each component is written as <id>.json and the
rendered image (if any) as timeline.png, the names the editor uses for
downloads.

Evaluation failures are printed with their category and source locations.

Examples:
  chrono eval moon.tmln
  chrono eval moon.tmln --out ./out --record`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

var (
	evalOutDir       string
	evalRecord       bool
	evalEvaluatorURL string
)

func init() {
	EvalCmd.Flags().StringVarP(&evalOutDir, "out", "o", "", "Directory to write component downloads to")
	EvalCmd.Flags().BoolVar(&evalRecord, "record", false, "Record the evaluation in the history database")
	EvalCmd.Flags().StringVar(&evalEvaluatorURL, "evaluator", "", "Evaluator URL (overrides evaluator.url)")
	EvalCmd.Flags().String("format", "text", "Output format: text, json, yaml")
}

func runEval(cmd *cobra.Command, args []string) error {
	format, err := display.FormatFromCommand(cmd)
	if err != nil {
		return err
	}
	code, err := readSource(args[0])
	if err != nil {
		return err
	}
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	client, err := newEvaluatorClient(cfg, evalEvaluatorURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetEvaluatorTimeout()+5*time.Second)
	defer cancel()

	res, err := client.Evaluate(ctx, code)
	evalErr, failed := evaluator.AsEvaluationError(err)
	if err != nil && !failed {
		return err
	}

	if evalRecord {
		if err := recordEvaluation(ctx, cfg, history.NewEvaluation(code, res, evalErr)); err != nil {
			logger.Warnw("Failed to record evaluation", logger.FieldError, err)
		}
	}

	if failed {
		if format != display.FormatText {
			if err := display.Encode(cmd.OutOrStdout(), evalErr, format); err != nil {
				return err
			}
		} else {
			printEvaluationError(args[0], evalErr)
		}
		return errors.Newf("evaluation failed (%s)", evalErr.Category)
	}

	if evalOutDir != "" {
		if err := writeComponents(evalOutDir, res.Components); err != nil {
			return err
		}
	}

	if format != display.FormatText {
		return display.Encode(cmd.OutOrStdout(), res, format)
	}
	for _, c := range res.Components {
		title := c.Title
		if title == "" {
			title = c.ID
		}
		pterm.DefaultSection.Printfln("%s (%s)", title, c.Type)
		text := c.JSON
		if indented, err := display.IndentJSON([]byte(c.JSON)); err == nil {
			text = indented
		}
		fmt.Fprintln(cmd.OutOrStdout(), display.DefaultTheme.RenderValue(text))
	}
	pterm.Success.Printfln("%d component(s) in %s", len(res.Components), res.Duration.Round(time.Millisecond))
	return nil
}

func printEvaluationError(file string, e *evaluator.EvaluationError) {
	pterm.Error.Printfln("%s: %s", e.Category, e.Message)
	for _, d := range e.Errors {
		pterm.Printfln("  %s: %s", file, d.String())
	}
}

// writeComponents writes <id>.json for every component and timeline.png
// for the first component that carries an image
func writeComponents(dir string, components []evaluator.Component) error {
	if err := os.MkdirAll(dir, am.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	wroteImage := false
	for _, c := range components {
		path := filepath.Join(dir, filepath.Base(c.ID)+".json")
		if err := os.WriteFile(path, []byte(c.JSON), am.DefaultFilePermissions); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		pterm.Info.Printfln("Wrote %s", path)

		if !c.HasImage() || wroteImage {
			continue
		}
		img, err := c.ImageBytes()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "timeline.png")
		if err := os.WriteFile(path, img, am.DefaultFilePermissions); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		pterm.Info.Printfln("Wrote %s", path)
		wroteImage = true
	}
	return nil
}

func recordEvaluation(ctx context.Context, cfg *am.Config, e *history.Evaluation) error {
	store, conn, err := openHistory(cfg, "")
	if err != nil {
		return err
	}
	defer conn.Close()
	return store.Save(ctx, e)
}
