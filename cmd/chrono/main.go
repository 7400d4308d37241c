package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/chrono/cmd/chrono/commands"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/logger"
)

var rootCmd = &cobra.Command{
	Use:   "chrono",
	Short: "chrono - timeline language tooling and editor backend",
	Long: `chrono - language tooling for the timeline language and the backend of
the timeline editor.

Available commands:
  server    - Start the editor backend (HTTP API + LSP over WebSocket)
  lex       - Classify a program into highlighted spans
  complete  - Show completion candidates for a caret position
  highlight - Highlight a JSON result document
  eval      - Evaluate a program with the remote evaluator
  watch     - Re-lex a program whenever it changes
  history   - Browse recorded evaluations
  am        - Manage chrono configuration ("I am")

Examples:
  chrono server                       # Start the editor backend
  chrono lex moon.tmln --color        # Print a program with syntax colours
  chrono complete --line 'importance = ' --column 13
  chrono eval moon.tmln --out ./out   # Evaluate and save components`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit JSON output and JSON logs")

	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.LexCmd)
	rootCmd.AddCommand(commands.CompleteCmd)
	rootCmd.AddCommand(commands.HighlightCmd)
	rootCmd.AddCommand(commands.EvalCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
