package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/errors"
)

// HistoryCmd browses recorded evaluations
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded evaluations",
	Long: `List, inspect and prune the evaluations recorded by the server
(and by "chrono eval --record").

Examples:
  chrono history ls                 # Most recent evaluations
  chrono history show <id>          # One evaluation with its components
  chrono history prune --keep 50    # Drop all but the newest 50`,
}

var historyLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List recorded evaluations, newest first",
	Args:    cobra.NoArgs,
	RunE:    runHistoryLs,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded evaluation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest evaluations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

var (
	historyLimit  int
	historyKeep   int
	historyDBPath string
)

func init() {
	HistoryCmd.PersistentFlags().StringVar(&historyDBPath, "db-path", "", "History database path (overrides database.path)")
	historyLsCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of evaluations to list (0 for all)")
	historyLsCmd.Flags().String("format", "text", "Output format: text, json, yaml")
	historyShowCmd.Flags().String("format", "yaml", "Output format: json, yaml")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", -1, "Number of evaluations to keep (default: database.history_limit)")

	HistoryCmd.AddCommand(historyLsCmd)
	HistoryCmd.AddCommand(historyShowCmd)
	HistoryCmd.AddCommand(historyPruneCmd)
}

func runHistoryLs(cmd *cobra.Command, args []string) error {
	format, err := display.FormatFromCommand(cmd)
	if err != nil {
		return err
	}
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	store, conn, err := openHistory(cfg, historyDBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	summaries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if format != display.FormatText {
		return display.Encode(cmd.OutOrStdout(), summaries, format)
	}
	if len(summaries) == 0 {
		pterm.Info.Println("No evaluations recorded")
		return nil
	}

	data := pterm.TableData{{"ID", "WHEN", "RESULT", "COMPONENTS", "PROGRAM"}}
	for _, s := range summaries {
		result := pterm.Green("ok")
		if !s.Success {
			result = pterm.Red(string(s.ErrorType))
		}
		data = append(data, []string{
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			result,
			strconv.Itoa(s.ComponentCount),
			s.Preview,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := display.FormatFromCommand(cmd)
	if err != nil {
		return err
	}
	if format == display.FormatText {
		format = display.FormatYAML
	}
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	store, conn, err := openHistory(cfg, historyDBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	e, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return errors.WithHint(err, "list recorded evaluations with: chrono history ls")
	}
	return display.Encode(cmd.OutOrStdout(), e, format)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	keep := historyKeep
	if keep < 0 {
		keep = cfg.Database.HistoryLimit
	}
	if keep <= 0 {
		pterm.Info.Println("History is unlimited; pass --keep N to prune")
		return nil
	}
	store, conn, err := openHistory(cfg, historyDBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	removed, err := store.Prune(cmd.Context(), keep)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Removed %d evaluation(s), kept the newest %d", removed, keep)
	return nil
}
