package commands

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/version"
)

// printStartupBanner prints the user-facing startup summary
func printStartupBanner(verbosity int, cfg *am.Config, dbPath string) {
	if logger.JSONOutput {
		return
	}
	info := version.Get()

	history := dbPath
	if history == "" {
		history = "disabled"
	} else if cfg.Database.HistoryLimit > 0 {
		history = fmt.Sprintf("%s (keeps %d)", dbPath, cfg.Database.HistoryLimit)
	}

	body := fmt.Sprintf("%s %s\n\n%s %s\n%s %s\n%s %s",
		pterm.Bold.Sprint("chrono"), pterm.Gray(info.Short()),
		pterm.Cyan("evaluator "), cfg.Evaluator.URL,
		pterm.Cyan("history   "), history,
		pterm.Cyan("origins   "), fmt.Sprint(cfg.GetServerAllowedOrigins()),
	)
	pterm.DefaultBox.WithTitle("timeline editor backend").Println(body)

	if verbosity < 2 {
		pterm.Info.Println("Use -vv for request logs")
	}
}
