package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/server"
)

// ServerCmd starts the editor backend
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the timeline editor backend",
	Long: `Launch the editor backend: program evaluation through the remote
evaluator, evaluation history with downloads, tokenize/complete/highlight
endpoints and a language server at /lsp (LSP over WebSocket).

The allowed origins and LSP document limit are reloaded when am.toml changes.`,
	RunE: runServer,
}

var (
	serverPort         int
	serverDBPath       string
	serverNoHistory    bool
	serverEvaluatorURL string
)

func init() {
	ServerCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Port to listen on (overrides server.port)")
	ServerCmd.Flags().StringVar(&serverDBPath, "db-path", "", "History database path (overrides database.path)")
	ServerCmd.Flags().BoolVar(&serverNoHistory, "no-history", false, "Do not record evaluations")
	ServerCmd.Flags().StringVar(&serverEvaluatorURL, "evaluator", "", "Evaluator URL (overrides evaluator.url)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Default to Info for the server
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity == 0 {
		verbosity = 1
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	port := cfg.GetServerPort()
	if serverPort != 0 {
		port = serverPort
	}

	client, err := newEvaluatorClient(cfg, serverEvaluatorURL)
	if err != nil {
		return err
	}

	var hist server.History
	dbPath := ""
	if !serverNoHistory {
		store, conn, err := openHistory(cfg, serverDBPath)
		if err != nil {
			return err
		}
		defer conn.Close()
		hist = store
		dbPath = cfg.GetDatabasePath()
		if serverDBPath != "" {
			dbPath = serverDBPath
		}
	}

	printStartupBanner(verbosity, cfg, dbPath)

	srv, err := server.NewChronoServer(cfg, client, hist, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}
	if err := srv.WatchConfig(am.ProjectConfigPath()); err != nil {
		// Reload is a convenience; the server runs with the loaded config
		logger.Warnw("Config hot reload disabled", logger.FieldError, err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}
