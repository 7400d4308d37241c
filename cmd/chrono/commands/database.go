package commands

import (
	"database/sql"
	"io"
	"os"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/db"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/history"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/tmln/lsp"
)

// openDatabase opens and migrates the history database. An empty dbPath
// uses database.path from config.
func openDatabase(cfg *am.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	conn, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return conn, nil
}

// openHistory opens the history store with the configured retention
func openHistory(cfg *am.Config, dbPath string) (*history.Store, *sql.DB, error) {
	conn, err := openDatabase(cfg, dbPath)
	if err != nil {
		return nil, nil, err
	}
	return history.NewStore(conn, cfg.Database.HistoryLimit, logger.Logger), conn, nil
}

// newEvaluatorClient builds the evaluator client from config. The
// language service performs the local export check.
func newEvaluatorClient(cfg *am.Config, evaluatorURL string) (*evaluator.Client, error) {
	ecfg := evaluator.ConfigFromAM(cfg)
	if evaluatorURL != "" {
		ecfg.URL = evaluatorURL
	}
	return evaluator.NewClient(ecfg, lsp.NewService(logger.Logger), logger.Logger)
}

// readSource reads a program from path, or from stdin when path is "-"
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return string(data), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
