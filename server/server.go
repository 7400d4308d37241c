// Package server serves the timeline editor backend: evaluation through
// the remote evaluator, evaluation history and downloads, the language
// endpoints (tokenize, complete, highlight) and an LSP endpoint over
// WebSocket.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/history"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/tmln/lsp"
)

// Evaluator runs programs remotely. *evaluator.Client implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, code string) (*evaluator.Result, error)
	Health(ctx context.Context) (*evaluator.Health, error)
	URL() string
}

// History records evaluations. *history.Store implements it.
type History interface {
	Save(ctx context.Context, e *history.Evaluation) error
	Get(ctx context.Context, id string) (*history.Evaluation, error)
	List(ctx context.Context, limit int) ([]history.Summary, error)
	Component(ctx context.Context, evaluationID, componentID string) (evaluator.Component, error)
}

var (
	_ Evaluator = (*evaluator.Client)(nil)
	_ History   = (*history.Store)(nil)
)

// ChronoServer is the editor backend
type ChronoServer struct {
	evaluator   Evaluator
	history     History // nil disables persistence and downloads
	langService *lsp.Service
	logger      *zap.SugaredLogger

	allowedOrigins atomic.Pointer[[]string]
	maxDocuments   atomic.Int32
	configWatcher  *am.ConfigWatcher

	mux        *http.ServeMux
	httpServer *http.Server
	addr       string
	mu         sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // LSP sessions
	state  atomic.Int32
}

// NewChronoServer creates a server. hist may be nil to run without history.
func NewChronoServer(cfg *am.Config, eval Evaluator, hist History, log *zap.SugaredLogger) (*ChronoServer, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if eval == nil {
		return nil, errors.New("evaluator cannot be nil")
	}
	if log == nil {
		log = logger.Logger
	}
	log = log.Named("server")

	ctx, cancel := context.WithCancel(context.Background())
	s := &ChronoServer{
		evaluator:   eval,
		history:     hist,
		langService: lsp.NewService(log),
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.applyConfig(cfg)
	s.setupHTTPRoutes()
	return s, nil
}

// applyConfig installs the settings that may change while running
func (s *ChronoServer) applyConfig(cfg *am.Config) {
	origins := cfg.GetServerAllowedOrigins()
	s.allowedOrigins.Store(&origins)
	s.maxDocuments.Store(int32(cfg.GetMaxDocuments()))
}

// WatchConfig reloads allowed origins and the document limit whenever the
// config file at path changes
func (s *ChronoServer) WatchConfig(path string) error {
	w, err := am.NewConfigWatcher(path)
	if err != nil {
		return err
	}
	w.OnReload(func(cfg *am.Config) error {
		s.applyConfig(cfg)
		s.logger.Infow("Config reloaded",
			logger.FieldFile, path,
			"allowed_origins", cfg.GetServerAllowedOrigins())
		return nil
	})
	w.Start()
	am.SetGlobalWatcher(w)
	s.configWatcher = w
	return nil
}

// Handler returns the root HTTP handler
func (s *ChronoServer) Handler() http.Handler {
	return s.mux
}

// LanguageService exposes the service backing the language endpoints
func (s *ChronoServer) LanguageService() *lsp.Service {
	return s.langService
}
