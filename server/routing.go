package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/chrono/logger"
)

// setupHTTPRoutes configures all HTTP handlers
func (s *ChronoServer) setupHTTPRoutes() {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.corsMiddleware(s.requestMiddleware(h)))
	}

	route("POST /api/visualize", s.HandleVisualize)
	route("GET /api/evaluations", s.HandleListEvaluations)
	route("GET /api/evaluations/{id}", s.HandleGetEvaluation)
	route("GET /api/evaluations/{id}/components/{file}", s.HandleComponentDownload) // {cid}.json or {cid}.png
	route("POST /api/tokenize", s.HandleTokenize)
	route("POST /api/complete", s.HandleComplete)
	route("POST /api/highlight", s.HandleHighlight)
	route("GET /health", s.HandleHealth)
	route("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {}) // preflight, answered by corsMiddleware

	// The LSP socket is long-lived and not wrapped in requestMiddleware
	mux.HandleFunc("GET /lsp", s.corsMiddleware(s.HandleGLSPWebSocket))

	s.mux = mux
}

// corsMiddleware adds CORS headers for origins allowed by server.allowed_origins
// and answers preflight requests
func (s *ChronoServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if origin != "" && !s.checkOrigin(r) {
			writeError(w, http.StatusForbidden, "Origin not allowed")
			return
		}
		next(w, r)
	}
}

// requestMiddleware tags each request with an id, rejects requests while
// draining and logs completion
func (s *ChronoServer) requestMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.getState() != ServerStateRunning {
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		logger.LoggerFromContext(r.Context(), s.logger).Debugw("Request handled",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			"status", rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		)
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rr *statusRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.status = code
		rr.wroteHeader = true
	}
	rr.ResponseWriter.WriteHeader(code)
}
