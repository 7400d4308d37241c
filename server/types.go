package server

import (
	"time"

	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/tmln/complete"
	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/tmln/lsp"
)

const (
	// MaxRequestBodyBytes bounds JSON request bodies (programs and documents)
	MaxRequestBodyBytes = 4 << 20
	// ShutdownTimeout is how long Stop waits for in-flight requests and LSP sessions
	ShutdownTimeout = 15 * time.Second
	// DefaultListLimit is the page size of GET /api/evaluations
	DefaultListLimit = 50
)

// ServerState is the lifecycle state of a ChronoServer
type ServerState int32

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

func (s ServerState) String() string {
	switch s {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VisualizeRequest is the body of POST /api/visualize
type VisualizeRequest struct {
	Code string `json:"code"`
}

// ComponentView is a component as sent to the browser: the raw document,
// its highlighted rendering and where to download it
type ComponentView struct {
	evaluator.Component
	Highlighted string `json:"highlighted"`
	JSONURL     string `json:"json_url"`
	ImageURL    string `json:"image_url,omitempty"`
}

// VisualizeResponse is the success payload of POST /api/visualize
type VisualizeResponse struct {
	Success      bool            `json:"success"`
	EvaluationID string          `json:"evaluation_id,omitempty"`
	DurationMS   int64           `json:"duration_ms"`
	Components   []ComponentView `json:"components"`
}

// FailureResponse carries an evaluation failure unchanged
type FailureResponse struct {
	Success      bool   `json:"success"`
	EvaluationID string `json:"evaluation_id,omitempty"`
	*evaluator.EvaluationError
}

// TokenizeRequest is the body of POST /api/tokenize
type TokenizeRequest struct {
	Text    string `json:"text"`
	Recover bool   `json:"recover"`
}

// TokenizeResponse lists the spans of a tokenized text
type TokenizeResponse struct {
	Spans       []lexer.Span     `json:"spans"`
	Diagnostics []lsp.Diagnostic `json:"diagnostics,omitempty"`
}

// LexicalErrorResponse reports where strict tokenization stopped
type LexicalErrorResponse struct {
	Error  string       `json:"error"`
	Offset int          `json:"offset"`
	Line   int          `json:"line"`
	Column int          `json:"column"`
	Spans  []lexer.Span `json:"spans"`
}

// CompleteRequest is the body of POST /api/complete
type CompleteRequest struct {
	Line   string `json:"line"`
	Column int    `json:"column"`
}

// CompleteResponse is the context and ranked candidates at a caret
type CompleteResponse struct {
	Context    complete.Context     `json:"context"`
	Candidates []complete.Candidate `json:"candidates"`
}

// HighlightRequest is the body of POST /api/highlight
type HighlightRequest struct {
	JSON   string `json:"json"`
	Indent bool   `json:"indent"`
}

// HighlightResponse carries HTML markup and the value spans it was built from
type HighlightResponse struct {
	HTML  string              `json:"html"`
	Spans []display.ValueSpan `json:"spans"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Commit    string           `json:"commit"`
	State     string           `json:"state"`
	Evaluator *EvaluatorHealth `json:"evaluator"`
	History   bool             `json:"history"`
}

// EvaluatorHealth reports reachability of the evaluation service
type EvaluatorHealth struct {
	URL        string `json:"url"`
	Reachable  bool   `json:"reachable"`
	Version    string `json:"version,omitempty"`
	Compatible bool   `json:"compatible"`
	Error      string `json:"error,omitempty"`
}
