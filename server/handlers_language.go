package server

import (
	"context"
	"net/http"
	"time"

	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/tmln/complete"
	"github.com/teranos/chrono/tmln/lexer"
	"github.com/teranos/chrono/version"
)

// HandleTokenize classifies text. Strict mode answers 422 with the offset
// of the first lexical error; recover mode always succeeds and reports
// diagnostics instead.
func (s *ChronoServer) HandleTokenize(w http.ResponseWriter, r *http.Request) {
	var req TokenizeRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	if req.Recover {
		a := s.langService.Analyze(req.Text)
		_ = writeJSON(w, http.StatusOK, TokenizeResponse{Spans: a.Spans, Diagnostics: a.Diagnostics})
		return
	}

	spans, err := s.langService.Tokenize(req.Text)
	if lexErr, ok := lexer.AsLexicalError(err); ok {
		pt := lexer.NewPositionTracker(req.Text)
		pt.AdvanceTo(lexErr.Offset)
		pos := pt.Mark()
		if spans == nil {
			spans = []lexer.Span{}
		}
		_ = writeJSON(w, http.StatusUnprocessableEntity, LexicalErrorResponse{
			Error:  lexErr.Error(),
			Offset: lexErr.Offset,
			Line:   pos.Line,
			Column: pos.Character,
			Spans:  spans,
		})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, TokenizeResponse{Spans: spans})
}

// HandleComplete returns the completion context and ranked candidates for
// a caret column within one line
func (s *ChronoServer) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Column < 0 {
		writeError(w, http.StatusBadRequest, "column must not be negative")
		return
	}
	_ = writeJSON(w, http.StatusOK, CompleteResponse{
		Context:    complete.ClassifyContext(req.Line, req.Column),
		Candidates: s.langService.Complete(req.Line, req.Column),
	})
}

// HandleHighlight renders a JSON document as highlighted HTML. Malformed
// JSON is highlighted as far as it goes.
func (s *ChronoServer) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	text := req.JSON
	if req.Indent {
		if indented, err := display.IndentJSON([]byte(text)); err == nil {
			text = indented
		}
	}
	_ = writeJSON(w, http.StatusOK, HighlightResponse{
		HTML:  display.HighlightHTML(text),
		Spans: display.TokenizeValue(text),
	})
}

// HandleHealth reports server state and evaluator reachability
func (s *ChronoServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	info := version.Get()
	resp := HealthResponse{
		Status:    "ok",
		Version:   info.Version,
		Commit:    info.Short(),
		State:     s.getState().String(),
		Evaluator: &EvaluatorHealth{URL: s.evaluator.URL()},
		History:   s.history != nil,
	}

	h, err := s.evaluator.Health(ctx)
	if h != nil {
		resp.Evaluator.Reachable = true
		resp.Evaluator.Version = h.Version
		resp.Evaluator.Compatible = h.Compatible
	}
	if err != nil {
		resp.Status = "degraded"
		resp.Evaluator.Error = err.Error()
	}
	_ = writeJSON(w, http.StatusOK, resp)
}
