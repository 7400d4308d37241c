package server

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/history"
	"github.com/teranos/chrono/logger"
)

// HandleVisualize evaluates a program, records the outcome and returns the
// rendered components or the evaluator's failure
func (s *ChronoServer) HandleVisualize(w http.ResponseWriter, r *http.Request) {
	var req VisualizeRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	ctx := r.Context()
	res, err := s.evaluator.Evaluate(ctx, req.Code)
	evalErr, failed := evaluator.AsEvaluationError(err)
	if err != nil && !failed {
		s.writeServiceError(w, r, err)
		return
	}

	record := history.NewEvaluation(req.Code, res, evalErr)
	ctx = logger.WithEvaluationID(ctx, record.ID)
	log := logger.LoggerFromContext(ctx, s.logger)

	saved := false
	if s.history != nil {
		if err := s.history.Save(ctx, record); err != nil {
			// The result is still useful without its history entry
			log.Warnw("Failed to record evaluation", logger.FieldError, err)
		} else {
			saved = true
		}
	}
	evaluationID := ""
	if saved {
		evaluationID = record.ID
	}

	if failed {
		log.Infow("Evaluation failed", logger.FieldErrorType, evalErr.Category)
		status := http.StatusOK
		if evalErr.Category == evaluator.CategoryExportMissing {
			status = http.StatusBadRequest
		}
		_ = writeJSON(w, status, FailureResponse{
			Success:         false,
			EvaluationID:    evaluationID,
			EvaluationError: evalErr,
		})
		return
	}

	views := make([]ComponentView, len(res.Components))
	for i, c := range res.Components {
		views[i] = s.componentView(evaluationID, c)
	}
	log.Infow("Evaluation rendered",
		"evaluation", shortID(record.ID),
		logger.FieldCount, len(views),
		logger.FieldDurationMS, res.Duration.Milliseconds())

	_ = writeJSON(w, http.StatusOK, VisualizeResponse{
		Success:      true,
		EvaluationID: evaluationID,
		DurationMS:   res.Duration.Milliseconds(),
		Components:   views,
	})
}

// componentView highlights a component's document and attaches download
// URLs when the evaluation was recorded
func (s *ChronoServer) componentView(evaluationID string, c evaluator.Component) ComponentView {
	text := c.JSON
	if indented, err := display.IndentJSON([]byte(c.JSON)); err == nil {
		text = indented
	}
	v := ComponentView{Component: c, Highlighted: display.HighlightHTML(text)}
	if evaluationID != "" {
		base := "/api/evaluations/" + url.PathEscape(evaluationID) + "/components/" + url.PathEscape(c.ID)
		v.JSONURL = base + ".json"
		if c.HasImage() {
			v.ImageURL = base + ".png"
		}
	}
	return v
}

// HandleListEvaluations lists recorded evaluations, newest first.
// ?limit=N bounds the result (default 50, 0 for all).
func (s *ChronoServer) HandleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "History is disabled")
		return
	}
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit %q", raw))
			return
		}
		limit = n
	}

	summaries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{"evaluations": summaries})
}

// HandleGetEvaluation returns one recorded evaluation with its components
func (s *ChronoServer) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "History is disabled")
		return
	}
	e, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	views := make([]ComponentView, len(e.Components))
	for i, c := range e.Components {
		views[i] = s.componentView(e.ID, c)
	}
	_ = writeJSON(w, http.StatusOK, struct {
		*history.Evaluation
		Components []ComponentView `json:"components"`
	}{e, views})
}

// HandleComponentDownload serves a component's document as <id>.json or
// its rendered image as timeline.png
func (s *ChronoServer) HandleComponentDownload(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "History is disabled")
		return
	}
	file := r.PathValue("file")
	ext := path.Ext(file)
	componentID := strings.TrimSuffix(file, ext)
	if componentID == "" || (ext != ".json" && ext != ".png") {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown download %q", file))
		return
	}

	c, err := s.history.Component(r.Context(), r.PathValue("id"), componentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	switch ext {
	case ".json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.ID+".json"))
		_, _ = w.Write([]byte(c.JSON))
	case ".png":
		img, err := c.ImageBytes()
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="timeline.png"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(img)))
		_, _ = w.Write(img)
	}
}
