package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/evaluator"
	"github.com/teranos/chrono/history"
	chronotest "github.com/teranos/chrono/internal/testing"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// fakeEvaluator answers Evaluate with a fixed result or error
type fakeEvaluator struct {
	result *evaluator.Result
	err    error
	health *evaluator.Health
	hErr   error
	codes  []string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, code string) (*evaluator.Result, error) {
	f.codes = append(f.codes, code)
	return f.result, f.err
}

func (f *fakeEvaluator) Health(ctx context.Context) (*evaluator.Health, error) {
	return f.health, f.hErr
}

func (f *fakeEvaluator) URL() string { return "http://evaluator.test" }

func timelineResult() *evaluator.Result {
	return &evaluator.Result{
		Components: []evaluator.Component{
			{ID: "t1", Type: "timeline", Title: "Moon", JSON: `{"id":"t1","count":2}`, Image: base64.StdEncoding.EncodeToString(pngBytes)},
			{ID: "e1", Type: "event", JSON: `{"id":"e1","done":true}`},
		},
		Duration: 120 * time.Millisecond,
	}
}

func testConfig() *am.Config {
	return &am.Config{Server: am.ServerConfig{
		AllowedOrigins: []string{"http://localhost", "https://editor.example.com:8443"},
		MaxDocuments:   2,
	}}
}

func setupServer(t *testing.T, eval *fakeEvaluator, withHistory bool) (*ChronoServer, History) {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	var hist History
	if withHistory {
		hist = history.NewStore(chronotest.CreateTestDB(t), 0, log)
	}
	srv, err := NewChronoServer(testConfig(), eval, hist, log)
	require.NoError(t, err)
	return srv, hist
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewChronoServer_Validation(t *testing.T) {
	_, err := NewChronoServer(nil, &fakeEvaluator{}, nil, nil)
	assert.Error(t, err)
	_, err = NewChronoServer(testConfig(), nil, nil, nil)
	assert.Error(t, err)
}

func TestVisualize_Success(t *testing.T) {
	eval := &fakeEvaluator{result: timelineResult()}
	srv, _ := setupServer(t, eval, true)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main { export t1 }"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	resp := decode[VisualizeResponse](t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.EvaluationID)
	assert.EqualValues(t, 120, resp.DurationMS)
	require.Len(t, resp.Components, 2)

	tl := resp.Components[0]
	assert.Equal(t, "t1", tl.ID)
	assert.Contains(t, tl.Highlighted, `<span class="json-key">"id":</span>`)
	assert.Contains(t, tl.Highlighted, `<span class="json-number">2</span>`)
	assert.Equal(t, "/api/evaluations/"+resp.EvaluationID+"/components/t1.json", tl.JSONURL)
	assert.Equal(t, "/api/evaluations/"+resp.EvaluationID+"/components/t1.png", tl.ImageURL)
	assert.Empty(t, resp.Components[1].ImageURL)
	assert.Contains(t, resp.Components[1].Highlighted, `<span class="json-boolean">true</span>`)

	assert.Equal(t, []string{"main { export t1 }"}, eval.codes)
}

func TestVisualize_EvaluationFailure(t *testing.T) {
	line := 4
	eval := &fakeEvaluator{err: &evaluator.EvaluationError{
		Category: evaluator.CategoryParser,
		Message:  "Parse error",
		Errors:   []evaluator.ErrorDetail{{Message: "expected '}'", Line: &line}},
	}}
	srv, hist := setupServer(t, eval, true)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main {"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "parser_error", body["error_type"])
	assert.Equal(t, "Parse error", body["error"])
	require.Len(t, body["errors"], 1)

	// failures are recorded too
	e, err := hist.Get(context.Background(), body["evaluation_id"].(string))
	require.NoError(t, err)
	assert.False(t, e.Success)
	assert.Equal(t, evaluator.CategoryParser, e.ErrorType)
}

func TestVisualize_ExportMissing(t *testing.T) {
	eval := &fakeEvaluator{err: &evaluator.EvaluationError{
		Category: evaluator.CategoryExportMissing,
		Message:  evaluator.ExportMissingMessage,
	}}
	srv, _ := setupServer(t, eval, false)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main { }"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "export_missing")
	assert.NotContains(t, rec.Body.String(), "evaluation_id")
}

func TestVisualize_TransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unavailable", errors.WithHint(errors.WrapUnavailable(errors.New("connection refused"), "evaluator unreachable"), "start the evaluator"), http.StatusServiceUnavailable},
		{"timeout", errors.Wrap(errors.ErrTimeout, "slow"), http.StatusGatewayTimeout},
		{"rate limited", errors.Wrap(errors.ErrRateLimited, "budget"), http.StatusTooManyRequests},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := setupServer(t, &fakeEvaluator{err: tt.err}, false)
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main { export t }"})
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	srv, _ := setupServer(t, &fakeEvaluator{err: tests[0].err}, false)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main { export t }"})
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "start the evaluator", body["hint"])
}

func TestVisualize_BadRequests(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{result: timelineResult()}, false)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/visualize", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/visualize", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEvaluationsAndDownloads(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{result: timelineResult()}, true)
	h := srv.Handler()

	resp := decode[VisualizeResponse](t, doJSON(t, h, http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main { export t1 }"}))
	id := resp.EvaluationID

	list := decode[struct {
		Evaluations []history.Summary `json:"evaluations"`
	}](t, doJSON(t, h, http.MethodGet, "/api/evaluations?limit=10", nil))
	require.Len(t, list.Evaluations, 1)
	assert.Equal(t, id, list.Evaluations[0].ID)
	assert.Equal(t, 2, list.Evaluations[0].ComponentCount)

	rec := doJSON(t, h, http.MethodGet, "/api/evaluations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		ID         string          `json:"id"`
		Code       string          `json:"code"`
		Components []ComponentView `json:"components"`
	}](t, rec)
	assert.Equal(t, "main { export t1 }", got.Code)
	require.Len(t, got.Components, 2)
	assert.NotEmpty(t, got.Components[0].Highlighted)

	rec = doJSON(t, h, http.MethodGet, "/api/evaluations/"+id+"/components/t1.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"id":"t1","count":2}`, rec.Body.String())
	assert.Equal(t, `attachment; filename="t1.json"`, rec.Header().Get("Content-Disposition"))

	rec = doJSON(t, h, http.MethodGet, "/api/evaluations/"+id+"/components/t1.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timeline.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	// e1 has no image
	rec = doJSON(t, h, http.MethodGet, "/api/evaluations/"+id+"/components/e1.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/evaluations/"+id+"/components/t1.svg", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/evaluations/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/evaluations?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{result: timelineResult()}, false)

	resp := decode[VisualizeResponse](t, doJSON(t, srv.Handler(), http.MethodPost, "/api/visualize", VisualizeRequest{Code: "main { export t1 }"}))
	assert.Empty(t, resp.EvaluationID)
	assert.Empty(t, resp.Components[0].JSONURL)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/evaluations", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenize(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{}, false)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/tokenize", TokenizeRequest{Text: "event {}"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[TokenizeResponse](t, rec).Spans, 4)

	rec = doJSON(t, h, http.MethodPost, "/api/tokenize", TokenizeRequest{Text: "event {\n  x }"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	lexErr := decode[LexicalErrorResponse](t, rec)
	assert.Equal(t, 10, lexErr.Offset)
	assert.Equal(t, 2, lexErr.Line)
	assert.Equal(t, 2, lexErr.Column)
	assert.NotEmpty(t, lexErr.Spans)

	rec = doJSON(t, h, http.MethodPost, "/api/tokenize", TokenizeRequest{Text: "event e1 { } @", Recover: true})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[TokenizeResponse](t, rec)
	assert.Len(t, resp.Diagnostics, 1)
}

func TestComplete(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{}, false)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/complete", CompleteRequest{Line: "  importance = ", Column: 15})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Context    string `json:"context"`
		Candidates []struct {
			Label string `json:"label"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "importance-value", body.Context)
	assert.Len(t, body.Candidates, 3)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/complete", CompleteRequest{Line: "x", Column: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHighlight(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{}, false)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/highlight", HighlightRequest{JSON: `{"a":null}`, Indent: true})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HighlightResponse](t, rec)
	assert.Equal(t, `{<br>&nbsp;&nbsp;<span class="json-key">"a":</span> <span class="json-null">null</span><br>}`, resp.HTML)
	assert.NotEmpty(t, resp.Spans)
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{health: &evaluator.Health{Version: "1.2.0", Compatible: true}}, true)
	resp := decode[HealthResponse](t, doJSON(t, srv.Handler(), http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Evaluator.Reachable)
	assert.Equal(t, "1.2.0", resp.Evaluator.Version)
	assert.True(t, resp.History)

	srv, _ = setupServer(t, &fakeEvaluator{hErr: errors.WrapUnavailable(errors.New("refused"), "down")}, false)
	resp = decode[HealthResponse](t, doJSON(t, srv.Handler(), http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.Evaluator.Reachable)
	assert.NotEmpty(t, resp.Evaluator.Error)
}

func TestCORS(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{}, false)
	h := srv.Handler()

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://editor.example.com:8443", true},
		{"https://editor.example.com", false},
		{"http://localhost.evil.com", false},
		{"https://localhost:5173", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/visualize", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			if tt.allowed && tt.origin != "" {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApplyConfig_ReloadsOrigins(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{}, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://new.example")
	assert.False(t, srv.checkOrigin(req))

	cfg := testConfig()
	cfg.Server.AllowedOrigins = []string{"https://new.example"}
	srv.applyConfig(cfg)
	assert.True(t, srv.checkOrigin(req))
}

func TestLifecycle(t *testing.T) {
	srv, _ := setupServer(t, &fakeEvaluator{health: &evaluator.Health{Version: "1.0.0", Compatible: true}}, false)

	ln, err := srv.Listen(0)
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())
	assert.NoError(t, <-served)
	assert.Equal(t, ServerStateStopped, srv.getState())

	// handlers refuse work once stopped
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerState_String(t *testing.T) {
	assert.Equal(t, "running", ServerStateRunning.String())
	assert.Equal(t, "draining", ServerStateDraining.String())
	assert.Equal(t, "stopped", ServerStateStopped.String())
	assert.Equal(t, "unknown", ServerState(9).String())
}
