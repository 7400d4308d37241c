// Package evaluator talks to the timeline evaluation service: the process
// that parses and runs a program and renders its exported timelines.
//
// chrono does not interpret evaluation failures. They come back as
// *EvaluationError carrying the evaluator's category and messages, and
// callers hand them to the user unchanged.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/errors"
	"github.com/teranos/chrono/internal/httpclient"
	"github.com/teranos/chrono/logger"
	"github.com/teranos/chrono/version"
)

// maxResponseBytes bounds a response body; rendered images dominate its size
const maxResponseBytes = 64 << 20

// KeywordChecker reports whether a program contains a keyword token.
// lsp.Service satisfies it.
type KeywordChecker interface {
	HasKeyword(text, word string) bool
}

// Config configures a Client
type Config struct {
	URL                  string
	Timeout              time.Duration
	MaxRequestsPerMinute int    // 0 = unlimited
	VersionConstraint    string // semver constraint on /health, empty = any
	BlockPrivateIPs      bool
}

// ConfigFromAM builds a client configuration from the evaluator section
func ConfigFromAM(cfg *am.Config) Config {
	return Config{
		URL:                  cfg.Evaluator.URL,
		Timeout:              cfg.GetEvaluatorTimeout(),
		MaxRequestsPerMinute: cfg.Evaluator.MaxRequestsPerMinute,
		VersionConstraint:    cfg.Evaluator.VersionConstraint,
		BlockPrivateIPs:      cfg.Evaluator.BlockPrivateIPs,
	}
}

// Client evaluates timeline programs remotely
type Client struct {
	baseURL    string
	http       *httpclient.SaferClient
	limiter    *rate.Limiter
	constraint *semver.Constraints
	keywords   KeywordChecker
	logger     *zap.SugaredLogger
}

// NewClient validates cfg and creates a client. keywords enables the local
// export pre-flight check; nil sends every program to the evaluator.
func NewClient(cfg Config, keywords KeywordChecker, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = logger.Logger
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Duration(am.DefaultEvaluatorTimeout) * time.Second
	}

	block := cfg.BlockPrivateIPs
	hc := httpclient.NewSaferClientWithOptions(cfg.Timeout, httpclient.Options{
		BlockPrivateIP: &block,
		UserAgent:      version.UserAgent(),
	})
	if _, err := hc.ValidateURL(cfg.URL); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "invalid evaluator URL %q", cfg.URL),
			"set evaluator.url in am.toml or CHRONO_EVALUATOR_URL")
	}

	c := &Client{
		baseURL:  cfg.URL,
		http:     hc,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		keywords: keywords,
		logger:   log.Named("evaluator"),
	}
	if n := cfg.MaxRequestsPerMinute; n > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60), n)
	}
	if cfg.VersionConstraint != "" {
		constraint, err := semver.NewConstraint(cfg.VersionConstraint)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid evaluator version constraint %q", cfg.VersionConstraint)
		}
		c.constraint = constraint
	}
	return c, nil
}

// URL returns the evaluator base URL
func (c *Client) URL() string {
	return c.baseURL
}

// Evaluate runs a program and returns its rendered components. Failures
// the evaluator reports about the program are returned as *EvaluationError;
// every other error means the evaluator could not be used.
func (c *Client) Evaluate(ctx context.Context, code string) (*Result, error) {
	log := logger.LoggerFromContext(ctx, c.logger)

	if c.keywords != nil && !c.keywords.HasKeyword(code, "export") {
		log.Debugw("program has no export, not sending")
		return nil, &EvaluationError{Category: CategoryExportMissing, Message: ExportMissingMessage}
	}
	if !c.limiter.Allow() {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrRateLimited, "evaluator request budget exhausted"),
			"wait a moment or raise evaluator.max_requests_per_minute")
	}

	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode evaluation request")
	}
	endpoint, err := url.JoinPath(c.baseURL, "visualize")
	if err != nil {
		return nil, errors.Wrapf(err, "invalid evaluator URL %q", c.baseURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create evaluation request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	payload, status, err := c.send(req)
	duration := time.Since(start)
	if err != nil {
		log.Warnw("evaluator request failed", logger.FieldURL, endpoint, logger.FieldError, err)
		return nil, err
	}

	components, err := decodeResponse(payload, status)
	if err != nil {
		if evalErr, ok := AsEvaluationError(err); ok {
			log.Infow("evaluation failed",
				logger.FieldErrorType, evalErr.Category,
				logger.FieldDurationMS, duration.Milliseconds())
			return nil, err
		}
		if status != http.StatusOK {
			return nil, errors.WrapUnavailable(errors.Newf("evaluator returned %d", status), "evaluation request failed")
		}
		return nil, err
	}

	log.Infow("evaluation succeeded",
		logger.FieldCount, len(components),
		logger.FieldDurationMS, duration.Milliseconds())
	return &Result{Components: components, Duration: duration}, nil
}

// Health queries the evaluator's version and checks it against the
// configured constraint. An incompatible evaluator returns the report
// together with an error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	endpoint, err := url.JoinPath(c.baseURL, "health")
	if err != nil {
		return nil, errors.Wrapf(err, "invalid evaluator URL %q", c.baseURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create health request")
	}

	payload, status, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.WrapUnavailable(errors.Newf("evaluator health returned %d", status), "evaluator unhealthy")
	}

	var h Health
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, errors.Wrap(errors.Mark(err, ErrInvalidResponse), "failed to decode health response")
	}
	h.Compatible = true
	if c.constraint == nil {
		return &h, nil
	}

	v, err := semver.NewVersion(h.Version)
	if err != nil {
		h.Compatible = false
		return &h, errors.WrapUnavailable(errors.Wrapf(err, "evaluator version %q", h.Version), "evaluator version unreadable")
	}
	if !c.constraint.Check(v) {
		h.Compatible = false
		return &h, errors.WithHintf(
			errors.WrapUnavailable(errors.Newf("evaluator version %s does not satisfy %s", v, c.constraint), "incompatible evaluator"),
			"upgrade the evaluator or change evaluator.version_constraint")
	}
	return &h, nil
}

// send performs req and reads the bounded body
func (c *Client) send(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classifyTransportError(req.Context(), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, classifyTransportError(req.Context(), err)
	}
	return payload, resp.StatusCode, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrap(errors.Mark(err, errors.ErrTimeout), "evaluator did not answer in time")
	}
	if ctx.Err() != nil {
		return errors.Wrap(err, "evaluation cancelled")
	}
	return errors.WithHint(
		errors.WrapUnavailable(err, "evaluator unreachable"),
		"start the evaluator or set evaluator.url")
}
