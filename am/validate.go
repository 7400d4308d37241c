package am

import (
	"net/url"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/chrono/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server port: 0 = default, negative or out of range = invalid
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxDocuments < 0 {
		return errors.Newf("server.max_documents must be >= 0, got %d", c.Server.MaxDocuments)
	}

	if c.Evaluator.URL == "" {
		return errors.WithHint(
			errors.New("evaluator.url cannot be empty"),
			"set evaluator.url in am.toml or CHRONO_EVALUATOR_URL")
	}
	u, err := url.Parse(c.Evaluator.URL)
	if err != nil {
		return errors.Wrapf(err, "evaluator.url %q is not a valid URL", c.Evaluator.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("evaluator.url must use http or https, got %q", u.Scheme)
	}
	if c.Evaluator.TimeoutSeconds < 0 {
		return errors.Newf("evaluator.timeout_seconds must be >= 0, got %d", c.Evaluator.TimeoutSeconds)
	}
	// 0 = unlimited
	if c.Evaluator.MaxRequestsPerMinute < 0 {
		return errors.Newf("evaluator.max_requests_per_minute must be >= 0, got %d", c.Evaluator.MaxRequestsPerMinute)
	}
	if c.Evaluator.VersionConstraint != "" {
		if _, err := semver.NewConstraint(c.Evaluator.VersionConstraint); err != nil {
			return errors.Wrapf(err, "evaluator.version_constraint %q is invalid", c.Evaluator.VersionConstraint)
		}
	}

	if c.Database.HistoryLimit < 0 {
		return errors.Newf("database.history_limit must be >= 0, got %d", c.Database.HistoryLimit)
	}

	return nil
}
