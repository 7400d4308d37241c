package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var defaultAllowedOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", defaultAllowedOrigins)
	v.SetDefault("server.max_documents", DefaultMaxDocuments)

	v.SetDefault("evaluator.url", DefaultEvaluatorURL)
	v.SetDefault("evaluator.timeout_seconds", DefaultEvaluatorTimeout)
	v.SetDefault("evaluator.max_requests_per_minute", DefaultMaxRequestsPerMinute)
	v.SetDefault("evaluator.version_constraint", "")
	// Evaluators usually run on localhost next to the editor
	v.SetDefault("evaluator.block_private_ips", false)

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.history_limit", DefaultHistoryLimit)
}

// BindEnvVars binds settings whose env names are commonly set by deployment tooling
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("evaluator.url", "CHRONO_EVALUATOR_URL", "EVALUATOR_URL")
	v.BindEnv("database.path", "CHRONO_DATABASE_PATH")
	v.BindEnv("server.port", "CHRONO_SERVER_PORT", "PORT")
}

// GetServerPort returns the configured port, or the default when unset
func (c *Config) GetServerPort() int {
	if c.Server.Port == 0 {
		return DefaultServerPort
	}
	return c.Server.Port
}

// GetServerAllowedOrigins returns the allowed WebSocket and CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return defaultAllowedOrigins
	}
	return c.Server.AllowedOrigins
}

// GetMaxDocuments returns the LSP document cache bound
func (c *Config) GetMaxDocuments() int {
	if c.Server.MaxDocuments <= 0 {
		return DefaultMaxDocuments
	}
	return c.Server.MaxDocuments
}

// GetEvaluatorTimeout returns the evaluation request timeout
func (c *Config) GetEvaluatorTimeout() time.Duration {
	if c.Evaluator.TimeoutSeconds <= 0 {
		return DefaultEvaluatorTimeout * time.Second
	}
	return time.Duration(c.Evaluator.TimeoutSeconds) * time.Second
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// String returns a short representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Port: %d}, Evaluator: {URL: %s}, Database: %s}",
		c.GetServerPort(), c.Evaluator.URL, c.GetDatabasePath())
}

// newDefaultsViper returns a Viper holding only the defaults
func newDefaultsViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}
