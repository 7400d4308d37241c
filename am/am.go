package am

// Config represents the chrono configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator" toml:"evaluator" json:"evaluator" yaml:"evaluator"`
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
}

// ServerConfig configures the HTTP and LSP server
type ServerConfig struct {
	Port           int      `mapstructure:"port" toml:"port" json:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	MaxDocuments   int      `mapstructure:"max_documents" toml:"max_documents" json:"max_documents" yaml:"max_documents"` // open LSP documents per connection
}

// EvaluatorConfig configures the remote evaluation service
type EvaluatorConfig struct {
	URL                  string `mapstructure:"url" toml:"url" json:"url" yaml:"url"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRequestsPerMinute int    `mapstructure:"max_requests_per_minute" toml:"max_requests_per_minute" json:"max_requests_per_minute" yaml:"max_requests_per_minute"` // 0 = unlimited
	VersionConstraint    string `mapstructure:"version_constraint" toml:"version_constraint" json:"version_constraint" yaml:"version_constraint"`                     // semver, empty = any
	BlockPrivateIPs      bool   `mapstructure:"block_private_ips" toml:"block_private_ips" json:"block_private_ips" yaml:"block_private_ips"`
}

// DatabaseConfig configures the evaluation history database
type DatabaseConfig struct {
	Path         string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
	HistoryLimit int    `mapstructure:"history_limit" toml:"history_limit" json:"history_limit" yaml:"history_limit"` // evaluations kept, 0 = unlimited
}

// Defaults
const (
	DefaultServerPort           = 8707
	DefaultMaxDocuments         = 100
	DefaultEvaluatorURL         = "http://localhost:5000"
	DefaultEvaluatorTimeout     = 30
	DefaultMaxRequestsPerMinute = 60
	DefaultDatabasePath         = "chrono.db"
	DefaultHistoryLimit         = 200
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// EnvPrefix prefixes every environment override (CHRONO_SERVER_PORT, ...)
const EnvPrefix = "CHRONO"

// ConfigFileName is the file searched for at each config level
const ConfigFileName = "am.toml"
