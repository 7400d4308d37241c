package am

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config level at an empty temp tree
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)
	Reset()
	t.Cleanup(Reset)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultMaxDocuments, cfg.Server.MaxDocuments)
	assert.Equal(t, DefaultEvaluatorURL, cfg.Evaluator.URL)
	assert.Equal(t, DefaultEvaluatorTimeout, cfg.Evaluator.TimeoutSeconds)
	assert.Equal(t, DefaultMaxRequestsPerMinute, cfg.Evaluator.MaxRequestsPerMinute)
	assert.False(t, cfg.Evaluator.BlockPrivateIPs)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultHistoryLimit, cfg.Database.HistoryLimit)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000

[evaluator]
url = "http://evaluator.internal:5000"
version_constraint = ">= 1.2.0"
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://evaluator.internal:5000", cfg.Evaluator.URL)
	assert.Equal(t, ">= 1.2.0", cfg.Evaluator.VersionConstraint)
	assert.Equal(t, DefaultHistoryLimit, cfg.Database.HistoryLimit, "defaults fill the gaps")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_ProjectConfigAndEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`
[database]
path = "project.db"
history_limit = 5
`), 0644))

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)
	t.Setenv("CHRONO_EVALUATOR_URL", "http://env:1234")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "project.db", cfg.Database.Path, "project config is found upwards")
	assert.Equal(t, 5, cfg.Database.HistoryLimit)
	assert.Equal(t, "http://env:1234", cfg.Evaluator.URL)

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "Load caches until Reset")

	sources := map[string]SettingInfo{}
	for _, s := range Introspect() {
		sources[s.Key] = s
	}
	assert.Equal(t, SourceProject, sources["database.path"].Source)
	assert.Equal(t, SourceEnvironment, sources["evaluator.url"].Source)
	assert.Equal(t, SourceDefault, sources["server.port"].Source)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		cfg, _ := LoadWithViper(v)
		return *cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero port means default", func(c *Config) { c.Server.Port = 0 }, false},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty evaluator url", func(c *Config) { c.Evaluator.URL = "" }, true},
		{"non-http evaluator", func(c *Config) { c.Evaluator.URL = "ftp://x" }, true},
		{"zero rate limit is unlimited", func(c *Config) { c.Evaluator.MaxRequestsPerMinute = 0 }, false},
		{"negative rate limit", func(c *Config) { c.Evaluator.MaxRequestsPerMinute = -1 }, true},
		{"valid constraint", func(c *Config) { c.Evaluator.VersionConstraint = "^2.0" }, false},
		{"invalid constraint", func(c *Config) { c.Evaluator.VersionConstraint = "not a version" }, true},
		{"negative history limit", func(c *Config) { c.Database.HistoryLimit = -3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetters(t *testing.T) {
	var cfg Config
	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())
	assert.Equal(t, DefaultMaxDocuments, cfg.GetMaxDocuments())
	assert.Equal(t, 30*time.Second, cfg.GetEvaluatorTimeout())
	assert.Equal(t, DefaultDatabasePath, cfg.GetDatabasePath())
	assert.Equal(t, defaultAllowedOrigins, cfg.GetServerAllowedOrigins())

	cfg.Evaluator.TimeoutSeconds = 5
	assert.Equal(t, 5*time.Second, cfg.GetEvaluatorTimeout())
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")

	require.NoError(t, SetValue(path, "server.port", "9100"))
	require.NoError(t, SetValue(path, "evaluator.block_private_ips", "true"))
	require.NoError(t, SetValue(path, "server.allowed_origins", "http://a, http://b"))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Evaluator.BlockPrivateIPs)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowedOrigins)

	assert.FileExists(t, path+".back1")
	assert.FileExists(t, path+".back2")
	assert.NoFileExists(t, path+".back3")
}

func TestSetValue_UnknownKey(t *testing.T) {
	err := SetValue(filepath.Join(t.TempDir(), "am.toml"), "server.colour", "red")
	assert.ErrorContains(t, err, "unknown config key")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, 1.5, parseValue("1.5"))
	assert.Equal(t, "http://x", parseValue("http://x"))
	assert.Equal(t, []string{"a", "b"}, parseValue("a,b"))
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9001\n"), 0644))

	w, err := NewConfigWatcher(path)
	require.NoError(t, err)
	w.debouncePeriod = 20 * time.Millisecond
	t.Cleanup(func() { _ = w.Stop() })

	var port atomic.Int64
	w.OnReload(func(cfg *Config) error {
		port.Store(int64(cfg.Server.Port))
		return nil
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9002\n"), 0644))
	require.Eventually(t, func() bool { return port.Load() == 9002 }, 5*time.Second, 20*time.Millisecond)
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/x/am.toml.back1"))
	assert.False(t, isBackupFile("/x/am.toml"))
}
