package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.True(t, cfg.Engine.StopOnError)
}

func TestLoader_LoadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
engine:
  retry_max_attempts: 5
  concurrency: 8
cache:
  backend: redis
  enabled: true
  redis:
    addr: cache.internal:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Engine.RetryMaxAttempts)
	assert.Equal(t, 8, cfg.Engine.Concurrency)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Redis.Addr)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/path/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	t.Setenv("NODEFLOW_ENGINE_CONCURRENCY", "16")
	t.Setenv("NODEFLOW_CACHE_BACKEND", "mongo")
	t.Setenv("NODEFLOW_CACHE_TTL", "1m")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Engine.Concurrency)
	assert.Equal(t, "mongo", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoader_RunsValidators(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			called = true
			return nil
		}).
		Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestConfig_Validate_RejectsUnknownCacheBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsNegativeConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Concurrency = -1
	assert.Error(t, cfg.Validate())
}

func TestHistoryConfig_DSN(t *testing.T) {
	pg := HistoryConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Contains(t, pg.DSN(), "host=db")

	mysql := HistoryConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "n"}
	assert.Contains(t, mysql.DSN(), "tcp(db:3306)")

	sqlite := HistoryConfig{Driver: "sqlite", Name: "history.db"}
	assert.Equal(t, "history.db", sqlite.DSN())
}

func TestConfig_ToEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.RetryMaxAttempts = 3
	cfg.Engine.TimeoutMs = 1500
	cfg.Engine.StopOnError = false

	ec := cfg.ToEngineConfig()
	assert.Equal(t, 3, ec.Retry.MaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, ec.Timeout)
	require.NotNil(t, ec.StopOnError)
	assert.False(t, *ec.StopOnError)
}

func TestConfig_ToTelemetryConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.ServiceName = "svc"

	tc := cfg.ToTelemetryConfig()
	assert.True(t, tc.Enabled)
	assert.Equal(t, "svc", tc.ServiceName)
}
