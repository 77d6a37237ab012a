// Package config: configuration loading, supporting YAML file plus
// environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("NODEFLOW").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nodeflow-run/nodeflow/engine"
	"github.com/nodeflow-run/nodeflow/telemetry"
)

// Config is the complete configuration for a nodeflow host process.
type Config struct {
	Engine      EngineConfig      `yaml:"engine" env:"ENGINE"`
	Cache       CacheConfig       `yaml:"cache" env:"CACHE"`
	History     HistoryConfig     `yaml:"history" env:"HISTORY"`
	Credentials CredentialsConfig `yaml:"credentials" env:"CREDENTIALS"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" env:"TELEMETRY"`
	Metrics     MetricsConfig     `yaml:"metrics" env:"METRICS"`
	Log         LogConfig         `yaml:"log" env:"LOG"`
}

// EngineConfig configures the workflow-wide defaults handed to
// engine.Executor.Execute. Per-node-type overrides are a code-level concern
// (engine.Config.NodeConfig carries function-valued fields that cannot
// round-trip through YAML) and are layered on after loading, not here.
type EngineConfig struct {
	RetryMaxAttempts        int     `yaml:"retry_max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	RetryBackoffMs          int64   `yaml:"retry_backoff_ms" env:"RETRY_BACKOFF_MS"`
	RetryBackoffMultiplier  float64 `yaml:"retry_backoff_multiplier" env:"RETRY_BACKOFF_MULTIPLIER"`
	RetryMaxBackoffMs       int64   `yaml:"retry_max_backoff_ms" env:"RETRY_MAX_BACKOFF_MS"`
	TimeoutMs               int64   `yaml:"timeout_ms" env:"TIMEOUT_MS"`
	Concurrency             int     `yaml:"concurrency" env:"CONCURRENCY"`
	StopOnError             bool    `yaml:"stop_on_error" env:"STOP_ON_ERROR"`
}

// CacheConfig selects and configures the single-node result cache
// backend: in-process memory, Redis, or MongoDB.
type CacheConfig struct {
	// Backend is one of "memory", "redis", "mongo".
	Backend    string        `yaml:"backend" env:"BACKEND"`
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
	Redis      RedisConfig   `yaml:"redis" env:"REDIS"`
	Mongo      MongoConfig   `yaml:"mongo" env:"MONGO"`
}

// RedisConfig connects to a Redis instance backing CacheConfig or
// nothing else; the history store never uses Redis.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	KeyPrefix    string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// MongoConfig connects to a MongoDB collection backing CacheConfig.
type MongoConfig struct {
	URI        string `yaml:"uri" env:"URI"`
	Database   string `yaml:"database" env:"DATABASE"`
	Collection string `yaml:"collection" env:"COLLECTION"`
}

// HistoryConfig connects the historystore package to a relational
// database. Driver selects the gorm dialector at wiring time; this
// package only carries connection settings.
type HistoryConfig struct {
	// Driver is one of "postgres", "mysql", "sqlite".
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN renders the connection string for h.Driver.
func (h HistoryConfig) DSN() string {
	switch h.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			h.Host, h.Port, h.User, h.Password, h.Name, h.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			h.User, h.Password, h.Host, h.Port, h.Name,
		)
	case "sqlite":
		return h.Name
	default:
		return ""
	}
}

// CredentialsConfig configures the credentials.Sealer used to seal the
// executor-facing credentials bag into a signed token.
type CredentialsConfig struct {
	// SigningKey is the HMAC secret. It must be set before any credentials
	// are sealed; Validate does not check it.
	SigningKey string        `yaml:"signing_key" env:"SIGNING_KEY"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
}

// TelemetryConfig mirrors telemetry.Config, kept as a distinct type here
// so YAML tags belong to config rather than telemetry.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig configures the prometheus namespace metrics register
// under.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
}

// LogConfig configures the process-wide zap logger.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// ToEngineConfig converts the loaded settings into the engine.Config
// shape Execute expects. Callbacks and NodeConfig overrides are left
// zero-valued; callers set those in code after loading.
func (c Config) ToEngineConfig() engine.Config {
	stopOnError := c.Engine.StopOnError
	return engine.Config{
		Retry: engine.RetryConfig{
			MaxAttempts:       c.Engine.RetryMaxAttempts,
			BackoffMs:         c.Engine.RetryBackoffMs,
			BackoffMultiplier: c.Engine.RetryBackoffMultiplier,
			MaxBackoffMs:      c.Engine.RetryMaxBackoffMs,
		},
		Cache: engine.CacheConfig{
			Enabled: c.Cache.Enabled,
			TTL:     c.Cache.TTL,
		},
		Timeout:     time.Duration(c.Engine.TimeoutMs) * time.Millisecond,
		StopOnError: &stopOnError,
		Concurrency: c.Engine.Concurrency,
	}
}

// ToTelemetryConfig converts the loaded settings into telemetry.Config.
func (c Config) ToTelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:      c.Telemetry.Enabled,
		ServiceName:  c.Telemetry.ServiceName,
		OTLPEndpoint: c.Telemetry.OTLPEndpoint,
		SampleRate:   c.Telemetry.SampleRate,
	}
}

// Loader is a builder for loading Config from defaults, an optional YAML
// file, and environment variable overrides.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the default env prefix "NODEFLOW".
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "NODEFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path. A missing file is not
// an error; defaults apply instead.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator registers an additional validation pass run after
// loading, in registration order.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load applies defaults, then the YAML file (if any), then environment
// overrides, then every registered validator.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("config: load from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: load from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config: validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads config from path, panicking on failure. Intended for
// process entrypoints where a bad config is a startup-fatal condition.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// Validate checks the invariants Load itself does not enforce structurally.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.Concurrency < 0 {
		errs = append(errs, "engine.concurrency must not be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "mongo":
	default:
		errs = append(errs, fmt.Sprintf("cache.backend must be memory, redis, or mongo, got %q", c.Cache.Backend))
	}
	if c.Cache.Enabled && c.Cache.Backend == "" {
		errs = append(errs, "cache.backend is required when cache.enabled is true")
	}
	if c.History.Driver != "" {
		switch c.History.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("history.driver must be postgres, mysql, or sqlite, got %q", c.History.Driver))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
