package config

import "time"

// DefaultConfig returns a Config with production-reasonable defaults:
// in-memory cache, history settings pointing at a local sqlite file,
// telemetry disabled.
func DefaultConfig() *Config {
	return &Config{
		Engine:      DefaultEngineConfig(),
		Cache:       DefaultCacheConfig(),
		History:     DefaultHistoryConfig(),
		Credentials: DefaultCredentialsConfig(),
		Telemetry:   DefaultTelemetryConfig(),
		Metrics:     DefaultMetricsConfig(),
		Log:         DefaultLogConfig(),
	}
}

// DefaultEngineConfig returns the workflow-wide execution defaults: one
// attempt (no retry), no timeout, stop-on-error enabled, unbounded
// intra-wave concurrency.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RetryMaxAttempts:       1,
		RetryBackoffMs:         200,
		RetryBackoffMultiplier: 2,
		RetryMaxBackoffMs:      30_000,
		TimeoutMs:              0,
		Concurrency:            0,
		StopOnError:            true,
	}
}

// DefaultCacheConfig returns an in-memory, disabled-by-default cache.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend: "memory",
		Enabled: false,
		TTL:     5 * time.Minute,
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			KeyPrefix:    "nodeflow:",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "nodeflow",
			Collection: "node_cache",
		},
	}
}

// DefaultHistoryConfig returns a sqlite-backed history store pointed at
// a local file, suitable for development without a running database.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Driver:          "sqlite",
		Name:            "nodeflow_history.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// DefaultCredentialsConfig returns an empty signing key; a deployment
// must supply one before sealing any credentials bag; Validate does not
// currently enforce this since not every host wires credentials.Sealer.
func DefaultCredentialsConfig() CredentialsConfig {
	return CredentialsConfig{
		TTL: time.Hour,
	}
}

// DefaultTelemetryConfig returns telemetry disabled with a localhost
// collector endpoint ready to enable.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		ServiceName:  "nodeflow",
		OTLPEndpoint: "localhost:4317",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig returns metrics enabled under the "nodeflow"
// prometheus namespace.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "nodeflow",
		Enabled:   true,
	}
}

// DefaultLogConfig returns info-level JSON logging to stdout.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}
