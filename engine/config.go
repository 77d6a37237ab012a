// Package engine implements the single-node executor, the topological
// planner, and the workflow executor: the three components where
// ordering, cancellation, cache coherence, and skip propagation
// actually live.
package engine

import (
	"encoding/json"
	"math"
	"time"

	"github.com/nodeflow-run/nodeflow/node"
	"golang.org/x/time/rate"
)

// RetryConfig governs the attempt loop inside ExecuteNode.
type RetryConfig struct {
	// MaxAttempts is the ceiling on executor invocations. Zero means the
	// default of 1 (no retries).
	MaxAttempts int
	// BackoffMs is the base delay between attempts. Zero means no sleep.
	BackoffMs int64
	// BackoffMultiplier scales BackoffMs per attempt. Zero means the
	// default of 2.
	BackoffMultiplier float64
	// MaxBackoffMs caps the computed backoff. Zero means unbounded.
	MaxBackoffMs int64
	// RetryOn decides whether a given failure is worth retrying. A nil
	// RetryOn means "retry any error".
	RetryOn func(err error) bool
}

func (r RetryConfig) maxAttempts() int {
	if r.MaxAttempts <= 0 {
		return 1
	}
	return r.MaxAttempts
}

func (r RetryConfig) multiplier() float64 {
	if r.BackoffMultiplier <= 0 {
		return 2
	}
	return r.BackoffMultiplier
}

func (r RetryConfig) maxBackoff() int64 {
	if r.MaxBackoffMs <= 0 {
		return math.MaxInt64
	}
	return r.MaxBackoffMs
}

func (r RetryConfig) backoffFor(attempt int) time.Duration {
	ms := float64(r.BackoffMs) * math.Pow(r.multiplier(), float64(attempt-1))
	if ms > float64(r.maxBackoff()) {
		ms = float64(r.maxBackoff())
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// CacheConfig governs single-node result memoization.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	// KeyFn derives the cache key from the validated input. When nil, the
	// canonical-JSON form of the input is used.
	KeyFn func(validatedInput any) string
}

func (c CacheConfig) key(validatedInput any) string {
	if c.KeyFn != nil {
		return c.KeyFn(validatedInput)
	}
	return canonicalJSON(validatedInput)
}

// canonicalJSON produces a stable textual form of v: encoding/json already
// emits map keys in sorted order, which is enough determinism for a cache
// key without hand-rolling a canonicalizer.
func canonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// NodeTypeConfig is a per-type override of the five fields the workflow
// executor is allowed to shallow-override from the workflow-level config.
type NodeTypeConfig struct {
	Retry      *RetryConfig
	Cache      *CacheConfig
	Timeout    time.Duration
	HasTimeout bool
	OnRetry    func(attempt int, err error)
	RateLimit  *rate.Limiter
}

// Callbacks are the optional single-listener observer hooks. A callback
// that panics is recovered and logged; the run continues.
type Callbacks struct {
	OnNodeStart    func(id, typ string)
	OnNodeComplete func(id string, result *node.Result)
	OnNodeError    func(id string, err error)
	OnRetry        func(attempt int, err error)
}

// Config is the workflow-level configuration passed to Execute. Per-type
// overrides in NodeConfig replace Retry/Cache/Timeout/OnRetry for that
// type only; UserID, StopOnError, and Callbacks are workflow-wide.
type Config struct {
	Retry       RetryConfig
	Cache       CacheConfig
	Timeout     time.Duration
	UserID      string
	CampaignID  string
	// StopOnError, when true (the default), marks every transitive
	// descendant of a failed node as skipped. Nil means true.
	StopOnError *bool
	// Concurrency bounds how many nodes in a single wave run at once. Zero
	// means unbounded (limited only by the wave's own size).
	Concurrency int
	NodeConfig  map[string]NodeTypeConfig
	Callbacks   Callbacks
}

func (c Config) stopOnError() bool {
	if c.StopOnError == nil {
		return true
	}
	return *c.StopOnError
}

// resolveForType applies a NodeTypeConfig override, if one exists for typ,
// producing the effective per-node execution settings.
func (c Config) resolveForType(typ string) (RetryConfig, CacheConfig, time.Duration, func(attempt int, err error), *rate.Limiter) {
	retry, cache, timeout, onRetry := c.Retry, c.Cache, c.Timeout, c.Callbacks.OnRetry
	var limiter *rate.Limiter
	if override, ok := c.NodeConfig[typ]; ok {
		if override.Retry != nil {
			retry = *override.Retry
		}
		if override.Cache != nil {
			cache = *override.Cache
		}
		if override.HasTimeout {
			timeout = override.Timeout
		}
		if override.OnRetry != nil {
			onRetry = override.OnRetry
		}
		limiter = override.RateLimit
	}
	return retry, cache, timeout, onRetry, limiter
}
