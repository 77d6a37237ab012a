package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodeflow-run/nodeflow/cache"
	"github.com/nodeflow-run/nodeflow/flowctx"
	"github.com/nodeflow-run/nodeflow/flowerr"
	"github.com/nodeflow-run/nodeflow/node"
	"golang.org/x/time/rate"
)

// NodeExecParams bundles the per-invocation settings ExecuteNode needs
// beyond the definition, input, and node context: the effective
// retry/cache/timeout triple after any per-type override has already been
// applied by the caller.
type NodeExecParams struct {
	Retry   RetryConfig
	Cache   CacheConfig
	Timeout time.Duration
	Store   cache.Store
	Breaker *CircuitBreaker
	Limiter *rate.Limiter
	OnRetry func(attempt int, err error)
	Metrics MetricsRecorder
}

// ExecuteNode runs the single-node pipeline: validate, consult cache,
// then retry the executor under a timeout/cancellation race.
//
// A schema validation failure is bubbled up as an error, not a result;
// it never reaches the retry loop. Every other outcome, including
// timeout, abort, and retry exhaustion, is returned as an in-band
// *node.Result with a nil error.
func ExecuteNode(ctx context.Context, def *node.Definition, rawInput any, nodeCtx *flowctx.NodeContext, params NodeExecParams) (*node.Result, error) {
	validated, err := def.InputSchema.Validate(rawInput)
	if err != nil {
		return nil, &flowerr.ValidationError{Type: def.Type, Reason: err.Error()}
	}

	var cacheKey string
	if params.Cache.Enabled && params.Store != nil {
		cacheKey = params.Cache.key(validated)
		if cached, found := params.Store.Get(cacheKey); found {
			if result, ok := decodeCachedResult(cached); ok {
				if params.Metrics != nil {
					params.Metrics.RecordCacheHit(def.Type)
				}
				return result, nil
			}
		}
		if params.Metrics != nil {
			params.Metrics.RecordCacheMiss(def.Type)
		}
	}

	if params.Breaker != nil {
		allowed, err := params.Breaker.AllowRequest()
		if !allowed {
			return &node.Result{Success: false, Error: err.Error()}, nil
		}
	}

	if params.Limiter != nil {
		if err := params.Limiter.Wait(ctx); err != nil {
			return &node.Result{Success: false, Error: "Execution aborted"}, nil
		}
	}

	result := runRetryLoop(ctx, def, validated, nodeCtx, params.Retry, params.Timeout, params.OnRetry, params.Metrics)

	if params.Breaker != nil {
		if result.Success {
			params.Breaker.RecordSuccess()
		} else {
			params.Breaker.RecordFailure()
		}
	}

	if result.Success && params.Cache.Enabled && params.Store != nil {
		params.Store.Set(cacheKey, result, params.Cache.TTL)
	}

	return result, nil
}

// decodeCachedResult recovers a *node.Result from whatever shape a Store
// handed back. MemoryStore round-trips the pointer as-is; RedisStore
// JSON-decodes into a map[string]any, and MongoStore's BSON documents
// normalize to the same shape. Re-marshaling that map through node.Result's
// json tags reconstructs the original value regardless of which backend
// produced it.
func decodeCachedResult(cached any) (*node.Result, bool) {
	if result, ok := cached.(*node.Result); ok {
		return result, true
	}
	m, ok := cached.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, false
	}
	var result node.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return &result, true
}

type execOutcome struct {
	result *node.Result
	err    error
}

func runRetryLoop(ctx context.Context, def *node.Definition, input any, nodeCtx *flowctx.NodeContext, retry RetryConfig, timeout time.Duration, onRetry func(int, error), metrics MetricsRecorder) *node.Result {
	maxAttempts := retry.maxAttempts()
	var last *node.Result

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return &node.Result{Success: false, Error: "Execution aborted"}
		}

		result, thrown := runOnce(ctx, def, input, nodeCtx, timeout)
		if thrown != nil {
			result = &node.Result{Success: false, Error: thrown.Error()}
		}
		last = result

		if result.Success || attempt == maxAttempts {
			return result
		}

		attemptErr := fmt.Errorf("%s", result.Error)
		if retry.RetryOn != nil && !retry.RetryOn(attemptErr) {
			return result
		}

		if metrics != nil {
			metrics.RecordRetry(def.Type)
		}
		if onRetry != nil {
			safeCall(func() { onRetry(attempt, attemptErr) })
		}

		backoff := retry.backoffFor(attempt)
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return &node.Result{Success: false, Error: "Execution aborted"}
			}
		}
	}
	return last
}

// runOnce races a single executor invocation against a timeout timer and
// the context's own cancellation. The engine cannot forcibly interrupt an
// executor that ignores ctx; the race only unblocks the caller; the
// executor's eventual completion, if any, is discarded.
func runOnce(ctx context.Context, def *node.Definition, input any, nodeCtx *flowctx.NodeContext, timeout time.Duration) (*node.Result, error) {
	outcome := make(chan execOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- execOutcome{err: fmt.Errorf("executor panic: %v", r)}
			}
		}()
		result, err := def.Executor(ctx, input, nodeCtx)
		outcome <- execOutcome{result: result, err: err}
	}()

	var timerCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerCh = timer.C
	}

	select {
	case out := <-outcome:
		return out.result, out.err
	case <-timerCh:
		return &node.Result{Success: false, Error: fmt.Sprintf("Execution timed out after %dms", timeout.Milliseconds())}, nil
	case <-ctx.Done():
		return &node.Result{Success: false, Error: "Execution aborted"}, nil
	}
}

// safeCall invokes fn, swallowing any panic. Observer callbacks must not
// be able to crash the engine.
func safeCall(fn func()) {
	defer func() { recover() }()
	fn()
}
