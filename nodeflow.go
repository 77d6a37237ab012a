// Package nodeflow provides a top-level convenience entry point for wiring
// a workflow engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/nodeflow-run/nodeflow"
//
//	rt, err := nodeflow.New(nodeflow.WithNodes(myDefinitions...))
//	result, err := rt.Run(ctx, wf, map[string]any{"input": 1})
//
// This is a thin wrapper around [registry.New], [cache.NewMemoryStore], and
// [engine.NewExecutor]; assembling those three by hand produces an
// identical runtime. Use this package when you prefer the shorter path for
// the common case of one process, one in-memory cache, default circuit
// breaker settings.
package nodeflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/nodeflow-run/nodeflow/cache"
	"github.com/nodeflow-run/nodeflow/engine"
	"github.com/nodeflow-run/nodeflow/node"
	"github.com/nodeflow-run/nodeflow/registry"
)

// Option configures the runtime created by [New].
type Option func(*options)

type options struct {
	nodes    []*node.Definition
	store    cache.Store
	logger   *zap.Logger
	breakers engine.CircuitBreakerConfig
}

// WithNodes registers the given node type definitions on the runtime's
// registry. Duplicate types across calls return an error from [New].
func WithNodes(defs ...*node.Definition) Option {
	return func(o *options) { o.nodes = append(o.nodes, defs...) }
}

// WithCache overrides the default in-memory cache store, e.g. with
// [cache.NewRedisStore] or [cache.NewMongoStore] for multi-process
// deployments where node result caching must be shared.
func WithCache(store cache.Store) Option {
	return func(o *options) { o.store = store }
}

// WithLogger sets a custom zap logger. Defaults to [zap.NewNop] so library
// consumers don't get unsolicited stderr output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCircuitBreaker overrides the default circuit breaker configuration
// shared by every node type's breaker.
func WithCircuitBreaker(cfg engine.CircuitBreakerConfig) Option {
	return func(o *options) { o.breakers = cfg }
}

// Runtime bundles a node registry, cache store, and executor built from the
// options passed to [New].
type Runtime struct {
	Registry *registry.Registry
	Store    cache.Store
	Executor *engine.Executor
}

// New builds a [Runtime] ready to execute workflows against the node types
// passed via [WithNodes].
func New(opts ...Option) (*Runtime, error) {
	o := &options{
		logger:   zap.NewNop(),
		breakers: engine.DefaultCircuitBreakerConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = cache.NewMemoryStore()
	}

	reg := registry.New(o.logger)
	if err := reg.RegisterAll(o.nodes); err != nil {
		return nil, err
	}

	breakers := engine.NewCircuitBreakerRegistry(o.breakers, nil, o.logger)
	executor := engine.NewExecutor(reg, o.store, breakers, o.logger)

	return &Runtime{Registry: reg, Store: o.store, Executor: executor}, nil
}

// Run executes wf against seedVariables using the engine's default
// configuration. Use rt.Executor.Execute directly for control over retries,
// timeouts, concurrency, or callbacks via [engine.Config].
func (rt *Runtime) Run(ctx context.Context, wf engine.Workflow, seedVariables map[string]any) (*engine.RunResult, error) {
	return rt.Executor.Execute(ctx, wf, seedVariables, engine.Config{})
}
