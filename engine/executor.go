package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nodeflow-run/nodeflow/flowctx"
	"github.com/nodeflow-run/nodeflow/flowerr"
	"github.com/nodeflow-run/nodeflow/registry"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// MetricsRecorder receives execution counters. An Executor with a nil
// Metrics field simply skips every call.
type MetricsRecorder interface {
	NodeStarted(nodeType string)
	NodeCompleted(nodeType string, success bool, duration time.Duration)
	RecordRetry(nodeType string)
	RecordCacheHit(nodeType string)
	RecordCacheMiss(nodeType string)
	RecordWave(duration time.Duration, size int)
}

// Tracer opens a span around a single node's execution. StartSpan returns
// the (possibly derived) context to run the node under and a function to
// close the span with the final success flag.
type Tracer interface {
	StartSpan(ctx context.Context, nodeID, nodeType string) (context.Context, func(success bool))
}

// Executor is the workflow-level driver: it plans a workflow into
// waves, then runs each wave to completion before starting the next,
// applying skip propagation and conditional branching between waves.
type Executor struct {
	registry *registry.Registry
	store    cacheStore
	breakers *CircuitBreakerRegistry
	history  *HistoryStore
	logger   *zap.Logger

	Metrics MetricsRecorder
	Tracer  Tracer
}

// cacheStore is the subset of cache.Store the executor threads through to
// ExecuteNode. Declared locally so this package does not need to import
// cache just to name the parameter type in NewExecutor's signature.
type cacheStore interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}

// NewExecutor wires a registry of node definitions, an optional result
// cache, an optional per-type circuit breaker registry, and a logger into
// a ready-to-use Executor. Every dependency but registry may be nil.
func NewExecutor(reg *registry.Registry, store cacheStore, breakers *CircuitBreakerRegistry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: reg,
		store:    store,
		breakers: breakers,
		history:  NewHistoryStore(),
		logger:   logger.With(zap.String("component", "executor")),
	}
}

// History returns the store accumulating every run's ExecutionHistory.
func (e *Executor) History() *HistoryStore {
	return e.history
}

type runState struct {
	mu       sync.Mutex
	statuses map[string]string
	results  map[string]*NodeOutcome
	skipped  map[string]bool
}

// Execute runs wf to completion (or until an unrecoverable planning
// error) against seedVariables, returning the final per-node statuses,
// results, skip set, and variable snapshot.
func (e *Executor) Execute(ctx context.Context, wf Workflow, seedVariables map[string]any, cfg Config) (*RunResult, error) {
	graph := Graph{NodeIDs: wf.nodeIDs(), Edges: wf.Edges}
	waves, err := Plan(graph)
	if err != nil {
		return nil, err
	}

	executionID := uuid.NewString()
	hist := newExecutionHistory(executionID, wf.ID)
	fctx := flowctx.New(seedVariables)
	nodesByID := wf.byID()
	outgoing := Adjacency(graph)

	state := &runState{
		statuses: make(map[string]string, len(wf.Nodes)),
		results:  make(map[string]*NodeOutcome, len(wf.Nodes)),
		skipped:  make(map[string]bool),
	}
	for _, id := range graph.NodeIDs {
		state.statuses[id] = "idle"
	}

	concurrency := cfg.Concurrency

	for _, wave := range waves {
		waveStart := time.Now()
		limit := concurrency
		if limit <= 0 {
			limit = len(wave)
		}
		sem := semaphore.NewWeighted(int64(limit))
		var wg sync.WaitGroup

		for _, id := range wave {
			id := id
			wg.Add(1)
			if err := sem.Acquire(ctx, 1); err != nil {
				// Context already cancelled: treat every remaining node in
				// this wave, and every later wave, as skipped.
				state.mu.Lock()
				state.skipped[id] = true
				state.statuses[id] = "skipped"
				state.mu.Unlock()
				wg.Done()
				continue
			}
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				e.runNode(ctx, executionID, id, nodesByID, outgoing, fctx, cfg, hist, state)
			}()
		}
		wg.Wait()
		if e.Metrics != nil {
			e.Metrics.RecordWave(time.Since(waveStart), len(wave))
		}
	}

	hist.complete(nil)
	e.history.save(hist)

	return &RunResult{
		ExecutionID: executionID,
		Statuses:    state.statuses,
		Results:     state.results,
		Skipped:     state.skipped,
		Variables:   fctx.Snapshot(),
	}, nil
}

func (e *Executor) runNode(ctx context.Context, executionID, id string, nodesByID map[string]NodeSpec, outgoing map[string][]Edge, fctx *flowctx.Context, cfg Config, hist *ExecutionHistory, state *runState) {
	state.mu.Lock()
	if state.skipped[id] {
		state.statuses[id] = "skipped"
		state.mu.Unlock()
		return
	}
	state.mu.Unlock()

	if ctx.Err() != nil {
		state.mu.Lock()
		state.skipped[id] = true
		state.statuses[id] = "skipped"
		state.mu.Unlock()
		return
	}

	spec := nodesByID[id]

	state.mu.Lock()
	state.statuses[id] = "running"
	state.mu.Unlock()
	if cfg.Callbacks.OnNodeStart != nil {
		safeCall(func() { cfg.Callbacks.OnNodeStart(id, spec.Type) })
	}
	if e.Metrics != nil {
		e.Metrics.NodeStarted(spec.Type)
	}

	def, ok := e.registry.GetDefinition(spec.Type)
	if !ok {
		e.finishFailed(id, spec.Type, &flowerr.UnknownTypeError{Type: spec.Type}, outgoing, cfg, hist, state, nil)
		return
	}

	rawInput := fctx.InterpolateObject(spec.Config)
	nodeCtx := fctx.ToNodeContext(cfg.UserID, executionID, flowctx.WithCampaignID(cfg.CampaignID))
	histRec := hist.recordNodeStart(id, spec.Type, rawInput)

	retry, cacheCfg, timeout, onRetry, limiter := cfg.resolveForType(spec.Type)
	var breaker *CircuitBreaker
	if e.breakers != nil {
		breaker = e.breakers.GetOrCreate(spec.Type)
	}

	start := time.Now()
	var spanEnd func(bool)
	nodeExecCtx := ctx
	if e.Tracer != nil {
		nodeExecCtx, spanEnd = e.Tracer.StartSpan(ctx, id, spec.Type)
	}

	result, err := ExecuteNode(nodeExecCtx, def, rawInput, nodeCtx, NodeExecParams{
		Retry:   retry,
		Cache:   cacheCfg,
		Timeout: timeout,
		Store:   e.store,
		Breaker: breaker,
		Limiter: limiter,
		OnRetry: onRetry,
		Metrics: e.Metrics,
	})

	if spanEnd != nil {
		spanEnd(err == nil && result != nil && result.Success)
	}
	if e.Metrics != nil {
		e.Metrics.NodeCompleted(spec.Type, err == nil && result != nil && result.Success, time.Since(start))
	}

	if err != nil {
		hist.recordNodeEnd(histRec, nil)
		e.finishFailed(id, spec.Type, err, outgoing, cfg, hist, state, histRec)
		return
	}

	hist.recordNodeEnd(histRec, result)
	if !flowctx.IsAbsent(result.Output) && result.Output != nil {
		fctx.StoreNodeOutput(id, result.Output)
	}

	state.mu.Lock()
	state.results[id] = &NodeOutcome{Success: result.Success, Output: result.Output, Error: result.Error}
	state.mu.Unlock()

	if result.Success {
		state.mu.Lock()
		state.statuses[id] = "success"
		state.mu.Unlock()
		if cfg.Callbacks.OnNodeComplete != nil {
			safeCall(func() { cfg.Callbacks.OnNodeComplete(id, result) })
		}
		e.applyBranchSkips(id, result.NextNodeID, outgoing, state)
		return
	}

	state.mu.Lock()
	state.statuses[id] = "error"
	state.mu.Unlock()
	if cfg.Callbacks.OnNodeError != nil {
		safeCall(func() { cfg.Callbacks.OnNodeError(id, errors.New(result.Error)) })
	}
	if cfg.stopOnError() {
		e.skipDescendants(id, outgoing, state)
	}
}

func (e *Executor) finishFailed(id, nodeType string, err error, outgoing map[string][]Edge, cfg Config, hist *ExecutionHistory, state *runState, histRec *NodeExecution) {
	state.mu.Lock()
	state.statuses[id] = "error"
	state.results[id] = &NodeOutcome{Success: false, Error: err.Error()}
	state.mu.Unlock()
	if cfg.Callbacks.OnNodeError != nil {
		safeCall(func() { cfg.Callbacks.OnNodeError(id, err) })
	}
	if cfg.stopOnError() {
		e.skipDescendants(id, outgoing, state)
	}
}

// skipDescendants marks every node reachable from id, but not id itself,
// as skipped. Used when id has already been given a terminal "error"
// status and only its downstream nodes should be preempted.
func (e *Executor) skipDescendants(id string, outgoing map[string][]Edge, state *runState) {
	for _, edge := range outgoing[id] {
		e.markDownstreamSkipped(edge.Target, outgoing, state)
	}
}

// applyBranchSkips handles conditional branching: when a node's result
// names nextNodeID, only edges out of it with no source handle
// (unconditioned) or a matching source handle are followed; every other
// conditioned edge's target is skipped, transitively.
func (e *Executor) applyBranchSkips(id, nextNodeID string, outgoing map[string][]Edge, state *runState) {
	if nextNodeID == "" {
		return
	}
	for _, edge := range outgoing[id] {
		if edge.SourceHandle != "" && edge.SourceHandle != nextNodeID {
			e.markDownstreamSkipped(edge.Target, outgoing, state)
		}
	}
}

// markDownstreamSkipped marks nodeID and every node transitively
// reachable from it as skipped. It is idempotent: a node already marked
// short-circuits its own traversal.
func (e *Executor) markDownstreamSkipped(nodeID string, outgoing map[string][]Edge, state *runState) {
	queue := []string{nodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		state.mu.Lock()
		already := state.skipped[id]
		state.skipped[id] = true
		state.mu.Unlock()
		if already {
			continue
		}

		for _, edge := range outgoing[id] {
			queue = append(queue, edge.Target)
		}
	}
}
