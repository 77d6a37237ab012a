package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState is one of Closed, Open, or HalfOpen.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when a per-node-type breaker opens and how it
// probes for recovery.
type CircuitBreakerConfig struct {
	FailureThreshold           int
	RecoveryTimeout            time.Duration
	HalfOpenMaxProbes          int
	SuccessThresholdInHalfOpen int
}

// DefaultCircuitBreakerConfig mirrors the defaults used elsewhere in this
// codebase for outbound calls: five consecutive failures trips it, thirty
// seconds before the first probe, two clean probes to close again.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:           5,
		RecoveryTimeout:            30 * time.Second,
		HalfOpenMaxProbes:          3,
		SuccessThresholdInHalfOpen: 2,
	}
}

// CircuitBreakerEvent records a state transition for observability.
type CircuitBreakerEvent struct {
	NodeType  string
	OldState  CircuitState
	NewState  CircuitState
	Timestamp time.Time
	Reason    string
	Failures  int
}

// CircuitBreakerEventHandler receives state transitions. OnStateChange is
// invoked from its own goroutine and must not block.
type CircuitBreakerEventHandler interface {
	OnStateChange(event CircuitBreakerEvent)
}

// CircuitBreaker guards a single node type's calls into ExecuteNode. It sits
// outside the retry loop: retries handle transient failure within one node
// invocation, the breaker protects the rest of the wave from a node type
// that is failing outright.
type CircuitBreaker struct {
	nodeType        string
	config          CircuitBreakerConfig
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	probeCount      int
	eventHandler    CircuitBreakerEventHandler
	logger          *zap.Logger
	mu              sync.RWMutex
}

func NewCircuitBreaker(nodeType string, config CircuitBreakerConfig, eventHandler CircuitBreakerEventHandler, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		nodeType:     nodeType,
		config:       config,
		state:        CircuitClosed,
		eventHandler: eventHandler,
		logger:       logger.With(zap.String("node_type", nodeType)),
	}
}

// AllowRequest reports whether a call should proceed, transitioning Open to
// HalfOpen once the recovery timeout has elapsed.
func (cb *CircuitBreaker) AllowRequest() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true, nil

	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
			cb.transitionTo(CircuitHalfOpen, "recovery timeout elapsed")
			cb.probeCount = 0
			cb.successes = 0
			return true, nil
		}
		return false, fmt.Errorf("circuit breaker open for node type %s: %d consecutive failures, retry after %v",
			cb.nodeType, cb.failures, cb.config.RecoveryTimeout-time.Since(cb.lastFailureTime))

	case CircuitHalfOpen:
		if cb.probeCount < cb.config.HalfOpenMaxProbes {
			cb.probeCount++
			return true, nil
		}
		return false, fmt.Errorf("circuit breaker half-open for node type %s: max probes (%d) reached",
			cb.nodeType, cb.config.HalfOpenMaxProbes)

	default:
		return false, fmt.Errorf("unknown circuit breaker state: %d", cb.state)
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0

	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThresholdInHalfOpen {
			cb.transitionTo(CircuitClosed, fmt.Sprintf("%d consecutive successes in half-open", cb.successes))
			cb.failures = 0
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen, fmt.Sprintf("%d consecutive failures", cb.failures))
		}

	case CircuitHalfOpen:
		cb.successes = 0
		cb.transitionTo(CircuitOpen, "failure in half-open state")
	}
}

func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	old := cb.state
	cb.state = CircuitClosed
	cb.failures = 0
	cb.successes = 0
	cb.probeCount = 0
	if old != CircuitClosed {
		cb.emitEvent(old, CircuitClosed, "manual reset")
	}
}

func (cb *CircuitBreaker) transitionTo(newState CircuitState, reason string) {
	old := cb.state
	cb.state = newState
	cb.logger.Info("circuit breaker state change",
		zap.String("old_state", old.String()),
		zap.String("new_state", newState.String()),
		zap.String("reason", reason),
		zap.Int("failures", cb.failures))
	cb.emitEvent(old, newState, reason)
}

func (cb *CircuitBreaker) emitEvent(old, new CircuitState, reason string) {
	if cb.eventHandler == nil {
		return
	}
	event := CircuitBreakerEvent{
		NodeType:  cb.nodeType,
		OldState:  old,
		NewState:  new,
		Timestamp: time.Now(),
		Reason:    reason,
		Failures:  cb.failures,
	}
	go cb.eventHandler.OnStateChange(event)
}

// CircuitBreakerRegistry lazily creates one breaker per node type.
type CircuitBreakerRegistry struct {
	breakers     map[string]*CircuitBreaker
	config       CircuitBreakerConfig
	eventHandler CircuitBreakerEventHandler
	logger       *zap.Logger
	mu           sync.RWMutex
}

func NewCircuitBreakerRegistry(config CircuitBreakerConfig, eventHandler CircuitBreakerEventHandler, logger *zap.Logger) *CircuitBreakerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreakerRegistry{
		breakers:     make(map[string]*CircuitBreaker),
		config:       config,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

func (r *CircuitBreakerRegistry) GetOrCreate(nodeType string) *CircuitBreaker {
	r.mu.RLock()
	if cb, ok := r.breakers[nodeType]; ok {
		r.mu.RUnlock()
		return cb
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[nodeType]; ok {
		return cb
	}
	cb := NewCircuitBreaker(nodeType, r.config, r.eventHandler, r.logger)
	r.breakers[nodeType] = cb
	return cb
}

func (r *CircuitBreakerRegistry) GetAllStates() map[string]CircuitState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[string]CircuitState, len(r.breakers))
	for id, cb := range r.breakers {
		states[id] = cb.GetState()
	}
	return states
}

func (r *CircuitBreakerRegistry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cb := range r.breakers {
		cb.Reset()
	}
}
