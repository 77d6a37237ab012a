package engine

import (
	"sync"
	"time"

	"github.com/nodeflow-run/nodeflow/node"
)

// RunStatus is the terminal or in-flight status of an execution or a
// single node within one.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// NodeExecution is the audit-trail record of one node's run within a
// workflow execution. It is informational only; the engine's own
// scheduling decisions are driven by RunResult, never by this record.
type NodeExecution struct {
	NodeID    string
	NodeType  string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Status    RunStatus
	Input     any
	Output    any
	Error     string
}

// ExecutionHistory is the append-only record of one workflow run.
type ExecutionHistory struct {
	ExecutionID string
	WorkflowID  string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Status      RunStatus
	Nodes       []*NodeExecution
	Error       string

	mu sync.RWMutex
}

func newExecutionHistory(executionID, workflowID string) *ExecutionHistory {
	return &ExecutionHistory{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		StartTime:   time.Now(),
		Status:      RunStatusRunning,
		Nodes:       make([]*NodeExecution, 0),
	}
}

func (h *ExecutionHistory) recordNodeStart(nodeID, nodeType string, input any) *NodeExecution {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := &NodeExecution{
		NodeID:    nodeID,
		NodeType:  nodeType,
		StartTime: time.Now(),
		Status:    RunStatusRunning,
		Input:     input,
	}
	h.Nodes = append(h.Nodes, rec)
	return rec
}

func (h *ExecutionHistory) recordNodeEnd(rec *NodeExecution, result *node.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec.EndTime = time.Now()
	rec.Duration = rec.EndTime.Sub(rec.StartTime)
	if result == nil {
		rec.Status = RunStatusFailed
		return
	}
	rec.Output = result.Output
	if result.Success {
		rec.Status = RunStatusCompleted
	} else {
		rec.Status = RunStatusFailed
		rec.Error = result.Error
	}
}

func (h *ExecutionHistory) complete(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.EndTime = time.Now()
	h.Duration = h.EndTime.Sub(h.StartTime)
	if err != nil {
		h.Status = RunStatusFailed
		h.Error = err.Error()
	} else {
		h.Status = RunStatusCompleted
	}
}

// NodeExecutions returns a copy of the recorded node executions.
func (h *ExecutionHistory) NodeExecutions() []*NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*NodeExecution, len(h.Nodes))
	copy(out, h.Nodes)
	return out
}

// HistoryStore keeps every ExecutionHistory produced by an Executor in
// memory, independent of the authoritative RunResult returned from
// Execute. It exists purely for post-hoc inspection and is never
// consulted while a run is in progress.
type HistoryStore struct {
	mu         sync.RWMutex
	histories  map[string]*ExecutionHistory
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{histories: make(map[string]*ExecutionHistory)}
}

func (s *HistoryStore) save(h *ExecutionHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[h.ExecutionID] = h
}

// Get retrieves a single execution's history by id.
func (s *HistoryStore) Get(executionID string) (*ExecutionHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[executionID]
	return h, ok
}

// ListByWorkflow returns every recorded execution of the given workflow id.
func (s *HistoryStore) ListByWorkflow(workflowID string) []*ExecutionHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ExecutionHistory
	for _, h := range s.histories {
		if h.WorkflowID == workflowID {
			out = append(out, h)
		}
	}
	return out
}

// ListByStatus returns every recorded execution with the given status.
func (s *HistoryStore) ListByStatus(status RunStatus) []*ExecutionHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ExecutionHistory
	for _, h := range s.histories {
		if h.Status == status {
			out = append(out, h)
		}
	}
	return out
}
