// Package historystore persists a non-authoritative audit trail of
// workflow runs and node executions. It never gates or feeds back into
// execution decisions; engine.RunResult remains the source of truth for
// a caller waiting on a run. This package only answers "what happened"
// after the fact.
package historystore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExecutionRecord is the gorm model for one workflow run.
type ExecutionRecord struct {
	ExecutionID string `gorm:"primaryKey;column:execution_id"`
	WorkflowID  string `gorm:"column:workflow_id;index"`
	Status      string `gorm:"column:status"`
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationMs  int64
	Error       string
}

func (ExecutionRecord) TableName() string { return "execution_records" }

// NodeExecutionRecord is the gorm model for one node's execution within
// a run.
type NodeExecutionRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ExecutionID string `gorm:"column:execution_id;index"`
	NodeID      string `gorm:"column:node_id"`
	NodeType    string `gorm:"column:node_type"`
	Status      string `gorm:"column:status"`
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationMs  int64
	Error       string
}

func (NodeExecutionRecord) TableName() string { return "node_execution_records" }

// Store persists execution history to a relational database via gorm.
// Callers own the *gorm.DB lifecycle (open/close, connection pool
// tuning); Store only issues queries against it.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New wraps db in a Store. AutoMigrate runs eagerly so a fresh database
// is ready to accept writes immediately. Use [NewMigrator] instead when
// an operator needs explicit up/down control over a shared database.
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("historystore: db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&ExecutionRecord{}, &NodeExecutionRecord{}); err != nil {
		return nil, fmt.Errorf("historystore: auto migrate: %w", err)
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "historystore"))}, nil
}

// SaveExecution upserts the run-level record.
func (s *Store) SaveExecution(ctx context.Context, rec *ExecutionRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("historystore: save execution %s: %w", rec.ExecutionID, err)
	}
	return nil
}

// SaveNodeExecutions bulk-inserts the per-node records for one run.
func (s *Store) SaveNodeExecutions(ctx context.Context, recs []NodeExecutionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&recs).Error; err != nil {
		return fmt.Errorf("historystore: save node executions: %w", err)
	}
	return nil
}

// GetExecution loads a single run by id.
func (s *Store) GetExecution(ctx context.Context, executionID string) (*ExecutionRecord, error) {
	var rec ExecutionRecord
	err := s.db.WithContext(ctx).First(&rec, "execution_id = ?", executionID).Error
	if err != nil {
		return nil, fmt.Errorf("historystore: get execution %s: %w", executionID, err)
	}
	return &rec, nil
}

// GetNodeExecutions loads every node record for a run, ordered by start
// time.
func (s *Store) GetNodeExecutions(ctx context.Context, executionID string) ([]NodeExecutionRecord, error) {
	var recs []NodeExecutionRecord
	err := s.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("started_at asc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("historystore: get node executions for %s: %w", executionID, err)
	}
	return recs, nil
}

// ListByWorkflow returns the most recent runs of a workflow, newest
// first, capped at limit.
func (s *Store) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []ExecutionRecord
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("started_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("historystore: list by workflow %s: %w", workflowID, err)
	}
	return recs, nil
}

// ListByStatus returns runs currently in the given status, newest
// first, capped at limit.
func (s *Store) ListByStatus(ctx context.Context, status string, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []ExecutionRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("started_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("historystore: list by status %s: %w", status, err)
	}
	return recs, nil
}

// FromHistory converts an in-memory engine.ExecutionHistory-shaped
// snapshot into gorm records ready for SaveExecution/SaveNodeExecutions.
// It takes plain fields rather than an *engine.ExecutionHistory so this
// package does not need to import engine.
func FromHistory(executionID, workflowID, status string, startedAt time.Time, endedAt *time.Time, runErr string, nodes []NodeSnapshot) (*ExecutionRecord, []NodeExecutionRecord) {
	var durationMs int64
	if endedAt != nil {
		durationMs = endedAt.Sub(startedAt).Milliseconds()
	}
	exec := &ExecutionRecord{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Status:      status,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		DurationMs:  durationMs,
		Error:       runErr,
	}
	nodeRecs := make([]NodeExecutionRecord, 0, len(nodes))
	for _, n := range nodes {
		var nodeDur int64
		if n.EndedAt != nil {
			nodeDur = n.EndedAt.Sub(n.StartedAt).Milliseconds()
		}
		nodeRecs = append(nodeRecs, NodeExecutionRecord{
			ExecutionID: executionID,
			NodeID:      n.NodeID,
			NodeType:    n.NodeType,
			Status:      n.Status,
			StartedAt:   n.StartedAt,
			EndedAt:     n.EndedAt,
			DurationMs:  nodeDur,
			Error:       n.Error,
		})
	}
	return exec, nodeRecs
}

// NodeSnapshot is the minimal per-node shape FromHistory needs, kept
// free of any engine import so callers can adapt engine.NodeExecution
// into it at the call site.
type NodeSnapshot struct {
	NodeID    string
	NodeType  string
	Status    string
	StartedAt time.Time
	EndedAt   *time.Time
	Error     string
}
