package historystore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{Conn: mockDB})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

func newStoreWithoutMigration(gormDB *gorm.DB) *Store {
	return &Store{db: gormDB, logger: zap.NewNop()}
}

func TestStore_GetExecution(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()
	s := newStoreWithoutMigration(gormDB)

	startedAt := time.Now()
	rows := sqlmock.NewRows([]string{"execution_id", "workflow_id", "status", "started_at", "ended_at", "duration_ms", "error"}).
		AddRow("exec-1", "wf-1", "completed", startedAt, nil, 42, "")

	mock.ExpectQuery(`SELECT \* FROM "execution_records" WHERE execution_id = \$1`).
		WithArgs("exec-1").
		WillReturnRows(rows)

	rec, err := s.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", rec.WorkflowID)
	assert.Equal(t, "completed", rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveNodeExecutions(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()
	s := newStoreWithoutMigration(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "node_execution_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectCommit()

	now := time.Now()
	recs := []NodeExecutionRecord{
		{ExecutionID: "exec-1", NodeID: "a", NodeType: "http", Status: "success", StartedAt: now},
		{ExecutionID: "exec-1", NodeID: "b", NodeType: "http", Status: "success", StartedAt: now},
	}
	err := s.SaveNodeExecutions(context.Background(), recs)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveNodeExecutions_Empty(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()
	s := newStoreWithoutMigration(gormDB)

	err := s.SaveNodeExecutions(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFromHistory(t *testing.T) {
	start := time.Now()
	end := start.Add(2 * time.Second)
	nodeEnd := start.Add(time.Second)

	exec, nodes := FromHistory("exec-1", "wf-1", "completed", start, &end, "", []NodeSnapshot{
		{NodeID: "a", NodeType: "http", Status: "success", StartedAt: start, EndedAt: &nodeEnd},
	})

	assert.Equal(t, "exec-1", exec.ExecutionID)
	assert.Equal(t, int64(2000), exec.DurationMs)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].NodeID)
	assert.Equal(t, int64(1000), nodes[0].DurationMs)
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
