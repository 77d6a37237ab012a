package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow-run/nodeflow/cache"
	"github.com/nodeflow-run/nodeflow/flowctx"
	"github.com/nodeflow-run/nodeflow/node"
)

// A cache hit must survive a serializing backend, not just the in-process
// MemoryStore: RedisStore JSON-decodes into a map[string]any on Get, so the
// cached node.Result has to be reconstructed from that shape.
func TestScenario_CacheHitBypassesExecutor_RedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisStore(client, "nodeflow:test:", nil)

	var calls int32
	counted := passthroughDef(t, "counted", func(_ context.Context, _ any, _ *flowctx.NodeContext) (*node.Result, error) {
		atomic.AddInt32(&calls, 1)
		return &node.Result{Success: true, Output: map[string]any{"n": 1.0}}, nil
	})
	reg := newTestRegistry(t, counted)

	run := func() *RunResult {
		wf := Workflow{ID: "wf-redis-cache", Nodes: []NodeSpec{{ID: "a", Type: "counted", Config: map[string]any{"k": "v"}}}}
		exec := NewExecutor(reg, store, nil, nil)
		result, err := exec.Execute(context.Background(), wf, nil, Config{Cache: CacheConfig{Enabled: true, TTL: time.Minute}})
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "success", second.Statuses["a"])
	assert.Equal(t, first.Results["a"].Output, second.Results["a"].Output)
}
