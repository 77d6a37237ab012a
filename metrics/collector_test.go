package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordsNodeCompletion(t *testing.T) {
	c := NewCollector("nodeflow_test_collector", nil)

	c.NodeCompleted("http", true, 50*time.Millisecond)
	c.NodeCompleted("http", false, 10*time.Millisecond)
	c.RecordRetry("http")
	c.RecordCacheHit("http")
	c.RecordCacheMiss("http")
	c.RecordWave(100*time.Millisecond, 3)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.nodeExecutionsTotal.WithLabelValues("http", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.nodeExecutionsTotal.WithLabelValues("http", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.nodeRetriesTotal.WithLabelValues("http")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheHitsTotal.WithLabelValues("http")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheMissesTotal.WithLabelValues("http")))
}
