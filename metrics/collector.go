// Package metrics exposes prometheus counters and histograms for node
// execution, retries, cache traffic, and wave duration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector implements engine.MetricsRecorder: node completions, retries,
// cache hits and misses, and wave duration and size all arrive through
// that interface's methods.
type Collector struct {
	nodeExecutionsTotal  *prometheus.CounterVec
	nodeExecutionSeconds *prometheus.HistogramVec
	nodeRetriesTotal     *prometheus.CounterVec
	cacheHitsTotal       *prometheus.CounterVec
	cacheMissesTotal     *prometheus.CounterVec
	waveSeconds          prometheus.Histogram
	waveSize             prometheus.Histogram

	logger *zap.Logger
}

// NewCollector registers every metric under namespace and returns a ready
// collector. Call it once per process; promauto panics on duplicate
// registration if called twice with the same namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.nodeExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_executions_total",
		Help:      "Total number of node executions by type and outcome.",
	}, []string{"node_type", "status"})

	c.nodeExecutionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "node_execution_duration_seconds",
		Help:      "Node execution duration in seconds, including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"node_type"})

	c.nodeRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_retries_total",
		Help:      "Total number of retry attempts by node type.",
	}, []string{"node_type"})

	c.cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_cache_hits_total",
		Help:      "Total number of node result cache hits.",
	}, []string{"node_type"})

	c.cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_cache_misses_total",
		Help:      "Total number of node result cache misses.",
	}, []string{"node_type"})

	c.waveSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wave_duration_seconds",
		Help:      "Duration of a single execution wave.",
		Buckets:   prometheus.DefBuckets,
	})

	c.waveSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wave_size_nodes",
		Help:      "Number of nodes scheduled in a single wave.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})

	return c
}

// NodeStarted is a no-op counter placeholder. The total is only known
// once the outcome is available, so NodeCompleted does the counting.
func (c *Collector) NodeStarted(nodeType string) {}

// NodeCompleted implements engine.MetricsRecorder.
func (c *Collector) NodeCompleted(nodeType string, success bool, duration time.Duration) {
	status := "failed"
	if success {
		status = "success"
	}
	c.nodeExecutionsTotal.WithLabelValues(nodeType, status).Inc()
	c.nodeExecutionSeconds.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt for nodeType.
func (c *Collector) RecordRetry(nodeType string) {
	c.nodeRetriesTotal.WithLabelValues(nodeType).Inc()
}

// RecordCacheHit records a cache hit for nodeType.
func (c *Collector) RecordCacheHit(nodeType string) {
	c.cacheHitsTotal.WithLabelValues(nodeType).Inc()
}

// RecordCacheMiss records a cache miss for nodeType.
func (c *Collector) RecordCacheMiss(nodeType string) {
	c.cacheMissesTotal.WithLabelValues(nodeType).Inc()
}

// RecordWave records one wave's duration and node count.
func (c *Collector) RecordWave(duration time.Duration, size int) {
	c.waveSeconds.Observe(duration.Seconds())
	c.waveSize.Observe(float64(size))
}
