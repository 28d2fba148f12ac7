package dag

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exposes traversal execution metrics, all namespaced
// with "intentrouter_":
//
//  1. inflight_nodes (gauge): nodes currently executing across in-flight
//     traversals (no run_id label).
//  2. step_latency_ms (histogram): node execution duration, labeled by
//     run_id, node_id, status (success/error).
//  3. fanout_total (counter): edges enqueued per step, labeled by
//     run_id, node_id.
//  4. memo_hits_total (counter): traversal steps skipped via the memo
//     cache, labeled by run_id, node_id.
//  5. merge_conflicts_total (counter): ContextConflictError occurrences,
//     labeled by run_id, conflict_type.
//  6. traversal_limit_events_total (counter): MaxSteps/MaxFanout
//     rejections, labeled by run_id, kind.
type PrometheusMetrics struct {
	inflightNodes   prometheus.Gauge
	stepLatency     *prometheus.HistogramVec
	fanout          *prometheus.CounterVec
	memoHits        *prometheus.CounterVec
	mergeConflicts  *prometheus.CounterVec
	traversalLimits *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers and returns a metrics collector against
// registry. A nil registry uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.inflightNodes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "intentrouter",
		Name:      "inflight_nodes",
		Help:      "Current number of nodes executing across in-flight traversals",
	})

	pm.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intentrouter",
		Name:      "step_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"run_id", "node_id", "status"})

	pm.fanout = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intentrouter",
		Name:      "fanout_total",
		Help:      "Cumulative count of edges enqueued by node executions",
	}, []string{"run_id", "node_id"})

	pm.memoHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intentrouter",
		Name:      "memo_hits_total",
		Help:      "Traversal steps skipped because of an identical memo cache entry",
	}, []string{"run_id", "node_id"})

	pm.mergeConflicts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intentrouter",
		Name:      "merge_conflicts_total",
		Help:      "Context patch merge conflicts detected during traversal",
	}, []string{"run_id", "conflict_type"})

	pm.traversalLimits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intentrouter",
		Name:      "traversal_limit_events_total",
		Help:      "Traversals rejected for exceeding a configured limit",
	}, []string{"run_id", "kind"})

	return pm
}

// RecordStepLatency observes a node's execution duration.
func (pm *PrometheusMetrics) RecordStepLatency(runID, nodeID string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.stepLatency.WithLabelValues(runID, nodeID, status).Observe(float64(latency.Milliseconds()))
}

// UpdateInflightNodes sets the current in-flight node count.
func (pm *PrometheusMetrics) UpdateInflightNodes(count int) {
	if !pm.isEnabled() {
		return
	}
	pm.inflightNodes.Set(float64(count))
}

// IncrementFanout adds n to the fan-out counter for nodeID.
func (pm *PrometheusMetrics) IncrementFanout(runID, nodeID string, n int) {
	if !pm.isEnabled() {
		return
	}
	pm.fanout.WithLabelValues(runID, nodeID).Add(float64(n))
}

// IncrementMemoHits increments the memo-hit counter for nodeID.
func (pm *PrometheusMetrics) IncrementMemoHits(runID, nodeID string) {
	if !pm.isEnabled() {
		return
	}
	pm.memoHits.WithLabelValues(runID, nodeID).Inc()
}

// IncrementMergeConflicts increments the merge-conflict counter.
func (pm *PrometheusMetrics) IncrementMergeConflicts(runID, conflictType string) {
	if !pm.isEnabled() {
		return
	}
	pm.mergeConflicts.WithLabelValues(runID, conflictType).Inc()
}

// IncrementTraversalLimit increments the limit-rejection counter.
func (pm *PrometheusMetrics) IncrementTraversalLimit(runID, kind string) {
	if !pm.isEnabled() {
		return
	}
	pm.traversalLimits.WithLabelValues(runID, kind).Inc()
}

// Disable stops metric recording, useful in tests that share a registry.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
