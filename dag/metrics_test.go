package dag

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestPrometheusMetrics_IncrementFanout(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.IncrementFanout("run-1", "node-a", 3)
	pm.IncrementFanout("run-1", "node-a", 2)

	assert.Equal(t, float64(5), counterValue(t, pm.fanout.WithLabelValues("run-1", "node-a")))
}

func TestPrometheusMetrics_DisableStopsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)
	pm.Disable()

	pm.IncrementMemoHits("run-1", "node-a")
	assert.Equal(t, float64(0), counterValue(t, pm.memoHits.WithLabelValues("run-1", "node-a")))

	pm.Enable()
	pm.IncrementMemoHits("run-1", "node-a")
	assert.Equal(t, float64(1), counterValue(t, pm.memoHits.WithLabelValues("run-1", "node-a")))
}

func TestPrometheusMetrics_RecordStepLatencyDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)
	assert.NotPanics(t, func() {
		pm.RecordStepLatency("run-1", "node-a", 42*time.Millisecond, "success")
	})
}

func TestPrometheusMetrics_IncrementTraversalLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)
	pm.IncrementTraversalLimit("run-1", "max_steps")
	assert.Equal(t, float64(1), counterValue(t, pm.traversalLimits.WithLabelValues("run-1", "max_steps")))
}
