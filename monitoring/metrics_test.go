package monitoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulatePerLabelSet(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrCounter("predict_requests_total", map[string]string{"outcome": "ok"})
	mc.IncrCounter("predict_requests_total", map[string]string{"outcome": "ok"})
	mc.IncrCounter("predict_requests_total", map[string]string{"outcome": "missing_fields"})

	assert.Equal(t, 2.0, mc.CounterValue("predict_requests_total", map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, mc.CounterValue("predict_requests_total", map[string]string{"outcome": "missing_fields"}))
	assert.Equal(t, 0.0, mc.CounterValue("predict_requests_total", map[string]string{"outcome": "error"}))

	series, err := mc.GetMetric("predict_requests_total")
	require.NoError(t, err)
	assert.Len(t, series, 2)

	_, err = mc.GetMetric("nope")
	assert.Error(t, err)
}

func TestExportPrometheus(t *testing.T) {
	mc := NewMetricsCollector()
	mc.SetHelp("predict_duration_seconds", "Prediction latency")
	mc.RecordHistogram("predict_duration_seconds", 0.002, nil, []float64{0.001, 0.01})
	mc.RecordHistogram("predict_duration_seconds", 0.5, nil, []float64{0.001, 0.01})
	mc.IncrCounter("predict_cache_hits_total", nil)

	out := mc.ExportPrometheus()
	assert.Contains(t, out, "# HELP predict_duration_seconds Prediction latency\n")
	assert.Contains(t, out, "# TYPE predict_duration_seconds histogram\n")
	assert.Contains(t, out, `predict_duration_seconds_bucket{le="0.001"} 0`)
	assert.Contains(t, out, `predict_duration_seconds_bucket{le="0.01"} 1`)
	assert.Contains(t, out, `predict_duration_seconds_bucket{le="+Inf"} 2`)
	assert.Contains(t, out, "predict_duration_seconds_count 2\n")
	assert.Contains(t, out, "predict_cache_hits_total 1\n")
	assert.Contains(t, out, "go_goroutines ")
	assert.True(t, strings.Index(out, "go_goroutines") < strings.Index(out, "predict_cache_hits_total"), "series are sorted by name")
}

func TestNilCollectorIsNoop(t *testing.T) {
	var mc *MetricsCollector
	mc.IncrCounter("x", nil)
	mc.RecordHistogram("y", 1, nil, DefaultLatencyBuckets)
	assert.Equal(t, 0.0, mc.CounterValue("x", nil))
	assert.Empty(t, mc.ExportPrometheus())
}
