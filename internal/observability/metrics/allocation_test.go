package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*AllocationMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := NewAllocationMetrics(registry)
	require.NoError(t, err)
	return m, registry
}

func TestAllocationMetrics_Record(t *testing.T) {
	t.Parallel()

	m, _ := newTestMetrics(t)

	m.RecordAllocation("us", "spatial_unit", StatusSuccess)
	m.RecordAllocation("us", "spatial_unit", StatusSuccess)
	m.RecordAllocation("us", "recording_unit", StatusError)
	m.RecordCollision("us")
	m.RecordRetry("database_locked")
	m.RecordOperation(OpPreview, StatusSuccess)
	m.RecordError(OpAllocate, "persistence_failure")

	assert.InDelta(t, 2, testutil.ToFloat64(m.allocationsTotal.WithLabelValues("us", "spatial_unit", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.allocationsTotal.WithLabelValues("us", "recording_unit", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.labelCollisions.WithLabelValues("us")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.counterRetries.WithLabelValues("database_locked")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpPreview, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpAllocate, "persistence_failure")), 0)
}

func TestAllocationMetrics_Duration(t *testing.T) {
	t.Parallel()

	m, registry := newTestMetrics(t)
	m.RecordDuration(OpAllocate, 0.004)
	m.RecordDuration(OpAllocate, 0.020)

	count, err := testutil.GatherAndCount(registry, "unitlabel_allocation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	observer, ok := m.operationDuration.WithLabelValues(OpAllocate).(prometheus.Metric)
	require.True(t, ok)
	metric := &dto.Metric{}
	require.NoError(t, observer.Write(metric))
	require.NotNil(t, metric.Histogram)
	assert.Equal(t, uint64(2), metric.Histogram.GetSampleCount())
	assert.InDelta(t, 0.024, metric.Histogram.GetSampleSum(), 1e-9)

	problems, err := testutil.GatherAndLint(registry)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestAllocationMetrics_DoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewAllocationMetrics(registry)
	require.NoError(t, err)

	_, err = NewAllocationMetrics(registry)
	require.Error(t, err)
}

func TestNoOpRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NoOpRecorder{}
	r.RecordOperation(OpAllocate, StatusSuccess)
	r.RecordDuration(OpAllocate, 1)
	r.RecordError(OpAllocate, "x")
}
