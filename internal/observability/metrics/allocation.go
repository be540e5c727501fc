package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetrics contains Prometheus metrics for identifier allocation.
type AllocationMetrics struct {
	allocationsTotal  *prometheus.CounterVec
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	counterRetries    *prometheus.CounterVec
	labelCollisions   *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewAllocationMetrics creates the collectors and registers them on registry.
func NewAllocationMetrics(registry prometheus.Registerer) (*AllocationMetrics, error) {
	m := &AllocationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AllocationMetrics) initMetrics() {
	m.allocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitlabel_allocations_total",
			Help: "Total number of identifier allocation requests",
		},
		[]string{"concept_type", "scope_type", "status"},
	)

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitlabel_operations_total",
			Help: "Total number of service operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unitlabel_allocation_duration_seconds",
			Help:    "Time taken by service operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.counterRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitlabel_counter_retries_total",
			Help: "Total number of counter store retries after transient errors",
		},
		[]string{"reason"},
	)

	m.labelCollisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitlabel_label_collisions_total",
			Help: "Counter values skipped because the label was already registered",
		},
		[]string{"concept_type"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitlabel_errors_total",
			Help: "Total number of failed operations by error kind",
		},
		[]string{"operation", "kind"},
	)

	m.collectors = []prometheus.Collector{
		m.allocationsTotal,
		m.operationsTotal,
		m.operationDuration,
		m.counterRetries,
		m.labelCollisions,
		m.errorsTotal,
	}
}

// Describe implements the Collector interface
func (m *AllocationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *AllocationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordAllocation records the outcome of one allocation request.
func (m *AllocationMetrics) RecordAllocation(conceptType, scopeType, status string) {
	m.allocationsTotal.WithLabelValues(conceptType, scopeType, status).Inc()
}

// RecordCollision records a counter value skipped because of a label collision.
func (m *AllocationMetrics) RecordCollision(conceptType string) {
	m.labelCollisions.WithLabelValues(conceptType).Inc()
}

// RecordRetry records a counter store retry.
func (m *AllocationMetrics) RecordRetry(reason string) {
	m.counterRetries.WithLabelValues(reason).Inc()
}

// RecordOperation implements Recorder.
func (m *AllocationMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *AllocationMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *AllocationMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}
