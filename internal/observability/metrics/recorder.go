// Package metrics provides the Prometheus collectors for the identifier
// allocation engine.
package metrics

// Recorder defines a minimal interface for recording metrics, so
// components can depend on an abstraction rather than on collectors.
type Recorder interface {
	// RecordOperation records an operation with its status ("success", "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	RecordError(operation, errorType string)
}

// NoOpRecorder discards everything. Used when metrics are disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(operation, status string)               {}
func (NoOpRecorder) RecordDuration(operation string, seconds float64)       {}
func (NoOpRecorder) RecordError(operation, errorType string)                {}
func (NoOpRecorder) RecordAllocation(conceptType, scopeType, status string) {}
func (NoOpRecorder) RecordCollision(conceptType string)                     {}
func (NoOpRecorder) RecordRetry(reason string)                              {}
