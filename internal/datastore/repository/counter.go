package repository

import (
	"context"

	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
)

// CounterKey identifies one independent numbering sequence.
type CounterKey struct {
	ScopeType     string
	ScopeID       string
	ConceptTypeID string
}

// CounterFilter narrows ListCounters. Empty fields match everything.
type CounterFilter struct {
	ScopeType     string
	ScopeID       string
	ConceptTypeID string
	Limit         int
}

// CounterRepository provides access to the counter_records table.
// Counter rows are never deleted; there is deliberately no Delete method.
type CounterRepository interface {
	// NextValue atomically increments the counter for key and returns the
	// updated row; LastValue is the value issued to the caller. The first
	// call for an unseen key creates the row and returns LastValue 1.
	// Transient store errors are retried with linear backoff; when the
	// budget runs out the error wraps ErrStoreUnavailable.
	NextValue(ctx context.Context, key CounterKey) (*entities.CounterRecord, error)

	// Get reads the counter row without changing it.
	// Returns ErrCounterNotFound if the key was never used.
	Get(ctx context.Context, key CounterKey) (*entities.CounterRecord, error)

	// SetFormatLength stores a padding override for key. A missing row is
	// created with LastValue 0 so the next allocation still returns 1.
	SetFormatLength(ctx context.Context, key CounterKey, length int) (*entities.CounterRecord, error)

	// List returns counter rows ordered by scope and concept type.
	List(ctx context.Context, filter CounterFilter) ([]*entities.CounterRecord, error)
}
