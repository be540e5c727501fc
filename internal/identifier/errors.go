package identifier

import (
	"fmt"

	"github.com/fieldarchive/unitlabel/internal/errors"
)

const componentIdentifier = "identifier"

// Kind classifies allocation failures.
type Kind string

const (
	// KindInvalidScope: bad scope or request input. Nothing was changed.
	KindInvalidScope Kind = "invalid_scope"
	// KindUnknownConceptType: the concept type key did not resolve. Nothing was changed.
	KindUnknownConceptType Kind = "unknown_concept_type"
	// KindAllocationFailure: no counter value could be obtained. Nothing was changed.
	KindAllocationFailure Kind = "allocation_failure"
	// KindPersistenceFailure: a counter value was consumed but the snapshot was not written.
	KindPersistenceFailure Kind = "persistence_failure"
	// KindLabelCollisionUnresolved: every candidate label was already registered.
	KindLabelCollisionUnresolved Kind = "label_collision_unresolved"
)

// Sentinels for errors.Is. Matching compares the Kind only.
var (
	ErrInvalidScope             = &AllocationError{Kind: KindInvalidScope}
	ErrUnknownConceptType       = &AllocationError{Kind: KindUnknownConceptType}
	ErrAllocationFailure        = &AllocationError{Kind: KindAllocationFailure}
	ErrPersistenceFailure       = &AllocationError{Kind: KindPersistenceFailure}
	ErrLabelCollisionUnresolved = &AllocationError{Kind: KindLabelCollisionUnresolved}
)

// AllocationError is returned by the allocation operations. Sequence is
// the counter value consumed before the failure, or 0 when none was.
type AllocationError struct {
	Kind     Kind
	Sequence int64
	Label    string // last candidate label, when one was rendered
	Err      error
}

func (e *AllocationError) Error() string {
	msg := string(e.Kind)
	if e.Sequence > 0 {
		msg = fmt.Sprintf("%s (sequence %d)", msg, e.Sequence)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// Is matches another AllocationError of the same Kind.
func (e *AllocationError) Is(target error) bool {
	t, ok := target.(*AllocationError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first AllocationError in err's chain, or "".
func KindOf(err error) Kind {
	var ae *AllocationError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// SequenceOf returns the consumed counter value carried by err, or 0.
func SequenceOf(err error) int64 {
	var ae *AllocationError
	if errors.As(err, &ae) {
		return ae.Sequence
	}
	return 0
}

// kindMeta maps kinds to the enhanced error category and priority used for
// logging and telemetry.
var kindMeta = map[Kind]struct {
	category errors.ErrorCategory
	priority string
}{
	KindInvalidScope:             {errors.CategoryValidation, errors.PriorityLow},
	KindUnknownConceptType:       {errors.CategoryNotFound, errors.PriorityLow},
	KindAllocationFailure:        {errors.CategoryAllocation, errors.PriorityHigh},
	KindPersistenceFailure:       {errors.CategoryPersistence, errors.PriorityCritical},
	KindLabelCollisionUnresolved: {errors.CategoryCollision, errors.PriorityHigh},
}

// newAllocationError wraps cause in an EnhancedError carrying the kind's
// category, then in an AllocationError. context is key/value pairs.
func newAllocationError(kind Kind, seq int64, cause error, context ...any) *AllocationError {
	if cause == nil {
		cause = errors.NewStd(string(kind))
	}

	meta := kindMeta[kind]
	builder := errors.New(cause).
		Component(componentIdentifier).
		Category(meta.category).
		Priority(meta.priority).
		Context("kind", string(kind))
	if seq > 0 {
		builder = builder.Context("sequence_number", seq)
	}
	for i := 0; i+1 < len(context); i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return &AllocationError{Kind: kind, Sequence: seq, Err: builder.Build()}
}

func invalidScope(format string, args ...any) *AllocationError {
	return newAllocationError(KindInvalidScope, 0, fmt.Errorf(format, args...))
}
