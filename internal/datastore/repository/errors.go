package repository

import "github.com/fieldarchive/unitlabel/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrCounterNotFound indicates no counter row exists for the identity.
	ErrCounterNotFound = errors.NewStd("counter not found")

	// ErrSnapshotNotFound indicates no snapshot exists for the recording unit.
	ErrSnapshotNotFound = errors.NewStd("identifier snapshot not found")

	// ErrSnapshotExists indicates the recording unit already has a snapshot.
	ErrSnapshotExists = errors.NewStd("identifier snapshot already exists")

	// ErrLabelExists indicates the label is already registered for the
	// concept type and scope context.
	ErrLabelExists = errors.NewStd("label already registered")

	// ErrStoreUnavailable indicates the counter store kept failing with
	// transient errors until the retry budget ran out.
	ErrStoreUnavailable = errors.NewStd("counter store unavailable")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)
