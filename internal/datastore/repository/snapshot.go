package repository

import (
	"context"

	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
)

// SnapshotRepository provides access to the identifier_snapshots table.
type SnapshotRepository interface {
	// Save inserts a new snapshot. When label is non-nil the label index
	// entry is inserted in the same transaction, so either both rows exist
	// or neither does. Returns ErrSnapshotExists if the recording unit is
	// already numbered and ErrLabelExists if the label is taken.
	Save(ctx context.Context, snapshot *entities.IdentifierSnapshot, label *entities.LabelIndexEntry) error

	// Get retrieves the snapshot of a recording unit.
	// Returns ErrSnapshotNotFound if not found.
	Get(ctx context.Context, recordingUnitID string) (*entities.IdentifierSnapshot, error)

	// Overwrite replaces the snapshot wholesale, inserting it if absent.
	// Counters and the label index are not consulted.
	Overwrite(ctx context.Context, snapshot *entities.IdentifierSnapshot) error

	// ListByScope returns the snapshots numbered in one scope, ordered by
	// sequence number.
	ListByScope(ctx context.Context, scopeType, scopeID string) ([]*entities.IdentifierSnapshot, error)
}
