package repository

import (
	"context"

	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
)

// LabelIndexRepository provides access to the label_index_entries table.
type LabelIndexRepository interface {
	// Exists reports whether label is registered for the concept type in
	// the scope context. Comparison is exact.
	Exists(ctx context.Context, conceptTypeID, scopeContext, label string) (bool, error)

	// Register adds a label. Returns ErrLabelExists on duplicates.
	Register(ctx context.Context, entry *entities.LabelIndexEntry) error

	// List returns the registered labels of one concept type in one scope
	// context, ordered by label text. An empty scopeContext lists all
	// contexts.
	List(ctx context.Context, conceptTypeID, scopeContext string) ([]*entities.LabelIndexEntry, error)
}
