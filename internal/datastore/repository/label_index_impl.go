package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	enhancederrors "github.com/fieldarchive/unitlabel/internal/errors"
)

// labelIndexRepository implements LabelIndexRepository.
type labelIndexRepository struct {
	db    *gorm.DB
	table string
}

// NewLabelIndexRepository creates a LabelIndexRepository on tablePrefix + "label_index_entries".
func NewLabelIndexRepository(db *gorm.DB, tablePrefix string) LabelIndexRepository {
	return &labelIndexRepository{
		db:    db,
		table: tablePrefix + entities.LabelIndexEntry{}.TableName(),
	}
}

func (r *labelIndexRepository) Exists(ctx context.Context, conceptTypeID, scopeContext, label string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(r.table).
		Where("concept_type_id = ? AND scope_context = ? AND label_text = ?", conceptTypeID, scopeContext, label).
		Count(&count).Error
	if err != nil {
		return false, datastore.DBError(err, "label_exists", enhancederrors.PriorityMedium,
			"concept_type_id", conceptTypeID, "scope_context", scopeContext)
	}
	return count > 0, nil
}

func (r *labelIndexRepository) Register(ctx context.Context, entry *entities.LabelIndexEntry) error {
	if entry == nil || entry.ConceptTypeID == "" || entry.ScopeContext == "" || entry.LabelText == "" {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Table(r.table).Create(entry).Error
	if datastore.IsUniqueViolation(err) {
		return datastore.ConflictError(ErrLabelExists, "register_label",
			"label", entry.LabelText, "scope_context", entry.ScopeContext)
	}
	if err != nil {
		return datastore.DBError(err, "register_label", enhancederrors.PriorityMedium,
			"concept_type_id", entry.ConceptTypeID, "scope_context", entry.ScopeContext)
	}
	return nil
}

func (r *labelIndexRepository) List(ctx context.Context, conceptTypeID, scopeContext string) ([]*entities.LabelIndexEntry, error) {
	query := r.db.WithContext(ctx).Table(r.table).Where("concept_type_id = ?", conceptTypeID)
	if scopeContext != "" {
		query = query.Where("scope_context = ?", scopeContext)
	}

	var entries []*entities.LabelIndexEntry
	if err := query.Order("scope_context ASC, label_text ASC").Find(&entries).Error; err != nil {
		return nil, datastore.DBError(err, "list_labels", enhancederrors.PriorityMedium,
			"concept_type_id", conceptTypeID)
	}
	return entries, nil
}
