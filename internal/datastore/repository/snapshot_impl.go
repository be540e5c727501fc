package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	enhancederrors "github.com/fieldarchive/unitlabel/internal/errors"
)

// snapshotRepository implements SnapshotRepository.
type snapshotRepository struct {
	db         *gorm.DB
	table      string
	labelTable string
}

// NewSnapshotRepository creates a SnapshotRepository on prefixed tables.
func NewSnapshotRepository(db *gorm.DB, tablePrefix string) SnapshotRepository {
	return &snapshotRepository{
		db:         db,
		table:      tablePrefix + entities.IdentifierSnapshot{}.TableName(),
		labelTable: tablePrefix + entities.LabelIndexEntry{}.TableName(),
	}
}

// Save inserts the snapshot and optional label entry atomically.
func (r *snapshotRepository) Save(ctx context.Context, snapshot *entities.IdentifierSnapshot, label *entities.LabelIndexEntry) error {
	if snapshot == nil || snapshot.RecordingUnitID == "" {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(r.table).Create(snapshot).Error; err != nil {
			if datastore.IsUniqueViolation(err) {
				return datastore.ConflictError(ErrSnapshotExists, "save_snapshot",
					"recording_unit_id", snapshot.RecordingUnitID)
			}
			return err
		}
		if label == nil {
			return nil
		}
		if err := tx.Table(r.labelTable).Create(label).Error; err != nil {
			if datastore.IsUniqueViolation(err) {
				return datastore.ConflictError(ErrLabelExists, "save_snapshot",
					"label", label.LabelText, "scope_context", label.ScopeContext)
			}
			return err
		}
		return nil
	})
	if err == nil || errors.Is(err, ErrSnapshotExists) || errors.Is(err, ErrLabelExists) {
		return err
	}
	return datastore.DBError(err, "save_snapshot", enhancederrors.PriorityCritical,
		"table", r.table, "recording_unit_id", snapshot.RecordingUnitID)
}

// Get retrieves a snapshot by recording unit id.
func (r *snapshotRepository) Get(ctx context.Context, recordingUnitID string) (*entities.IdentifierSnapshot, error) {
	var snapshot entities.IdentifierSnapshot
	err := r.db.WithContext(ctx).Table(r.table).
		Where("recording_unit_id = ?", recordingUnitID).
		Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, datastore.DBError(err, "get_snapshot", enhancederrors.PriorityMedium,
			"recording_unit_id", recordingUnitID)
	}
	return &snapshot, nil
}

// Overwrite upserts every column except the primary key and created_at.
func (r *snapshotRepository) Overwrite(ctx context.Context, snapshot *entities.IdentifierSnapshot) error {
	if snapshot == nil || snapshot.RecordingUnitID == "" {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Table(r.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recording_unit_id"}},
			UpdateAll: true,
		}).
		Create(snapshot).Error
	if err != nil {
		return datastore.DBError(err, "overwrite_snapshot", enhancederrors.PriorityHigh,
			"recording_unit_id", snapshot.RecordingUnitID)
	}
	return nil
}

// ListByScope returns snapshots for one scope.
func (r *snapshotRepository) ListByScope(ctx context.Context, scopeType, scopeID string) ([]*entities.IdentifierSnapshot, error) {
	var snapshots []*entities.IdentifierSnapshot
	err := r.db.WithContext(ctx).Table(r.table).
		Where("scope_type = ? AND scope_id = ?", scopeType, scopeID).
		Order("sequence_number ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, datastore.DBError(err, "list_snapshots", enhancederrors.PriorityMedium,
			"scope_type", scopeType, "scope_id", scopeID)
	}
	return snapshots, nil
}
