package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	enhancederrors "github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

var counterKeyColumns = []clause.Column{
	{Name: "scope_type"},
	{Name: "scope_id"},
	{Name: "concept_type_id"},
}

// counterRepository implements CounterRepository.
type counterRepository struct {
	db       *gorm.DB
	table    string
	retry    RetryConfig
	recorder RetryRecorder
	log      logger.Logger
}

// CounterOption configures a counter repository.
type CounterOption func(*counterRepository)

// WithRetryConfig sets the transient error retry budget.
func WithRetryConfig(cfg RetryConfig) CounterOption {
	return func(r *counterRepository) {
		r.retry = cfg
	}
}

// WithRetryRecorder reports each retry, typically to metrics.
func WithRetryRecorder(rec RetryRecorder) CounterOption {
	return func(r *counterRepository) {
		r.recorder = rec
	}
}

// WithCounterLogger sets the logger used for retry diagnostics.
func WithCounterLogger(log logger.Logger) CounterOption {
	return func(r *counterRepository) {
		r.log = log
	}
}

// NewCounterRepository creates a CounterRepository on tablePrefix + "counter_records".
func NewCounterRepository(db *gorm.DB, tablePrefix string, opts ...CounterOption) CounterRepository {
	r := &counterRepository{
		db:    db,
		table: tablePrefix + entities.CounterRecord{}.TableName(),
		retry: DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (k CounterKey) validate() error {
	if k.ScopeType == "" || k.ScopeID == "" || k.ConceptTypeID == "" {
		return enhancederrors.New(ErrInvalidInput).
			Component("repository").
			Category(enhancederrors.CategoryValidation).
			Context("scope_type", k.ScopeType).
			Context("scope_id", k.ScopeID).
			Context("concept_type_id", k.ConceptTypeID).
			Build()
	}
	return nil
}

func (r *counterRepository) whereKey(tx *gorm.DB, key CounterKey) *gorm.DB {
	return tx.Table(r.table).
		Where("scope_type = ? AND scope_id = ? AND concept_type_id = ?", key.ScopeType, key.ScopeID, key.ConceptTypeID)
}

// NextValue performs the upsert-and-increment and reads the row back in one transaction.
func (r *counterRepository) NextValue(ctx context.Context, key CounterKey) (*entities.CounterRecord, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	var record entities.CounterRecord
	err := withRetry(ctx, r.retry, r.recorder, r.log, "next_value", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seed := entities.CounterRecord{
				ScopeType:     key.ScopeType,
				ScopeID:       key.ScopeID,
				ConceptTypeID: key.ConceptTypeID,
				LastValue:     1,
			}
			// The right-hand side is table qualified so PostgreSQL does not
			// read it as the EXCLUDED pseudo-row.
			err := tx.Table(r.table).Clauses(clause.OnConflict{
				Columns: counterKeyColumns,
				DoUpdates: clause.Assignments(map[string]any{
					"last_value": gorm.Expr("? + 1", clause.Column{Table: r.table, Name: "last_value"}),
					"updated_at": tx.NowFunc(),
				}),
			}).Create(&seed).Error
			if err != nil {
				return err
			}
			return r.whereKey(tx, key).Take(&record).Error
		})
	})
	if err != nil {
		return nil, r.wrapError(err, "next_value", key)
	}
	return &record, nil
}

// Get reads the counter row for key.
func (r *counterRepository) Get(ctx context.Context, key CounterKey) (*entities.CounterRecord, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	var record entities.CounterRecord
	err := r.whereKey(r.db.WithContext(ctx), key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCounterNotFound
	}
	if err != nil {
		return nil, r.wrapError(err, "get_counter", key)
	}
	return &record, nil
}

// SetFormatLength upserts the padding override without touching last_value.
func (r *counterRepository) SetFormatLength(ctx context.Context, key CounterKey, length int) (*entities.CounterRecord, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if length < 1 {
		return nil, enhancederrors.New(ErrInvalidInput).
			Component("repository").
			Category(enhancederrors.CategoryValidation).
			Context("format_length", length).
			Build()
	}

	var record entities.CounterRecord
	err := withRetry(ctx, r.retry, r.recorder, r.log, "set_format_length", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seed := entities.CounterRecord{
				ScopeType:     key.ScopeType,
				ScopeID:       key.ScopeID,
				ConceptTypeID: key.ConceptTypeID,
				FormatLength:  &length,
			}
			err := tx.Table(r.table).Clauses(clause.OnConflict{
				Columns: counterKeyColumns,
				DoUpdates: clause.Assignments(map[string]any{
					"format_length": length,
					"updated_at":    tx.NowFunc(),
				}),
			}).Create(&seed).Error
			if err != nil {
				return err
			}
			return r.whereKey(tx, key).Take(&record).Error
		})
	})
	if err != nil {
		return nil, r.wrapError(err, "set_format_length", key)
	}
	return &record, nil
}

// List returns counters matching filter.
func (r *counterRepository) List(ctx context.Context, filter CounterFilter) ([]*entities.CounterRecord, error) {
	query := r.db.WithContext(ctx).Table(r.table)
	if filter.ScopeType != "" {
		query = query.Where("scope_type = ?", filter.ScopeType)
	}
	if filter.ScopeID != "" {
		query = query.Where("scope_id = ?", filter.ScopeID)
	}
	if filter.ConceptTypeID != "" {
		query = query.Where("concept_type_id = ?", filter.ConceptTypeID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []*entities.CounterRecord
	err := query.Order("scope_type ASC, scope_id ASC, concept_type_id ASC").Find(&records).Error
	if err != nil {
		return nil, datastore.DBError(err, "list_counters", enhancederrors.PriorityMedium)
	}
	return records, nil
}

func (r *counterRepository) wrapError(err error, operation string, key CounterKey) error {
	// Retry exhaustion and context errors are already descriptive.
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return datastore.DBError(err, operation, enhancederrors.PriorityHigh,
		"table", r.table,
		"scope_type", key.ScopeType,
		"scope_id", key.ScopeID,
		"concept_type_id", key.ConceptTypeID)
}
