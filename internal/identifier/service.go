// Package identifier allocates human-readable identifiers for recording
// units: it numbers each unit from a durable counter scoped to its parent,
// renders the label and records the inputs that produced it.
package identifier

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldarchive/unitlabel/internal/concept"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
	"github.com/fieldarchive/unitlabel/internal/observability/metrics"
)

// Metrics receives allocation measurements.
type Metrics interface {
	metrics.Recorder
	RecordAllocation(conceptType, scopeType, status string)
	RecordCollision(conceptType string)
}

// Config holds the labelling rules.
type Config struct {
	Identifiers      conf.IdentifierSettings
	CollisionRetries int // re-allocations allowed when a label is already registered
}

// ConfigFromSettings extracts the service configuration.
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		Identifiers:      settings.Identifiers,
		CollisionRetries: settings.Allocation.CollisionRetries,
	}
}

// Dependencies are the stores and resolver the service works on.
type Dependencies struct {
	Counters  repository.CounterRepository
	Snapshots repository.SnapshotRepository
	Labels    repository.LabelIndexRepository
	Concepts  concept.Resolver
}

// Service is the recording unit identifier service. It holds no locks;
// concurrent allocations are serialized only by the counter store.
type Service struct {
	counters  repository.CounterRepository
	snapshots repository.SnapshotRepository
	labels    repository.LabelIndexRepository
	concepts  concept.Resolver

	cfg       Config
	formatter Formatter
	log       logger.Logger
	metrics   Metrics
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIDGenerator replaces the UUID generator for recording unit ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates the service.
func NewService(deps Dependencies, cfg Config, opts ...Option) *Service {
	if cfg.Identifiers.Separator == "" {
		cfg.Identifiers.Separator = conf.DefaultSeparator
	}
	if cfg.CollisionRetries < 0 {
		cfg.CollisionRetries = 0
	}

	s := &Service{
		counters:  deps.Counters,
		snapshots: deps.Snapshots,
		labels:    deps.Labels,
		concepts:  deps.Concepts,
		cfg:       cfg,
		formatter: NewFormatter(cfg.Identifiers.DefaultPadLength),
		log:       logger.NewSlogLogger(nil, logger.LogLevelInfo, nil),
		metrics:   metrics.NoOpRecorder{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllocateRequest asks for a new identifier.
type AllocateRequest struct {
	Scope          ScopeDescriptor `json:"scope" yaml:"scope"`
	ConceptTypeKey string          `json:"concept_type" yaml:"concept_type"`

	// FormatLength overrides the padding for this allocation only.
	FormatLength *int `json:"format_length,omitempty" yaml:"format_length,omitempty"`
	// RecordingUnitID is generated when empty.
	RecordingUnitID string `json:"recording_unit_id,omitempty" yaml:"recording_unit_id,omitempty"`
	// LegacyLabel registers a manually entered identifier instead of rendering one.
	LegacyLabel string `json:"legacy_label,omitempty" yaml:"legacy_label,omitempty"`

	SpatialUnitSequenceNumber *int64  `json:"spatial_unit_sequence_number,omitempty" yaml:"spatial_unit_sequence_number,omitempty"`
	ActionUnitIdentifierText  *string `json:"action_unit_identifier_text,omitempty" yaml:"action_unit_identifier_text,omitempty"`
}

// allocationPlan is everything resolved before the counter is touched.
type allocationPlan struct {
	scope   Scope
	concept *concept.ConceptType
	parent  *entities.IdentifierSnapshot // nil for root scopes
	key     repository.CounterKey
	rule    conf.ScopeRule
}

// plan validates the request and resolves scope, parent and concept type.
// It never changes stored state.
func (s *Service) plan(ctx context.Context, req *AllocateRequest) (*allocationPlan, error) {
	scope, err := req.Scope.Resolve()
	if err != nil {
		return nil, err
	}
	if req.LegacyLabel != "" {
		req.LegacyLabel = strings.TrimSpace(req.LegacyLabel)
		if req.LegacyLabel == "" {
			return nil, invalidScope("legacy label must not be blank")
		}
	}
	if req.FormatLength != nil {
		if err := validatePadLength(*req.FormatLength); err != nil {
			return nil, err
		}
	}

	p := &allocationPlan{scope: scope}

	if nested, ok := scope.(NestedScope); ok {
		parent, err := s.snapshots.Get(ctx, nested.ParentRecordingUnitID)
		switch {
		case errors.Is(err, repository.ErrSnapshotNotFound):
			return nil, newAllocationError(KindInvalidScope, 0, err,
				"parent_recording_unit_id", nested.ParentRecordingUnitID)
		case err != nil:
			return nil, newAllocationError(KindAllocationFailure, 0, err,
				"parent_recording_unit_id", nested.ParentRecordingUnitID)
		}
		p.parent = parent
	}

	ct, err := s.resolveConcept(ctx, req.ConceptTypeKey)
	if err != nil {
		return nil, err
	}
	p.concept = ct

	p.key = repository.CounterKey{
		ScopeType:     scope.Type(),
		ScopeID:       scope.ID(),
		ConceptTypeID: ct.ID,
	}
	p.rule, _ = s.cfg.Identifiers.ScopeRuleFor(scope.Type(), scope.ID())
	return p, nil
}

func validatePadLength(n int) error {
	if n < conf.MinPadLength || n > conf.MaxPadLength {
		return invalidScope("format length %d outside %d..%d", n, conf.MinPadLength, conf.MaxPadLength)
	}
	return nil
}

// padLength applies the precedence: request override, counter override,
// scope rule, configured default.
func (s *Service) padLength(p *allocationPlan, override, counterLength *int) int {
	switch {
	case override != nil:
		return *override
	case counterLength != nil && *counterLength > 0:
		return *counterLength
	case p.rule.PadLength > 0:
		return p.rule.PadLength
	default:
		return s.formatter.defaultPad
	}
}

// labelFormat returns the format for the plan's scope.
func (s *Service) labelFormat(p *allocationPlan, pad int) (LabelFormat, string) {
	if p.parent != nil {
		return NestedFormat{Separator: s.cfg.Identifiers.Separator, PadLength: pad}, p.parent.Label
	}

	prefix := p.rule.Prefix
	if prefix == "" {
		prefix = p.concept.Code
	}
	if prefix == "" {
		prefix = s.cfg.Identifiers.DefaultPrefix
	}
	return RootFormat{Prefix: prefix, PadLength: pad}, ""
}

// newSnapshot fills everything but the label, sequence and origin.
func (s *Service) newSnapshot(p *allocationPlan, req *AllocateRequest, pad int) *entities.IdentifierSnapshot {
	id := req.RecordingUnitID
	if id == "" {
		id = s.newID()
	}
	conceptID := p.concept.ID

	snap := &entities.IdentifierSnapshot{
		RecordingUnitID:           id,
		ScopeType:                 p.scope.Type(),
		ScopeID:                   p.scope.ID(),
		UnitConceptTypeID:         &conceptID,
		FormatLength:              pad,
		SpatialUnitSequenceNumber: req.SpatialUnitSequenceNumber,
		ActionUnitIdentifierText:  req.ActionUnitIdentifierText,
	}

	if parent := p.parent; parent != nil {
		parentID := parent.RecordingUnitID
		parentSeq := parent.SequenceNumber
		snap.ParentRecordingUnitID = &parentID
		snap.ParentSequenceNumber = &parentSeq
		snap.ParentConceptTypeID = parent.UnitConceptTypeID
		if snap.SpatialUnitSequenceNumber == nil {
			snap.SpatialUnitSequenceNumber = parent.SpatialUnitSequenceNumber
		}
		if snap.ActionUnitIdentifierText == nil {
			snap.ActionUnitIdentifierText = parent.ActionUnitIdentifierText
		}
	}
	return snap
}

// AllocateIdentifier consumes the next counter value for the request's
// scope and concept type, renders the label and stores the snapshot.
//
// Validation, scope, parent and concept failures happen before the counter
// is touched. Once a value is consumed it is never returned: a later
// failure is a PersistenceFailure carrying that value. Rendered labels
// already present in the label index are skipped by allocating again, up
// to the configured number of collision retries.
func (s *Service) AllocateIdentifier(ctx context.Context, req AllocateRequest) (snap *entities.IdentifierSnapshot, err error) {
	start := time.Now()
	scopeType, conceptLabel := "unknown", req.ConceptTypeKey
	defer func() {
		s.observe(metrics.OpAllocate, start, err)
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		s.metrics.RecordAllocation(conceptLabel, scopeType, status)
	}()

	p, err := s.plan(ctx, &req)
	if err != nil {
		s.logFailure("allocation rejected", &req, err)
		return nil, err
	}
	scopeType = p.scope.Type()

	req.RecordingUnitID = strings.TrimSpace(req.RecordingUnitID)
	if req.RecordingUnitID != "" {
		if err := s.ensureUnassigned(ctx, req.RecordingUnitID); err != nil {
			return nil, err
		}
	}

	if req.LegacyLabel != "" {
		snap, err = s.allocateLegacy(ctx, p, &req)
	} else {
		snap, err = s.allocateRendered(ctx, p, &req)
	}
	if err != nil {
		s.logFailure("allocation failed", &req, err)
		return nil, err
	}

	s.log.Info("identifier allocated",
		logger.String("recording_unit_id", snap.RecordingUnitID),
		logger.String("label", snap.Label),
		logger.Int64("sequence_number", snap.SequenceNumber),
		logger.String("scope_type", snap.ScopeType),
		logger.String("scope_id", snap.ScopeID),
		logger.String("concept_type", p.concept.Key),
		logger.String("origin", snap.Origin))
	return snap, nil
}

// ensureUnassigned fails when the recording unit already has an identifier.
// It runs before the counter is touched.
func (s *Service) ensureUnassigned(ctx context.Context, recordingUnitID string) error {
	_, err := s.snapshots.Get(ctx, recordingUnitID)
	switch {
	case err == nil:
		return errors.New(repository.ErrSnapshotExists).
			Component(componentIdentifier).
			Category(errors.CategoryConflict).
			Context("recording_unit_id", recordingUnitID).
			Build()
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return nil
	default:
		return newAllocationError(KindAllocationFailure, 0, err, "recording_unit_id", recordingUnitID)
	}
}

func (s *Service) allocateRendered(ctx context.Context, p *allocationPlan, req *AllocateRequest) (*entities.IdentifierSnapshot, error) {
	namespace := scopeContext(p.scope)
	var (
		lastSeq   int64
		lastLabel string
	)

	for attempt := 0; attempt <= s.cfg.CollisionRetries; attempt++ {
		record, err := s.counters.NextValue(ctx, p.key)
		if err != nil {
			return nil, newAllocationError(KindAllocationFailure, lastSeq, err,
				"scope_type", p.key.ScopeType, "scope_id", p.key.ScopeID, "concept_type_id", p.key.ConceptTypeID)
		}
		seq := record.LastValue
		pad := s.padLength(p, req.FormatLength, record.FormatLength)
		format, parentLabel := s.labelFormat(p, pad)
		label := s.formatter.Format(seq, format, parentLabel)
		lastSeq, lastLabel = seq, label

		taken, err := s.labels.Exists(ctx, p.concept.ID, namespace, label)
		if err != nil {
			return nil, newAllocationError(KindPersistenceFailure, seq, err, "label", label)
		}
		if taken {
			s.metrics.RecordCollision(p.concept.Key)
			s.log.Warn("skipping counter value, label already registered",
				logger.String("label", label),
				logger.Int64("sequence_number", seq),
				logger.String("scope_context", namespace),
				logger.Int("attempt", attempt+1))
			continue
		}

		snap := s.newSnapshot(p, req, pad)
		snap.Label = label
		snap.SequenceNumber = seq
		snap.Origin = entities.OriginAllocated
		recordingUnitID := snap.RecordingUnitID
		entry := &entities.LabelIndexEntry{
			ConceptTypeID:   p.concept.ID,
			ScopeContext:    namespace,
			LabelText:       label,
			Source:          entities.LabelSourceAllocated,
			RecordingUnitID: &recordingUnitID,
		}
		err = s.snapshots.Save(ctx, snap, entry)
		switch {
		case errors.Is(err, repository.ErrLabelExists):
			// registered between the index check and the insert
			s.metrics.RecordCollision(p.concept.Key)
			s.log.Warn("skipping counter value, label registered concurrently",
				logger.String("label", label),
				logger.Int64("sequence_number", seq),
				logger.String("scope_context", namespace))
			continue
		case err != nil:
			return nil, newAllocationError(KindPersistenceFailure, seq, err,
				"label", label, "recording_unit_id", recordingUnitID)
		}
		return snap, nil
	}

	ae := newAllocationError(KindLabelCollisionUnresolved, lastSeq, nil,
		"label", lastLabel, "scope_context", namespace, "retries", s.cfg.CollisionRetries)
	ae.Label = lastLabel
	return nil, ae
}

func (s *Service) allocateLegacy(ctx context.Context, p *allocationPlan, req *AllocateRequest) (*entities.IdentifierSnapshot, error) {
	namespace := scopeContext(p.scope)

	taken, err := s.labels.Exists(ctx, p.concept.ID, namespace, req.LegacyLabel)
	if err != nil {
		return nil, newAllocationError(KindAllocationFailure, 0, err, "label", req.LegacyLabel)
	}
	if taken {
		ae := newAllocationError(KindLabelCollisionUnresolved, 0, repository.ErrLabelExists,
			"label", req.LegacyLabel, "scope_context", namespace)
		ae.Label = req.LegacyLabel
		return nil, ae
	}

	record, err := s.counters.NextValue(ctx, p.key)
	if err != nil {
		return nil, newAllocationError(KindAllocationFailure, 0, err,
			"scope_type", p.key.ScopeType, "scope_id", p.key.ScopeID, "concept_type_id", p.key.ConceptTypeID)
	}

	pad := s.padLength(p, req.FormatLength, record.FormatLength)
	snap := s.newSnapshot(p, req, pad)
	snap.Label = req.LegacyLabel
	snap.SequenceNumber = record.LastValue
	snap.Origin = entities.OriginLegacy

	recordingUnitID := snap.RecordingUnitID
	entry := &entities.LabelIndexEntry{
		ConceptTypeID:   p.concept.ID,
		ScopeContext:    namespace,
		LabelText:       req.LegacyLabel,
		Source:          entities.LabelSourceManual,
		RecordingUnitID: &recordingUnitID,
	}
	err = s.snapshots.Save(ctx, snap, entry)
	switch {
	case errors.Is(err, repository.ErrLabelExists):
		ae := newAllocationError(KindLabelCollisionUnresolved, record.LastValue, err,
			"label", req.LegacyLabel, "scope_context", namespace)
		ae.Label = req.LegacyLabel
		return nil, ae
	case err != nil:
		return nil, newAllocationError(KindPersistenceFailure, record.LastValue, err,
			"label", req.LegacyLabel, "recording_unit_id", recordingUnitID)
	}
	return snap, nil
}

// observe records duration, status and error kind of an operation.
func (s *Service) observe(operation string, start time.Time, err error) {
	s.metrics.RecordDuration(operation, time.Since(start).Seconds())
	if err == nil {
		s.metrics.RecordOperation(operation, metrics.StatusSuccess)
		return
	}
	s.metrics.RecordOperation(operation, metrics.StatusError)
	kind := string(KindOf(err))
	if kind == "" {
		kind = errorKind(err)
	}
	s.metrics.RecordError(operation, kind)
}

// errorKind labels errors that are not AllocationErrors.
func errorKind(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	return "other"
}

func (s *Service) logFailure(msg string, req *AllocateRequest, err error) {
	fields := []logger.Field{
		logger.String("concept_type", req.ConceptTypeKey),
		logger.String("kind", string(KindOf(err))),
		logger.Error(err),
	}
	if seq := SequenceOf(err); seq > 0 {
		// Consumed values are only recoverable from this log line.
		fields = append(fields, logger.Int64("orphaned_sequence_number", seq))
	}

	switch KindOf(err) {
	case KindPersistenceFailure, KindAllocationFailure, KindLabelCollisionUnresolved:
		s.log.Error(msg, fields...)
	default:
		s.log.Info(msg, fields...)
	}
}
