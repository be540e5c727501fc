package identifier

import (
	"context"
	"strings"
	"time"

	"github.com/fieldarchive/unitlabel/internal/concept"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
	"github.com/fieldarchive/unitlabel/internal/observability/metrics"
)

// maxPreviewSkips bounds the label index scan of a preview.
const maxPreviewSkips = 1000

// Preview is the label the next allocation would produce if nothing else
// allocated in between.
type Preview struct {
	Label          string `json:"label" yaml:"label"`
	SequenceNumber int64  `json:"sequence_number" yaml:"sequence_number"`
	FormatLength   int    `json:"format_length" yaml:"format_length"`
	Skipped        int    `json:"skipped,omitempty" yaml:"skipped,omitempty"` // values whose labels are already registered
}

// Preview renders the next label without changing any stored state.
// Registered labels are skipped the way AllocateIdentifier skips them.
func (s *Service) Preview(ctx context.Context, req AllocateRequest) (result *Preview, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpPreview, start, err) }()

	p, err := s.plan(ctx, &req)
	if err != nil {
		return nil, err
	}

	next := int64(1)
	var counterLength *int
	record, err := s.counters.Get(ctx, p.key)
	switch {
	case errors.Is(err, repository.ErrCounterNotFound):
	case err != nil:
		return nil, newAllocationError(KindAllocationFailure, 0, err,
			"scope_type", p.key.ScopeType, "scope_id", p.key.ScopeID)
	default:
		next = record.NextValue()
		counterLength = record.FormatLength
	}

	pad := s.padLength(p, req.FormatLength, counterLength)
	namespace := scopeContext(p.scope)

	if req.LegacyLabel != "" {
		taken, err := s.labels.Exists(ctx, p.concept.ID, namespace, req.LegacyLabel)
		if err != nil {
			return nil, newAllocationError(KindAllocationFailure, 0, err, "label", req.LegacyLabel)
		}
		if taken {
			ae := newAllocationError(KindLabelCollisionUnresolved, 0, repository.ErrLabelExists, "label", req.LegacyLabel)
			ae.Label = req.LegacyLabel
			return nil, ae
		}
		return &Preview{Label: req.LegacyLabel, SequenceNumber: next, FormatLength: pad}, nil
	}

	format, parentLabel := s.labelFormat(p, pad)
	seq := next
	for skipped := 0; skipped <= maxPreviewSkips; skipped++ {
		label := s.formatter.Format(seq, format, parentLabel)
		taken, err := s.labels.Exists(ctx, p.concept.ID, namespace, label)
		if err != nil {
			return nil, newAllocationError(KindAllocationFailure, 0, err, "label", label)
		}
		if !taken {
			return &Preview{Label: label, SequenceNumber: seq, FormatLength: pad, Skipped: skipped}, nil
		}
		seq++
	}

	return nil, newAllocationError(KindLabelCollisionUnresolved, 0, nil,
		"scope_context", namespace, "skipped", maxPreviewSkips)
}

// RegisterLabelRequest adds a label to the index without allocating.
type RegisterLabelRequest struct {
	Scope          ScopeDescriptor `json:"scope" yaml:"scope"`
	ConceptTypeKey string          `json:"concept_type" yaml:"concept_type"`
	Label          string          `json:"label" yaml:"label"`
	// RecordingUnitID links the label to an existing unit; import otherwise.
	RecordingUnitID string `json:"recording_unit_id,omitempty" yaml:"recording_unit_id,omitempty"`
}

// RegisterLegacyLabel records a label taken outside this service, typically
// during an import, so that allocation never produces it. Counters and
// snapshots are not touched. A duplicate fails with repository.ErrLabelExists.
func (s *Service) RegisterLegacyLabel(ctx context.Context, req RegisterLabelRequest) (entry *entities.LabelIndexEntry, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpRegisterLabel, start, err) }()

	scope, err := req.Scope.Resolve()
	if err != nil {
		return nil, err
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, invalidScope("label must not be empty")
	}

	ct, err := s.resolveConcept(ctx, req.ConceptTypeKey)
	if err != nil {
		return nil, err
	}

	entry = &entities.LabelIndexEntry{
		ConceptTypeID: ct.ID,
		ScopeContext:  scopeContext(scope),
		LabelText:     label,
		Source:        entities.LabelSourceImport,
	}
	if id := strings.TrimSpace(req.RecordingUnitID); id != "" {
		entry.Source = entities.LabelSourceManual
		entry.RecordingUnitID = &id
	}

	if err := s.labels.Register(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info("legacy label registered",
		logger.String("label", label),
		logger.String("scope_context", entry.ScopeContext),
		logger.String("concept_type", ct.Key),
		logger.String("source", entry.Source))
	return entry, nil
}

// GetSnapshot returns the stored snapshot of a recording unit.
func (s *Service) GetSnapshot(ctx context.Context, recordingUnitID string) (snap *entities.IdentifierSnapshot, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpGetSnapshot, start, err) }()

	id := strings.TrimSpace(recordingUnitID)
	if id == "" {
		return nil, invalidScope("recording unit id must not be empty")
	}

	snap, err = s.snapshots.Get(ctx, id)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		return nil, errors.New(err).
			Component(componentIdentifier).
			Category(errors.CategoryNotFound).
			Context("recording_unit_id", id).
			Build()
	}
	return snap, err
}

// RestoreSnapshot overwrites a recording unit's snapshot from history.
// Counters and the label index are left alone: a restore reinstates a
// past label, it does not allocate one.
func (s *Service) RestoreSnapshot(ctx context.Context, snap *entities.IdentifierSnapshot) (restored *entities.IdentifierSnapshot, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpRestoreSnapshot, start, err) }()

	if snap == nil {
		return nil, invalidScope("snapshot must not be nil")
	}
	restore := *snap
	restore.RecordingUnitID = strings.TrimSpace(restore.RecordingUnitID)
	switch {
	case restore.RecordingUnitID == "":
		return nil, invalidScope("recording unit id must not be empty")
	case restore.Label == "":
		return nil, invalidScope("label must not be empty")
	case restore.ScopeType != entities.ScopeSpatialUnit &&
		restore.ScopeType != entities.ScopeActionUnit &&
		restore.ScopeType != entities.ScopeRecordingUnit:
		return nil, invalidScope("unknown scope type %q", restore.ScopeType)
	case restore.ScopeID == "":
		return nil, invalidScope("scope id must not be empty")
	case restore.SequenceNumber < 1:
		return nil, invalidScope("sequence number must be positive")
	}
	if restore.FormatLength < 1 {
		restore.FormatLength = s.formatter.defaultPad
	}
	restore.Origin = entities.OriginRestored

	if err := s.snapshots.Overwrite(ctx, &restore); err != nil {
		return nil, err
	}
	restored, err = s.snapshots.Get(ctx, restore.RecordingUnitID)
	if err != nil {
		return nil, err
	}

	s.log.Info("identifier snapshot restored",
		logger.String("recording_unit_id", restored.RecordingUnitID),
		logger.String("label", restored.Label),
		logger.Int64("sequence_number", restored.SequenceNumber))
	return restored, nil
}

// SetFormatLength stores a padding override for one counter. Existing
// snapshots keep the labels they were issued with.
func (s *Service) SetFormatLength(ctx context.Context, scope ScopeDescriptor, conceptTypeKey string, length int) (record *entities.CounterRecord, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpSetFormatLength, start, err) }()

	resolved, err := scope.Resolve()
	if err != nil {
		return nil, err
	}
	if err := validatePadLength(length); err != nil {
		return nil, err
	}
	ct, err := s.resolveConcept(ctx, conceptTypeKey)
	if err != nil {
		return nil, err
	}

	key := repository.CounterKey{ScopeType: resolved.Type(), ScopeID: resolved.ID(), ConceptTypeID: ct.ID}
	record, err = s.counters.SetFormatLength(ctx, key, length)
	if err != nil {
		return nil, err
	}

	s.log.Info("counter format length set",
		logger.String("scope_type", key.ScopeType),
		logger.String("scope_id", key.ScopeID),
		logger.String("concept_type", ct.Key),
		logger.Int("format_length", length))
	return record, nil
}

// ListCounters returns counter rows matching filter.
func (s *Service) ListCounters(ctx context.Context, filter repository.CounterFilter) (records []*entities.CounterRecord, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpListCounters, start, err) }()

	return s.counters.List(ctx, filter)
}

// ListSnapshots returns the snapshots numbered in scope, lowest sequence first.
func (s *Service) ListSnapshots(ctx context.Context, scope ScopeDescriptor) (snaps []*entities.IdentifierSnapshot, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpListSnapshots, start, err) }()

	resolved, err := scope.Resolve()
	if err != nil {
		return nil, err
	}
	return s.snapshots.ListByScope(ctx, resolved.Type(), resolved.ID())
}

// ListLabels returns the label index entries of one concept type in scope.
func (s *Service) ListLabels(ctx context.Context, scope ScopeDescriptor, conceptTypeKey string) (entries []*entities.LabelIndexEntry, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpListLabels, start, err) }()

	resolved, err := scope.Resolve()
	if err != nil {
		return nil, err
	}
	ct, err := s.resolveConcept(ctx, conceptTypeKey)
	if err != nil {
		return nil, err
	}
	return s.labels.List(ctx, ct.ID, scopeContext(resolved))
}

func (s *Service) resolveConcept(ctx context.Context, key string) (*concept.ConceptType, error) {
	ct, err := s.concepts.Resolve(ctx, key)
	switch {
	case errors.Is(err, concept.ErrConceptNotFound):
		return nil, newAllocationError(KindUnknownConceptType, 0, err, "concept_type", key)
	case err != nil:
		return nil, newAllocationError(KindAllocationFailure, 0, err, "concept_type", key)
	}
	return ct, nil
}
