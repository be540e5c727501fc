package identifier

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldarchive/unitlabel/internal/concept"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
)

const (
	spatialUnitID = "su-1"
	stratigraphic = "stratigraphic-unit"
)

var testConcepts = []concept.ConceptType{
	{ID: "ct-us", Key: stratigraphic, Label: "Stratigraphic unit", Code: "US"},
	{ID: "ct-st", Key: "structure", Label: "Structure", Code: "ST"},
	{ID: "ct-sa", Key: "sample", Label: "Sample"},
}

// testEnv bundles a service with direct access to its stores.
type testEnv struct {
	svc     *Service
	deps    Dependencies
	metrics *recordingMetrics
}

// newTestEnv builds a Service on a fresh SQLite database.
func newTestEnv(t *testing.T, cfg Config, opts ...Option) *testEnv {
	t.Helper()

	mgr, err := datastore.NewSQLiteManager(&conf.DatabaseSettings{
		Type:   conf.DatabaseSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "identifier.db")},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize())

	registry, err := concept.NewRegistry(testConcepts)
	require.NoError(t, err)

	deps := Dependencies{
		Counters:  repository.NewCounterRepository(mgr.DB(), ""),
		Snapshots: repository.NewSnapshotRepository(mgr.DB(), ""),
		Labels:    repository.NewLabelIndexRepository(mgr.DB(), ""),
		Concepts:  registry,
	}
	m := newRecordingMetrics()
	opts = append([]Option{WithMetrics(m)}, opts...)

	return &testEnv{svc: NewService(deps, cfg, opts...), deps: deps, metrics: m}
}

// withDeps returns a service over modified dependencies sharing the same stores.
func (e *testEnv) withDeps(cfg Config, mutate func(*Dependencies)) *Service {
	deps := e.deps
	mutate(&deps)
	return NewService(deps, cfg, WithMetrics(e.metrics))
}

func defaultConfig() Config {
	return Config{
		Identifiers:      conf.IdentifierSettings{DefaultPadLength: 3, Separator: "-"},
		CollisionRetries: 5,
	}
}

func rootRequest(conceptKey string) AllocateRequest {
	return AllocateRequest{
		Scope:          ScopeDescriptor{SpatialUnitID: spatialUnitID},
		ConceptTypeKey: conceptKey,
	}
}

func nestedRequest(parentID, conceptKey string) AllocateRequest {
	return AllocateRequest{
		Scope:          ScopeDescriptor{ParentRecordingUnitID: parentID},
		ConceptTypeKey: conceptKey,
	}
}

// recordingMetrics counts calls for assertions.
type recordingMetrics struct {
	mu          sync.Mutex
	allocations map[string]int
	collisions  map[string]int
	errorKinds  map[string]int
	operations  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		allocations: make(map[string]int),
		collisions:  make(map[string]int),
		errorKinds:  make(map[string]int),
		operations:  make(map[string]int),
	}
}

func (m *recordingMetrics) RecordAllocation(conceptType, scopeType, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations[status]++
}

func (m *recordingMetrics) RecordCollision(conceptType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collisions[conceptType]++
}

func (m *recordingMetrics) RecordOperation(operation, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[operation+"/"+status]++
}

func (m *recordingMetrics) RecordDuration(string, float64) {}

func (m *recordingMetrics) RecordError(operation, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorKinds[errorType]++
}

func (m *recordingMetrics) count(counts map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counts[key]
}

// failingSnapshots fails every Save while delegating reads.
type failingSnapshots struct {
	repository.SnapshotRepository
	err error
}

func (f *failingSnapshots) Save(context.Context, *entities.IdentifierSnapshot, *entities.LabelIndexEntry) error {
	return f.err
}

// failingCounters fails every increment and read.
type failingCounters struct {
	repository.CounterRepository
	err error
}

func (f *failingCounters) NextValue(context.Context, repository.CounterKey) (*entities.CounterRecord, error) {
	return nil, f.err
}

func (f *failingCounters) Get(context.Context, repository.CounterKey) (*entities.CounterRecord, error) {
	return nil, f.err
}

// brokenResolver fails every lookup with a non not-found error.
type brokenResolver struct{ err error }

func (b brokenResolver) Resolve(context.Context, string) (*concept.ConceptType, error) {
	return nil, b.err
}

// staleLabels misses every registered label, like a read that lost a race
// with a concurrent insert.
type staleLabels struct {
	repository.LabelIndexRepository
}

func (staleLabels) Exists(context.Context, string, string, string) (bool, error) {
	return false, nil
}
