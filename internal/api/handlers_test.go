package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldarchive/unitlabel/internal/concept"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/identifier"
)

// setupTestServer builds a server over a real service on SQLite.
func setupTestServer(t *testing.T) (*Server, *datastore.SQLiteManager) {
	t.Helper()

	mgr, err := datastore.NewSQLiteManager(&conf.DatabaseSettings{
		Type:   conf.DatabaseSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "api.db")},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize())

	registry, err := concept.NewRegistry([]concept.ConceptType{
		{ID: "ct-us", Key: "stratigraphic-unit", Code: "US"},
	})
	require.NoError(t, err)

	svc := identifier.NewService(identifier.Dependencies{
		Counters:  repository.NewCounterRepository(mgr.DB(), ""),
		Snapshots: repository.NewSnapshotRepository(mgr.DB(), ""),
		Labels:    repository.NewLabelIndexRepository(mgr.DB(), ""),
		Concepts:  registry,
	}, identifier.Config{
		Identifiers:      conf.IdentifierSettings{DefaultPadLength: 3, Separator: "-"},
		CollisionRetries: 5,
	})

	srv, err := New(DefaultConfig(), svc, WithHealthCheck(mgr))
	require.NoError(t, err)
	return srv, mgr
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_AllocateAndFetch(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	e := srv.Echo()

	rec := doJSON(t, e, http.MethodPost, "/api/v1/identifiers",
		`{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit","recording_unit_id":"ru-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[entities.IdentifierSnapshot](t, rec)
	assert.Equal(t, "US001", snap.Label)
	assert.Equal(t, "ru-1", snap.RecordingUnitID)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = doJSON(t, e, http.MethodPost, "/api/v1/identifiers",
		`{"scope":{"parent_recording_unit_id":"ru-1"},"concept_type":"stratigraphic-unit"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "US001-001", decode[entities.IdentifierSnapshot](t, rec).Label)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/identifiers/ru-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "US001", decode[entities.IdentifierSnapshot](t, rec).Label)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/identifiers/ru-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	e := srv.Echo()

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantKind string
	}{
		{"no scope", http.MethodPost, "/api/v1/identifiers", `{"concept_type":"stratigraphic-unit"}`,
			http.StatusBadRequest, string(identifier.KindInvalidScope)},
		{"unknown concept", http.MethodPost, "/api/v1/identifiers", `{"scope":{"spatial_unit_id":"su-1"},"concept_type":"nope"}`,
			http.StatusUnprocessableEntity, string(identifier.KindUnknownConceptType)},
		{"missing parent", http.MethodPost, "/api/v1/identifiers", `{"scope":{"parent_recording_unit_id":"x"},"concept_type":"stratigraphic-unit"}`,
			http.StatusBadRequest, string(identifier.KindInvalidScope)},
		{"malformed body", http.MethodPost, "/api/v1/identifiers", `{"scope":`,
			http.StatusBadRequest, ""},
		{"bad limit", http.MethodGet, "/api/v1/counters?limit=abc", "",
			http.StatusBadRequest, ""},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "",
			http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Len(t, resp.CorrelationID, 8)
		})
	}
}

func TestAPI_LabelsAndCollisions(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	e := srv.Echo()

	body := `{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit","label":"US001"}`
	rec := doJSON(t, e, http.MethodPost, "/api/v1/labels", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, entities.LabelSourceImport, decode[entities.LabelIndexEntry](t, rec).Source)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/labels", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/identifiers/preview",
		`{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[identifier.Preview](t, rec)
	assert.Equal(t, "US002", preview.Label)
	assert.Equal(t, 1, preview.Skipped)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/identifiers",
		`{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit","legacy_label":"US001"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(identifier.KindLabelCollisionUnresolved), decode[ErrorResponse](t, rec).Kind)
}

func TestAPI_ListSnapshotsAndLabels(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	e := srv.Echo()

	for range 2 {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/identifiers",
			`{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := doJSON(t, e, http.MethodPost, "/api/v1/labels",
		`{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit","label":"US-A"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/api/v1/identifiers?spatial_unit_id=su-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snaps := decode[[]entities.IdentifierSnapshot](t, rec)
	require.Len(t, snaps, 2)
	assert.Equal(t, "US002", snaps[1].Label)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/identifiers", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/labels?spatial_unit_id=su-1&concept_type=stratigraphic-unit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decode[[]entities.LabelIndexEntry](t, rec)
	require.Len(t, entries, 3)
	assert.Equal(t, "US-A", entries[0].LabelText)
	assert.Equal(t, entities.LabelSourceImport, entries[0].Source)
	assert.Equal(t, "US001", entries[1].LabelText)
	assert.Equal(t, entities.LabelSourceAllocated, entries[1].Source)
	assert.Equal(t, "US002", entries[2].LabelText)
}

func TestAPI_CountersAndFormat(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	e := srv.Echo()

	rec := doJSON(t, e, http.MethodPut, "/api/v1/counters/format",
		`{"scope":{"action_unit_id":"au-1"},"concept_type":"stratigraphic-unit","format_length":5}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodPut, "/api/v1/counters/format",
		`{"scope":{"action_unit_id":"au-1"},"concept_type":"stratigraphic-unit","format_length":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/identifiers",
		`{"scope":{"action_unit_id":"au-1"},"concept_type":"stratigraphic-unit"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "US00001", decode[entities.IdentifierSnapshot](t, rec).Label)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/counters?scope_type=action_unit&scope_id=au-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]entities.CounterRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].LastValue)
}

func TestAPI_RestoreSnapshot(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)
	e := srv.Echo()

	rec := doJSON(t, e, http.MethodPut, "/api/v1/identifiers/ru-old",
		`{"label":"US042","sequence_number":42,"scope_type":"spatial_unit","scope_id":"su-1","format_length":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[entities.IdentifierSnapshot](t, rec)
	assert.Equal(t, "ru-old", snap.RecordingUnitID)
	assert.Equal(t, entities.OriginRestored, snap.Origin)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/identifiers/ru-old",
		`{"recording_unit_id":"other","label":"US042","sequence_number":42,"scope_type":"spatial_unit","scope_id":"su-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Healthz(t *testing.T) {
	t.Parallel()

	srv, mgr := setupTestServer(t)

	rec := doJSON(t, srv.Echo(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode[map[string]any](t, rec)["database"])

	require.NoError(t, mgr.Close())
	rec = doJSON(t, srv.Echo(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_MetricsRoute(t *testing.T) {
	t.Parallel()

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("unitlabel_up 1\n"))
	})

	srv, err := New(DefaultConfig(), stubService{}, WithMetricsHandler(metricsHandler))
	require.NoError(t, err)
	rec := doJSON(t, srv.Echo(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unitlabel_up")

	cfg := DefaultConfig()
	cfg.Metrics = false
	srv, err = New(cfg, stubService{}, WithMetricsHandler(metricsHandler))
	require.NoError(t, err)
	rec = doJSON(t, srv.Echo(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	persistence := &identifier.AllocationError{Kind: identifier.KindPersistenceFailure, Sequence: 7}
	assert.Equal(t, http.StatusInternalServerError, statusFor(persistence))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(identifier.ErrAllocationFailure))
	assert.Equal(t, http.StatusConflict, statusFor(repository.ErrSnapshotExists))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(repository.ErrStoreUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.NewStd("boom")))

	resp := NewErrorResponse(persistence, "Failed", http.StatusInternalServerError)
	assert.Equal(t, int64(7), resp.SequenceNumber)
	assert.Equal(t, string(identifier.KindPersistenceFailure), resp.Kind)
}

func TestNewErrorResponse_HidesServerErrorCause(t *testing.T) {
	t.Parallel()

	driverErr := errors.NewStd(`pq: relation "identifier_snapshots" does not exist`)
	persistence := &identifier.AllocationError{Kind: identifier.KindPersistenceFailure, Sequence: 3, Err: driverErr}

	resp := NewErrorResponse(persistence, "Failed to allocate identifier", http.StatusInternalServerError)
	assert.Equal(t, "Failed to allocate identifier", resp.Error)
	assert.Equal(t, string(identifier.KindPersistenceFailure), resp.Kind)
	assert.Equal(t, int64(3), resp.SequenceNumber)
	assert.NotContains(t, resp.Error, "identifier_snapshots")

	resp = NewErrorResponse(repository.ErrStoreUnavailable, "Failed to list counters", http.StatusServiceUnavailable)
	assert.Equal(t, "Failed to list counters", resp.Error)

	invalid := errors.NewStd("label must not be empty")
	resp = NewErrorResponse(invalid, "Invalid request", http.StatusBadRequest)
	assert.Equal(t, "label must not be empty", resp.Error)
}

func TestAPI_ServerErrorBodyOmitsCause(t *testing.T) {
	t.Parallel()

	srv, err := New(DefaultConfig(), stubService{})
	require.NoError(t, err)

	rec := doJSON(t, srv.Echo(), http.MethodPost, "/api/v1/identifiers",
		`{"scope":{"spatial_unit_id":"su-1"},"concept_type":"stratigraphic-unit"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), errStub.Error())
	assert.Len(t, decode[ErrorResponse](t, rec).CorrelationID, 8)
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(&conf.Settings{Server: conf.ServerSettings{Listen: "127.0.0.1:9090", Metrics: true}})
	assert.Equal(t, "127.0.0.1:9090", cfg.Listen)
	assert.True(t, cfg.Metrics)
	require.NoError(t, cfg.Validate())

	cfg.Listen = "nonsense"
	assert.Error(t, cfg.Validate())
}

// stubService fails every call; used where only routing matters.
type stubService struct{}

var errStub = errors.NewStd("not implemented")

func (stubService) AllocateIdentifier(context.Context, identifier.AllocateRequest) (*entities.IdentifierSnapshot, error) {
	return nil, errStub
}

func (stubService) Preview(context.Context, identifier.AllocateRequest) (*identifier.Preview, error) {
	return nil, errStub
}

func (stubService) RegisterLegacyLabel(context.Context, identifier.RegisterLabelRequest) (*entities.LabelIndexEntry, error) {
	return nil, errStub
}

func (stubService) GetSnapshot(context.Context, string) (*entities.IdentifierSnapshot, error) {
	return nil, errStub
}

func (stubService) RestoreSnapshot(context.Context, *entities.IdentifierSnapshot) (*entities.IdentifierSnapshot, error) {
	return nil, errStub
}

func (stubService) SetFormatLength(context.Context, identifier.ScopeDescriptor, string, int) (*entities.CounterRecord, error) {
	return nil, errStub
}

func (stubService) ListCounters(context.Context, repository.CounterFilter) ([]*entities.CounterRecord, error) {
	return nil, errStub
}

func (stubService) ListSnapshots(context.Context, identifier.ScopeDescriptor) ([]*entities.IdentifierSnapshot, error) {
	return nil, errStub
}

func (stubService) ListLabels(context.Context, identifier.ScopeDescriptor, string) ([]*entities.LabelIndexEntry, error) {
	return nil, errStub
}
