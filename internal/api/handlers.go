package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
	"github.com/fieldarchive/unitlabel/internal/identifier"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// IdentifierService is the service surface exposed over HTTP.
type IdentifierService interface {
	AllocateIdentifier(ctx context.Context, req identifier.AllocateRequest) (*entities.IdentifierSnapshot, error)
	Preview(ctx context.Context, req identifier.AllocateRequest) (*identifier.Preview, error)
	RegisterLegacyLabel(ctx context.Context, req identifier.RegisterLabelRequest) (*entities.LabelIndexEntry, error)
	GetSnapshot(ctx context.Context, recordingUnitID string) (*entities.IdentifierSnapshot, error)
	RestoreSnapshot(ctx context.Context, snap *entities.IdentifierSnapshot) (*entities.IdentifierSnapshot, error)
	SetFormatLength(ctx context.Context, scope identifier.ScopeDescriptor, conceptTypeKey string, length int) (*entities.CounterRecord, error)
	ListCounters(ctx context.Context, filter repository.CounterFilter) ([]*entities.CounterRecord, error)
	ListSnapshots(ctx context.Context, scope identifier.ScopeDescriptor) ([]*entities.IdentifierSnapshot, error)
	ListLabels(ctx context.Context, scope identifier.ScopeDescriptor, conceptTypeKey string) ([]*entities.LabelIndexEntry, error)
}

// Handlers implements the /api/v1 endpoints.
type Handlers struct {
	svc IdentifierService
	log logger.Logger
}

// NewHandlers creates the handlers.
func NewHandlers(svc IdentifierService, log logger.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

// Register mounts the endpoints on g.
func (h *Handlers) Register(g *echo.Group) {
	g.POST("/identifiers", h.AllocateIdentifier)
	g.GET("/identifiers", h.ListSnapshots)
	g.POST("/identifiers/preview", h.Preview)
	g.GET("/identifiers/:id", h.GetSnapshot)
	g.PUT("/identifiers/:id", h.RestoreSnapshot)
	g.POST("/labels", h.RegisterLabel)
	g.GET("/labels", h.ListLabels)
	g.GET("/counters", h.ListCounters)
	g.PUT("/counters/format", h.SetFormatLength)
}

// AllocateIdentifier handles POST /identifiers.
func (h *Handlers) AllocateIdentifier(c echo.Context) error {
	var req identifier.AllocateRequest
	if err := c.Bind(&req); err != nil {
		return h.HandleError(c, err, "Invalid request body")
	}

	snap, err := h.svc.AllocateIdentifier(c.Request().Context(), req)
	if err != nil {
		return h.HandleError(c, err, "Failed to allocate identifier")
	}
	return c.JSON(http.StatusCreated, snap)
}

// Preview handles POST /identifiers/preview.
func (h *Handlers) Preview(c echo.Context) error {
	var req identifier.AllocateRequest
	if err := c.Bind(&req); err != nil {
		return h.HandleError(c, err, "Invalid request body")
	}

	preview, err := h.svc.Preview(c.Request().Context(), req)
	if err != nil {
		return h.HandleError(c, err, "Failed to preview identifier")
	}
	return c.JSON(http.StatusOK, preview)
}

// GetSnapshot handles GET /identifiers/:id.
func (h *Handlers) GetSnapshot(c echo.Context) error {
	snap, err := h.svc.GetSnapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.HandleError(c, err, "Failed to get identifier")
	}
	return c.JSON(http.StatusOK, snap)
}

// RestoreSnapshot handles PUT /identifiers/:id. The path id wins over an
// empty body id; a different body id is rejected.
func (h *Handlers) RestoreSnapshot(c echo.Context) error {
	var snap entities.IdentifierSnapshot
	if err := c.Bind(&snap); err != nil {
		return h.HandleError(c, err, "Invalid request body")
	}

	id := c.Param("id")
	switch strings.TrimSpace(snap.RecordingUnitID) {
	case "":
		snap.RecordingUnitID = id
	case id:
	default:
		return h.HandleError(c, echo.NewHTTPError(http.StatusBadRequest, "recording_unit_id does not match path"),
			"Invalid request body")
	}

	restored, err := h.svc.RestoreSnapshot(c.Request().Context(), &snap)
	if err != nil {
		return h.HandleError(c, err, "Failed to restore identifier")
	}
	return c.JSON(http.StatusOK, restored)
}

// RegisterLabel handles POST /labels.
func (h *Handlers) RegisterLabel(c echo.Context) error {
	var req identifier.RegisterLabelRequest
	if err := c.Bind(&req); err != nil {
		return h.HandleError(c, err, "Invalid request body")
	}

	entry, err := h.svc.RegisterLegacyLabel(c.Request().Context(), req)
	if err != nil {
		return h.HandleError(c, err, "Failed to register label")
	}
	return c.JSON(http.StatusCreated, entry)
}

// bindScope reads the scope selectors from the query string.
func bindScope(b *echo.ValueBinder, scope *identifier.ScopeDescriptor) *echo.ValueBinder {
	return b.
		String("spatial_unit_id", &scope.SpatialUnitID).
		String("action_unit_id", &scope.ActionUnitID).
		String("parent_recording_unit_id", &scope.ParentRecordingUnitID)
}

// ListSnapshots handles GET /identifiers?spatial_unit_id=...
func (h *Handlers) ListSnapshots(c echo.Context) error {
	var scope identifier.ScopeDescriptor
	if err := bindScope(echo.QueryParamsBinder(c), &scope).BindError(); err != nil {
		return h.HandleError(c, err, "Invalid query parameters")
	}

	snaps, err := h.svc.ListSnapshots(c.Request().Context(), scope)
	if err != nil {
		return h.HandleError(c, err, "Failed to list identifiers")
	}
	return c.JSON(http.StatusOK, snaps)
}

// ListLabels handles GET /labels?concept_type=...&spatial_unit_id=...
func (h *Handlers) ListLabels(c echo.Context) error {
	var (
		scope       identifier.ScopeDescriptor
		conceptType string
	)
	err := bindScope(echo.QueryParamsBinder(c), &scope).
		String("concept_type", &conceptType).
		BindError()
	if err != nil {
		return h.HandleError(c, err, "Invalid query parameters")
	}

	entries, err := h.svc.ListLabels(c.Request().Context(), scope, conceptType)
	if err != nil {
		return h.HandleError(c, err, "Failed to list labels")
	}
	return c.JSON(http.StatusOK, entries)
}

// ListCounters handles GET /counters.
func (h *Handlers) ListCounters(c echo.Context) error {
	var filter repository.CounterFilter
	err := echo.QueryParamsBinder(c).
		String("scope_type", &filter.ScopeType).
		String("scope_id", &filter.ScopeID).
		String("concept_type_id", &filter.ConceptTypeID).
		Int("limit", &filter.Limit).
		BindError()
	if err != nil {
		return h.HandleError(c, err, "Invalid query parameters")
	}

	records, err := h.svc.ListCounters(c.Request().Context(), filter)
	if err != nil {
		return h.HandleError(c, err, "Failed to list counters")
	}
	return c.JSON(http.StatusOK, records)
}

// SetFormatLengthRequest is the body of PUT /counters/format.
type SetFormatLengthRequest struct {
	Scope          identifier.ScopeDescriptor `json:"scope"`
	ConceptTypeKey string                     `json:"concept_type"`
	FormatLength   int                        `json:"format_length"`
}

// SetFormatLength handles PUT /counters/format.
func (h *Handlers) SetFormatLength(c echo.Context) error {
	var req SetFormatLengthRequest
	if err := c.Bind(&req); err != nil {
		return h.HandleError(c, err, "Invalid request body")
	}

	if _, err := h.svc.SetFormatLength(c.Request().Context(), req.Scope, req.ConceptTypeKey, req.FormatLength); err != nil {
		return h.HandleError(c, err, "Failed to set format length")
	}
	return c.NoContent(http.StatusNoContent)
}
