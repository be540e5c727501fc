package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/identifier"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	Code           int    `json:"code"`
	Kind           string `json:"kind,omitempty"`
	SequenceNumber int64  `json:"sequence_number,omitempty"` // consumed counter value on persistence failures
	Label          string `json:"label,omitempty"`
	CorrelationID  string `json:"correlation_id"`
}

// NewErrorResponse creates an API error response. Server errors expose only
// message and kind; the cause stays in the log under the correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err == nil {
		return resp
	}

	if code < http.StatusInternalServerError {
		resp.Error = err.Error()
	}
	var ae *identifier.AllocationError
	if errors.As(err, &ae) {
		resp.Kind = string(ae.Kind)
		resp.SequenceNumber = ae.Sequence
		resp.Label = ae.Label
	}
	return resp
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch identifier.KindOf(err) {
	case identifier.KindInvalidScope:
		return http.StatusBadRequest
	case identifier.KindUnknownConceptType:
		return http.StatusUnprocessableEntity
	case identifier.KindLabelCollisionUnresolved:
		return http.StatusConflict
	case identifier.KindAllocationFailure:
		return http.StatusServiceUnavailable
	case identifier.KindPersistenceFailure:
		return http.StatusInternalServerError
	}

	var (
		he *echo.HTTPError
		be *echo.BindingError
	)
	switch {
	case errors.As(err, &be):
		return be.Code
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, repository.ErrSnapshotExists), errors.Is(err, repository.ErrLabelExists):
		return http.StatusConflict
	case errors.Is(err, repository.ErrSnapshotNotFound), errors.Is(err, repository.ErrCounterNotFound),
		errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidInput), errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes err as an ErrorResponse and logs it.
func (h *Handlers) HandleError(c echo.Context, err error, message string) error {
	code := statusFor(err)
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method),
		logger.Int("code", code),
		logger.Error(err),
	}
	if resp.SequenceNumber > 0 {
		fields = append(fields, logger.Int64("sequence_number", resp.SequenceNumber))
	}

	log := h.log.WithContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Debug(message, fields...)
	}
	return c.JSON(code, resp)
}
