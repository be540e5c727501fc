package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler_ExposesAllocationMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Allocation.RecordAllocation("us", "spatial_unit", "success")
	m.Allocation.RecordCollision("us")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `unitlabel_allocations_total{concept_type="us",scope_type="spatial_unit",status="success"} 1`)
	assert.Contains(t, string(body), `unitlabel_label_collisions_total{concept_type="us"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
