package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "not_found", Result(apperrors.NotFound("user", "x")))
	assert.Equal(t, "operation_failed", Result(apperrors.OperationFailed(errors.New("db"), "failed")))
	assert.Equal(t, "internal_error", Result(errors.New("plain")))
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.CollectAndCount(HTTPRequestDuration)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/123", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, before+1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestHandlerServesMetrics(t *testing.T) {
	RegistryOperationsTotal.WithLabelValues("role", "create", "success").Inc()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "usermgmt_registry_operations_total")
}
