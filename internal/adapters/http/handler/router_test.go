package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/employee-records/internal/core/employee"
	"github.com/ogurasousui/employee-records/internal/platform/metrics"
)

type panickingUseCase struct {
	*stubEmployeeUseCase
}

func (panickingUseCase) GetStats(context.Context) (*employee.Stats, error) {
	panic("stats exploded")
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	ok := NewRouter(RouterConfig{Employees: &stubEmployeeUseCase{}, DB: stubPinger{}, Logger: zerolog.Nop()})
	rec := doRequest(t, ok, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewRouter(RouterConfig{Employees: &stubEmployeeUseCase{}, DB: stubPinger{err: errors.New("down")}, Logger: zerolog.Nop()})
	rec = doRequest(t, down, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unreachable", decodeBody(t, rec)["database"])
}

func TestRouter_RequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubEmployeeUseCase{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-123")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestRouter_NotFoundAndMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	router := NewRouter(RouterConfig{Employees: &stubEmployeeUseCase{}, DB: stubPinger{}, Metrics: m, Logger: zerolog.Nop()})

	rec := doRequest(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decodeBody(t, rec)["error"].(map[string]any)["code"])

	doRequest(t, router, http.MethodGet, "/api/health", "")

	rec = doRequest(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `employee_records_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{Employees: panickingUseCase{&stubEmployeeUseCase{}}, Logger: zerolog.Nop()})
	rec := doRequest(t, router, http.MethodGet, "/api/employees/stats/summary", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
