package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abduss/certvault/internal/config"
	"github.com/abduss/certvault/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness(t *testing.T) {
	router := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(logger.CorrelationIDHeader))
}

func TestReadinessReportsFailingComponent(t *testing.T) {
	var checked []string
	router := newTestRouter([]ReadinessCheck{
		{Component: "postgres", Check: func(context.Context) error { checked = append(checked, "postgres"); return nil }},
		{Component: "minio", Check: func(context.Context) error { checked = append(checked, "minio"); return errors.New("connection refused") }},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"degraded","component":"minio","error":"connection refused"}`, rr.Body.String())
	assert.Equal(t, []string{"postgres", "minio"}, checked)
}

func TestReadinessOK(t *testing.T) {
	router := newTestRouter([]ReadinessCheck{{Component: "postgres", Check: func(context.Context) error { return nil }}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpointMounted(t *testing.T) {
	router := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

// --- helpers & fakes ---

func newTestRouter(checks []ReadinessCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{}
	cfg.Metrics.PrometheusPath = "/metrics"
	cfg.Upload.MaxFileSize = 10 << 20
	return NewRouter(Dependencies{Config: cfg, Checks: checks})
}
