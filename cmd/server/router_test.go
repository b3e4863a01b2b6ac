package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/config"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/logging"
)

func testRouter(t *testing.T) http.Handler {
	t.Setenv("ENV", "test")
	t.Setenv("SIM_TICK_INTERVAL", "1ms")

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.HTTP.WriteTimeout = 5 * time.Second

	reg := prometheus.NewRegistry()
	logger := logging.New(logging.ErrorLevel, &bytes.Buffer{})
	r, srv := newRouter(cfg, logger, reg, reg)
	t.Cleanup(func() { _ = srv.Close() })

	// Panics must be answered by the recovery middleware
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	return r
}

func TestHealthz(t *testing.T) {
	h := testRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := testRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/layouts", bytes.NewBufferString(`{"turbines":2}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "turbines_sessions_active 1")
}

func TestRecoveredPanic(t *testing.T) {
	h := testRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error","kind":"internal"}`, rr.Body.String())
}
