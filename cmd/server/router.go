package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/config"
	apperrors "github.com/iForgotThePlusC/Wind-Turbines/internal/errors"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/logging"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/server"
)

// newRouter wires the middleware stack, health and metrics endpoints and the
// layout API. Metrics are registered with reg and served from gatherer.
func newRouter(cfg *config.Config, logger *logging.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (chi.Router, *server.Server) {
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(apperrors.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	// Add health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Add metrics endpoint
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := server.NewServer(cfg, logger, server.WithRegisterer(reg))
	srv.RegisterRoutes(r)

	return r, srv
}
