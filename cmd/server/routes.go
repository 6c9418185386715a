package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "atelier/internal/platform/metrics"
	"atelier/internal/platform/middleware"
	"atelier/pkg/platform/httputil"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type routeRegistrar interface {
	Register(r chi.Router)
}

// newRouter mounts the operational endpoints and the registry API behind the
// shared middleware chain.
func newRouter(log *slog.Logger, reg *prometheus.Registry, health healthChecker, api routeRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Latency(platformmetrics.New(reg)))

	r.Get("/healthz", healthHandler(health, log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	api.Register(r)
	return r
}

// healthHandler reports liveness plus the reachability of configured backends.
func healthHandler(health healthChecker, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := health.Health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
