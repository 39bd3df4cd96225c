// Package httptransport assembles the HTTP surface: shared middleware, the
// operational endpoints and every bounded context's routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"proofpass/internal/platform/metrics"
	"proofpass/pkg/platform/httputil"
	"proofpass/pkg/platform/middleware/metadata"
	"proofpass/pkg/platform/middleware/request"
	"proofpass/pkg/platform/middleware/requesttime"
)

// RouteRegistrar is implemented by each context's HTTP handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	RateLimit func(http.Handler) http.Handler
	Checks    map[string]HealthCheck
	Handlers  []RouteRegistrar
}

// NewRouter wires the middleware chain and mounts every handler.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.Logger(deps.Logger, deps.Metrics))
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit)
	}

	r.Get("/health", healthHandler(deps.Checks))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	})
	return r
}

// healthHandler runs every check concurrently with a short deadline. Any
// failing check turns the response into a 503.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		degraded := false
		type outcome struct {
			name string
			err  error
		}
		outcomes := make(chan outcome, len(checks))

		var g errgroup.Group
		for name, check := range checks {
			g.Go(func() error {
				outcomes <- outcome{name: name, err: check(ctx)}
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)

		for o := range outcomes {
			if o.err != nil {
				degraded = true
				results[o.name] = "unavailable"
				continue
			}
			results[o.name] = "ok"
		}

		status := http.StatusOK
		body := map[string]any{"status": "ok", "checks": results}
		if degraded {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	}
}
