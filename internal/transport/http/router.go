// Package httptransport assembles the HTTP surface: middleware stack,
// public auth routes, authenticated profile routes, telemetry ingestion,
// and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keeply/pkg/platform/httputil"

	"keeply/internal/frontendmetrics"
	"keeply/internal/platform/metrics"
	"keeply/internal/platform/middleware"
	"keeply/internal/ratelimit"
	registrationhandler "keeply/internal/registration/handler"
)

// requestBudget bounds a whole request. Registration legitimately blocks
// through visibility polling and upsert retries, so this sits well above
// that worst case.
const requestBudget = 30 * time.Second

// Deps carries everything the router mounts. Limiter is optional.
type Deps struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Registration    *registrationhandler.Handler
	FrontendMetrics *frontendmetrics.Handler
	Verifier        middleware.JWTValidator
	Limiter         *ratelimit.Limiter
}

// NewRouter wires all endpoints behind the shared middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(requestBudget))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter))
		}
		deps.Registration.Routes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Verifier, deps.Logger))
			deps.Registration.AuthenticatedRoutes(r)
		})
	})

	r.Route("/api/metrics", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.FrontendMetrics.Routes(r)
	})

	return r
}
