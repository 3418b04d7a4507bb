// Package http assembles the service router: middleware chain, public
// health and metrics endpoints, and the authenticated business surface.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/middleware"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// Registrar is implemented by domain handlers that mount their own routes.
type Registrar interface {
	Register(chi.Router)
}

// HealthChecker reports readiness of one dependency.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router needs.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator

	// Handlers mounted behind authentication.
	Authed []Registrar

	// Health checks run by GET /healthz; nil values are skipped.
	Checks map[string]HealthChecker
}

// New assembles the chi router. All business routes sit behind RequireAuth
// so the uniform 401 fires before any handler logic; health and metrics stay
// public.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		for _, reg := range deps.Authed {
			reg.Register(r)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
