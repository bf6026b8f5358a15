package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/handlers"
	"github.com/naeap/journal/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// registerOps mounts the health, readiness and metrics endpoints. Only
// healthz is public.
func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	restricted := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	restricted.Get("/readyz", handlers.Readyz(d))
	if d.Metrics != nil {
		restricted.Method("GET", "/metrics", d.Metrics.Handler())
	}
}
