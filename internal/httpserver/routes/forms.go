package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/handlers"
	"github.com/naeap/journal/internal/httpserver/mw"
)

func init() { Register(registerForms) }

// registerForms mounts the public forms. Each form has its own per-IP
// budget of posts.
func registerForms(r chi.Router, d deps.Deps) {
	r.Get("/submissions", handlers.SubmissionPage(d))
	r.With(formLimit(d, "submission")).Post("/submissions", handlers.Submit(d))

	r.Get("/complaints", handlers.ComplaintPage(d))
	r.With(formLimit(d, "complaint")).Post("/complaints", handlers.Complain(d))
}

func formLimit(d deps.Deps, form string) Middleware {
	return mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.FormBurst,
		RefillPerMin: d.FormRefillPerMin,
		MaxEntries:   d.FormLimiterMaxIPs,
		TrustProxy:   d.TrustProxy,
		OnReject: func(*http.Request) {
			d.Metrics.FormPosted(form, "limited")
		},
	})
}
