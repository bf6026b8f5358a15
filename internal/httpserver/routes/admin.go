package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/naeap/journal/internal/httpserver/deps"
	h "github.com/naeap/journal/internal/httpserver/handlers"
	"github.com/naeap/journal/internal/httpserver/mw"
)

func init() { Register(registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.NoStore())

		r.With(loginLimit(d)).Post("/login", h.Login(d))
		r.Get("/login", h.LoginPage(d))

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin(d.Auth, d.SecureCookies, d.Logger))

			r.Get("/", h.Console(d))
			r.Post("/logout", h.Logout(d))
			r.Post("/refresh", h.Act(d, "refresh", h.ActRefresh))
			r.Post("/notice/dismiss", h.Act(d, "dismiss", h.ActDismiss))

			r.Post("/editor/submit", h.Act(d, "submit", h.ActSubmit))
			r.Post("/editor/cancel", h.Act(d, "cancel", h.ActCancel))
			r.Post("/delete/confirm", h.Act(d, "confirm-delete", h.ActConfirmDelete))
			r.Post("/delete/cancel", h.Act(d, "cancel-delete", h.ActCancelDelete))

			r.Post("/{kind}/new", h.Act(d, "new", h.ActNew))
			r.Post("/{kind}/more", h.Act(d, "more", h.ActLoadMore))
			r.Post("/{kind}/retry", h.Act(d, "retry", h.ActRetry))
			r.Post("/{kind}/{id}/edit", h.Act(d, "edit", h.ActEdit))
			r.Post("/{kind}/{id}/delete", h.Act(d, "delete", h.ActRequestDelete))
		})
	})
}

func loginLimit(d deps.Deps) Middleware {
	return mw.RateLimit(mw.RateLimitConfig{
		Burst:        5,
		RefillPerMin: 5,
		MaxEntries:   d.FormLimiterMaxIPs,
		TrustProxy:   d.TrustProxy,
	})
}
