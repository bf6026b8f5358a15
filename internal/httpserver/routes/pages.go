package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/handlers"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Home(d))
	r.Get("/about", handlers.About(d))
	r.Get("/archives", handlers.Archives(d))
	r.Get("/journals/{id}", handlers.Journal(d))
}
