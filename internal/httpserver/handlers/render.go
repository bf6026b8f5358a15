package handlers

import (
	"net/http"
	"time"

	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/views"
	"github.com/naeap/journal/internal/logger"
)

type errorData struct {
	Status  int
	Message string
}

func now(d deps.Deps) time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

// signedIn reports whether r carries a valid console session. The cookie is
// scoped to /admin, so this only means something on console routes.
func signedIn(d deps.Deps, r *http.Request) bool {
	if d.Auth == nil {
		return false
	}
	_, err := d.Auth.FromRequest(r)
	return err == nil
}

func render(d deps.Deps, w http.ResponseWriter, r *http.Request, name string, p views.Page) {
	if err := d.Views.Render(w, name, p); err != nil {
		d.Logger.Error("failed to render page",
			logger.String("page", name),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func renderError(d deps.Deps, w http.ResponseWriter, r *http.Request, status int, msg string) {
	render(d, w, r, "error", views.Page{
		Title:  http.StatusText(status),
		Data:   errorData{Status: status, Message: msg},
		Status: status,
	})
}

// NotFound renders the 404 page.
func NotFound(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderError(d, w, r, http.StatusNotFound, "The page you are looking for does not exist.")
	}
}
