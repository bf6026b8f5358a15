package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/naeap/journal/internal/auth"
	"github.com/naeap/journal/internal/console"
	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/mw"
	"github.com/naeap/journal/internal/httpserver/views"
	"github.com/naeap/journal/internal/logger"
)

const consolePath = "/admin"

type loginData struct {
	Username string
	Failed   bool
}

type adminData struct {
	Snapshot console.Snapshot
}

// LoginPage renders the console sign-in form, or sends signed-in operators
// straight to the console.
func LoginPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if signedIn(d, r) {
			http.Redirect(w, r, consolePath, http.StatusSeeOther)
			return
		}
		render(d, w, r, "login", views.Page{Title: "Sign in", Data: loginData{}})
	}
}

// Login checks the credentials and sets the session cookie.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.PostFormValue("username"))
		s, token, err := d.Auth.Login(username, r.PostFormValue("password"))
		if err != nil {
			d.Logger.Warn("console sign-in rejected",
				logger.String("username", username),
				logger.String("remote_ip", r.RemoteAddr))
			render(d, w, r, "login", views.Page{
				Title:  "Sign in",
				Data:   loginData{Username: username, Failed: true},
				Status: http.StatusUnauthorized,
			})
			return
		}

		d.Logger.Info("console sign-in", logger.String("session", s.ID))
		http.SetCookie(w, auth.Cookie(token, s.ExpiresAt, d.SecureCookies))
		http.Redirect(w, r, consolePath, http.StatusSeeOther)
	}
}

// Logout drops the session's console and clears the cookie.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := mw.SessionFrom(r.Context()); ok {
			d.Consoles.Drop(s.ID)
			d.Logger.Info("console sign-out", logger.String("session", s.ID))
		}
		http.SetCookie(w, auth.ClearCookie(d.SecureCookies))
		http.Redirect(w, r, mw.LoginPath, http.StatusSeeOther)
	}
}

// Console renders the operator's console, loading both lists on first use.
func Console(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := sessionConsole(d, w, r)
		if !ok {
			return
		}
		if tab := r.URL.Query().Get("tab"); tab != "" {
			if kind, err := console.ParseKind(tab); err == nil {
				c.SetTab(kind)
			}
		}
		if c.NeedsLoad() {
			if err := c.Refresh(r.Context()); err != nil {
				d.Logger.Warn("console lists failed to load", logger.Error(err))
			}
		}

		w.Header().Set("Cache-Control", "no-store")
		render(d, w, r, "admin", views.Page{
			Title: "Console",
			Nav:   "admin",
			Admin: true,
			Data:  adminData{Snapshot: c.Snapshot()},
		})
	}
}

// ConsoleAction is one state change of the console. Every action ends with
// a redirect back to the console.
type ConsoleAction func(r *http.Request, c *console.Console) error

// Act wraps a console action into a POST handler.
func Act(d deps.Deps, name string, action ConsoleAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := sessionConsole(d, w, r)
		if !ok {
			return
		}

		if err := action(r, c); err != nil {
			var verr *domain.ValidationError
			switch {
			case errors.As(err, &verr), errors.Is(err, console.ErrBusy),
				errors.Is(err, console.ErrNoEditor), errors.Is(err, console.ErrNoPendingDelete):
				d.Logger.Debug("console action refused",
					logger.String("action", name),
					logger.Error(err))
			case errors.Is(err, errUnknownKind):
				renderError(d, w, r, http.StatusNotFound, "Unknown record type.")
				return
			default:
				d.Logger.Warn("console action failed",
					logger.String("action", name),
					logger.Error(err))
			}
		}
		http.Redirect(w, r, consolePath, http.StatusSeeOther)
	}
}

var errUnknownKind = errors.New("unknown record kind")

func kindParam(r *http.Request) (console.Kind, error) {
	kind, err := console.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", errUnknownKind
	}
	return kind, nil
}

// The console actions.

func ActRefresh(r *http.Request, c *console.Console) error {
	if kind, err := console.ParseKind(r.PostFormValue("tab")); err == nil {
		c.SetTab(kind)
	}
	return c.Refresh(r.Context())
}

func ActDismiss(r *http.Request, c *console.Console) error {
	c.DismissNotice()
	return nil
}

func ActNew(r *http.Request, c *console.Console) error {
	kind, err := kindParam(r)
	if err != nil {
		return err
	}
	c.SetTab(kind)
	return c.OpenCreate(kind)
}

func ActEdit(r *http.Request, c *console.Console) error {
	kind, err := kindParam(r)
	if err != nil {
		return err
	}
	c.SetTab(kind)
	return c.OpenEdit(r.Context(), kind, chi.URLParam(r, "id"))
}

func ActCancel(r *http.Request, c *console.Console) error {
	return c.Cancel()
}

// ActSubmit copies the posted fields into the open editor and submits it.
func ActSubmit(r *http.Request, c *console.Console) error {
	e := c.Snapshot().Editor
	if e == nil {
		return console.ErrNoEditor
	}

	var err error
	if e.Kind == console.KindJournal {
		err = c.SetJournalForm(domain.JournalForm{
			Title:            r.PostFormValue("title"),
			ShortDescription: r.PostFormValue("shortDescription"),
			DownloadLink:     r.PostFormValue("downloadLink"),
			Volume:           r.PostFormValue("volume"),
			Content:          r.PostFormValue("content"),
			Tags:             r.PostFormValue("tags"),
			Authors:          r.PostFormValue("authors"),
			Published:        checked(r, "isPublished"),
		})
	} else {
		err = c.SetAnnouncementForm(domain.AnnouncementForm{
			Title:   r.PostFormValue("title"),
			Content: r.PostFormValue("content"),
			Active:  checked(r, "isActive"),
		})
	}
	if err != nil {
		return err
	}
	return c.Submit(r.Context())
}

func ActRequestDelete(r *http.Request, c *console.Console) error {
	kind, err := kindParam(r)
	if err != nil {
		return err
	}
	return c.RequestDelete(kind, chi.URLParam(r, "id"))
}

func ActConfirmDelete(r *http.Request, c *console.Console) error {
	return c.ConfirmDelete(r.Context())
}

func ActCancelDelete(r *http.Request, c *console.Console) error {
	return c.CancelDelete()
}

func ActLoadMore(r *http.Request, c *console.Console) error {
	kind, err := kindParam(r)
	if err != nil {
		return err
	}
	return c.LoadMore(r.Context(), kind)
}

func ActRetry(r *http.Request, c *console.Console) error {
	kind, err := kindParam(r)
	if err != nil {
		return err
	}
	return c.RetryList(r.Context(), kind)
}

func checked(r *http.Request, field string) bool {
	switch strings.ToLower(r.PostFormValue(field)) {
	case "", "false", "off", "0":
		return false
	}
	return true
}

func sessionConsole(d deps.Deps, w http.ResponseWriter, r *http.Request) (*console.Console, bool) {
	s, ok := mw.SessionFrom(r.Context())
	if !ok {
		http.Redirect(w, r, mw.LoginPath, http.StatusSeeOther)
		return nil, false
	}
	return d.Consoles.Get(s.ID), true
}
