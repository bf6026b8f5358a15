package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/views"
	"github.com/naeap/journal/internal/listing"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/store"
)

const (
	homeJournals       = 3
	homeAnnouncements  = 3
	aboutAnnouncements = 10
	maxArchivePages    = 50
)

type homeData struct {
	Journals         []domain.Journal
	JournalsErr      bool
	Announcements    []domain.Announcement
	AnnouncementsErr bool
}

type aboutData struct {
	Announcements []domain.Announcement
	Err           bool
}

type archivesData struct {
	View     listing.View[domain.Journal]
	Pages    int
	MoreURL  string
	RetryURL string
}

// Home shows the latest published journals and the active announcements.
// A failing half of the page does not hide the other.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data homeData
		var err error

		if data.Journals, err = d.Content.LatestJournals(r.Context(), homeJournals); err != nil {
			d.Logger.Error("failed to fetch journals", logger.Error(err))
			data.JournalsErr = true
		}
		if data.Announcements, err = d.Content.ActiveAnnouncements(r.Context(), homeAnnouncements); err != nil {
			d.Logger.Error("failed to fetch announcements", logger.Error(err))
			data.AnnouncementsErr = true
		}

		render(d, w, r, "home", views.Page{Nav: "home", Data: data})
	}
}

// About shows the journal description and the active announcements.
func About(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data aboutData
		var err error
		if data.Announcements, err = d.Content.ActiveAnnouncements(r.Context(), aboutAnnouncements); err != nil {
			d.Logger.Error("failed to fetch announcements", logger.Error(err))
			data.Err = true
		}
		render(d, w, r, "about", views.Page{Title: "About", Nav: "about", Data: data})
	}
}

// Archives lists published journals. pages is the number of pages loaded
// so far; "load more" links to pages+1. Search and year only refine the
// loaded records.
func Archives(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := listing.Filter{Search: strings.TrimSpace(q.Get("q"))}
		if y, err := strconv.Atoi(q.Get("year")); err == nil && y > 0 {
			filter.Year = y
		}
		pages := 1
		if p, err := strconv.Atoi(q.Get("pages")); err == nil {
			pages = min(max(p, 1), maxArchivePages)
		}

		archive := listing.New[domain.Journal](d.Content.JournalPage, d.ArchivePageSize)
		if err := archive.LoadPages(r.Context(), pages); err != nil {
			d.Logger.Error("failed to fetch journals",
				logger.Int("pages", pages),
				logger.Int("loaded", len(archive.Items())),
				logger.Error(err))
		}

		data := archivesData{
			View:     archive.View(filter),
			Pages:    pages,
			MoreURL:  archivesURL(filter, pages+1),
			RetryURL: archivesURL(filter, pages),
		}
		render(d, w, r, "archives", views.Page{Title: "Archives", Nav: "archives", Data: data})
	}
}

func archivesURL(f listing.Filter, pages int) string {
	v := url.Values{}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.Year != 0 {
		v.Set("year", strconv.Itoa(f.Year))
	}
	v.Set("pages", strconv.Itoa(pages))
	return "/archives?" + v.Encode()
}

// Journal shows one published journal.
func Journal(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := d.Content.Journal(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, store.ErrNotFound) || (err == nil && !j.Visible()):
			renderError(d, w, r, http.StatusNotFound, "This journal does not exist or is not published.")
			return
		case err != nil:
			d.Logger.Error("failed to fetch journal", logger.Error(err))
			renderError(d, w, r, http.StatusServiceUnavailable, "Failed to fetch journals")
			return
		}
		render(d, w, r, "journal", views.Page{Title: j.Title, Nav: "archives", Data: j})
	}
}
