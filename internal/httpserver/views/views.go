// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/naeap/journal/internal/markdown"
)

//go:embed templates/*.html
var files embed.FS

const layoutFile = "templates/layout.html"

// Views holds one parsed template set per page, each sharing the layout.
type Views struct {
	pages map[string]*template.Template
}

// New parses every page template.
func New(md *markdown.Renderer) (*Views, error) {
	funcs := template.FuncMap{
		"markdown": func(src string) template.HTML {
			out, err := md.Render(src)
			if err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			return out
		},
		"excerpt": markdown.Excerpt,
		"date":    func(t time.Time) string { return t.UTC().Format("January 2, 2006") },
		"join":    strings.Join,
		"add":     func(a, b int) int { return a + b },
	}

	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	v := &Views{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		if name == layoutFile {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, layoutFile, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return v, nil
}

// Page is the data every page template receives.
type Page struct {
	Title  string
	Nav    string // active navigation entry
	Admin  bool   // an operator is signed in
	Data   any
	Status int
}

// Render writes page name with status p.Status (200 when zero). The page is
// rendered into a buffer first so a template error never produces half a
// response.
func (v *Views) Render(w http.ResponseWriter, name string, p Page) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	status := p.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
