// Package markdown renders the Markdown bodies of journals and announcements.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to HTML. Raw HTML in the source is dropped.
// A Renderer is safe for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render converts src to HTML.
func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	// goldmark escapes raw HTML unless html.WithUnsafe is set.
	return template.HTML(buf.String()), nil
}

// Excerpt returns the first n runes of src as plain text, with Markdown
// markers and line breaks flattened.
func Excerpt(src string, n int) string {
	src = strings.NewReplacer("#", "", "*", "", "_", "", "`", "", ">", "").Replace(src)
	src = strings.Join(strings.Fields(src), " ")
	if utf8.RuneCountInString(src) <= n {
		return src
	}
	runes := []rune(src)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
