// Package templating renders the site and admin pages from embedded
// html/template files. Every page file defines a "content" block that the
// set's layout.html wraps; HTMX requests get the block alone.
package templating

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates
var templateFS embed.FS

// Set names a template directory with its own layout.
type Set string

const (
	SiteSet  Set = "site"
	AdminSet Set = "admin"
)

// Page is the data every layout receives.
type Page struct {
	SiteTitle string
	BaseURL   string
	Title     string
	Active    string // nav item to highlight
	Year      int
	CSRFToken string
	User      string
	Flash     string
	Static    bool // rendered for static export; dynamic forms are hidden
	Data      any
}

// Engine holds the parsed pages of one Set.
type Engine struct {
	set   Set
	pages map[string]*template.Template
}

// NewEngine parses every page of set against its layout.
func NewEngine(set Set) (*Engine, error) {
	dir := path.Join("templates", string(set))
	entries, err := fs.ReadDir(templateFS, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s templates: %w", set, err)
	}

	layout := path.Join(dir, "layout.html")
	e := &Engine{set: set, pages: make(map[string]*template.Template)}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "layout.html" || !strings.HasSuffix(name, ".html") {
			continue
		}
		ts, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS, layout, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("parsing page template %s: %w", name, err)
		}
		e.pages[strings.TrimSuffix(name, ".html")] = ts
	}
	if len(e.pages) == 0 {
		return nil, fmt.Errorf("no page templates found in %s", dir)
	}
	return e, nil
}

// Pages lists the page names the engine can render.
func (e *Engine) Pages() []string {
	names := make([]string, 0, len(e.pages))
	for n := range e.pages {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Render writes the full layout for page. Output is buffered so a failing
// template never leaves a half-written response.
func (e *Engine) Render(w io.Writer, page string, data Page) error {
	return e.execute(w, page, "layout.html", data)
}

// RenderFragment writes only the page's "content" block.
func (e *Engine) RenderFragment(w io.Writer, page string, data Page) error {
	return e.execute(w, page, "content", data)
}

// RenderString is Render into a string.
func (e *Engine) RenderString(page string, data Page) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, page, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) execute(w io.Writer, page, entry string, data Page) error {
	ts, ok := e.pages[page]
	if !ok {
		return fmt.Errorf("template %s/%s not found", e.set, page)
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	var buf bytes.Buffer
	if err := ts.ExecuteTemplate(&buf, entry, data); err != nil {
		return fmt.Errorf("executing %s/%s: %w", e.set, page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var printer = message.NewPrinter(language.English)

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("January 2, 2006")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Mon, Jan 2 2006 15:04")
		},
		"money":    Money,
		"stars":    Stars,
		"trusted":  func(s string) template.HTML { return template.HTML(s) },
		"initials": Initials,
		"join":     strings.Join,
	}
}

// Money formats an amount with thousands separators, e.g. "Tsh 30,000".
func Money(amount float64, currency string) string {
	s := printer.Sprintf("%.0f", amount)
	if currency == "" {
		return s
	}
	return currency + " " + s
}

// Stars renders a 1..5 rating as filled and empty stars.
func Stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// Initials returns up to two upper-case initials of name.
func Initials(name string) string {
	var out []rune
	for _, f := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(f))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
