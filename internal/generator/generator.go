// Package generator builds the public pages from content snapshots. The
// live server renders Views per request; Export writes the same pages to a
// directory for static hosting.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go-engsite/internal/model"
	"go-engsite/internal/templating"
	"go-engsite/pkg/fsutils"
)

// Config holds the export settings.
type Config struct {
	OutDir    string // destination; created if missing
	StaticDir string // copied to OutDir/static when it exists
	SiteTitle string
	BaseURL   string // absolute site URL used in sitemap.xml
}

// Result summarises an export.
type Result struct {
	Pages  []string // paths relative to OutDir
	Assets bool     // whether StaticDir was copied
}

// Exporter renders every public page into Config.OutDir.
type Exporter struct {
	cfg    Config
	engine *templating.Engine
	logger *slog.Logger
}

// NewExporter returns an Exporter using engine for the site set.
func NewExporter(cfg Config, engine *templating.Engine, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{cfg: cfg, engine: engine, logger: logger}
}

// Export writes the HTML pages, JSON snapshots for client widgets,
// sitemap.xml and the static assets.
func (e *Exporter) Export(ctx context.Context, s Snapshot) (Result, error) {
	if e.cfg.OutDir == "" {
		return Result{}, fmt.Errorf("export: output directory is required")
	}
	if err := fsutils.CreateDir(e.cfg.OutDir); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", e.cfg.OutDir, err)
	}

	// Links stay root-relative so the export works on any host.
	views := Views{SiteTitle: e.cfg.SiteTitle, Static: true}
	pages := map[string]View{
		"index.html":              views.Home(s),
		"blog/index.html":         views.Blog(s),
		"team/index.html":         views.Team(s),
		"testimonials/index.html": views.Testimonials(s),
		"packages/index.html":     views.Packages(s),
		"events/index.html":       views.Events(s),
		"contact/index.html":      views.Contact(ContactData{}),
		"404.html":                views.NotFound(),
	}
	for _, p := range s.Posts {
		if !model.ValidSlug(p.Slug) {
			e.logger.Warn("Skipping post with unusable slug", "id", p.ID, "slug", p.Slug)
			continue
		}
		pages[path.Join("blog", p.Slug, "index.html")] = views.Post(s, p)
	}

	var res Result
	for _, rel := range sortedKeys(pages) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		v := pages[rel]
		var buf bytes.Buffer
		if err := e.engine.Render(&buf, v.Template, v.Page); err != nil {
			return res, fmt.Errorf("rendering %s: %w", rel, err)
		}
		if err := e.write(rel, buf.Bytes()); err != nil {
			return res, err
		}
		res.Pages = append(res.Pages, rel)
	}

	if err := e.writeSnapshots(s); err != nil {
		return res, err
	}
	if err := e.writeSitemap(res.Pages); err != nil {
		return res, err
	}

	if e.cfg.StaticDir != "" {
		if info, err := os.Stat(e.cfg.StaticDir); err == nil && info.IsDir() {
			if err := fsutils.CopyDir(e.cfg.StaticDir, filepath.Join(e.cfg.OutDir, "static")); err != nil {
				return res, fmt.Errorf("copying static assets: %w", err)
			}
			res.Assets = true
		} else {
			e.logger.Warn("Static directory not found, skipping assets", "path", e.cfg.StaticDir)
		}
	}

	e.logger.Info("Static export complete", "out", e.cfg.OutDir, "pages", len(res.Pages), "assets", res.Assets)
	return res, nil
}

// write refuses any path that would land outside OutDir.
func (e *Exporter) write(rel string, data []byte) error {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("refusing to write %q outside the output directory", rel)
	}
	full := filepath.Join(e.cfg.OutDir, local)
	if err := fsutils.CreateDir(filepath.Dir(full)); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := fsutils.WriteToFile(full, data); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// writeSnapshots mirrors the live /api/{entity} endpoints as api/<key>.json.
func (e *Exporter) writeSnapshots(s Snapshot) error {
	snapshots := map[string]any{
		model.KeyBlogPosts:    s.Posts,
		model.KeyEvents:       s.Events,
		model.KeyTeam:         s.Team,
		model.KeyTestimonials: s.Testimonials,
		model.KeyTreePackages: s.Packages,
		model.KeyButtons:      s.Buttons,
	}
	for _, key := range sortedKeys(snapshots) {
		data, err := json.MarshalIndent(nonNil(snapshots[key]), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s snapshot: %w", key, err)
		}
		if err := e.write(path.Join("api", key+".json"), data); err != nil {
			return err
		}
	}
	return nil
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (e *Exporter) writeSitemap(pages []string) error {
	base := strings.TrimSuffix(e.cfg.BaseURL, "/")
	sm := sitemap{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range pages {
		if p == "404.html" {
			continue
		}
		loc := "/" + strings.TrimSuffix(strings.TrimSuffix(p, "index.html"), "/")
		if loc != "/" {
			loc += "/"
		}
		sm.URLs = append(sm.URLs, sitemapURL{Loc: base + loc})
	}
	out, err := xml.MarshalIndent(sm, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sitemap: %w", err)
	}
	return e.write("sitemap.xml", append([]byte(xml.Header), out...))
}
