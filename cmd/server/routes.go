package main

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"go-engsite/internal/bus"
	"go-engsite/internal/config"
	"go-engsite/internal/content"
	"go-engsite/internal/generator"
	"go-engsite/internal/livesync"
	"go-engsite/internal/model"
	"go-engsite/internal/payment"
	"go-engsite/internal/templating"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// application holds the site server's dependencies.
type application struct {
	logger    *slog.Logger
	staticDir string
	site      *content.Site
	engine    *templating.Engine
	views     generator.Views
	lists     liveLists
	payments  *payment.Handler // nil leaves the payment routes unmounted
}

// liveLists are the public collections the pages render from.
type liveLists struct {
	posts        *livesync.List[model.BlogPost]
	events       *livesync.List[model.Event]
	team         *livesync.List[model.TeamMember]
	testimonials *livesync.List[model.Testimonial]
	packages     *livesync.List[model.TreePackage]
	buttons      *livesync.List[model.Button]
}

func newLiveLists(site *content.Site, b *bus.Bus, opts livesync.Options) liveLists {
	return liveLists{
		posts:        livesync.New(model.KeyBlogPosts, site.Blog.Published, b, opts),
		events:       livesync.New(model.KeyEvents, site.Events.List, b, opts),
		team:         livesync.New(model.KeyTeam, site.Team.Active, b, opts),
		testimonials: livesync.New(model.KeyTestimonials, site.Testimonials.Active, b, opts),
		packages:     livesync.New(model.KeyTreePackages, site.Packages.List, b, opts),
		buttons:      livesync.New(model.KeyButtons, site.Buttons.List, b, opts),
	}
}

func (l liveLists) runners() []livesync.Runner {
	return []livesync.Runner{l.posts, l.events, l.team, l.testimonials, l.packages, l.buttons}
}

func (l liveLists) snapshot() generator.Snapshot {
	return generator.Snapshot{
		Posts:        l.posts.Snapshot(),
		Events:       l.events.Snapshot(),
		Team:         l.team.Snapshot(),
		Testimonials: l.testimonials.Snapshot(),
		Packages:     l.packages.Snapshot(),
		Buttons:      l.buttons.Snapshot(),
	}
}

func newApplication(cfg *config.Config, logger *slog.Logger, site *content.Site, engine *templating.Engine, b *bus.Bus) *application {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &application{
		logger:    logger,
		staticDir: cfg.Server.StaticDir,
		site:      site,
		engine:    engine,
		views:     generator.Views{SiteTitle: cfg.Site.Title},
		lists:     newLiveLists(site, b, livesync.Options{Interval: cfg.Sync.Interval, Logger: logger}),
	}
}

// routes sets up the public router.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	fs := http.FileServer(http.Dir(app.staticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))

	r.Get("/healthz", app.healthHandler)

	r.Get("/", app.homeHandler)
	r.Get("/blog", app.blogHandler)
	r.Get("/blog/{slug}", app.postHandler)
	r.Get("/team", app.teamHandler)
	r.Get("/testimonials", app.testimonialsHandler)
	r.Get("/packages", app.packagesHandler)
	r.Get("/events", app.eventsHandler)
	r.Get("/contact", app.contactFormHandler)
	r.Post("/contact", app.contactSubmitHandler)
	r.Post("/newsletter", app.subscribeHandler)
	r.Post("/newsletter/unsubscribe", app.unsubscribeHandler)

	r.Get("/api/{entity}", app.apiListHandler)
	if app.payments != nil {
		app.payments.Mount(r)
	}

	r.NotFound(app.notFoundHandler)
	return r
}
