package main

import (
	"net/http"
	"strings"
	"time"

	"go-engsite/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/nosurf"
)

// routes sets up the HTTP router for the admin application.
func (app *adminApplication) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Group(func(r chi.Router) {
		r.Use(middleware.StripSlashes)
		fs := http.FileServer(http.Dir(app.staticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
	})

	r.Get("/login", app.loginFormHandler)
	r.Post("/login", app.loginHandler)
	r.Post("/logout", app.logoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.auth.RequireAdmin)

		r.Get("/", app.dashboardHandler)
		r.Post("/messages/{id}/status", app.messageStatusFormHandler)
		r.Get("/subscribers.csv", app.subscribersCSVHandler)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(requireJSONBody)

			mountCRUD(r, model.KeyBlogPosts, crud[model.BlogPost]{
				list: app.site.Blog.List, get: app.site.Blog.Get, create: app.site.Blog.Create,
				update: app.site.Blog.Update, remove: app.site.Blog.Delete,
			}, app)
			mountCRUD(r, model.KeyEvents, crud[model.Event]{
				list: app.site.Events.List, get: app.site.Events.Get, create: app.site.Events.Create,
				update: app.site.Events.Update, remove: app.site.Events.Delete,
			}, app)
			mountCRUD(r, model.KeyTeam, crud[model.TeamMember]{
				list: app.site.Team.List, get: app.site.Team.Get, create: app.site.Team.Create,
				update: app.site.Team.Update, remove: app.site.Team.Delete,
			}, app)
			mountCRUD(r, model.KeyTestimonials, crud[model.Testimonial]{
				list: app.site.Testimonials.List, get: app.site.Testimonials.Get, create: app.site.Testimonials.Create,
				update: app.site.Testimonials.Update, remove: app.site.Testimonials.Delete,
			}, app)
			mountCRUD(r, model.KeyTreePackages, crud[model.TreePackage]{
				list: app.site.Packages.List, get: app.site.Packages.Get, create: app.site.Packages.Create,
				update: app.site.Packages.Update, remove: app.site.Packages.Delete,
			}, app)
			mountCRUD(r, model.KeyButtons, crud[model.Button]{
				list: app.site.Buttons.List, get: app.site.Buttons.Get, create: app.site.Buttons.Create,
				update: app.site.Buttons.Update, remove: app.site.Buttons.Delete,
			}, app)
			mountCRUD(r, model.KeySubscribers, crud[model.NewsletterSubscriber]{
				list: app.site.Newsletter.List, remove: app.site.Newsletter.Delete,
			}, app)
			mountCRUD(r, model.KeyMessages, crud[model.ContactMessage]{
				list: app.site.Contact.List, get: app.site.Contact.Get, remove: app.site.Contact.Delete,
			}, app)
			mountCRUD(r, model.KeyPayments, crud[model.Payment]{
				list: app.site.Payments.List, get: app.site.Payments.Get,
			}, app)

			r.Post("/"+model.KeyEvents+"/{id}/status", app.eventStatusHandler)
			r.Post("/"+model.KeyEvents+"/{id}/featured", app.eventFeaturedHandler)
			r.Post("/"+model.KeyTeam+"/reorder", app.teamReorderHandler)
			r.Post("/"+model.KeyMessages+"/{id}/status", app.messageStatusHandler)
			r.Post("/"+model.KeySubscribers+"/subscribe", app.subscribeHandler)
			r.Post("/"+model.KeySubscribers+"/unsubscribe", app.unsubscribeHandler)
		})
	})

	return app.csrf(r)
}

// csrf protects every form post. The JSON API is exempt: it only accepts
// application/json bodies, which a cross-site form cannot send, and the
// session cookie is SameSite=Lax.
func (app *adminApplication) csrf(next http.Handler) http.Handler {
	h := nosurf.New(next)
	h.SetBaseCookie(http.Cookie{
		Path:     "/",
		HttpOnly: true,
		Secure:   app.secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.ExemptFunc(func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/api/admin/") })
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.Warn("CSRF check failed", "path", r.URL.Path, "reason", nosurf.Reason(r))
		http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
	}))
	return h
}

// requireJSONBody rejects writes that are not declared as JSON.
func requireJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if !isJSON(r.Header.Get("Content-Type")) {
				writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "content type must be application/json"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
