package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-engsite/internal/auth"
	"go-engsite/internal/content"
	"go-engsite/internal/model"
	"go-engsite/internal/templating"

	"github.com/go-chi/chi/v5"
	"github.com/justinas/nosurf"
)

const recentMessages = 10

// collectionSummary is one row of the dashboard table.
type collectionSummary struct {
	Label  string
	Count  int
	Source content.Source
	Path   string
}

// DashboardPageData holds the dashboard's content block data.
type DashboardPageData struct {
	Collections       []collectionSummary
	ActiveSubscribers int
	NewMessages       int
	BackendUp         bool
	RecentMessages    []model.ContactMessage
}

type loginPageData struct {
	Error    string
	Next     string
	Username string
}

func summarize[T model.Entity](ctx context.Context, label string, repo *content.Repository[T]) collectionSummary {
	list, src := repo.ListWithSource(ctx)
	return collectionSummary{Label: label, Count: len(list), Source: src, Path: repo.Key()}
}

// newPage fills the fields every admin layout needs.
func (app *adminApplication) newPage(r *http.Request, title, active string, data any) templating.Page {
	user, _ := auth.UserFromContext(r.Context())
	return templating.Page{
		SiteTitle: app.siteTitle,
		Title:     title,
		Active:    active,
		Year:      time.Now().Year(),
		CSRFToken: nosurf.Token(r),
		User:      user,
		Data:      data,
	}
}

func (app *adminApplication) render(w http.ResponseWriter, r *http.Request, status int, name string, page templating.Page) {
	var buf bytes.Buffer
	if err := app.engine.Render(&buf, name, page); err != nil {
		app.logger.Error("Error executing admin template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// showMessage answers an HTMX request with a toast trigger and no swap.
func showMessage(w http.ResponseWriter, message, kind string) {
	payload, _ := json.Marshal(map[string]any{"showMessage": map[string]string{"message": message, "type": kind}})
	w.Header().Set("HX-Trigger", string(payload))
	w.Header().Set("HX-Reswap", "none")
	w.WriteHeader(http.StatusOK)
}

func (app *adminApplication) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := app.auth.Verify(auth.TokenFromRequest(r)); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := loginPageData{Next: auth.SafeNext(r.URL.Query().Get("next"))}
	app.render(w, r, http.StatusOK, "login", app.newPage(r, "Sign in", "login", data))
}

func (app *adminApplication) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	next := auth.SafeNext(r.PostForm.Get("next"))

	token, expires, err := app.auth.Login(username, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			app.logger.Error("Login failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		app.logger.Warn("Rejected admin login", "username", username, "remote", r.RemoteAddr)
		data := loginPageData{Error: "Invalid username or password.", Next: next, Username: username}
		app.render(w, r, http.StatusUnauthorized, "login", app.newPage(r, "Sign in", "login", data))
		return
	}

	app.auth.SetCookie(w, token, expires)
	app.logger.Info("Admin signed in", "username", username)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (app *adminApplication) logoutHandler(w http.ResponseWriter, r *http.Request) {
	app.auth.Logout(auth.TokenFromRequest(r))
	app.auth.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// dashboardHandler serves the main admin dashboard page.
func (app *adminApplication) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	site := app.site

	data := DashboardPageData{
		Collections: []collectionSummary{
			summarize(ctx, "Blog posts", site.Blog.Repo()),
			summarize(ctx, "Events", site.Events.Repo()),
			summarize(ctx, "Team members", site.Team.Repo()),
			summarize(ctx, "Testimonials", site.Testimonials.Repo()),
			summarize(ctx, "Tree packages", site.Packages.Repo()),
			summarize(ctx, "Buttons", site.Buttons.Repo()),
			summarize(ctx, "Subscribers", site.Newsletter.Repo()),
			summarize(ctx, "Contact messages", site.Contact.Repo()),
			summarize(ctx, "Payments", site.Payments),
		},
		ActiveSubscribers: site.Newsletter.ActiveCount(ctx),
		NewMessages:       site.Contact.CountByStatus(ctx)[model.MessageNew],
		BackendUp:         app.backendUp(ctx),
	}
	msgs := site.Contact.List(ctx)
	if len(msgs) > recentMessages {
		msgs = msgs[:recentMessages]
	}
	data.RecentMessages = msgs

	app.render(w, r, http.StatusOK, "dashboard", app.newPage(r, "Dashboard", "dashboard", data))
}

func (app *adminApplication) backendUp(ctx context.Context) bool {
	if app.backend == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return app.backend.Ping(ctx) == nil
}

// messageStatusFormHandler handles the status form on the dashboard.
func (app *adminApplication) messageStatusFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	status := model.MessageStatus(r.PostForm.Get("status"))
	isHTMX := r.Header.Get("HX-Request") == "true"

	_, err := app.site.Contact.SetStatus(r.Context(), id, status)
	if err != nil {
		app.logger.Error("Failed to update message status", "id", id, "status", status, "error", err)
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, model.ErrInvalid):
			code = http.StatusBadRequest
		case errors.Is(err, content.ErrNotFound):
			code = http.StatusNotFound
		}
		if isHTMX {
			showMessage(w, fmt.Sprintf("Could not update message: %v", err), "error")
			return
		}
		http.Error(w, http.StatusText(code), code)
		return
	}

	if isHTMX {
		showMessage(w, fmt.Sprintf("Message marked %s.", status), "success")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *adminApplication) subscribersCSVHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := app.site.Newsletter.ExportCSV(r.Context(), &buf); err != nil {
		app.logger.Error("Failed to export subscribers", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="subscribers.csv"`)
	buf.WriteTo(w)
}
