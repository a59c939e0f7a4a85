package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go-engsite/internal/content"
	"go-engsite/internal/generator"
	"go-engsite/internal/model"

	"github.com/go-chi/chi/v5"
)

// render writes v as a full page, or as the bare content block for HTMX
// requests.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, v generator.View) {
	var buf bytes.Buffer
	var err error
	if r.Header.Get("HX-Request") == "true" {
		err = app.engine.RenderFragment(&buf, v.Template, v.Page)
	} else {
		err = app.engine.Render(&buf, v.Template, v.Page)
	}
	if err != nil {
		app.logger.Error("Error rendering page", "template", v.Template, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		app.logger.Debug("Client went away while writing page", "template", v.Template, "error", err)
	}
}

func (app *application) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *application) homeHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Home(app.lists.snapshot()))
}

func (app *application) blogHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Blog(app.lists.snapshot()))
}

func (app *application) postHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.lists.snapshot()
	post, ok := generator.FindPost(snap.Posts, chi.URLParam(r, "slug"))
	if !ok {
		app.notFoundHandler(w, r)
		return
	}
	app.render(w, r, http.StatusOK, app.views.Post(snap, post))
}

func (app *application) teamHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Team(app.lists.snapshot()))
}

func (app *application) testimonialsHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Testimonials(app.lists.snapshot()))
}

func (app *application) packagesHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Packages(app.lists.snapshot()))
}

func (app *application) eventsHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Events(app.lists.snapshot()))
}

func (app *application) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	app.render(w, r, http.StatusNotFound, app.views.NotFound())
}

func (app *application) contactFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, app.views.Contact(generator.ContactData{}))
}

func (app *application) contactSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := generator.ContactForm{
		FirstName: r.PostForm.Get("firstName"),
		LastName:  r.PostForm.Get("lastName"),
		Email:     r.PostForm.Get("email"),
		Phone:     r.PostForm.Get("phone"),
		Subject:   r.PostForm.Get("subject"),
		Message:   r.PostForm.Get("message"),
	}

	_, err := app.site.Contact.Submit(r.Context(), model.ContactMessage{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		Subject:   form.Subject,
		Message:   form.Message,
	})
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		app.render(w, r, http.StatusUnprocessableEntity, app.views.Contact(generator.ContactData{
			Form:   form,
			Errors: map[string]string{verr.Field: verr.Message},
		}))
	case err != nil:
		app.logger.Error("Failed to store contact message", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	default:
		app.logger.Info("Contact message received", "subject", form.Subject)
		app.render(w, r, http.StatusOK, app.views.Contact(generator.ContactData{Sent: true}))
	}
}

func (app *application) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	_, err := app.site.Newsletter.Subscribe(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("source"))
	switch {
	case errors.Is(err, model.ErrInvalid):
		app.render(w, r, http.StatusUnprocessableEntity, app.views.Message("Subscription failed", "Please enter a valid email address."))
	case err != nil:
		app.logger.Error("Failed to subscribe", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	default:
		app.render(w, r, http.StatusOK, app.views.Message("Subscribed", "Thanks for subscribing. You will hear from us when new projects go live."))
	}
}

func (app *application) unsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	err := app.site.Newsletter.Unsubscribe(r.Context(), r.PostForm.Get("email"))
	switch {
	case errors.Is(err, content.ErrNotFound):
		app.render(w, r, http.StatusNotFound, app.views.Message("Not subscribed", "That address is not on our mailing list."))
	case err != nil:
		app.logger.Error("Failed to unsubscribe", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	default:
		app.render(w, r, http.StatusOK, app.views.Message("Unsubscribed", "You will not receive any more emails from us."))
	}
}

// apiListHandler serves the live snapshots to client-side widgets.
// Buttons accept ?section= to narrow the list.
func (app *application) apiListHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.lists.snapshot()
	var body any
	switch chi.URLParam(r, "entity") {
	case model.KeyBlogPosts:
		body = orEmpty(snap.Posts)
	case model.KeyEvents:
		body = orEmpty(snap.Events)
	case model.KeyTeam:
		body = orEmpty(snap.Team)
	case model.KeyTestimonials:
		body = orEmpty(snap.Testimonials)
	case model.KeyTreePackages:
		body = orEmpty(snap.Packages)
	case model.KeyButtons:
		q := r.URL.Query()
		switch {
		case q.Get("section") != "":
			body = orEmpty(content.ButtonsBySection(snap.Buttons, q.Get("section")))
		case q.Get("project") != "":
			body = orEmpty(content.ButtonsForProject(snap.Buttons, q.Get("project")))
		default:
			body = orEmpty(snap.Buttons)
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// orEmpty keeps JSON responses as [] rather than null.
func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
