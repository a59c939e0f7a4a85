package main

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go-engsite/internal/content"
	"go-engsite/internal/model"

	"github.com/go-chi/chi/v5"
)

// crud is the set of operations one collection exposes over the JSON API.
// Nil operations are not routed.
type crud[T any] struct {
	list   func(context.Context) []T
	get    func(context.Context, string) (T, error)
	create func(context.Context, T) (T, error)
	update func(context.Context, string, T) (T, error)
	remove func(context.Context, string) error
}

// mountCRUD registers /{key} and /{key}/{id} for c.
func mountCRUD[T any](r chi.Router, key string, c crud[T], app *adminApplication) {
	base := "/" + key

	r.Get(base, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orEmpty(c.list(r.Context())))
	})
	if c.get != nil {
		r.Get(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			rec, err := c.get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				app.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})
	}
	if c.create != nil {
		r.Post(base, func(w http.ResponseWriter, r *http.Request) {
			var in T
			if !decodeJSON(w, r, &in) {
				return
			}
			rec, err := c.create(r.Context(), in)
			if err != nil {
				app.writeError(w, r, err)
				return
			}
			app.logger.Info("Record created", "collection", key)
			writeJSON(w, http.StatusCreated, rec)
		})
	}
	if c.update != nil {
		r.Put(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in T
			if !decodeJSON(w, r, &in) {
				return
			}
			rec, err := c.update(r.Context(), chi.URLParam(r, "id"), in)
			if err != nil {
				app.writeError(w, r, err)
				return
			}
			app.logger.Info("Record updated", "collection", key, "id", chi.URLParam(r, "id"))
			writeJSON(w, http.StatusOK, rec)
		})
	}
	if c.remove != nil {
		r.Delete(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if err := c.remove(r.Context(), id); err != nil {
				app.writeError(w, r, err)
				return
			}
			app.logger.Info("Record deleted", "collection", key, "id", id)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (app *adminApplication) eventStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := app.site.Events.SetStatus(r.Context(), chi.URLParam(r, "id"), model.EventStatus(req.Status))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (app *adminApplication) eventFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	ev, err := app.site.Events.ToggleFeatured(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (app *adminApplication) teamReorderHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := app.site.Team.Reorder(r.Context(), req.IDs); err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(app.site.Team.List(r.Context())))
}

func (app *adminApplication) messageStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := app.site.Contact.SetStatus(r.Context(), chi.URLParam(r, "id"), model.MessageStatus(req.Status))
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type subscriptionRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (app *adminApplication) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Source == "" {
		req.Source = "admin"
	}
	sub, err := app.site.Newsletter.Subscribe(r.Context(), req.Email, req.Source)
	if err != nil {
		app.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (app *adminApplication) unsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := app.site.Newsletter.Unsubscribe(r.Context(), req.Email); err != nil {
		app.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps service errors onto status codes.
func (app *adminApplication) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, content.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		app.logger.Error("Admin API request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

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
