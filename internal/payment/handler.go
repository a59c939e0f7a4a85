package payment

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-engsite/internal/model"

	"github.com/go-chi/chi/v5"
)

// WebhookSecretHeader carries the shared secret on provider callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// Handler exposes the Service over HTTP.
type Handler struct {
	svc           *Service
	webhookSecret string
	logger        *slog.Logger
}

// NewHandler returns a Handler. An empty secret accepts unsigned webhooks.
func NewHandler(svc *Service, webhookSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = svc.logger
	}
	return &Handler{svc: svc, webhookSecret: webhookSecret, logger: logger}
}

// Mount registers the payment routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/process-payment", h.process)
	r.Post("/api/payments/webhook", h.webhook)
	r.Get("/api/payments/{reference}", h.status)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	p, err := h.svc.Process(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		got := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid webhook secret"})
			return
		}
	}
	var wh Webhook
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&wh); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	p, err := h.svc.ApplyWebhook(r.Context(), wh)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Status(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalid):
		status = http.StatusBadRequest
	case IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, ErrProvider):
		status = http.StatusBadGateway
	default:
		h.logger.Error("Payment request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
