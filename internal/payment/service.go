// Package payment initiates mobile-money collections and tracks their status.
// Status records are persisted through the content layer, so they survive
// restarts.
package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go-engsite/internal/content"
	"go-engsite/internal/model"

	"github.com/google/uuid"
)

// Store persists payment records. *content.Repository[model.Payment] satisfies it.
type Store interface {
	Get(ctx context.Context, id string) (model.Payment, error)
	Put(ctx context.Context, p model.Payment) (model.Payment, error)
}

// ProcessRequest is the body of POST /api/process-payment.
type ProcessRequest struct {
	Phone     string  `json:"phone"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	PackageID string  `json:"packageId"`
	Provider  string  `json:"provider"`
}

// Webhook is the status callback sent by the provider.
type Webhook struct {
	Reference     string              `json:"externalId"`
	TransactionID string              `json:"transactionId"`
	Status        model.PaymentStatus `json:"status"`
	Message       string              `json:"message"`
}

// Service ties the provider to the status store.
type Service struct {
	provider Provider
	store    Store
	now      func() time.Time
	logger   *slog.Logger
}

// NewService returns a Service. A nil provider disables payments.
func NewService(provider Provider, store Store, logger *slog.Logger) *Service {
	if provider == nil {
		provider = NoopProvider{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{provider: provider, store: store, now: time.Now, logger: logger}
}

// Enabled reports whether a real provider is configured.
func (s *Service) Enabled() bool {
	_, noop := s.provider.(NoopProvider)
	return !noop
}

// Process validates req, records a pending payment and asks the provider to
// collect it. A provider failure marks the record failed.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (model.Payment, error) {
	if !s.Enabled() {
		return model.Payment{}, ErrDisabled
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return model.Payment{}, &model.ValidationError{Field: "phone", Message: err.Error()}
	}
	if req.Amount <= 0 {
		return model.Payment{}, &model.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = "TZS"
	}

	now := s.now().UTC()
	p := model.Payment{
		ID:        uuid.NewString(),
		Phone:     phone,
		Amount:    req.Amount,
		Currency:  currency,
		PackageID: req.PackageID,
		Status:    model.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.store.Put(ctx, p); err != nil {
		return model.Payment{}, fmt.Errorf("recording payment: %w", err)
	}

	resp, err := s.provider.Initiate(ctx, Request{
		Reference: p.ID,
		Phone:     phone,
		Amount:    p.Amount,
		Currency:  currency,
		Provider:  req.Provider,
	})
	switch {
	case err != nil:
		p.Status = model.PaymentFailed
		p.Message = err.Error()
		err = fmt.Errorf("%w: %w", ErrProvider, err)
	case !resp.Success:
		p.Status = model.PaymentFailed
		p.Message = resp.Message
		p.TransactionID = resp.TransactionID
		err = fmt.Errorf("%w: rejected: %s", ErrProvider, resp.Message)
	default:
		p.TransactionID = resp.TransactionID
		p.Message = resp.Message
	}
	p.UpdatedAt = s.now().UTC()
	if _, putErr := s.store.Put(ctx, p); putErr != nil {
		s.logger.Error("Could not update payment after provider call", "reference", p.ID, "error", putErr)
	}
	if err != nil {
		s.logger.Warn("Payment initiation failed", "reference", p.ID, "error", err)
		return p, err
	}
	s.logger.Info("Payment initiated", "reference", p.ID, "transaction", p.TransactionID)
	return p, nil
}

// ApplyWebhook updates the payment named by w.Reference.
func (s *Service) ApplyWebhook(ctx context.Context, w Webhook) (model.Payment, error) {
	if w.Reference == "" {
		return model.Payment{}, &model.ValidationError{Field: "externalId", Message: "is required"}
	}
	status := model.PaymentStatus(strings.ToLower(string(w.Status)))
	if !validStatus(status) {
		return model.Payment{}, &model.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", w.Status)}
	}
	p, err := s.store.Get(ctx, w.Reference)
	if err != nil {
		return model.Payment{}, err
	}
	p.Status = status
	if w.TransactionID != "" {
		p.TransactionID = w.TransactionID
	}
	if w.Message != "" {
		p.Message = w.Message
	}
	p.UpdatedAt = s.now().UTC()
	if _, err := s.store.Put(ctx, p); err != nil {
		return model.Payment{}, fmt.Errorf("updating payment %s: %w", p.ID, err)
	}
	s.logger.Info("Payment status updated", "reference", p.ID, "status", p.Status)
	return p, nil
}

// Status returns the stored payment for reference.
func (s *Service) Status(ctx context.Context, reference string) (model.Payment, error) {
	return s.store.Get(ctx, reference)
}

// IsNotFound reports whether err means an unknown reference.
func IsNotFound(err error) bool { return errors.Is(err, content.ErrNotFound) }
