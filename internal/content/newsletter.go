package content

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go-engsite/internal/model"
)

// NewsletterService manages newsletter subscriptions.
type NewsletterService struct {
	repo *Repository[model.NewsletterSubscriber]
	now  func() time.Time
	mu   sync.Mutex
}

// Repo exposes the underlying repository.
func (s *NewsletterService) Repo() *Repository[model.NewsletterSubscriber] { return s.repo }

// Subscribe records email. An address that is already active is left as is;
// an inactive one is reactivated under its existing id.
func (s *NewsletterService) Subscribe(ctx context.Context, email, source string) (model.NewsletterSubscriber, error) {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return model.NewsletterSubscriber{}, &model.ValidationError{Field: "email", Message: "is not a valid email address"}
	}
	if source == "" {
		source = "website"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.find(ctx, email); ok {
		if existing.IsActive {
			return existing, nil
		}
		existing.IsActive = true
		existing.UnsubscribedAt = nil
		existing.SubscribedAt = s.now().UTC()
		existing.Source = source
		return s.repo.Put(ctx, existing)
	}
	return s.repo.Put(ctx, model.NewsletterSubscriber{
		ID:           newID(),
		Email:        email,
		SubscribedAt: s.now().UTC(),
		IsActive:     true,
		Source:       source,
	})
}

// Unsubscribe deactivates email without deleting the record.
func (s *NewsletterService) Unsubscribe(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.find(ctx, email)
	if !ok {
		return fmt.Errorf("subscriber %s: %w", email, ErrNotFound)
	}
	if !existing.IsActive {
		return nil
	}
	at := s.now().UTC()
	existing.IsActive = false
	existing.UnsubscribedAt = &at
	_, err := s.repo.Put(ctx, existing)
	return err
}

func (s *NewsletterService) find(ctx context.Context, email string) (model.NewsletterSubscriber, bool) {
	for _, sub := range s.repo.List(ctx) {
		if model.NormalizeEmail(sub.Email) == email {
			return sub, true
		}
	}
	return model.NewsletterSubscriber{}, false
}

// List returns every subscriber, newest first.
func (s *NewsletterService) List(ctx context.Context) []model.NewsletterSubscriber {
	list := s.repo.List(ctx)
	slices.SortStableFunc(list, func(a, b model.NewsletterSubscriber) int {
		return b.SubscribedAt.Compare(a.SubscribedAt)
	})
	return list
}

// Active returns the subscribers that currently receive mail.
func (s *NewsletterService) Active(ctx context.Context) []model.NewsletterSubscriber {
	var out []model.NewsletterSubscriber
	for _, sub := range s.List(ctx) {
		if sub.IsActive {
			out = append(out, sub)
		}
	}
	return out
}

func (s *NewsletterService) ActiveCount(ctx context.Context) int {
	return len(s.Active(ctx))
}

func (s *NewsletterService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ExportCSV writes every subscriber as CSV with a header row.
func (s *NewsletterService) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"email", "subscribed_at", "active", "source", "unsubscribed_at"}); err != nil {
		return err
	}
	for _, sub := range s.List(ctx) {
		unsub := ""
		if sub.UnsubscribedAt != nil {
			unsub = sub.UnsubscribedAt.Format(time.RFC3339)
		}
		row := []string{
			sub.Email,
			sub.SubscribedAt.Format(time.RFC3339),
			fmt.Sprint(sub.IsActive),
			sub.Source,
			unsub,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing subscriber %s: %w", sub.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
