package content

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go-engsite/internal/model"
)

// ContactService stores contact form submissions.
type ContactService struct {
	repo *Repository[model.ContactMessage]
	now  func() time.Time
}

// Repo exposes the underlying repository.
func (s *ContactService) Repo() *Repository[model.ContactMessage] { return s.repo }

// Submit validates and stores a new message with status new.
func (s *ContactService) Submit(ctx context.Context, m model.ContactMessage) (model.ContactMessage, error) {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = model.NormalizeEmail(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Message = strings.TrimSpace(m.Message)
	if err := m.Validate(); err != nil {
		return model.ContactMessage{}, err
	}
	m.ID = newID()
	m.Status = model.MessageNew
	m.SubmittedAt = s.now().UTC()
	m.RepliedAt = nil
	return s.repo.Put(ctx, m)
}

// List returns messages, newest first.
func (s *ContactService) List(ctx context.Context) []model.ContactMessage {
	list := s.repo.List(ctx)
	slices.SortStableFunc(list, func(a, b model.ContactMessage) int {
		return b.SubmittedAt.Compare(a.SubmittedAt)
	})
	return list
}

func (s *ContactService) Get(ctx context.Context, id string) (model.ContactMessage, error) {
	return s.repo.Get(ctx, id)
}

// SetStatus moves a message to status. Marking it replied stamps RepliedAt.
func (s *ContactService) SetStatus(ctx context.Context, id string, status model.MessageStatus) (model.ContactMessage, error) {
	if !model.ValidMessageStatus(status) {
		return model.ContactMessage{}, &model.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.ContactMessage{}, err
	}
	m.Status = status
	if status == model.MessageReplied && m.RepliedAt == nil {
		at := s.now().UTC()
		m.RepliedAt = &at
	}
	return s.repo.Put(ctx, m)
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// CountByStatus tallies messages per status.
func (s *ContactService) CountByStatus(ctx context.Context) map[model.MessageStatus]int {
	counts := map[model.MessageStatus]int{}
	for _, m := range s.repo.List(ctx) {
		counts[m.Status]++
	}
	return counts
}
