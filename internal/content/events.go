package content

import (
	"context"
	"slices"
	"sync"
	"time"

	"go-engsite/internal/model"
)

// EventService manages events.
type EventService struct {
	mu   sync.Mutex
	repo *Repository[model.Event]
	now  func() time.Time
}

// Repo exposes the underlying repository.
func (s *EventService) Repo() *Repository[model.Event] { return s.repo }

// List returns every event ordered by start time.
func (s *EventService) List(ctx context.Context) []model.Event {
	events := s.repo.List(ctx)
	slices.SortStableFunc(events, func(a, b model.Event) int { return a.StartsAt.Compare(b.StartsAt) })
	return events
}

// Upcoming returns events marked upcoming that have not started yet.
func (s *EventService) Upcoming(ctx context.Context) []model.Event {
	return UpcomingEvents(s.List(ctx), s.now())
}

// UpcomingEvents filters a sorted list.
func UpcomingEvents(events []model.Event, now time.Time) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.Status == model.EventUpcoming && (e.StartsAt.IsZero() || e.StartsAt.After(now)) {
			out = append(out, e)
		}
	}
	return out
}

// Featured returns featured events that are not cancelled.
func (s *EventService) Featured(ctx context.Context) []model.Event {
	var out []model.Event
	for _, e := range s.List(ctx) {
		if e.Featured && e.Status != model.EventCancelled {
			out = append(out, e)
		}
	}
	return out
}

func (s *EventService) Get(ctx context.Context, id string) (model.Event, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new event, defaulting status to upcoming.
func (s *EventService) Create(ctx context.Context, e model.Event) (model.Event, error) {
	e.ID = newID()
	if e.Status == "" {
		e.Status = model.EventUpcoming
	}
	return s.save(ctx, e)
}

// Update replaces an existing event.
func (s *EventService) Update(ctx context.Context, id string, e model.Event) (model.Event, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	e.ID = existing.ID
	if e.Status == "" {
		e.Status = existing.Status
	}
	return s.save(ctx, e)
}

// SetStatus moves an event to status.
func (s *EventService) SetStatus(ctx context.Context, id string, status model.EventStatus) (model.Event, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	e.Status = status
	return s.save(ctx, e)
}

// ToggleFeatured flips the featured flag.
func (s *EventService) ToggleFeatured(ctx context.Context, id string) (model.Event, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	e.Featured = !e.Featured
	return s.save(ctx, e)
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *EventService) save(ctx context.Context, e model.Event) (model.Event, error) {
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}
	if e.Slug == "" {
		e.Slug = Slugify(e.Title)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	used := slugsInUse(s.repo.List(ctx), e.ID, func(o model.Event) string { return o.Slug })
	e.Slug = UniqueSlug(e.Slug, func(slug string) bool { return used[slug] })
	return s.repo.Put(ctx, e)
}
