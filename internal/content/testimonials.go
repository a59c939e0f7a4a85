package content

import (
	"context"
	"slices"
	"time"

	"go-engsite/internal/model"
)

// TestimonialService manages testimonials.
type TestimonialService struct {
	repo *Repository[model.Testimonial]
	now  func() time.Time
}

// Repo exposes the underlying repository.
func (s *TestimonialService) Repo() *Repository[model.Testimonial] { return s.repo }

// List returns every testimonial, newest first.
func (s *TestimonialService) List(ctx context.Context) []model.Testimonial {
	list := s.repo.List(ctx)
	sortTestimonials(list)
	return list
}

// Active returns the testimonials shown publicly, newest first.
func (s *TestimonialService) Active(ctx context.Context) []model.Testimonial {
	return ActiveTestimonials(s.repo.List(ctx))
}

// ActiveTestimonials filters and sorts an already loaded list.
func ActiveTestimonials(list []model.Testimonial) []model.Testimonial {
	out := make([]model.Testimonial, 0, len(list))
	for _, t := range list {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sortTestimonials(out)
	return out
}

func sortTestimonials(list []model.Testimonial) {
	slices.SortStableFunc(list, func(a, b model.Testimonial) int { return b.Date.Compare(a.Date) })
}

func (s *TestimonialService) Get(ctx context.Context, id string) (model.Testimonial, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a testimonial. Rating defaults to 5 and date to now.
func (s *TestimonialService) Create(ctx context.Context, t model.Testimonial) (model.Testimonial, error) {
	t.ID = newID()
	if t.Rating == 0 {
		t.Rating = 5
	}
	if t.Date.IsZero() {
		t.Date = s.now().UTC()
	}
	if err := t.Validate(); err != nil {
		return model.Testimonial{}, err
	}
	return s.repo.Put(ctx, t)
}

func (s *TestimonialService) Update(ctx context.Context, id string, t model.Testimonial) (model.Testimonial, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Testimonial{}, err
	}
	t.ID = id
	if t.Date.IsZero() {
		t.Date = existing.Date
	}
	if err := t.Validate(); err != nil {
		return model.Testimonial{}, err
	}
	return s.repo.Put(ctx, t)
}

func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
