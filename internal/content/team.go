package content

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go-engsite/internal/model"
)

// TeamService manages team members.
type TeamService struct {
	repo   *Repository[model.TeamMember]
	logger *slog.Logger
}

// Repo exposes the underlying repository.
func (s *TeamService) Repo() *Repository[model.TeamMember] { return s.repo }

// List returns every member ordered by Order.
func (s *TeamService) List(ctx context.Context) []model.TeamMember {
	members := s.repo.List(ctx)
	sortMembers(members)
	return members
}

// Active returns members shown on the public site.
func (s *TeamService) Active(ctx context.Context) []model.TeamMember {
	return ActiveMembers(s.repo.List(ctx))
}

// ActiveMembers filters and orders an already loaded list.
func ActiveMembers(members []model.TeamMember) []model.TeamMember {
	out := make([]model.TeamMember, 0, len(members))
	for _, m := range members {
		if m.IsActive {
			out = append(out, m)
		}
	}
	sortMembers(out)
	return out
}

func sortMembers(members []model.TeamMember) {
	slices.SortStableFunc(members, func(a, b model.TeamMember) int {
		if a.Order != b.Order {
			return cmp.Compare(a.Order, b.Order)
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

func (s *TeamService) Get(ctx context.Context, id string) (model.TeamMember, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a member. A zero Order puts the member last.
func (s *TeamService) Create(ctx context.Context, m model.TeamMember) (model.TeamMember, error) {
	if err := m.Validate(); err != nil {
		return model.TeamMember{}, err
	}
	m.ID = newID()
	if m.Order == 0 {
		for _, existing := range s.repo.List(ctx) {
			m.Order = max(m.Order, existing.Order)
		}
		m.Order++
	}
	return s.repo.Put(ctx, m)
}

func (s *TeamService) Update(ctx context.Context, id string, m model.TeamMember) (model.TeamMember, error) {
	if err := m.Validate(); err != nil {
		return model.TeamMember{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return model.TeamMember{}, err
	}
	m.ID = id
	return s.repo.Put(ctx, m)
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Reorder assigns Order 1..n following ids. Records are written one at a
// time; a failure part way leaves earlier members already renumbered.
func (s *TeamService) Reorder(ctx context.Context, ids []string) error {
	for i, id := range ids {
		m, err := s.repo.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Reorder stopped part way", "done", i, "total", len(ids), "id", id, "error", err)
			return fmt.Errorf("reordering team at position %d: %w", i+1, err)
		}
		m.Order = i + 1
		if _, err := s.repo.Put(ctx, m); err != nil {
			s.logger.Warn("Reorder stopped part way", "done", i, "total", len(ids), "id", id, "error", err)
			return fmt.Errorf("reordering team at position %d: %w", i+1, err)
		}
	}
	return nil
}
