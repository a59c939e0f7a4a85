package content

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go-engsite/internal/model"
)

const projectSectionPrefix = "project:"

// ButtonService manages call-to-action buttons.
type ButtonService struct {
	repo *Repository[model.Button]
}

// Repo exposes the underlying repository.
func (s *ButtonService) Repo() *Repository[model.Button] { return s.repo }

// List returns every button grouped by section, then Order.
func (s *ButtonService) List(ctx context.Context) []model.Button {
	list := s.repo.List(ctx)
	slices.SortStableFunc(list, func(a, b model.Button) int {
		if c := cmp.Compare(a.Section, b.Section); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return list
}

// BySection returns active buttons of section, ascending by Order.
func (s *ButtonService) BySection(ctx context.Context, section string) []model.Button {
	return ButtonsBySection(s.repo.List(ctx), section)
}

// ButtonsBySection is BySection over an already loaded list.
func ButtonsBySection(list []model.Button, section string) []model.Button {
	var out []model.Button
	for _, b := range list {
		if b.IsActive && b.Section == section {
			out = append(out, b)
		}
	}
	sortByOrder(out)
	return out
}

// ForProject returns active buttons tied to project, either through the
// Project field or a "project:<name>" section. Matching ignores case.
func (s *ButtonService) ForProject(ctx context.Context, project string) []model.Button {
	return ButtonsForProject(s.repo.List(ctx), project)
}

// ButtonsForProject is ForProject over an already loaded list.
func ButtonsForProject(list []model.Button, project string) []model.Button {
	var out []model.Button
	for _, b := range list {
		if !b.IsActive {
			continue
		}
		if strings.EqualFold(b.Project, project) ||
			strings.EqualFold(b.Section, projectSectionPrefix+project) {
			out = append(out, b)
		}
	}
	sortByOrder(out)
	return out
}

func sortByOrder(list []model.Button) {
	slices.SortStableFunc(list, func(a, b model.Button) int { return cmp.Compare(a.Order, b.Order) })
}

func (s *ButtonService) Get(ctx context.Context, id string) (model.Button, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a button; variant defaults to primary.
func (s *ButtonService) Create(ctx context.Context, b model.Button) (model.Button, error) {
	if err := b.Validate(); err != nil {
		return model.Button{}, err
	}
	b.ID = newID()
	if b.Variant == "" {
		b.Variant = model.VariantPrimary
	}
	return s.repo.Put(ctx, b)
}

func (s *ButtonService) Update(ctx context.Context, id string, b model.Button) (model.Button, error) {
	if err := b.Validate(); err != nil {
		return model.Button{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return model.Button{}, err
	}
	b.ID = id
	if b.Variant == "" {
		b.Variant = model.VariantPrimary
	}
	return s.repo.Put(ctx, b)
}

func (s *ButtonService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
