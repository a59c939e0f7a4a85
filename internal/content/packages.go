package content

import (
	"cmp"
	"context"
	"slices"

	"go-engsite/internal/model"
)

// PackageService manages tree-planting packages.
type PackageService struct {
	repo *Repository[model.TreePackage]
}

// Repo exposes the underlying repository.
func (s *PackageService) Repo() *Repository[model.TreePackage] { return s.repo }

// List returns packages sorted by Order.
func (s *PackageService) List(ctx context.Context) []model.TreePackage {
	return SortPackages(s.repo.List(ctx))
}

// SortPackages orders by Order, then name.
func SortPackages(list []model.TreePackage) []model.TreePackage {
	slices.SortStableFunc(list, func(a, b model.TreePackage) int {
		if a.Order != b.Order {
			return cmp.Compare(a.Order, b.Order)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return list
}

func (s *PackageService) Get(ctx context.Context, id string) (model.TreePackage, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a package. Currency defaults to Tsh; a zero Order puts it last.
func (s *PackageService) Create(ctx context.Context, p model.TreePackage) (model.TreePackage, error) {
	if err := p.Validate(); err != nil {
		return model.TreePackage{}, err
	}
	p.ID = newID()
	if p.Currency == "" {
		p.Currency = model.DefaultCurrency
	}
	if p.Order == 0 {
		for _, existing := range s.repo.List(ctx) {
			p.Order = max(p.Order, existing.Order)
		}
		p.Order++
	}
	return s.repo.Put(ctx, p)
}

func (s *PackageService) Update(ctx context.Context, id string, p model.TreePackage) (model.TreePackage, error) {
	if err := p.Validate(); err != nil {
		return model.TreePackage{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return model.TreePackage{}, err
	}
	p.ID = id
	if p.Currency == "" {
		p.Currency = model.DefaultCurrency
	}
	return s.repo.Put(ctx, p)
}

func (s *PackageService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
