package content

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go-engsite/internal/model"

	"github.com/yuin/goldmark"
)

// BlogService manages blog posts.
type BlogService struct {
	mu   sync.Mutex // serializes saves so slug checks see earlier writes
	repo *Repository[model.BlogPost]
	md   goldmark.Markdown
	now  func() time.Time
}

// Repo exposes the underlying repository.
func (s *BlogService) Repo() *Repository[model.BlogPost] { return s.repo }

// List returns every post, newest first.
func (s *BlogService) List(ctx context.Context) []model.BlogPost {
	posts := s.repo.List(ctx)
	sortPostsNewestFirst(posts)
	return posts
}

// Published returns only published posts, newest first.
func (s *BlogService) Published(ctx context.Context) []model.BlogPost {
	return PublishedPosts(s.repo.List(ctx))
}

// PublishedPosts filters and sorts an already loaded list.
func PublishedPosts(posts []model.BlogPost) []model.BlogPost {
	out := make([]model.BlogPost, 0, len(posts))
	for _, p := range posts {
		if p.Status == model.PostPublished {
			out = append(out, p)
		}
	}
	sortPostsNewestFirst(out)
	return out
}

func sortPostsNewestFirst(posts []model.BlogPost) {
	slices.SortStableFunc(posts, func(a, b model.BlogPost) int {
		return b.Date.Compare(a.Date)
	})
}

// Get returns a post by id.
func (s *BlogService) Get(ctx context.Context, id string) (model.BlogPost, error) {
	return s.repo.Get(ctx, id)
}

// BySlug finds a post by slug (or by id, for old links).
func (s *BlogService) BySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	for _, p := range s.repo.List(ctx) {
		if p.Slug == slug || p.ID == slug {
			return p, nil
		}
	}
	return model.BlogPost{}, fmt.Errorf("blog post %q: %w", slug, ErrNotFound)
}

// Related returns up to limit published posts that share the category or a
// tag with post, most overlapping first. Matching is by case-insensitive string.
func (s *BlogService) Related(ctx context.Context, post model.BlogPost, limit int) []model.BlogPost {
	return RelatedPosts(s.Published(ctx), post, limit)
}

// RelatedPosts is Related over an already loaded list.
func RelatedPosts(candidates []model.BlogPost, post model.BlogPost, limit int) []model.BlogPost {
	type scored struct {
		post  model.BlogPost
		score int
	}
	var hits []scored
	for _, c := range candidates {
		if c.ID == post.ID {
			continue
		}
		score := 0
		if post.Category != "" && strings.EqualFold(c.Category, post.Category) {
			score += 2
		}
		for _, t := range c.Tags {
			if slices.ContainsFunc(post.Tags, func(pt string) bool { return strings.EqualFold(pt, t) }) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{c, score})
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		if a.score != b.score {
			return cmp.Compare(b.score, a.score)
		}
		return b.post.Date.Compare(a.post.Date)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.BlogPost, len(hits))
	for i, h := range hits {
		out[i] = h.post
	}
	return out
}

// Create stores a new post. Missing slug, date, status and read time are filled in.
func (s *BlogService) Create(ctx context.Context, p model.BlogPost) (model.BlogPost, error) {
	p.ID = newID()
	if p.Date.IsZero() {
		p.Date = s.now().UTC()
	}
	if p.Status == "" {
		p.Status = model.PostDraft
	}
	return s.save(ctx, p)
}

// Update replaces an existing post.
func (s *BlogService) Update(ctx context.Context, id string, p model.BlogPost) (model.BlogPost, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.BlogPost{}, err
	}
	p.ID = existing.ID
	if p.Date.IsZero() {
		p.Date = existing.Date
	}
	if p.Status == "" {
		p.Status = existing.Status
	}
	return s.save(ctx, p)
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *BlogService) save(ctx context.Context, p model.BlogPost) (model.BlogPost, error) {
	if err := p.Validate(); err != nil {
		return model.BlogPost{}, err
	}
	if p.ContentFormat == model.FormatMarkdown {
		html, err := renderWith(s.md, p.Content)
		if err != nil {
			return model.BlogPost{}, err
		}
		p.Content = html
		p.ContentFormat = model.FormatHTML
	}
	if p.ContentFormat == "" {
		p.ContentFormat = model.FormatHTML
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	used := slugsInUse(s.repo.List(ctx), p.ID, func(o model.BlogPost) string { return o.Slug })
	p.Slug = UniqueSlug(p.Slug, func(slug string) bool { return used[slug] })

	if p.ReadTime == "" {
		p.ReadTime = ReadTime(p.Content)
	}
	return s.repo.Put(ctx, p)
}
