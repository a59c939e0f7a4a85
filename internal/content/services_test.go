package content

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"go-engsite/internal/bus"
	"go-engsite/internal/model"
	"go-engsite/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestSite(t *testing.T) *Site {
	t.Helper()
	site, err := NewSite(Deps{
		Store: storage.NewMemoryStore(),
		Bus:   bus.New(nil),
		Now:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return site
}

// roundTrip saves items through repo and checks List returns them unchanged.
func roundTrip[T model.Entity](t *testing.T, repo *Repository[T], items []T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.ReplaceAll(ctx, items))
	assert.Equal(t, items, repo.List(ctx))
}

func TestRoundTripThroughLocalStore(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, site *Site)
	}{
		{"blog posts", func(t *testing.T, site *Site) {
			roundTrip(t, site.Blog.Repo(), []model.BlogPost{{ID: "p", Title: "T", Slug: "t", Status: model.PostDraft, Date: fixedNow, Tags: []string{"solar"}}})
		}},
		{"events", func(t *testing.T, site *Site) {
			roundTrip(t, site.Events.Repo(), []model.Event{{ID: "e", Title: "Launch", Slug: "launch", Venue: "Hall", StartsAt: fixedNow, EndsAt: fixedNow.Add(2 * time.Hour), Capacity: 40, Status: model.EventUpcoming, Featured: true}})
		}},
		{"team", func(t *testing.T, site *Site) {
			roundTrip(t, site.Team.Repo(), []model.TeamMember{{ID: "m", Name: "Asha", Position: "Lead", Order: 1, IsActive: true}})
		}},
		{"testimonials", func(t *testing.T, site *Site) {
			roundTrip(t, site.Testimonials.Repo(), []model.Testimonial{{ID: "t", Name: "Juma", Role: "Client", Content: "Great", Rating: 4, IsActive: true, Date: fixedNow}})
		}},
		{"tree packages", func(t *testing.T, site *Site) {
			roundTrip(t, site.Packages.Repo(), []model.TreePackage{{ID: "k", Name: "Bronze", TreeCount: 5, Price: 30000, Currency: "Tsh", Features: []string{"x"}, Order: 1}})
		}},
		{"buttons", func(t *testing.T, site *Site) {
			roundTrip(t, site.Buttons.Repo(), []model.Button{{ID: "b", Section: "hero", Project: "wells", Text: "Go", URL: "/contact", Variant: model.VariantPrimary, Order: 2, IsActive: true}})
		}},
		{"subscribers", func(t *testing.T, site *Site) {
			roundTrip(t, site.Newsletter.Repo(), []model.NewsletterSubscriber{{ID: "s", Email: "a@b.com", SubscribedAt: fixedNow, IsActive: true, Source: "website"}})
		}},
		{"contact messages", func(t *testing.T, site *Site) {
			roundTrip(t, site.Contact.Repo(), []model.ContactMessage{{ID: "c", FirstName: "A", LastName: "B", Email: "a@b.com", Subject: "S", Message: "M", SubmittedAt: fixedNow, Status: model.MessageRead}})
		}},
		{"payments", func(t *testing.T, site *Site) {
			roundTrip(t, site.Payments, []model.Payment{{ID: "pay", Phone: "255712345678", Amount: 1000, Currency: "Tsh", Status: model.PaymentPending, CreatedAt: fixedNow, UpdatedAt: fixedNow}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newTestSite(t))
		})
	}
}

func TestAddBronzePackage(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	before := site.Packages.List(ctx)
	require.NotEmpty(t, before)

	bronze, err := site.Packages.Create(ctx, model.TreePackage{
		Name:      "Bronze",
		TreeCount: 5,
		Price:     30000,
		Currency:  "Tsh",
		Features:  []string{"x"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, bronze.ID)
	assert.Equal(t, before[len(before)-1].Order+1, bronze.Order)

	after := site.Packages.List(ctx)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, "Bronze", after[len(after)-1].Name)
	for i := 1; i < len(after); i++ {
		assert.LessOrEqual(t, after[i-1].Order, after[i].Order)
	}
}

func TestPackageCreateDefaultsCurrency(t *testing.T) {
	site := newTestSite(t)
	p, err := site.Packages.Create(context.Background(), model.TreePackage{Name: "Mini", TreeCount: 1, Price: 5000, Order: 9})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCurrency, p.Currency)
	assert.Equal(t, 9, p.Order)

	_, err = site.Packages.Create(context.Background(), model.TreePackage{Name: "Empty"})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestContactSubmit(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	_, err := site.Contact.Submit(ctx, model.ContactMessage{
		FirstName: "A", LastName: "B", Email: "a@b.com", Subject: "S", Message: "M",
	})
	require.NoError(t, err)

	msgs := site.Contact.List(ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.MessageNew, msgs[0].Status)
	assert.Equal(t, fixedNow, msgs[0].SubmittedAt)
	assert.Equal(t, "a@b.com", msgs[0].Email)
	assert.Equal(t, 1, site.Contact.CountByStatus(ctx)[model.MessageNew])
}

func TestContactSubmitRejectsBadInput(t *testing.T) {
	site := newTestSite(t)
	_, err := site.Contact.Submit(context.Background(), model.ContactMessage{
		FirstName: "A", LastName: "B", Email: "not-an-email", Subject: "S", Message: "M",
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	assert.Empty(t, site.Contact.List(context.Background()))
}

func TestContactSetStatusReplied(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	msg, err := site.Contact.Submit(ctx, model.ContactMessage{
		FirstName: "A", LastName: "B", Email: "a@b.com", Subject: "S", Message: "M",
	})
	require.NoError(t, err)

	replied, err := site.Contact.SetStatus(ctx, msg.ID, model.MessageReplied)
	require.NoError(t, err)
	require.NotNil(t, replied.RepliedAt)
	assert.Equal(t, fixedNow, *replied.RepliedAt)

	_, err = site.Contact.SetStatus(ctx, msg.ID, "archived")
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	first, err := site.Newsletter.Subscribe(ctx, "Reader@Example.com", "footer")
	require.NoError(t, err)
	second, err := site.Newsletter.Subscribe(ctx, " reader@example.com ", "blog")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, site.Newsletter.List(ctx), 1)
	assert.Equal(t, "reader@example.com", second.Email)
	assert.Equal(t, "footer", second.Source)
}

func TestSubscribeReactivatesInPlace(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	sub, err := site.Newsletter.Subscribe(ctx, "reader@example.com", "")
	require.NoError(t, err)
	require.NoError(t, site.Newsletter.Unsubscribe(ctx, "READER@example.com"))

	list := site.Newsletter.List(ctx)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
	assert.NotNil(t, list[0].UnsubscribedAt)
	assert.Equal(t, 0, site.Newsletter.ActiveCount(ctx))

	again, err := site.Newsletter.Subscribe(ctx, "reader@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.True(t, again.IsActive)
	assert.Nil(t, again.UnsubscribedAt)
	assert.Len(t, site.Newsletter.List(ctx), 1)
}

func TestUnsubscribeUnknown(t *testing.T) {
	site := newTestSite(t)
	err := site.Newsletter.Unsubscribe(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	site := newTestSite(t)
	_, err := site.Newsletter.Subscribe(context.Background(), "nope", "")
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestExportCSV(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	_, err := site.Newsletter.Subscribe(ctx, "a@b.com", "footer")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, site.Newsletter.ExportCSV(ctx, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "email", records[0][0])
	assert.Equal(t, []string{"a@b.com", "2024-06-01T09:30:00Z", "true", "footer", ""}, records[1])
}

func TestButtonsBySection(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	require.NoError(t, site.Buttons.Repo().ReplaceAll(ctx, []model.Button{
		{ID: "b1", Section: "hero", Text: "Later", URL: "/b", Order: 3, IsActive: true},
		{ID: "b2", Section: "hero", Text: "Hidden", URL: "/c", Order: 1, IsActive: false},
		{ID: "b3", Section: "footer", Text: "Other", URL: "/d", Order: 0, IsActive: true},
		{ID: "b4", Section: "hero", Text: "First", URL: "/a", Order: 2, IsActive: true},
	}))

	got := site.Buttons.BySection(ctx, "hero")
	require.Len(t, got, 2)
	assert.Equal(t, "b4", got[0].ID)
	assert.Equal(t, "b1", got[1].ID)
	assert.Empty(t, site.Buttons.BySection(ctx, "missing"))
}

func TestButtonsForProject(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	require.NoError(t, site.Buttons.Repo().ReplaceAll(ctx, []model.Button{
		{ID: "b1", Section: "cta", Project: "Solar", Text: "Quote", URL: "/q", Order: 2, IsActive: true},
		{ID: "b2", Section: "project:solar", Text: "Visit", URL: "/v", Order: 1, IsActive: true},
		{ID: "b3", Section: "project:water", Text: "Water", URL: "/w", Order: 1, IsActive: true},
	}))

	got := site.Buttons.ForProject(ctx, "solar")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"b2", "b1"}, []string{got[0].ID, got[1].ID})

	created, err := site.Buttons.Create(ctx, model.Button{Section: "hero", Text: "Go", URL: "/go"})
	require.NoError(t, err)
	assert.Equal(t, model.VariantPrimary, created.Variant)
}

func TestDeleteUnknownIDLeavesServiceLists(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	before := site.Team.List(ctx)
	assert.ErrorIs(t, site.Team.Delete(ctx, "nobody"), ErrNotFound)
	assert.Equal(t, before, site.Team.List(ctx))

	beforeEvents := site.Events.List(ctx)
	assert.ErrorIs(t, site.Events.Delete(ctx, "nothing"), ErrNotFound)
	assert.Equal(t, beforeEvents, site.Events.List(ctx))
}

func TestBlogCreateRendersMarkdown(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	post, err := site.Blog.Create(ctx, model.BlogPost{
		Title:         "Pump Checklist",
		Content:       "# Steps\n\nCheck the **seal**.",
		ContentFormat: model.FormatMarkdown,
	})
	require.NoError(t, err)
	assert.Equal(t, "pump-checklist", post.Slug)
	assert.Equal(t, model.PostDraft, post.Status)
	assert.Equal(t, model.FormatHTML, post.ContentFormat)
	assert.Contains(t, post.Content, "<strong>seal</strong>")
	assert.Equal(t, "1 min read", post.ReadTime)
	assert.Equal(t, fixedNow, post.Date)

	found, err := site.Blog.BySlug(ctx, "pump-checklist")
	require.NoError(t, err)
	assert.Equal(t, post.ID, found.ID)

	// Drafts stay off the public list.
	for _, p := range site.Blog.Published(ctx) {
		assert.NotEqual(t, post.ID, p.ID)
	}
}

func TestBlogSlugsStayUnique(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	first, err := site.Blog.Create(ctx, model.BlogPost{Title: "Same Title", Status: model.PostPublished})
	require.NoError(t, err)
	second, err := site.Blog.Create(ctx, model.BlogPost{Title: "Same Title", Status: model.PostPublished})
	require.NoError(t, err)
	assert.Equal(t, "same-title", first.Slug)
	assert.Equal(t, "same-title-2", second.Slug)

	third, err := site.Blog.Create(ctx, model.BlogPost{Title: "Other", Slug: "same-title", Status: model.PostDraft})
	require.NoError(t, err)
	assert.Equal(t, "same-title-3", third.Slug)

	// Saving a post again keeps its own slug.
	first.Excerpt = "edited"
	updated, err := site.Blog.Update(ctx, first.ID, first)
	require.NoError(t, err)
	assert.Equal(t, "same-title", updated.Slug)

	found, err := site.Blog.BySlug(ctx, "same-title-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestBlogRejectsUnsafeSlug(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	for _, slug := range []string{"../../escaped", "Has Caps", "a/b", "-lead", "double--hyphen"} {
		_, err := site.Blog.Create(ctx, model.BlogPost{Title: "T", Slug: slug, Status: model.PostDraft})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr, slug)
		assert.Equal(t, "slug", verr.Field)
	}
}

func TestEventSlugsStayUnique(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	a, err := site.Events.Create(ctx, model.Event{Title: "Open Day", Venue: "Yard"})
	require.NoError(t, err)
	b, err := site.Events.Create(ctx, model.Event{Title: "Open Day", Venue: "Yard"})
	require.NoError(t, err)
	assert.Equal(t, "open-day", a.Slug)
	assert.Equal(t, "open-day-2", b.Slug)

	_, err = site.Events.Create(ctx, model.Event{Title: "X", Venue: "Y", Slug: "../x"})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestUniqueSlug(t *testing.T) {
	used := map[string]bool{"a": true, "a-2": true}
	assert.Equal(t, "a-3", UniqueSlug("a", func(s string) bool { return used[s] }))
	assert.Equal(t, "b", UniqueSlug("b", func(s string) bool { return used[s] }))
}

func TestRelatedPosts(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	post, err := site.Blog.BySlug(ctx, "why-tree-survival-rate-matters")
	require.NoError(t, err)

	related := site.Blog.Related(ctx, post, 3)
	require.Len(t, related, 1)
	assert.Equal(t, "post-solar-microgrids", related[0].ID)
}

func TestEventsLifecycle(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	ev, err := site.Events.Create(ctx, model.Event{
		Title:    "Summer Sessions",
		Venue:    "Rooftop",
		StartsAt: fixedNow.Add(48 * time.Hour),
		EndsAt:   fixedNow.Add(54 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventUpcoming, ev.Status)
	assert.Equal(t, "summer-sessions", ev.Slug)

	upcoming := site.Events.Upcoming(ctx)
	require.NotEmpty(t, upcoming)
	assert.Equal(t, ev.ID, upcoming[0].ID)

	ev, err = site.Events.ToggleFeatured(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, ev.Featured)

	_, err = site.Events.SetStatus(ctx, ev.ID, model.EventCancelled)
	require.NoError(t, err)
	for _, f := range site.Events.Featured(ctx) {
		assert.NotEqual(t, ev.ID, f.ID)
	}

	_, err = site.Events.Create(ctx, model.Event{Title: "Bad", Venue: "X", StartsAt: fixedNow, EndsAt: fixedNow.Add(-time.Hour)})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestTeamReorder(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	added, err := site.Team.Create(ctx, model.TeamMember{Name: "Zawadi", Position: "Engineer", IsActive: true})
	require.NoError(t, err)

	ids := []string{added.ID}
	for _, m := range site.Team.List(ctx) {
		if m.ID != added.ID {
			ids = append(ids, m.ID)
		}
	}
	require.NoError(t, site.Team.Reorder(ctx, ids))

	list := site.Team.Active(ctx)
	require.NotEmpty(t, list)
	assert.Equal(t, added.ID, list[0].ID)
	assert.Equal(t, 1, list[0].Order)

	assert.ErrorIs(t, site.Team.Reorder(ctx, []string{"ghost"}), ErrNotFound)
}

func TestTestimonialDefaults(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	tm, err := site.Testimonials.Create(ctx, model.Testimonial{Name: "Halima", Content: "Reliable team", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, 5, tm.Rating)
	assert.Equal(t, fixedNow, tm.Date)

	_, err = site.Testimonials.Create(ctx, model.Testimonial{Name: "X", Content: "Y", Rating: 9})
	assert.ErrorIs(t, err, model.ErrInvalid)

	active := site.Testimonials.Active(ctx)
	require.NotEmpty(t, active)
	assert.Equal(t, tm.ID, active[0].ID)
}

func TestSeedParses(t *testing.T) {
	seed, err := LoadSeed()
	require.NoError(t, err)
	assert.Len(t, seed.BlogPosts, 3)
	assert.Len(t, seed.TreePackages, 3)
	assert.NotEmpty(t, seed.Buttons)
	for _, p := range seed.BlogPosts {
		require.NoError(t, p.Validate(), p.ID)
		assert.False(t, p.Date.IsZero(), p.ID)
	}
	for _, p := range seed.TreePackages {
		require.NoError(t, p.Validate(), p.ID)
	}

	_, err = ParseSeed([]byte("blogPosts: [unclosed"))
	assert.Error(t, err)
}

func TestSlugifyAndReadTime(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"  Solar & Water!! ", "solar-water"},
		{"***", "item"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
	long := bytes.Repeat([]byte("word "), 401)
	assert.Equal(t, "3 min read", ReadTime(string(long)))
}
