package content

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"go-engsite/internal/bus"
	"go-engsite/internal/model"
	"go-engsite/internal/remote"
	"go-engsite/internal/storage"

	"github.com/google/uuid"
)

// Deps carries everything the services share.
type Deps struct {
	Store   storage.DataStore
	Remote  *remote.Client               // nil runs local-only
	Tables  func(key string) RemoteTable // replaces Remote when set
	Bus     *bus.Bus
	Seed    *Seed // nil loads the embedded seed
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Site groups the per-entity services.
type Site struct {
	Blog         *BlogService
	Events       *EventService
	Team         *TeamService
	Testimonials *TestimonialService
	Packages     *PackageService
	Buttons      *ButtonService
	Newsletter   *NewsletterService
	Contact      *ContactService
	Payments     *Repository[model.Payment]
}

// NewSite builds every service over the given tiers.
func NewSite(d Deps) (*Site, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("content: a local store is required")
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Seed == nil {
		seed, err := LoadSeed()
		if err != nil {
			return nil, err
		}
		d.Seed = seed
	}

	md := newMarkdown()
	return &Site{
		Blog:         &BlogService{repo: newRepo(d, model.KeyBlogPosts, d.Seed.BlogPosts, "date"), md: md, now: d.Now},
		Events:       &EventService{repo: newRepo(d, model.KeyEvents, d.Seed.Events, "startsAt"), now: d.Now},
		Team:         &TeamService{repo: newRepo(d, model.KeyTeam, d.Seed.Team, "order"), logger: d.Logger},
		Testimonials: &TestimonialService{repo: newRepo(d, model.KeyTestimonials, d.Seed.Testimonials, "date"), now: d.Now},
		Packages:     &PackageService{repo: newRepo(d, model.KeyTreePackages, d.Seed.TreePackages, "order")},
		Buttons:      &ButtonService{repo: newRepo(d, model.KeyButtons, d.Seed.Buttons, "order")},
		Newsletter:   &NewsletterService{repo: newRepo[model.NewsletterSubscriber](d, model.KeySubscribers, nil, "subscribedAt"), now: d.Now},
		Contact:      &ContactService{repo: newRepo[model.ContactMessage](d, model.KeyMessages, nil, "submittedAt"), now: d.Now},
		Payments:     newRepo[model.Payment](d, model.KeyPayments, nil, "createdAt"),
	}, nil
}

func newRepo[T model.Entity](d Deps, key string, samples []T, order string) *Repository[T] {
	local := storage.NewCollection(d.Store, key, samples, d.Bus, d.Logger)
	var rt RemoteTable
	switch {
	case d.Tables != nil:
		rt = d.Tables(key)
	case d.Remote != nil:
		rt = d.Remote.Table(key)
	}
	return NewRepository(local, rt, samples, RepositoryOptions{RemoteOrder: order, Timeout: d.Timeout}, d.Logger)
}

func newID() string {
	return uuid.NewString()
}
