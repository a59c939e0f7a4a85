package generator

import (
	"context"
	"slices"
	"time"

	"go-engsite/internal/content"
	"go-engsite/internal/model"
	"go-engsite/internal/templating"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Snapshot is every list the public pages read, already filtered for
// public display (published posts, active members and so on).
type Snapshot struct {
	Posts        []model.BlogPost
	Events       []model.Event
	Team         []model.TeamMember
	Testimonials []model.Testimonial
	Packages     []model.TreePackage
	Buttons      []model.Button
}

// SnapshotFrom reads every collection through the data access layer.
func SnapshotFrom(ctx context.Context, site *content.Site) Snapshot {
	return Snapshot{
		Posts:        site.Blog.Published(ctx),
		Events:       site.Events.List(ctx),
		Team:         site.Team.Active(ctx),
		Testimonials: site.Testimonials.Active(ctx),
		Packages:     site.Packages.List(ctx),
		Buttons:      site.Buttons.List(ctx),
	}
}

// View is a template name plus the data to render it with.
type View struct {
	Template string
	Page     templating.Page
}

type HomeData struct {
	HeroButtons    []model.Button
	LatestPosts    []model.BlogPost
	UpcomingEvents []model.Event
	Testimonials   []model.Testimonial
}

type BlogData struct {
	Posts      []model.BlogPost
	Categories []string
}

type PostData struct {
	Post    model.BlogPost
	Related []model.BlogPost
}

type TeamData struct {
	Members []model.TeamMember
}

type TestimonialsData struct {
	Testimonials []model.Testimonial
}

type PackagesData struct {
	Packages []model.TreePackage
	Buttons  []model.Button
}

type EventsData struct {
	Upcoming []model.Event
	Past     []model.Event
}

// ContactForm echoes the submitted fields back on validation errors.
type ContactForm struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Subject   string
	Message   string
}

type ContactData struct {
	Form   ContactForm
	Errors map[string]string
	Sent   bool
}

const (
	homeLatestPosts  = 3
	homeTestimonials = 2
	relatedPosts     = 3
)

// Views builds page data from snapshots.
type Views struct {
	SiteTitle string
	BaseURL   string
	Static    bool
	Now       func() time.Time
}

func (v Views) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v Views) page(tmpl, title, active string, data any) View {
	return View{Template: tmpl, Page: templating.Page{
		SiteTitle: v.SiteTitle,
		BaseURL:   v.BaseURL,
		Title:     title,
		Active:    active,
		Year:      v.now().Year(),
		Static:    v.Static,
		Data:      data,
	}}
}

func (v Views) Home(s Snapshot) View {
	upcoming := content.UpcomingEvents(s.Events, v.now())
	return v.page("home", "", "home", HomeData{
		HeroButtons:    content.ButtonsBySection(s.Buttons, "hero"),
		LatestPosts:    firstN(s.Posts, homeLatestPosts),
		UpcomingEvents: firstN(upcoming, 3),
		Testimonials:   firstN(s.Testimonials, homeTestimonials),
	})
}

func (v Views) Blog(s Snapshot) View {
	return v.page("blog", "Blog", "blog", BlogData{Posts: s.Posts, Categories: Categories(s.Posts)})
}

func (v Views) Post(s Snapshot, post model.BlogPost) View {
	return v.page("post", post.Title, "blog", PostData{
		Post:    post,
		Related: content.RelatedPosts(s.Posts, post, relatedPosts),
	})
}

func (v Views) Team(s Snapshot) View {
	return v.page("team", "Team", "team", TeamData{Members: s.Team})
}

func (v Views) Testimonials(s Snapshot) View {
	return v.page("testimonials", "Testimonials", "testimonials", TestimonialsData{Testimonials: s.Testimonials})
}

func (v Views) Packages(s Snapshot) View {
	return v.page("packages", "Plant Trees", "packages", PackagesData{
		Packages: s.Packages,
		Buttons:  content.ButtonsBySection(s.Buttons, "packages"),
	})
}

func (v Views) Events(s Snapshot) View {
	now := v.now()
	data := EventsData{Upcoming: content.UpcomingEvents(s.Events, now)}
	for _, e := range s.Events {
		started := !e.StartsAt.IsZero() && e.StartsAt.Before(now)
		if e.Status == model.EventCompleted || (e.Status == model.EventUpcoming && started) {
			data.Past = append(data.Past, e)
		}
	}
	slices.Reverse(data.Past)
	return v.page("events", "Events", "events", data)
}

func (v Views) Contact(data ContactData) View {
	return v.page("contact", "Contact", "contact", data)
}

func (v Views) NotFound() View {
	return v.page("not_found", "Not found", "", nil)
}

// Message is a one-paragraph confirmation or error page.
func (v Views) Message(title, text string) View {
	return v.page("message", title, "", text)
}

// FindPost looks a published post up by slug or id.
func FindPost(posts []model.BlogPost, slug string) (model.BlogPost, bool) {
	i := slices.IndexFunc(posts, func(p model.BlogPost) bool { return p.Slug == slug || p.ID == slug })
	if i < 0 {
		return model.BlogPost{}, false
	}
	return posts[i], true
}

// Categories returns the distinct post categories, title-cased and sorted.
func Categories(posts []model.BlogPost) []string {
	titleCase := cases.Title(language.English)
	var out []string
	for _, p := range posts {
		if p.Category == "" {
			continue
		}
		c := titleCase.String(p.Category)
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

func firstN[T any](list []T, n int) []T {
	if len(list) > n {
		return list[:n]
	}
	return list
}
