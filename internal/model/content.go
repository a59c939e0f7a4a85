package model

import "time"

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// Content formats accepted for BlogPost.Content.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// BlogPost is an article shown on /blog. Content is stored as HTML; markdown
// input is rendered on write.
type BlogPost struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	ContentFormat string     `json:"contentFormat,omitempty"`
	Author        string     `json:"author"`
	Date          time.Time  `json:"date"`
	ReadTime      string     `json:"readTime"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags,omitempty"`
	Image         string     `json:"image"`
	Status        PostStatus `json:"status"`
}

// EntityID implements Entity.
func (p BlogPost) EntityID() string { return p.ID }

// Validate checks required fields and the status enum.
func (p BlogPost) Validate() error {
	if err := required("title", p.Title); err != nil {
		return err
	}
	if err := optionalSlug("slug", p.Slug); err != nil {
		return err
	}
	switch p.Status {
	case PostDraft, PostPublished:
	default:
		return invalid("status", "must be draft or published")
	}
	switch p.ContentFormat {
	case "", FormatHTML, FormatMarkdown:
	default:
		return invalid("contentFormat", "must be html or markdown")
	}
	return nil
}

// EventStatus tracks an event through its lifecycle.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// ValidEventStatus reports whether s is one of the known statuses.
func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventUpcoming, EventOngoing, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// Event is a nightlife listing (DJ night, showcase). Kept alongside the
// engineering content because the admin still manages it.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description,omitempty"`
	StartsAt    time.Time   `json:"startsAt"`
	EndsAt      time.Time   `json:"endsAt"`
	Venue       string      `json:"venue"`
	Address     string      `json:"address,omitempty"`
	City        string      `json:"city,omitempty"`
	DJName      string      `json:"djName,omitempty"`
	DJBio       string      `json:"djBio,omitempty"`
	TicketPrice float64     `json:"ticketPrice,omitempty"`
	Capacity    int         `json:"capacity"`
	Status      EventStatus `json:"status"`
	Featured    bool        `json:"featured"`
	Image       string      `json:"image,omitempty"`
}

// EntityID implements Entity.
func (e Event) EntityID() string { return e.ID }

// Validate checks required fields, schedule ordering and the status enum.
func (e Event) Validate() error {
	if err := required("title", e.Title); err != nil {
		return err
	}
	if err := required("venue", e.Venue); err != nil {
		return err
	}
	if err := optionalSlug("slug", e.Slug); err != nil {
		return err
	}
	if !ValidEventStatus(e.Status) {
		return invalid("status", "must be upcoming, ongoing, completed or cancelled")
	}
	if !e.EndsAt.IsZero() && e.EndsAt.Before(e.StartsAt) {
		return invalid("endsAt", "must not be before startsAt")
	}
	if e.Capacity < 0 {
		return invalid("capacity", "must not be negative")
	}
	return nil
}
