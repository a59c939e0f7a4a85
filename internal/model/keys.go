package model

// Entity is implemented by every stored record. The ID is the primary key
// both in the local store and in the remote backend tables.
type Entity interface {
	EntityID() string
}

// Collection keys. Each key names one JSON blob in the local store and one
// table in the remote backend.
const (
	KeyBlogPosts    = "blog_posts"
	KeyEvents       = "events"
	KeyTeam         = "team_members"
	KeyTestimonials = "testimonials"
	KeyTreePackages = "tree_packages"
	KeyButtons      = "buttons"
	KeySubscribers  = "newsletter_subscribers"
	KeyMessages     = "contact_messages"
	KeyPayments     = "payments"
)

// AllKeys lists every collection in a stable order (used by migrations and schema setup).
func AllKeys() []string {
	return []string{
		KeyBlogPosts,
		KeyEvents,
		KeyTeam,
		KeyTestimonials,
		KeyTreePackages,
		KeyButtons,
		KeySubscribers,
		KeyMessages,
		KeyPayments,
	}
}
