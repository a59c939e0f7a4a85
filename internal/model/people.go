package model

import "time"

// SocialLinks are optional profile URLs for a team member.
type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Email    string `json:"email,omitempty"`
}

// TeamMember is shown on /team ordered by Order.
type TeamMember struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Position string      `json:"position"`
	Bio      string      `json:"bio"`
	Avatar   string      `json:"avatar"`
	Social   SocialLinks `json:"social"`
	Order    int         `json:"order"`
	IsActive bool        `json:"isActive"`
}

// EntityID implements Entity.
func (m TeamMember) EntityID() string { return m.ID }

func (m TeamMember) Validate() error {
	if err := required("name", m.Name); err != nil {
		return err
	}
	return required("position", m.Position)
}

// Testimonial is a client quote.
type Testimonial struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	Content  string    `json:"content"`
	Rating   int       `json:"rating"`
	Image    string    `json:"image,omitempty"`
	IsActive bool      `json:"isActive"`
	Date     time.Time `json:"date"`
}

// EntityID implements Entity.
func (t Testimonial) EntityID() string { return t.ID }

func (t Testimonial) Validate() error {
	if err := required("name", t.Name); err != nil {
		return err
	}
	if err := required("content", t.Content); err != nil {
		return err
	}
	if t.Rating < 1 || t.Rating > 5 {
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}
