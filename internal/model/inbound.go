package model

import "time"

// NewsletterSubscriber is created on subscribe and soft-deactivated on
// unsubscribe. Email is stored normalized (see NormalizeEmail).
type NewsletterSubscriber struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	SubscribedAt   time.Time  `json:"subscribedAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
	IsActive       bool       `json:"isActive"`
	Source         string     `json:"source"`
}

// EntityID implements Entity.
func (s NewsletterSubscriber) EntityID() string { return s.ID }

// MessageStatus is the admin triage state of a contact message.
type MessageStatus string

const (
	MessageNew     MessageStatus = "new"
	MessageRead    MessageStatus = "read"
	MessageReplied MessageStatus = "replied"
)

// ValidMessageStatus reports whether s is new, read or replied.
func ValidMessageStatus(s MessageStatus) bool {
	return s == MessageNew || s == MessageRead || s == MessageReplied
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	ID          string        `json:"id"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone,omitempty"`
	Subject     string        `json:"subject"`
	Message     string        `json:"message"`
	SubmittedAt time.Time     `json:"submittedAt"`
	RepliedAt   *time.Time    `json:"repliedAt,omitempty"`
	Status      MessageStatus `json:"status"`
}

// EntityID implements Entity.
func (m ContactMessage) EntityID() string { return m.ID }

// Validate checks the fields the public form marks as required.
func (m ContactMessage) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"firstName", m.FirstName},
		{"lastName", m.LastName},
		{"email", m.Email},
		{"subject", m.Subject},
		{"message", m.Message},
	} {
		if err := required(f.name, f.value); err != nil {
			return err
		}
	}
	if !ValidEmail(m.Email) {
		return invalid("email", "is not a valid email address")
	}
	return nil
}

// PaymentStatus values reported by the mobile-money provider.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment tracks one mobile-money collection request. Reference is the id.
type Payment struct {
	ID            string        `json:"id"`
	Phone         string        `json:"phone"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	PackageID     string        `json:"packageId,omitempty"`
	TransactionID string        `json:"transactionId,omitempty"`
	Status        PaymentStatus `json:"status"`
	Message       string        `json:"message,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// EntityID implements Entity.
func (p Payment) EntityID() string { return p.ID }
