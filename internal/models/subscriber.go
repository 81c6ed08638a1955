package models

import "time"

const (
	StatusPending      = "PENDING"
	StatusConfirmed    = "CONFIRMED"
	StatusUnsubscribed = "UNSUBSCRIBED"
	StatusBounced      = "BOUNCED"
)

type Subscriber struct {
	ID             string
	Email          string
	Name           string
	Status         string
	Tags           []string
	OpenCount      int
	ClickCount     int
	BounceCount    int
	ComplaintCount int
	CreatedAt      time.Time
	SubscribedAt   *time.Time
	ConfirmedAt    *time.Time
	UnsubscribedAt *time.Time
	LastOpenedAt   *time.Time
}

// DisplayName falls back to the local part of the address when no name
// was supplied at signup.
func (s Subscriber) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return EmailLocalPart(s.Email)
}
