package models

import "time"

// UnsubscribeLog rows are append-only; never mutated after insert.
type UnsubscribeLog struct {
	ID             string
	Email          string
	Reason         string
	SubscriberID   string
	UnsubscribedAt time.Time
}

const (
	EmailLogSent    = "SENT"
	EmailLogFailed  = "FAILED"
	EmailLogOpened  = "OPENED"
	EmailLogClicked = "CLICKED"
)

type EmailLog struct {
	ID             string
	MessageID      string
	RecipientEmail string
	SubscriberID   string
	NewsletterID   string
	Status         string
	CreatedAt      time.Time
}
