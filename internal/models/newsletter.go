package models

import "time"

const (
	NewsletterDraft     = "DRAFT"
	NewsletterScheduled = "SCHEDULED"
	NewsletterSending   = "SENDING"
	NewsletterSent      = "SENT"
	NewsletterFailed    = "FAILED"
)

const (
	AudienceAll     = "all"
	AudienceActive  = "active"
	AudienceNew     = "new"
	AudienceEngaged = "engaged"
)

type Newsletter struct {
	ID             string
	Title          string
	Subject        string
	Content        string
	Status         string
	Audience       string
	ScheduledFor   *time.Time
	SentAt         *time.Time
	RecipientCount int
	SentCount      int
	FailedCount    int
	OpenCount      int
	ClickCount     int
	CreatedAt      time.Time
	AuthorID       string
}

// BroadcastReport summarizes one broadcast run.
type BroadcastReport struct {
	NewsletterID string   `json:"newsletterId"`
	Scheduled    bool     `json:"scheduled,omitempty"`
	Sent         int      `json:"sent"`
	Failed       int      `json:"failed"`
	Total        int      `json:"total"`
	Errors       []string `json:"errors,omitempty"`
}
