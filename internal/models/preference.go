package models

import (
	"strings"
	"time"
)

const (
	FrequencyDaily    = "DAILY"
	FrequencyWeekly   = "WEEKLY"
	FrequencyMonthly  = "MONTHLY"
	FrequencyRealtime = "REALTIME"
)

// FrequencyLabels maps frequency codes to the human labels used in emails.
var FrequencyLabels = map[string]string{
	FrequencyDaily:    "Daily",
	FrequencyWeekly:   "Weekly",
	FrequencyMonthly:  "Monthly",
	FrequencyRealtime: "Real-time",
}

// CategoryLabels is the fixed topic vocabulary.
var CategoryLabels = map[string]string{
	"tech":         "Technology",
	"business":     "Business",
	"lifestyle":    "Lifestyle",
	"finance":      "Finance",
	"marketing":    "Marketing",
	"design":       "Design",
	"development":  "Development",
	"productivity": "Productivity",
}

type Preference struct {
	SubscriberID string
	Frequency    string
	Categories   []string
	NoEmails     bool
	UpdatedAt    time.Time
}

// CategoryNames renders the selected category labels as a comma-joined
// list, skipping identifiers outside the vocabulary.
func CategoryNames(categories []string) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if label, ok := CategoryLabels[c]; ok {
			names = append(names, label)
		}
	}
	return strings.Join(names, ", ")
}

// EmailLocalPart returns everything before the "@".
func EmailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
