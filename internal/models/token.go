package models

import "time"

// VerificationToken authorizes a single follow-up action (confirm, manage
// preferences, unsubscribe) for the identifier it was issued to. Tokens are
// single-use and expire at Expires.
type VerificationToken struct {
	Identifier string
	Token      string
	Expires    time.Time
}
