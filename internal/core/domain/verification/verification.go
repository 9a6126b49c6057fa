package verification

import (
	"time"
)

// Record is a pending email-verification code. At most one live record exists
// per user; a re-issue overwrites the previous one and resets its TTL.
type Record struct {
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Confirmation is the event published on the verification channel once a code
// has been confirmed. Field names are part of the wire contract.
type Confirmation struct {
	UserID     string    `json:"user_id"`
	Verified   bool      `json:"verified"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}
