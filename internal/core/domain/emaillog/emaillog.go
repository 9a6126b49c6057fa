package emaillog

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// EmailLog records the outcome of a single delivery attempt.
type EmailLog struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	EmailTo   string                 `json:"email_to" db:"email_to"`
	EmailType string                 `json:"email_type" db:"email_type"`
	Status    Status                 `json:"status" db:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"-"`
	SentAt    *time.Time             `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Filter bounds a send-log listing.
type Filter struct {
	Limit  int
	Offset int
}
