package ports

import (
	"context"
	"errors"
	"time"

	"github.com/kaupskip/email-service/internal/core/domain/verification"
)

var (
	// ErrRecordNotFound is returned by VerificationStore.Get when no live
	// record exists for the user (never stored, deleted, or expired).
	ErrRecordNotFound = errors.New("verification record not found")

	// ErrStoreUnavailable wraps backing-store failures. It is surfaced to the
	// caller unretried; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("verification store unavailable")
)

// VerificationStore is a TTL-backed key/value store for pending verification
// records, keyed by user ID. Operations are atomic per key; Put overwrites any
// existing record and resets its TTL.
type VerificationStore interface {
	Put(ctx context.Context, userID string, rec *verification.Record, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*verification.Record, error)
	Delete(ctx context.Context, userID string) error
}

// VerificationService issues and confirms single-use verification codes.
type VerificationService interface {
	// Issue generates a fresh code for the user, replacing any pending one.
	Issue(ctx context.Context, userID, email string) (string, error)
	// Confirm checks the code for the user. On success it publishes a
	// confirmation event and consumes the record; a wrong code leaves the
	// record intact so the user can retry within the TTL window.
	Confirm(ctx context.Context, userID, code string) (bool, error)
}
