package ports

import (
	"context"
)

// NotificationKind identifies the template/subject family of an outbound email.
type NotificationKind string

const (
	KindVerification          NotificationKind = "verification"
	KindWelcome               NotificationKind = "welcome"
	KindSubscriptionReceipt   NotificationKind = "subscription_receipt"
	KindSubscriptionCancelled NotificationKind = "subscription_cancelled"
	KindAccountChange         NotificationKind = "account_change"
	KindTrialExpired          NotificationKind = "trial_expired"
)

// NotificationIntent is the unit of work handed to the Mailer: what to send,
// to whom, and the template data.
type NotificationIntent struct {
	Kind      NotificationKind
	Recipient string
	Data      map[string]interface{}
}

// SendResult reports the delivery outcome. Mailer implementations never
// propagate errors across this boundary; callers branch on Delivered.
type SendResult struct {
	Delivered bool
}

// Mailer attempts delivery of a notification intent. Implementations own
// template rendering, transport, bounded send timeouts, and the durable
// send log; they must always return a result rather than fail.
type Mailer interface {
	Send(ctx context.Context, intent NotificationIntent) SendResult
}
