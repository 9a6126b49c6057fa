package event

import (
	"encoding/json"
	"fmt"
)

// Channels holds the pub/sub channel names this service consumes and publishes.
// The registration channel name predates namespacing and is fixed by the wire
// contract with the upstream API.
type Channels struct {
	Registration string
	Subscription string
	Marketing    string
	// Verification is the outbound channel confirmation events are published on.
	Verification string
}

// ChannelsFor builds the channel set for a namespace (e.g. "kaupskip").
func ChannelsFor(namespace string) Channels {
	return Channels{
		Registration: "user_registration",
		Subscription: namespace + ":subscription",
		Marketing:    namespace + ":marketing",
		Verification: namespace + ":verification",
	}
}

// Inbound returns the channels the subscriber listens on.
func (c Channels) Inbound() []string {
	return []string{c.Registration, c.Subscription, c.Marketing}
}

// RegistrationRequested is published by the upstream API when a user signs up.
// The verification token is minted upstream; this service only delivers it.
type RegistrationRequested struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
	VerificationURL   string `json:"verification_url"`
}

type SubscriptionEventType string

const (
	SubscriptionCreated    SubscriptionEventType = "subscription_created"
	SubscriptionCancelled  SubscriptionEventType = "subscription_cancelled"
	SubscriptionDowngraded SubscriptionEventType = "subscription_downgraded"
)

type SubscriptionEvent struct {
	UserID           string                 `json:"user_id"`
	Email            string                 `json:"email"`
	Tier             string                 `json:"tier"`
	EventType        SubscriptionEventType  `json:"event_type"`
	SubscriptionData map[string]interface{} `json:"subscription_data"`
}

type MarketingEventType string

const (
	MarketingOAuthSignup   MarketingEventType = "marketing:oauth_signup"
	MarketingEmailVerified MarketingEventType = "marketing:email_verified"
	MarketingTrialExpired  MarketingEventType = "marketing:trial_expired"
)

type MarketingEvent struct {
	EventType MarketingEventType     `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// Email returns the recipient address carried in the event data.
func (e *MarketingEvent) Email() string {
	if v, ok := e.Data["email"].(string); ok {
		return v
	}
	return ""
}

// DecodeError indicates a payload that is not structurally valid JSON.
type DecodeError struct {
	Channel string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed payload on channel %s: %v", e.Channel, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError indicates a structurally valid payload missing a required field.
type ValidationError struct {
	Channel string
	Field   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q on channel %s", e.Field, e.Channel)
}

// UnknownVariantError indicates an event_type outside the closed set for its family.
type UnknownVariantError struct {
	Channel   string
	EventType string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown event type %q on channel %s", e.EventType, e.Channel)
}

// requireFields checks key presence on the raw payload so that an explicitly
// null or empty value is distinguished from a missing key only where it matters
// (string fields must also be non-empty).
func requireFields(channel string, raw map[string]json.RawMessage, fields ...string) error {
	for _, f := range fields {
		if _, ok := raw[f]; !ok {
			return &ValidationError{Channel: channel, Field: f}
		}
	}
	return nil
}

// DecodeRegistration parses and validates a user_registration payload.
func DecodeRegistration(channel string, payload []byte) (*RegistrationRequested, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Channel: channel, Err: err}
	}
	if err := requireFields(channel, raw, "user_id", "email", "verification_token", "verification_url"); err != nil {
		return nil, err
	}

	var ev RegistrationRequested
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, &DecodeError{Channel: channel, Err: err}
	}
	if ev.Email == "" {
		return nil, &ValidationError{Channel: channel, Field: "email"}
	}
	return &ev, nil
}

// DecodeSubscription parses and validates a subscription payload.
func DecodeSubscription(channel string, payload []byte) (*SubscriptionEvent, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Channel: channel, Err: err}
	}
	if err := requireFields(channel, raw, "user_id", "email", "tier", "subscription_data"); err != nil {
		return nil, err
	}

	var ev SubscriptionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, &DecodeError{Channel: channel, Err: err}
	}
	if ev.Email == "" {
		return nil, &ValidationError{Channel: channel, Field: "email"}
	}
	switch ev.EventType {
	case SubscriptionCreated, SubscriptionCancelled, SubscriptionDowngraded:
		return &ev, nil
	default:
		return nil, &UnknownVariantError{Channel: channel, EventType: string(ev.EventType)}
	}
}

// DecodeMarketing parses and validates a marketing payload.
func DecodeMarketing(channel string, payload []byte) (*MarketingEvent, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Channel: channel, Err: err}
	}
	if err := requireFields(channel, raw, "event_type", "data"); err != nil {
		return nil, err
	}

	var ev MarketingEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, &DecodeError{Channel: channel, Err: err}
	}
	if ev.Email() == "" {
		return nil, &ValidationError{Channel: channel, Field: "data.email"}
	}
	switch ev.EventType {
	case MarketingOAuthSignup, MarketingEmailVerified, MarketingTrialExpired:
		return &ev, nil
	default:
		return nil, &UnknownVariantError{Channel: channel, EventType: string(ev.EventType)}
	}
}
