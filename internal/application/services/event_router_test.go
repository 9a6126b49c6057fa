package services_test

import (
	"context"
	"testing"

	impl "github.com/kaupskip/email-service/internal/application/services"
	"github.com/kaupskip/email-service/internal/core/domain/event"
	"github.com/kaupskip/email-service/internal/core/ports"
)

type mailerMock struct {
	sendFn  func(ctx context.Context, intent ports.NotificationIntent) ports.SendResult
	intents []ports.NotificationIntent
}

func (m *mailerMock) Send(ctx context.Context, intent ports.NotificationIntent) ports.SendResult {
	m.intents = append(m.intents, intent)
	if m.sendFn != nil {
		return m.sendFn(ctx, intent)
	}
	return ports.SendResult{Delivered: true}
}

func newRouter(mailer ports.Mailer) ports.EventRouter {
	return impl.NewEventRouter(mailer, event.ChannelsFor("kaupskip"), nil)
}

func TestRoute_Registration(t *testing.T) {
	mailer := &mailerMock{}
	router := newRouter(mailer)

	payload := []byte(`{"user_id":"u1","email":"a@b.com","verification_token":"T","verification_url":"https://x/verify?token=T"}`)
	router.Route(context.Background(), "user_registration", payload)

	if len(mailer.intents) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(mailer.intents))
	}
	intent := mailer.intents[0]
	if intent.Kind != ports.KindVerification || intent.Recipient != "a@b.com" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.Data["token"] != "T" || intent.Data["url"] != "https://x/verify?token=T" {
		t.Fatalf("unexpected template data: %+v", intent.Data)
	}
}

func TestRoute_Registration_MissingFieldDropped(t *testing.T) {
	mailer := &mailerMock{}
	router := newRouter(mailer)

	router.Route(context.Background(), "user_registration", []byte(`{"user_id":"u1","email":"a@b.com"}`))

	if len(mailer.intents) != 0 {
		t.Fatalf("expected message to be dropped, got %d sends", len(mailer.intents))
	}

	// The loop keeps going: the next valid message is still processed.
	router.Route(context.Background(), "user_registration", []byte(`{"user_id":"u2","email":"b@c.com","verification_token":"T2","verification_url":"https://x/verify?token=T2"}`))
	if len(mailer.intents) != 1 {
		t.Fatalf("expected subsequent message to be processed, got %d sends", len(mailer.intents))
	}
}

func TestRoute_MalformedPayloadDropped(t *testing.T) {
	mailer := &mailerMock{}
	router := newRouter(mailer)

	router.Route(context.Background(), "user_registration", []byte(`not json at all`))
	router.Route(context.Background(), "kaupskip:subscription", []byte(`{"truncated":`))
	router.Route(context.Background(), "kaupskip:marketing", []byte(``))

	if len(mailer.intents) != 0 {
		t.Fatalf("expected all malformed messages dropped, got %d sends", len(mailer.intents))
	}
}

func TestRoute_SubscriptionKinds(t *testing.T) {
	cases := []struct {
		eventType string
		kind      ports.NotificationKind
	}{
		{"subscription_created", ports.KindSubscriptionReceipt},
		{"subscription_cancelled", ports.KindSubscriptionCancelled},
		{"subscription_downgraded", ports.KindAccountChange},
	}

	for _, tc := range cases {
		mailer := &mailerMock{}
		router := newRouter(mailer)

		payload := []byte(`{"event_type":"` + tc.eventType + `","user_id":"u2","email":"c@d.com","tier":"basic","subscription_data":{}}`)
		router.Route(context.Background(), "kaupskip:subscription", payload)

		if len(mailer.intents) != 1 {
			t.Fatalf("%s: expected one send, got %d", tc.eventType, len(mailer.intents))
		}
		if mailer.intents[0].Kind != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.eventType, tc.kind, mailer.intents[0].Kind)
		}
		if mailer.intents[0].Recipient != "c@d.com" {
			t.Fatalf("%s: unexpected recipient %s", tc.eventType, mailer.intents[0].Recipient)
		}
	}
}

func TestRoute_SubscriptionUnknownTypeDropped(t *testing.T) {
	mailer := &mailerMock{}
	router := newRouter(mailer)

	payload := []byte(`{"event_type":"subscription_paused","user_id":"u2","email":"c@d.com","tier":"basic","subscription_data":{}}`)
	router.Route(context.Background(), "kaupskip:subscription", payload)

	if len(mailer.intents) != 0 {
		t.Fatalf("expected unknown event type to be dropped, got %d sends", len(mailer.intents))
	}
}

func TestRoute_MarketingKinds(t *testing.T) {
	cases := []struct {
		eventType string
		kind      ports.NotificationKind
	}{
		{"marketing:oauth_signup", ports.KindWelcome},
		{"marketing:email_verified", ports.KindWelcome},
		{"marketing:trial_expired", ports.KindTrialExpired},
	}

	for _, tc := range cases {
		mailer := &mailerMock{}
		router := newRouter(mailer)

		payload := []byte(`{"event_type":"` + tc.eventType + `","data":{"email":"e@f.com"}}`)
		router.Route(context.Background(), "kaupskip:marketing", payload)

		if len(mailer.intents) != 1 {
			t.Fatalf("%s: expected one send, got %d", tc.eventType, len(mailer.intents))
		}
		if mailer.intents[0].Kind != tc.kind || mailer.intents[0].Recipient != "e@f.com" {
			t.Fatalf("%s: unexpected intent %+v", tc.eventType, mailer.intents[0])
		}
	}
}

func TestRoute_UnknownChannelDropped(t *testing.T) {
	mailer := &mailerMock{}
	router := newRouter(mailer)

	router.Route(context.Background(), "kaupskip:billing", []byte(`{"event_type":"x"}`))

	if len(mailer.intents) != 0 {
		t.Fatalf("expected unknown channel to be dropped, got %d sends", len(mailer.intents))
	}
}

func TestRoute_DeliveryFailureContained(t *testing.T) {
	mailer := &mailerMock{sendFn: func(ctx context.Context, intent ports.NotificationIntent) ports.SendResult {
		return ports.SendResult{Delivered: false}
	}}
	router := newRouter(mailer)

	payload := []byte(`{"user_id":"u1","email":"a@b.com","verification_token":"T","verification_url":"https://x/v"}`)
	router.Route(context.Background(), "user_registration", payload)
	router.Route(context.Background(), "user_registration", payload)

	// Both messages are attempted; a failed delivery never stops routing.
	if len(mailer.intents) != 2 {
		t.Fatalf("expected both messages attempted, got %d", len(mailer.intents))
	}
}
