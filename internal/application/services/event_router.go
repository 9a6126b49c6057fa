package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/domain/event"
	"github.com/kaupskip/email-service/internal/core/ports"
)

// EventRouter decodes raw pub/sub payloads into typed domain events and hands
// them to the Mailer. It is stateless; every per-message failure is logged and
// the message dropped so the receive loop keeps running.
type EventRouter struct {
	mailer   ports.Mailer
	channels event.Channels
	logger   *logrus.Logger
}

func NewEventRouter(mailer ports.Mailer, channels event.Channels, logger *logrus.Logger) ports.EventRouter {
	return &EventRouter{
		mailer:   mailer,
		channels: channels,
		logger:   logger,
	}
}

func (r *EventRouter) Route(ctx context.Context, channel string, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil && r.logger != nil {
			r.logger.WithFields(logrus.Fields{"channel": channel, "panic": rec}).Error("handler panicked; message dropped")
		}
	}()

	switch channel {
	case r.channels.Registration:
		r.handleRegistration(ctx, channel, payload)
	case r.channels.Subscription:
		r.handleSubscription(ctx, channel, payload)
	case r.channels.Marketing:
		r.handleMarketing(ctx, channel, payload)
	default:
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"channel": channel}).Warn("message on unknown channel dropped")
		}
	}
}

func (r *EventRouter) drop(channel string, err error) {
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"channel": channel}).WithError(err).Warn("message dropped")
	}
}

// handleRegistration delivers the verification email. The token was minted by
// the upstream system; no verification record is created here.
func (r *EventRouter) handleRegistration(ctx context.Context, channel string, payload []byte) {
	ev, err := event.DecodeRegistration(channel, payload)
	if err != nil {
		r.drop(channel, err)
		return
	}

	r.send(ctx, ports.NotificationIntent{
		Kind:      ports.KindVerification,
		Recipient: ev.Email,
		Data: map[string]interface{}{
			"token": ev.VerificationToken,
			"url":   ev.VerificationURL,
		},
	})
}

func (r *EventRouter) handleSubscription(ctx context.Context, channel string, payload []byte) {
	ev, err := event.DecodeSubscription(channel, payload)
	if err != nil {
		r.drop(channel, err)
		return
	}

	var kind ports.NotificationKind
	switch ev.EventType {
	case event.SubscriptionCreated:
		kind = ports.KindSubscriptionReceipt
	case event.SubscriptionCancelled:
		kind = ports.KindSubscriptionCancelled
	case event.SubscriptionDowngraded:
		kind = ports.KindAccountChange
	}

	data := map[string]interface{}{
		"tier":              ev.Tier,
		"subscription_data": ev.SubscriptionData,
	}
	r.send(ctx, ports.NotificationIntent{Kind: kind, Recipient: ev.Email, Data: data})
}

func (r *EventRouter) handleMarketing(ctx context.Context, channel string, payload []byte) {
	ev, err := event.DecodeMarketing(channel, payload)
	if err != nil {
		r.drop(channel, err)
		return
	}

	var kind ports.NotificationKind
	switch ev.EventType {
	case event.MarketingOAuthSignup, event.MarketingEmailVerified:
		kind = ports.KindWelcome
	case event.MarketingTrialExpired:
		kind = ports.KindTrialExpired
	}

	r.send(ctx, ports.NotificationIntent{Kind: kind, Recipient: ev.Email(), Data: ev.Data})
}

func (r *EventRouter) send(ctx context.Context, intent ports.NotificationIntent) {
	res := r.mailer.Send(ctx, intent)
	if r.logger == nil {
		return
	}
	fields := logrus.Fields{"kind": intent.Kind, "recipient": intent.Recipient}
	if res.Delivered {
		r.logger.WithFields(fields).Info("notification delivered")
	} else {
		r.logger.WithFields(fields).Error("notification delivery failed")
	}
}
