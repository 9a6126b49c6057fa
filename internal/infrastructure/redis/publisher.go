package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/kaupskip/email-service/internal/core/ports"
)

// EventPublisher publishes JSON events on Redis pub/sub channels. The client
// is connection-pooled, so publishing is safe while a PubSub receive is in
// flight on the same client.
type EventPublisher struct {
	client redis.Cmdable
}

func NewEventPublisher(client redis.Cmdable) *EventPublisher {
	return &EventPublisher{client: client}
}

var _ ports.EventPublisher = (*EventPublisher)(nil)

func (p *EventPublisher) Publish(ctx context.Context, channel string, event interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for channel %s: %w", channel, err)
	}

	if err := p.client.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("failed to publish on channel %s: %w", channel, err)
	}
	return nil
}
