package ports

import (
	"context"
)

// EventPublisher publishes a JSON-encoded event on a pub/sub channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event interface{}) error
}

// EventRouter classifies a raw pub/sub message by channel and dispatches it.
// Anything wrong with a single message (malformed payload, missing fields,
// unknown variants, delivery failures) is contained here: Route logs and
// returns, it never panics or propagates per-message errors to the caller.
type EventRouter interface {
	Route(ctx context.Context, channel string, payload []byte)
}
