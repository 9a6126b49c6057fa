package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/ports"
)

// State tracks the subscriber lifecycle: Stopped -> Starting -> Listening ->
// Stopping -> Stopped.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// ErrAlreadyStarted is returned when Start is called on a subscriber that is
// not in the Stopped state.
var ErrAlreadyStarted = errors.New("subscriber already started")

// Subscriber owns the pub/sub connection lifecycle and the receive loop. Each
// message is processed to completion before the next is read; per-message
// failures are contained by the router, connection failures are fatal and
// returned to the caller, which owns restart policy.
type Subscriber struct {
	client   *redis.Client
	router   ports.EventRouter
	channels []string
	logger   *logrus.Logger

	mu     sync.Mutex
	state  State
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewSubscriber(client *redis.Client, router ports.EventRouter, channels []string, logger *logrus.Logger) *Subscriber {
	return &Subscriber{
		client:   client,
		router:   router,
		channels: channels,
		logger:   logger,
	}
}

// Start subscribes to the configured channels and blocks in the receive loop
// until Stop is called or the connection fails. A clean Stop returns nil.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	pubsub := s.client.Subscribe(ctx, s.channels...)

	// Wait for the subscription confirmation so connection problems surface
	// here instead of as a missing first message.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		s.setState(StateStopped)
		return fmt.Errorf("failed to subscribe to channels %v: %w", s.channels, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.state == StateStopping {
		// Stop raced with startup; tear down without entering the loop.
		s.state = StateStopped
		s.mu.Unlock()
		_ = pubsub.Close()
		return nil
	}
	s.pubsub = pubsub
	s.done = done
	s.state = StateListening
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"channels": s.channels}).Info("subscriber listening")
	}

	defer func() {
		s.mu.Lock()
		s.pubsub = nil
		s.done = nil
		s.state = StateStopped
		s.mu.Unlock()
		close(done)
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if s.stopping() {
				return nil
			}
			// Not a requested shutdown: the connection is gone. Fail loud and
			// let the owner decide whether to restart.
			return fmt.Errorf("subscriber connection lost: %w", err)
		}

		messagesReceived.WithLabelValues(msg.Channel).Inc()
		s.router.Route(ctx, msg.Channel, []byte(msg.Payload))
	}
}

// Stop unsubscribes, closes the connection and waits for the receive loop to
// exit. In-flight work for the current message finishes first. Calling Stop
// before Start, or twice, is a no-op.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateStopping {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	pubsub := s.pubsub
	done := s.done
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("stopping subscriber")
	}

	if pubsub != nil {
		ctx := context.Background()
		if err := pubsub.Unsubscribe(ctx, s.channels...); err != nil && s.logger != nil {
			s.logger.WithError(err).Warn("failed to unsubscribe")
		}
		// Closing the PubSub unblocks the pending ReceiveMessage.
		if err := pubsub.Close(); err != nil && s.logger != nil {
			s.logger.WithError(err).Warn("failed to close pubsub connection")
		}
	}

	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("subscriber stopped")
	}
	return nil
}

// State reports the current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscriber) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Subscriber) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStopping
}
