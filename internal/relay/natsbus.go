package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/nats-io/nats.go"
)

// notificationSubject is the NATS subject reservation events are relayed on.
const notificationSubject = "clinic.notifications"

// NATSBus relays messages over NATS pub/sub. This is the primary delivery
// path when a NATS server is configured; instances without one rely on the
// shared buffer alone.
type NATSBus struct {
	nc     *nats.Conn
	logger *logger.Logger
}

// NewNATSBus creates a bus over an established NATS connection.
// Returns nil if the connection is not available.
func NewNATSBus(nc *nats.Conn, logger *logger.Logger) *NATSBus {
	if nc == nil {
		return nil
	}

	return &NATSBus{
		nc:     nc,
		logger: logger.WithComponent("nats-bus"),
	}
}

// Publish sends the message to every subscribed instance.
func (b *NATSBus) Publish(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := b.nc.Publish(notificationSubject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", notificationSubject, err)
	}

	return nil
}

// Subscribe registers a handler for relayed messages. Malformed payloads are
// logged and dropped; we may not be the intended consumer of whatever else
// lands on the subject.
func (b *NATSBus) Subscribe(handler func(Message)) (BusSubscription, error) {
	sub, err := b.nc.Subscribe(notificationSubject, func(m *nats.Msg) {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			b.logger.Warn("received invalid relay message", slog.String("error", err.Error()))
			return
		}
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", notificationSubject, err)
	}

	return &natsSubscription{sub: sub}, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	if err := s.sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	return nil
}
