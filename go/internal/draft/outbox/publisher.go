package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// MockPublisher is a simple in-memory publisher for development/testing
type MockPublisher struct {
	logger *slog.Logger
}

func NewMockPublisher(logger *slog.Logger) *MockPublisher {
	return &MockPublisher{logger: logger}
}

func (p *MockPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	p.logger.Info("publishing event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("topic", event.Topic))
	return nil
}

// NATSPublisher publishes events to NATS JetStream. The event's topic is
// used as the subject directly; the gateway consumer subscribes with
// auction.> and routes per topic.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

func NewNATSPublisher(nc *nats.Conn, logger *slog.Logger) (*NATSPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &NATSPublisher{nc: nc, js: js, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	envelope := map[string]interface{}{
		"eventId":   event.ID.String(),
		"eventType": event.EventType,
		"leagueId":  event.LeagueID.String(),
		"timestamp": event.CreatedAt,
		"payload":   json.RawMessage(event.Payload),
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Dedup on event id so a worker retry after a lost ack cannot deliver
	// the same event twice.
	if _, err := p.js.Publish(event.Topic, messageBytes, nats.MsgId(event.ID.String()), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", event.Topic, err)
	}

	p.logger.Debug("published event",
		slog.String("subject", event.Topic),
		slog.String("event_type", event.EventType),
		slog.Int("size", len(messageBytes)))

	return nil
}
