package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string        // e.g., "auction.>"
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "AUCTION_EVENTS",
		ConsumerName:  "auction-gateway",
		SubjectFilter: "auction.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// EventConsumer consumes auction events from JetStream and hands them to
// the connection manager, routed by subject: auction.league.<id> fans out
// to the whole league, auction.team.<id> only to that team's sockets.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
}

// envelope mirrors what the outbox relay publishes.
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	LeagueID  string          `json:"leagueId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEventConsumer creates a new JetStream event consumer
func NewEventConsumer(cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		js:                js,
		config:            config,
	}

	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return ec, nil
}

// ensureConsumer creates the stream if needed, then the durable consumer.
func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     ec.config.StreamName,
		Subjects: []string{ec.config.SubjectFilter},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Auction gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("ensure consumer: %w", err)
	}

	ec.consumer = consumer
	return nil
}

// Start consumes events until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.handleMessage(msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to handle event")
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}

	log.Info().
		Str("stream", ec.config.StreamName).
		Str("filter", ec.config.SubjectFilter).
		Msg("gateway event consumer started")

	<-ctx.Done()
	consumeCtx.Stop()
	return nil
}

// Close tears down the NATS connection.
func (ec *EventConsumer) Close() {
	if ec.nc != nil {
		ec.nc.Close()
	}
}

func (ec *EventConsumer) handleMessage(msg jetstream.Msg) error {
	var env envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	leagueID, err := uuid.Parse(env.LeagueID)
	if err != nil {
		return fmt.Errorf("invalid league id %q: %w", env.LeagueID, err)
	}

	// auction.team.<team-id> carries the full pick detail; everything
	// else is league-wide.
	parts := strings.Split(msg.Subject(), ".")
	if len(parts) == 3 && parts[1] == "team" {
		teamID, err := uuid.Parse(parts[2])
		if err != nil {
			return fmt.Errorf("invalid team subject %q: %w", msg.Subject(), err)
		}
		ec.connectionManager.BroadcastToTeam(leagueID, teamID, msg.Data())
		return nil
	}

	ec.connectionManager.BroadcastToLeague(leagueID, msg.Data())
	return nil
}
