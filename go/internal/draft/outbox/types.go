package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one undelivered event row. Events are written in the same
// transaction as the domain change they describe and relayed to NATS by the
// worker, so a publish can lag but never report a change that was rolled
// back.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Topic     string          `json:"topic"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
