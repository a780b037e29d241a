package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
)

// Repository is the write side of the outbox. It is built over sqlutil.DB
// so event inserts join the caller's transaction.
type Repository struct {
	db sqlutil.DB
}

func NewRepository(db sqlutil.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// InsertEvent queues one event for the given topic.
func (r *Repository) InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	const query = `INSERT INTO auction_outbox (id, league_id, topic, event_type, payload)
		VALUES (@id, @league_id, @topic, @event_type, @payload)`

	if _, err := r.db.Exec(ctx, query, pgx.NamedArgs{
		"id":         uuid.New(),
		"league_id":  leagueID,
		"topic":      topic,
		"event_type": eventType,
		"payload":    payloadBytes,
	}); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// DeleteByLeague drops queued events for a league (auction reset).
func (r *Repository) DeleteByLeague(ctx context.Context, leagueID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM auction_outbox WHERE league_id = @league_id AND sent_at IS NULL`,
		pgx.NamedArgs{"league_id": leagueID}); err != nil {
		return fmt.Errorf("failed to delete league outbox events: %w", err)
	}
	return nil
}
