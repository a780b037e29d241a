package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
)

const actionColumns = `id, league_id, admin_id, kind, round_id, team_id, player_id, reason, created_at`

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

// CreateAction appends one audit record. The table is append-only; records
// survive everything short of a full auction reset.
func (r *Repository) CreateAction(ctx context.Context, action models.AdminAction) (*models.AdminAction, error) {
	query := fmt.Sprintf(`
		INSERT INTO admin_actions (id, league_id, admin_id, kind, round_id, team_id, player_id, reason)
		VALUES (@id, @league_id, @admin_id, @kind, @round_id, @team_id, @player_id, @reason)
		RETURNING %s`, actionColumns)

	row := r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":        action.ID,
		"league_id": action.LeagueID,
		"admin_id":  action.AdminID,
		"kind":      action.Kind,
		"round_id":  action.RoundID,
		"team_id":   action.TeamID,
		"player_id": action.PlayerID,
		"reason":    action.Reason,
	})
	return scanAction(row)
}

// ListByLeague returns a page of the league's audit log, newest first.
func (r *Repository) ListByLeague(ctx context.Context, leagueID uuid.UUID, limit, offset int) ([]models.AdminAction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM admin_actions
		WHERE league_id = @league_id
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`, actionColumns)

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{
		"league_id": leagueID,
		"limit":     limit,
		"offset":    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list admin actions: %w", err)
	}
	defer rows.Close()

	var actions []models.AdminAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *action)
	}
	return actions, rows.Err()
}

// DeleteByLeague wipes the audit history, used only by the full reset.
func (r *Repository) DeleteByLeague(ctx context.Context, leagueID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM admin_actions WHERE league_id = @league_id`, pgx.NamedArgs{
		"league_id": leagueID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete admin actions: %w", err)
	}
	return nil
}

func scanAction(row pgx.Row) (*models.AdminAction, error) {
	var action models.AdminAction
	err := row.Scan(
		&action.ID,
		&action.LeagueID,
		&action.AdminID,
		&action.Kind,
		&action.RoundID,
		&action.TeamID,
		&action.PlayerID,
		&action.Reason,
		&action.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan admin action: %w", err)
	}
	return &action, nil
}
