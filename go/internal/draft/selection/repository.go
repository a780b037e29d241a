package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
)

const selectionColumns = `id, round_id, team_id, user_id, player_id, tie_break, is_winner, admin_assigned, admin_reason, created_at`

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

// CreateSelection inserts a pick as a single conditional write: the INSERT
// only sees a row to copy when the player is still unassigned and belongs
// to the round's league. Together with the (round_id, team_id) unique
// constraint this is the serialization point for concurrent submissions —
// there is no read-then-write window.
func (r *Repository) CreateSelection(ctx context.Context, sel models.Selection) (*models.Selection, error) {
	const query = `INSERT INTO selections (id, round_id, team_id, user_id, player_id, admin_assigned, admin_reason)
		SELECT @id, @round_id, @team_id, @user_id, p.id, @admin_assigned, @admin_reason
		FROM players p
		JOIN rounds r ON r.id = @round_id AND r.league_id = p.league_id
		WHERE p.id = @player_id AND NOT p.is_assigned
		RETURNING ` + selectionColumns

	created, err := scanSelection(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":             sel.ID,
		"round_id":       sel.RoundID,
		"team_id":        sel.TeamID,
		"user_id":        sel.UserID,
		"player_id":      sel.PlayerID,
		"admin_assigned": sel.AdminAssigned,
		"admin_reason":   sel.AdminReason,
	}))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflictf("team %s already has a selection for round %s", sel.TeamID, sel.RoundID)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Conflictf("player %s is no longer available", sel.PlayerID)
		}
		return nil, fmt.Errorf("failed to create selection: %w", err)
	}
	return created, nil
}

// UpsertAdminSelection overwrites any existing selection for the team. Same
// availability guard as CreateSelection; the ON CONFLICT arm resets any
// stamped resolution state.
func (r *Repository) UpsertAdminSelection(ctx context.Context, sel models.Selection) (*models.Selection, error) {
	const query = `INSERT INTO selections (id, round_id, team_id, user_id, player_id, admin_assigned, admin_reason)
		SELECT @id, @round_id, @team_id, @user_id, p.id, TRUE, @admin_reason
		FROM players p
		JOIN rounds r ON r.id = @round_id AND r.league_id = p.league_id
		WHERE p.id = @player_id AND NOT p.is_assigned
		ON CONFLICT (round_id, team_id) DO UPDATE
		SET player_id = EXCLUDED.player_id,
		    user_id = EXCLUDED.user_id,
		    admin_assigned = TRUE,
		    admin_reason = EXCLUDED.admin_reason,
		    tie_break = NULL,
		    is_winner = FALSE
		RETURNING ` + selectionColumns

	created, err := scanSelection(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":           sel.ID,
		"round_id":     sel.RoundID,
		"team_id":      sel.TeamID,
		"user_id":      sel.UserID,
		"player_id":    sel.PlayerID,
		"admin_reason": sel.AdminReason,
	}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Conflictf("player %s is no longer available", sel.PlayerID)
		}
		return nil, fmt.Errorf("failed to upsert admin selection: %w", err)
	}
	return created, nil
}

func (r *Repository) GetSelection(ctx context.Context, roundID, teamID uuid.UUID) (*models.Selection, error) {
	const query = `SELECT ` + selectionColumns + ` FROM selections
		WHERE round_id = @round_id AND team_id = @team_id`

	sel, err := scanSelection(r.db.QueryRow(ctx, query, pgx.NamedArgs{"round_id": roundID, "team_id": teamID}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no selection for team %s in round %s", teamID, roundID)
		}
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	return sel, nil
}

func (r *Repository) GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error) {
	const query = `SELECT ` + selectionColumns + ` FROM selections
		WHERE round_id = @round_id ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{"round_id": roundID})
	if err != nil {
		return nil, fmt.Errorf("failed to get selections by round: %w", err)
	}
	defer rows.Close()

	var selections []models.Selection
	for rows.Next() {
		sel, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		selections = append(selections, *sel)
	}
	return selections, rows.Err()
}

// DeleteSelection removes a team's pending pick; winner rows are immune so
// a cancel cannot undo a committed assignment.
func (r *Repository) DeleteSelection(ctx context.Context, roundID, teamID uuid.UUID) (bool, error) {
	const query = `DELETE FROM selections
		WHERE round_id = @round_id AND team_id = @team_id AND NOT is_winner`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"round_id": roundID, "team_id": teamID})
	if err != nil {
		return false, fmt.Errorf("failed to delete selection: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteSelectionsByRound clears every selection of a round (admin reset).
func (r *Repository) DeleteSelectionsByRound(ctx context.Context, roundID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM selections WHERE round_id = @round_id`, pgx.NamedArgs{"round_id": roundID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete round selections: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByID removes one selection row.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM selections WHERE id = @id`, pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("failed to delete selection %s: %w", id, err)
	}
	return nil
}

// SetTieBreak stamps the drawn number on one selection.
func (r *Repository) SetTieBreak(ctx context.Context, id uuid.UUID, n int) error {
	if _, err := r.db.Exec(ctx, `UPDATE selections SET tie_break = @n WHERE id = @id`,
		pgx.NamedArgs{"id": id, "n": n}); err != nil {
		return fmt.Errorf("failed to set tie break: %w", err)
	}
	return nil
}

// MarkWinner flags the selection that won its player.
func (r *Repository) MarkWinner(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `UPDATE selections SET is_winner = TRUE WHERE id = @id`,
		pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("failed to mark winner: %w", err)
	}
	return nil
}

func scanSelection(row pgx.Row) (*models.Selection, error) {
	var sel models.Selection
	if err := row.Scan(
		&sel.ID,
		&sel.RoundID,
		&sel.TeamID,
		&sel.UserID,
		&sel.PlayerID,
		&sel.TieBreak,
		&sel.IsWinner,
		&sel.AdminAssigned,
		&sel.AdminReason,
		&sel.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sel, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
