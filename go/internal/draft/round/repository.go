package round

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
)

const roundColumns = `id, league_id, position, number, status, deadline, paused_remaining_ms, created_at, updated_at`

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

// CreateRound opens a round in SELECTION. The partial unique index on
// (league_id) WHERE status <> 'COMPLETED' turns a second concurrent open
// into ErrConflict instead of a duplicate current round.
func (r *Repository) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	const query = `INSERT INTO rounds (id, league_id, position, number, status, deadline)
		VALUES (@id, @league_id, @position, @number, @status, @deadline)
		RETURNING ` + roundColumns

	round, err := scanRound(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":        req.ID,
		"league_id": req.LeagueID,
		"position":  req.Position,
		"number":    req.Number,
		"status":    models.RoundStatusSelection,
		"deadline":  req.Deadline,
	}))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflictf("league %s already has an open round", req.LeagueID)
		}
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return round, nil
}

func (r *Repository) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	const query = `SELECT ` + roundColumns + ` FROM rounds WHERE id = @id`

	round, err := scanRound(r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("round %s", id)
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// GetCurrentRound returns the league's single non-completed round.
func (r *Repository) GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error) {
	const query = `SELECT ` + roundColumns + ` FROM rounds
		WHERE league_id = @league_id AND status <> 'COMPLETED'`

	round, err := scanRound(r.db.QueryRow(ctx, query, pgx.NamedArgs{"league_id": leagueID}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no open round for league %s", leagueID)
		}
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	return round, nil
}

// TransitionStatus moves a round between statuses. The conditional WHERE is
// the transition right from the concurrency model: timeout and admin force
// racing for the same round both call this, the loser sees false and no-ops.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.RoundStatus) (bool, error) {
	const query = `UPDATE rounds SET status = @to, updated_at = now()
		WHERE id = @id AND status = @from`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id, "from": from, "to": to})
	if err != nil {
		return false, fmt.Errorf("failed to transition round status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteRound marks the round COMPLETED and drops its timer.
func (r *Repository) CompleteRound(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `UPDATE rounds
		SET status = 'COMPLETED', deadline = NULL, paused_remaining_ms = NULL, updated_at = now()
		WHERE id = @id AND status = 'RESOLUTION'`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to complete round: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetDeadline (re)arms the round countdown.
func (r *Repository) SetDeadline(ctx context.Context, id uuid.UUID, deadline *time.Time) error {
	const query = `UPDATE rounds SET deadline = @deadline, paused_remaining_ms = NULL, updated_at = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id, "deadline": deadline})
	if err != nil {
		return fmt.Errorf("failed to set round deadline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("round %s", id)
	}
	return nil
}

// PauseDeadline suspends the countdown, storing how much was left so the
// resume re-arms with the remainder rather than the full timeout.
func (r *Repository) PauseDeadline(ctx context.Context, id uuid.UUID) (time.Duration, error) {
	const query = `UPDATE rounds
		SET paused_remaining_ms = GREATEST(0, (EXTRACT(EPOCH FROM (deadline - now())) * 1000)::BIGINT),
		    deadline = NULL,
		    updated_at = now()
		WHERE id = @id AND deadline IS NOT NULL
		RETURNING paused_remaining_ms`

	var remainingMs int64
	if err := r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id}).Scan(&remainingMs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.InvalidStatef("round %s has no running countdown", id)
		}
		return 0, fmt.Errorf("failed to pause round deadline: %w", err)
	}
	return time.Duration(remainingMs) * time.Millisecond, nil
}

// ResumeDeadline re-arms a paused countdown from the stored remainder.
func (r *Repository) ResumeDeadline(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error) {
	const query = `UPDATE rounds
		SET deadline = @now + (paused_remaining_ms * INTERVAL '1 millisecond'),
		    paused_remaining_ms = NULL,
		    updated_at = now()
		WHERE id = @id AND paused_remaining_ms IS NOT NULL
		RETURNING deadline`

	var deadline time.Time
	if err := r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id, "now": now}).Scan(&deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.InvalidStatef("round %s is not paused", id)
		}
		return nil, fmt.Errorf("failed to resume round deadline: %w", err)
	}
	return &deadline, nil
}

// FetchNextDeadline returns the soonest armed deadline across all leagues.
func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	const query = `SELECT id, deadline FROM rounds
		WHERE status <> 'COMPLETED' AND deadline IS NOT NULL
		ORDER BY deadline
		LIMIT 1`

	var nd NextDeadline
	if err := r.db.QueryRow(ctx, query).Scan(&nd.RoundID, &nd.Deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return &nd, nil
}

// FetchRoundsDue returns rounds whose deadline has passed.
func (r *Repository) FetchRoundsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	const query = `SELECT id FROM rounds
		WHERE status <> 'COMPLETED' AND deadline IS NOT NULL AND deadline <= @now
		ORDER BY deadline
		LIMIT @limit`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{"now": now, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due rounds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastRoundNumber returns the highest round number drafted in a category,
// zero when the category is untouched.
func (r *Repository) LastRoundNumber(ctx context.Context, leagueID uuid.UUID, pos models.Position) (int, error) {
	const query = `SELECT COALESCE(MAX(number), 0) FROM rounds
		WHERE league_id = @league_id AND position = @position`

	var number int
	if err := r.db.QueryRow(ctx, query, pgx.NamedArgs{"league_id": leagueID, "position": pos}).Scan(&number); err != nil {
		return 0, fmt.Errorf("failed to get last round number: %w", err)
	}
	return number, nil
}

// DeleteRoundsByLeague removes every round (auction reset); selections go
// with them via ON DELETE CASCADE.
func (r *Repository) DeleteRoundsByLeague(ctx context.Context, leagueID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM rounds WHERE league_id = @league_id`, pgx.NamedArgs{"league_id": leagueID}); err != nil {
		return fmt.Errorf("failed to delete league rounds: %w", err)
	}
	return nil
}

func scanRound(row pgx.Row) (*models.Round, error) {
	var round models.Round
	var pausedMs *int64
	if err := row.Scan(
		&round.ID,
		&round.LeagueID,
		&round.Position,
		&round.Number,
		&round.Status,
		&round.Deadline,
		&pausedMs,
		&round.CreatedAt,
		&round.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if pausedMs != nil {
		d := time.Duration(*pausedMs) * time.Millisecond
		round.PausedRemaining = &d
	}
	return &round, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
