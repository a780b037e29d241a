package leagues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
)

const leagueColumns = `id, name, admin_id, join_code, status, settings, created_at, updated_at`

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

func (r *Repository) CreateLeague(ctx context.Context, req CreateLeagueRequest, joinCode string) (*models.League, error) {
	settingsBytes, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal league settings: %w", err)
	}

	const query = `INSERT INTO leagues (id, name, admin_id, join_code, status, settings)
		VALUES (@id, @name, @admin_id, @join_code, @status, @settings)
		RETURNING ` + leagueColumns

	row := r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":        req.ID,
		"name":      req.Name,
		"admin_id":  req.AdminID,
		"join_code": joinCode,
		"status":    models.LeagueStatusSetup,
		"settings":  settingsBytes,
	})

	league, err := scanLeague(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}
	return league, nil
}

func (r *Repository) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	const query = `SELECT ` + leagueColumns + ` FROM leagues WHERE id = @id`

	league, err := scanLeague(r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("league %s", id)
		}
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return league, nil
}

func (r *Repository) GetLeagueByJoinCode(ctx context.Context, joinCode string) (*models.League, error) {
	const query = `SELECT ` + leagueColumns + ` FROM leagues WHERE join_code = @join_code`

	league, err := scanLeague(r.db.QueryRow(ctx, query, pgx.NamedArgs{"join_code": joinCode}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("league with join code %q", joinCode)
		}
		return nil, fmt.Errorf("failed to get league by join code: %w", err)
	}
	return league, nil
}

// UpdateLeagueStatus moves a league from one status to another. The WHERE
// clause on the previous status makes racing transitions lose cleanly: the
// second caller gets ErrInvalidState instead of overwriting.
func (r *Repository) UpdateLeagueStatus(ctx context.Context, id uuid.UUID, from, to models.LeagueStatus) (*models.League, error) {
	const query = `UPDATE leagues SET status = @to, updated_at = now()
		WHERE id = @id AND status = @from
		RETURNING ` + leagueColumns

	league, err := scanLeague(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":   id,
		"from": from,
		"to":   to,
	}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.InvalidStatef("league %s is not %s", id, from)
		}
		return nil, fmt.Errorf("failed to update league status: %w", err)
	}
	return league, nil
}

// ForceLeagueStatus sets the status unconditionally; reserved for the admin
// reset path which runs inside its own transaction.
func (r *Repository) ForceLeagueStatus(ctx context.Context, id uuid.UUID, to models.LeagueStatus) error {
	const query = `UPDATE leagues SET status = @to, updated_at = now() WHERE id = @id`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id, "to": to})
	if err != nil {
		return fmt.Errorf("failed to force league status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("league %s", id)
	}
	return nil
}

func (r *Repository) UpdateLeagueSettings(ctx context.Context, id uuid.UUID, settings models.LeagueSettings) (*models.League, error) {
	settingsBytes, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal league settings: %w", err)
	}

	const query = `UPDATE leagues SET settings = @settings, updated_at = now()
		WHERE id = @id
		RETURNING ` + leagueColumns

	league, err := scanLeague(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":       id,
		"settings": settingsBytes,
	}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("league %s", id)
		}
		return nil, fmt.Errorf("failed to update league settings: %w", err)
	}
	return league, nil
}

func (r *Repository) DeleteLeague(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leagues WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete league: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("league %s", id)
	}
	return nil
}

func scanLeague(row pgx.Row) (*models.League, error) {
	var league models.League
	var settingsBytes []byte
	if err := row.Scan(
		&league.ID,
		&league.Name,
		&league.AdminID,
		&league.JoinCode,
		&league.Status,
		&settingsBytes,
		&league.CreatedAt,
		&league.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settingsBytes, &league.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal league settings: %w", err)
	}
	return &league, nil
}
