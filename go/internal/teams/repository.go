package teams

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

const teamColumns = `id, league_id, owner_id, name, credits, is_bot, created_at`

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

func (r *Repository) CreateTeam(ctx context.Context, team models.Team) (*models.Team, error) {
	const query = `INSERT INTO teams (id, league_id, owner_id, name, credits, is_bot)
		VALUES (@id, @league_id, @owner_id, @name, @credits, @is_bot)
		RETURNING ` + teamColumns

	created, err := scanTeam(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":        team.ID,
		"league_id": team.LeagueID,
		"owner_id":  team.OwnerID,
		"name":      team.Name,
		"credits":   team.Credits,
		"is_bot":    team.IsBot,
	}))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflictf("team name %q is taken in this league", team.Name)
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return created, nil
}

func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id = @id`

	team, err := scanTeam(r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("team %s", id)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

func (r *Repository) GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE league_id = @league_id ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{"league_id": leagueID})
	if err != nil {
		return nil, fmt.Errorf("failed to get teams by league: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

// DeductCredits subtracts amount from the team's balance. The balance guard
// is part of the statement so a concurrent deduction cannot drive the
// balance negative; zero rows affected surfaces as ErrInsufficientCredit.
func (r *Repository) DeductCredits(ctx context.Context, id uuid.UUID, amount int) error {
	const query = `UPDATE teams SET credits = credits - @amount
		WHERE id = @id AND credits >= @amount`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id, "amount": amount})
	if err != nil {
		return fmt.Errorf("failed to deduct credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: team %s cannot afford %d", apperrors.ErrInsufficientCredit, id, amount)
	}
	return nil
}

// RefundCredits returns amount to the team's balance.
func (r *Repository) RefundCredits(ctx context.Context, id uuid.UUID, amount int) error {
	const query = `UPDATE teams SET credits = credits + @amount WHERE id = @id`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id, "amount": amount})
	if err != nil {
		return fmt.Errorf("failed to refund credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("team %s", id)
	}
	return nil
}

// ResetCredits restores every team in the league to the configured budget.
func (r *Repository) ResetCredits(ctx context.Context, leagueID uuid.UUID, budget int) error {
	const query = `UPDATE teams SET credits = @budget WHERE league_id = @league_id`

	if _, err := r.db.Exec(ctx, query, pgx.NamedArgs{"league_id": leagueID, "budget": budget}); err != nil {
		return fmt.Errorf("failed to reset credits: %w", err)
	}
	return nil
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var team models.Team
	if err := row.Scan(
		&team.ID,
		&team.LeagueID,
		&team.OwnerID,
		&team.Name,
		&team.Credits,
		&team.IsBot,
		&team.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
