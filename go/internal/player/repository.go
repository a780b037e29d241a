package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
)

const playerColumns = `id, league_id, full_name, position, price, is_assigned, team_id, assigned_at, created_at`

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

func (r *Repository) CreatePlayer(ctx context.Context, p models.Player) (*models.Player, error) {
	const query = `INSERT INTO players (id, league_id, full_name, position, price)
		VALUES (@id, @league_id, @full_name, @position, @price)
		RETURNING ` + playerColumns

	created, err := scanPlayer(r.db.QueryRow(ctx, query, pgx.NamedArgs{
		"id":        p.ID,
		"league_id": p.LeagueID,
		"full_name": p.FullName,
		"position":  p.Position,
		"price":     p.Price,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return created, nil
}

func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE id = @id`

	p, err := scanPlayer(r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("player %s", id)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// ListUnassignedByPosition returns the unassigned pool for one category,
// cheapest first so the bot strategy's price preference falls out of the
// ordering.
func (r *Repository) ListUnassignedByPosition(ctx context.Context, leagueID uuid.UUID, pos models.Position) ([]models.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players
		WHERE league_id = @league_id AND position = @position AND NOT is_assigned
		ORDER BY price, id`

	return r.listPlayers(ctx, query, pgx.NamedArgs{"league_id": leagueID, "position": pos})
}

func (r *Repository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players
		WHERE team_id = @team_id AND is_assigned
		ORDER BY position, price DESC`

	return r.listPlayers(ctx, query, pgx.NamedArgs{"team_id": teamID})
}

// CountUnassignedByPosition returns remaining supply per category.
func (r *Repository) CountUnassignedByPosition(ctx context.Context, leagueID uuid.UUID) (map[models.Position]int, error) {
	const query = `SELECT position, COUNT(*) FROM players
		WHERE league_id = @league_id AND NOT is_assigned
		GROUP BY position`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{"league_id": leagueID})
	if err != nil {
		return nil, fmt.Errorf("failed to count unassigned players: %w", err)
	}
	defer rows.Close()

	supply := make(map[models.Position]int)
	for rows.Next() {
		var pos models.Position
		var count int
		if err := rows.Scan(&pos, &count); err != nil {
			return nil, err
		}
		supply[pos] = count
	}
	return supply, rows.Err()
}

// CountOwnedByPosition returns each team's roster composition for a league.
func (r *Repository) CountOwnedByPosition(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]map[models.Position]int, error) {
	const query = `SELECT team_id, position, COUNT(*) FROM players
		WHERE league_id = @league_id AND is_assigned AND team_id IS NOT NULL
		GROUP BY team_id, position`

	rows, err := r.db.Query(ctx, query, pgx.NamedArgs{"league_id": leagueID})
	if err != nil {
		return nil, fmt.Errorf("failed to count owned players: %w", err)
	}
	defer rows.Close()

	owned := make(map[uuid.UUID]map[models.Position]int)
	for rows.Next() {
		var teamID uuid.UUID
		var pos models.Position
		var count int
		if err := rows.Scan(&teamID, &pos, &count); err != nil {
			return nil, err
		}
		if owned[teamID] == nil {
			owned[teamID] = make(map[models.Position]int)
		}
		owned[teamID][pos] = count
	}
	return owned, rows.Err()
}

// AssignPlayer marks the player owned by teamID. The NOT is_assigned guard
// is in the statement itself: under two interleaved resolver passes only one
// can win the row, the other gets ErrConflict.
func (r *Repository) AssignPlayer(ctx context.Context, id, teamID uuid.UUID) error {
	const query = `UPDATE players SET is_assigned = TRUE, team_id = @team_id, assigned_at = now()
		WHERE id = @id AND NOT is_assigned`

	tag, err := r.db.Exec(ctx, query, pgx.NamedArgs{"id": id, "team_id": teamID})
	if err != nil {
		return fmt.Errorf("failed to assign player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflictf("player %s is already assigned", id)
	}
	return nil
}

// UnassignPlayer clears the assignment; the caller is responsible for the
// matching credit refund in the same transaction.
func (r *Repository) UnassignPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	const query = `UPDATE players SET is_assigned = FALSE, team_id = NULL, assigned_at = NULL
		WHERE id = @id AND is_assigned
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.db.QueryRow(ctx, query, pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.InvalidStatef("player %s is not assigned", id)
		}
		return nil, fmt.Errorf("failed to unassign player: %w", err)
	}
	return p, nil
}

// UnassignAllPlayers clears every assignment in the league (auction reset).
func (r *Repository) UnassignAllPlayers(ctx context.Context, leagueID uuid.UUID) error {
	const query = `UPDATE players SET is_assigned = FALSE, team_id = NULL, assigned_at = NULL
		WHERE league_id = @league_id`

	if _, err := r.db.Exec(ctx, query, pgx.NamedArgs{"league_id": leagueID}); err != nil {
		return fmt.Errorf("failed to unassign league players: %w", err)
	}
	return nil
}

func (r *Repository) listPlayers(ctx context.Context, query string, args pgx.NamedArgs) ([]models.Player, error) {
	rows, err := r.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(
		&p.ID,
		&p.LeagueID,
		&p.FullName,
		&p.Position,
		&p.Price,
		&p.IsAssigned,
		&p.TeamID,
		&p.AssignedAt,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
