package player

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
)

// PlayerRepository defines what the app layer needs from the repository
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, p models.Player) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListUnassignedByPosition(ctx context.Context, leagueID uuid.UUID, pos models.Position) ([]models.Player, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Player, error)
	CountUnassignedByPosition(ctx context.Context, leagueID uuid.UUID) (map[models.Position]int, error)
	CountOwnedByPosition(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]map[models.Position]int, error)
}

// App handles player pool business logic
type App struct {
	repo PlayerRepository
}

// NewApp creates a new player App
func NewApp(repo PlayerRepository) *App {
	return &App{repo: repo}
}

// AddPlayer adds a draftable player to a league's pool.
func (a *App) AddPlayer(ctx context.Context, leagueID uuid.UUID, fullName string, pos models.Position, price int) (*models.Player, error) {
	if strings.TrimSpace(fullName) == "" {
		return nil, apperrors.Validationf("player name must be provided")
	}
	if !pos.Valid() {
		return nil, apperrors.Validationf("unknown position %q", pos)
	}
	if price < 0 {
		return nil, apperrors.Validationf("price cannot be negative, got %d", price)
	}

	p, err := a.repo.CreatePlayer(ctx, models.Player{
		ID:       uuid.New(),
		LeagueID: leagueID,
		FullName: strings.TrimSpace(fullName),
		Position: pos,
		Price:    price,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Added player %s (%s, %d) to league %s", p.FullName, p.Position, p.Price, leagueID)
	return p, nil
}

// GetPlayer retrieves a player by ID
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

// ListUnassignedByPosition returns the open pool for one category.
func (a *App) ListUnassignedByPosition(ctx context.Context, leagueID uuid.UUID, pos models.Position) ([]models.Player, error) {
	if !pos.Valid() {
		return nil, apperrors.Validationf("unknown position %q", pos)
	}
	return a.repo.ListUnassignedByPosition(ctx, leagueID, pos)
}

// ListByTeam returns a team's roster.
func (a *App) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Player, error) {
	players, err := a.repo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return players, nil
}

// RemainingSupply returns the count of unassigned players per category.
func (a *App) RemainingSupply(ctx context.Context, leagueID uuid.UUID) (map[models.Position]int, error) {
	return a.repo.CountUnassignedByPosition(ctx, leagueID)
}

// OwnedByPosition returns each team's roster composition.
func (a *App) OwnedByPosition(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]map[models.Position]int, error) {
	return a.repo.CountOwnedByPosition(ctx, leagueID)
}
