package teams

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
)

// TeamsRepository defines what the app layer needs from the repository
type TeamsRepository interface {
	CreateTeam(ctx context.Context, team models.Team) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
	DeductCredits(ctx context.Context, id uuid.UUID, amount int) error
	RefundCredits(ctx context.Context, id uuid.UUID, amount int) error
}

// App handles team business logic
type App struct {
	repo TeamsRepository
}

// NewApp creates a new teams App
func NewApp(repo TeamsRepository) *App {
	return &App{repo: repo}
}

// CreateTeam creates a team in a league with the starting credit balance.
func (a *App) CreateTeam(ctx context.Context, leagueID, ownerID uuid.UUID, name string, credits int, isBot bool) (*models.Team, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validationf("team name must be provided")
	}
	if credits < 0 {
		return nil, apperrors.Validationf("starting credits cannot be negative")
	}

	team, err := a.repo.CreateTeam(ctx, models.Team{
		ID:       uuid.New(),
		LeagueID: leagueID,
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(name),
		Credits:  credits,
		IsBot:    isBot,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Created team: %s in league %s", team.Name, leagueID)
	return team, nil
}

// GetTeam retrieves a team by ID
func (a *App) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return a.repo.GetTeam(ctx, id)
}

// GetTeamsByLeague retrieves all teams in a league
func (a *App) GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	teams, err := a.repo.GetTeamsByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams by league: %w", err)
	}
	return teams, nil
}
