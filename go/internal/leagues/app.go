package leagues

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
)

// LeaguesRepository defines what the app layer needs from the repository
type LeaguesRepository interface {
	CreateLeague(ctx context.Context, req CreateLeagueRequest, joinCode string) (*models.League, error)
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetLeagueByJoinCode(ctx context.Context, joinCode string) (*models.League, error)
	UpdateLeagueStatus(ctx context.Context, id uuid.UUID, from, to models.LeagueStatus) (*models.League, error)
	UpdateLeagueSettings(ctx context.Context, id uuid.UUID, settings models.LeagueSettings) (*models.League, error)
	DeleteLeague(ctx context.Context, id uuid.UUID) error
}

// TeamsApp defines what league joining needs from the teams application
type TeamsApp interface {
	CreateTeam(ctx context.Context, leagueID, ownerID uuid.UUID, name string, credits int, isBot bool) (*models.Team, error)
}

// App handles league business logic
type App struct {
	repo  LeaguesRepository
	teams TeamsApp
}

// NewApp creates a new leagues App
func NewApp(repo LeaguesRepository, teams TeamsApp) *App {
	return &App{
		repo:  repo,
		teams: teams,
	}
}

// CreateLeague creates a new league in SETUP with a fresh join code.
func (a *App) CreateLeague(ctx context.Context, req CreateLeagueRequest) (*models.League, error) {
	if err := a.validateCreateLeagueRequest(req); err != nil {
		return nil, err
	}

	joinCode, err := generateJoinCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate join code: %w", err)
	}

	league, err := a.repo.CreateLeague(ctx, req, joinCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}

	log.Printf("Created league: %s (budget %d, timeout %ds)", league.Name, league.Settings.BudgetPerTeam, league.Settings.TimeoutSeconds)
	return league, nil
}

// GetLeague retrieves a league by ID
func (a *App) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	return a.repo.GetLeague(ctx, id)
}

// JoinLeague creates a team for the user in the league matching the join
// code. Joining is only legal while the league is still in SETUP.
func (a *App) JoinLeague(ctx context.Context, req JoinLeagueRequest) (*models.Team, error) {
	if strings.TrimSpace(req.TeamName) == "" {
		return nil, apperrors.Validationf("team name must be provided")
	}

	league, err := a.repo.GetLeagueByJoinCode(ctx, strings.ToUpper(strings.TrimSpace(req.JoinCode)))
	if err != nil {
		return nil, err
	}
	if league.Status != models.LeagueStatusSetup {
		return nil, apperrors.InvalidStatef("league %s is not accepting teams", league.ID)
	}

	team, err := a.teams.CreateTeam(ctx, league.ID, req.UserID, req.TeamName, league.Settings.BudgetPerTeam, req.IsBot)
	if err != nil {
		return nil, err
	}

	log.Printf("Team %s joined league %s", team.Name, league.Name)
	return team, nil
}

// UpdateLeagueSettings updates the league's auction settings while in SETUP.
func (a *App) UpdateLeagueSettings(ctx context.Context, id uuid.UUID, settings models.LeagueSettings) (*models.League, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	league, err := a.repo.GetLeague(ctx, id)
	if err != nil {
		return nil, err
	}
	if league.Status != models.LeagueStatusSetup {
		return nil, apperrors.InvalidStatef("settings are frozen once the auction starts")
	}

	return a.repo.UpdateLeagueSettings(ctx, id, settings)
}

// StartAuction moves the league from SETUP to AUCTION. The engine opens
// the first round as part of the same request.
func (a *App) StartAuction(ctx context.Context, id uuid.UUID) (*models.League, error) {
	league, err := a.repo.UpdateLeagueStatus(ctx, id, models.LeagueStatusSetup, models.LeagueStatusAuction)
	if err != nil {
		return nil, err
	}
	log.Printf("Auction started for league: %s", league.Name)
	return league, nil
}

// CompleteAuction moves the league from AUCTION to COMPLETED.
func (a *App) CompleteAuction(ctx context.Context, id uuid.UUID) (*models.League, error) {
	league, err := a.repo.UpdateLeagueStatus(ctx, id, models.LeagueStatusAuction, models.LeagueStatusCompleted)
	if err != nil {
		return nil, err
	}
	log.Printf("Auction completed for league: %s", league.Name)
	return league, nil
}

// DeleteLeague deletes a league and everything it owns.
func (a *App) DeleteLeague(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeleteLeague(ctx, id); err != nil {
		return err
	}
	log.Printf("Deleted league: %s", id)
	return nil
}

func (a *App) validateCreateLeagueRequest(req CreateLeagueRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.Validationf("league name must be provided")
	}
	if req.AdminID == uuid.Nil {
		return apperrors.Validationf("admin id must be provided")
	}
	return validateSettings(req.Settings)
}

func validateSettings(settings models.LeagueSettings) error {
	if settings.BudgetPerTeam <= 0 {
		return apperrors.Validationf("budget per team must be positive, got %d", settings.BudgetPerTeam)
	}
	if settings.TimeoutSeconds < 0 {
		return apperrors.Validationf("timeout seconds cannot be negative, got %d", settings.TimeoutSeconds)
	}
	for pos, target := range settings.TargetComposition {
		if !pos.Valid() {
			return apperrors.Validationf("unknown position %q in target composition", pos)
		}
		if target < 0 {
			return apperrors.Validationf("target for %s cannot be negative", pos)
		}
	}
	return nil
}

func generateJoinCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
