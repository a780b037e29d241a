package bot

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TeamsApp defines what the bot needs from the teams application
type TeamsApp interface {
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// SelectionsApp defines what the bot needs from the selection application
type SelectionsApp interface {
	Submit(ctx context.Context, req selection.SubmitRequest) (*models.Selection, error)
	GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error)
}

// NeedsApp yields per-team composition stats; satisfied by the advancer.
type NeedsApp interface {
	TeamNeeds(ctx context.Context, league *models.League) ([]models.TeamNeeds, error)
}

// App drives auto-picks for teams that have not submitted a selection.
type App struct {
	teams      TeamsApp
	selections SelectionsApp
	needs      NeedsApp
	players    PlayersApp
	strategy   Strategy
}

// NewApp creates a new bot App
func NewApp(teams TeamsApp, selections SelectionsApp, needs NeedsApp, players PlayersApp, strategy Strategy) *App {
	return &App{
		teams:      teams,
		selections: selections,
		needs:      needs,
		players:    players,
		strategy:   strategy,
	}
}

// FillBots submits a pick for every bot-controlled team that still lacks
// one in the round. Returns the number of picks injected.
func (a *App) FillBots(ctx context.Context, league *models.League, round *models.Round) (int, error) {
	return a.fill(ctx, league, round, true)
}

// FillMissing submits a pick for every team, human or bot, that still
// lacks one in the round. Used when a timeout fires with auto-select
// enabled so resolution never runs on a hole.
func (a *App) FillMissing(ctx context.Context, league *models.League, round *models.Round) (int, error) {
	return a.fill(ctx, league, round, false)
}

func (a *App) fill(ctx context.Context, league *models.League, round *models.Round, botsOnly bool) (int, error) {
	teamList, err := a.teams.GetTeamsByLeague(ctx, league.ID)
	if err != nil {
		return 0, err
	}

	existing, err := a.selections.GetSelectionsByRound(ctx, round.ID)
	if err != nil {
		return 0, err
	}
	hasPick := make(map[uuid.UUID]bool, len(existing))
	for _, sel := range existing {
		hasPick[sel.TeamID] = true
	}

	teamNeeds, err := a.needs.TeamNeeds(ctx, league)
	if err != nil {
		return 0, err
	}
	needsByTeam := make(map[uuid.UUID]models.TeamNeeds, len(teamNeeds))
	for _, n := range teamNeeds {
		needsByTeam[n.TeamID] = n
	}

	filled := 0
	for i := range teamList {
		team := &teamList[i]
		if botsOnly && !team.IsBot {
			continue
		}
		if hasPick[team.ID] {
			continue
		}
		needs, ok := needsByTeam[team.ID]
		if !ok || needs.Needs[round.Position] <= 0 {
			continue
		}

		// Re-list per team: an earlier bot in the same pass may have
		// grabbed the last player a later one could afford.
		pool, err := a.players.ListUnassignedByPosition(ctx, league.ID, round.Position)
		if err != nil {
			return filled, err
		}

		choice, err := a.strategy.Propose(ctx, team, round, needs, pool)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidState) {
				log.Warn().Err(err).
					Str("team_id", team.ID.String()).
					Str("round_id", round.ID.String()).
					Msg("skipping auto-pick, no viable player")
				continue
			}
			return filled, err
		}

		if _, err := a.selections.Submit(ctx, selection.SubmitRequest{
			RoundID:  round.ID,
			TeamID:   team.ID,
			UserID:   team.OwnerID,
			PlayerID: choice.ID,
		}); err != nil {
			// Duplicate means a concurrent submit beat us; any other
			// conflict means the player vanished mid-pass. Neither
			// should abort the remaining teams.
			if errors.Is(err, apperrors.ErrConflict) {
				log.Warn().Err(err).
					Str("team_id", team.ID.String()).
					Msg("auto-pick lost race, skipping team")
				continue
			}
			return filled, err
		}
		filled++
	}

	return filled, nil
}
