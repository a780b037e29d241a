// Package query is the read-only projection surface consumed by
// presentation: current round state, team composition stats and bot
// status. It never mutates the draft.
package query

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
)

// LeaguesApp defines what the query surface needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
}

// TeamsApp defines what the query surface needs from the teams application
type TeamsApp interface {
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// RoundsApp defines what the query surface needs from the round application
type RoundsApp interface {
	GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error)
}

// SelectionsApp defines what the query surface needs from the selection application
type SelectionsApp interface {
	GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error)
}

// NeedsApp yields per-team composition stats; satisfied by the advancer.
type NeedsApp interface {
	TeamNeeds(ctx context.Context, league *models.League) ([]models.TeamNeeds, error)
}

// RoundView is the current round with its selections.
type RoundView struct {
	Round      *models.Round      `json:"round"`
	Selections []models.Selection `json:"selections"`
}

// TeamStats joins a team's balance with its composition shortfall.
type TeamStats struct {
	Team  models.Team      `json:"team"`
	Needs models.TeamNeeds `json:"needs"`
}

// BotStatus reports whether a bot team has picked in the current round.
type BotStatus struct {
	Team      models.Team `json:"team"`
	HasPicked bool        `json:"has_picked"`
}

// App serves the read-only projections.
type App struct {
	leagues    LeaguesApp
	teams      TeamsApp
	rounds     RoundsApp
	selections SelectionsApp
	needs      NeedsApp
}

// NewApp creates a new query App
func NewApp(leagues LeaguesApp, teams TeamsApp, rounds RoundsApp, selections SelectionsApp, needs NeedsApp) *App {
	return &App{
		leagues:    leagues,
		teams:      teams,
		rounds:     rounds,
		selections: selections,
		needs:      needs,
	}
}

// CurrentRound returns the league's active round and its selections, or a
// nil round when the league has none open.
func (a *App) CurrentRound(ctx context.Context, leagueID uuid.UUID) (*RoundView, error) {
	rnd, err := a.rounds.GetCurrentRound(ctx, leagueID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &RoundView{}, nil
		}
		return nil, err
	}
	sels, err := a.selections.GetSelectionsByRound(ctx, rnd.ID)
	if err != nil {
		return nil, err
	}
	return &RoundView{Round: rnd, Selections: sels}, nil
}

// TeamStats returns each team's balance and composition shortfall.
func (a *App) TeamStats(ctx context.Context, leagueID uuid.UUID) ([]TeamStats, error) {
	league, err := a.leagues.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teamList, err := a.teams.GetTeamsByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	needs, err := a.needs.TeamNeeds(ctx, league)
	if err != nil {
		return nil, err
	}
	needsByTeam := make(map[uuid.UUID]models.TeamNeeds, len(needs))
	for _, n := range needs {
		needsByTeam[n.TeamID] = n
	}

	stats := make([]TeamStats, 0, len(teamList))
	for _, t := range teamList {
		stats = append(stats, TeamStats{Team: t, Needs: needsByTeam[t.ID]})
	}
	return stats, nil
}

// BotStatuses lists the league's bot teams and whether each has a live
// pick in the current round.
func (a *App) BotStatuses(ctx context.Context, leagueID uuid.UUID) ([]BotStatus, error) {
	teamList, err := a.teams.GetTeamsByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	picked := make(map[uuid.UUID]bool)
	rnd, err := a.rounds.GetCurrentRound(ctx, leagueID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if rnd != nil {
		sels, err := a.selections.GetSelectionsByRound(ctx, rnd.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range sels {
			picked[s.TeamID] = true
		}
	}

	var bots []BotStatus
	for _, t := range teamList {
		if !t.IsBot {
			continue
		}
		bots = append(bots, BotStatus{Team: t, HasPicked: picked[t.ID]})
	}
	return bots, nil
}
