// Package advancer decides what happens after a round completes: continue
// the same category, move to the next one in priority order, or finish the
// auction.
package advancer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TeamsApp defines what the advancer needs from the teams application
type TeamsApp interface {
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// PlayersApp defines what the advancer needs from the player application
type PlayersApp interface {
	RemainingSupply(ctx context.Context, leagueID uuid.UUID) (map[models.Position]int, error)
	OwnedByPosition(ctx context.Context, leagueID uuid.UUID) (map[uuid.UUID]map[models.Position]int, error)
}

// RoundsApp defines what the advancer needs from the round application
type RoundsApp interface {
	OpenRound(ctx context.Context, leagueID uuid.UUID, pos models.Position, deadline *time.Time) (*models.Round, error)
}

// LeaguesApp defines what the advancer needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	CompleteAuction(ctx context.Context, id uuid.UUID) (*models.League, error)
}

// OutboxWriter queues events for the real-time channel.
type OutboxWriter interface {
	InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error
}

// Clock yields the current time; satisfied by clockwork clocks.
type Clock interface {
	Now() time.Time
}

// App computes the next round after a completion.
type App struct {
	teams   TeamsApp
	players PlayersApp
	rounds  RoundsApp
	leagues LeaguesApp
	outbox  OutboxWriter
	clock   Clock
}

// NewApp creates a new advancer App
func NewApp(teams TeamsApp, players PlayersApp, rounds RoundsApp, leagues LeaguesApp, outbox OutboxWriter, clock Clock) *App {
	return &App{
		teams:   teams,
		players: players,
		rounds:  rounds,
		leagues: leagues,
		outbox:  outbox,
		clock:   clock,
	}
}

// Advance opens the next round for the league, or completes the auction
// when no category has both need and supply left. Returns the new round,
// or nil when the league is done.
func (a *App) Advance(ctx context.Context, leagueID uuid.UUID, previousRoundID uuid.UUID) (*models.Round, error) {
	league, err := a.leagues.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	global, supply, err := a.LeagueNeeds(ctx, league)
	if err != nil {
		return nil, err
	}

	pos, ok := NextPosition(global, supply)
	if !ok {
		if _, err := a.leagues.CompleteAuction(ctx, leagueID); err != nil {
			return nil, err
		}
		if err := a.outbox.InsertEvent(ctx, leagueID, events.LeagueTopic(leagueID), events.TypeAuctionCompleted, events.AuctionCompletedPayload{
			LeagueID:    leagueID.String(),
			CompletedAt: a.clock.Now(),
		}); err != nil {
			log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to emit AuctionCompleted event")
		}
		log.Info().Str("league_id", leagueID.String()).Msg("auction completed")
		return nil, nil
	}

	var deadline *time.Time
	if league.Settings.TimeoutSeconds > 0 {
		d := a.clock.Now().Add(league.TimeoutDuration())
		deadline = &d
	}

	next, err := a.rounds.OpenRound(ctx, leagueID, pos, deadline)
	if err != nil {
		return nil, err
	}

	if err := a.outbox.InsertEvent(ctx, leagueID, events.LeagueTopic(leagueID), events.TypeRoundAdvanced, events.RoundAdvancedPayload{
		PreviousRoundID: previousRoundID.String(),
		RoundID:         next.ID.String(),
		Position:        string(next.Position),
		Number:          next.Number,
	}); err != nil {
		log.Error().Err(err).Str("round_id", next.ID.String()).Msg("failed to emit RoundAdvanced event")
	}

	return next, nil
}

// LeagueNeeds loads the league's global need and remaining supply per
// category. Shared by the advancer itself, the engine's continuation check
// and the query surface.
func (a *App) LeagueNeeds(ctx context.Context, league *models.League) (global, supply map[models.Position]int, err error) {
	teamList, err := a.teams.GetTeamsByLeague(ctx, league.ID)
	if err != nil {
		return nil, nil, err
	}
	teamIDs := make([]uuid.UUID, len(teamList))
	for i, t := range teamList {
		teamIDs[i] = t.ID
	}

	owned, err := a.players.OwnedByPosition(ctx, league.ID)
	if err != nil {
		return nil, nil, err
	}

	supply, err = a.players.RemainingSupply(ctx, league.ID)
	if err != nil {
		return nil, nil, err
	}

	needs := ComputeNeeds(teamIDs, owned, league.Settings.TargetComposition)
	return GlobalNeeds(needs), supply, nil
}

// TeamNeeds exposes per-team composition stats for the query surface.
func (a *App) TeamNeeds(ctx context.Context, league *models.League) ([]models.TeamNeeds, error) {
	teamList, err := a.teams.GetTeamsByLeague(ctx, league.ID)
	if err != nil {
		return nil, err
	}
	teamIDs := make([]uuid.UUID, len(teamList))
	for i, t := range teamList {
		teamIDs[i] = t.ID
	}

	owned, err := a.players.OwnedByPosition(ctx, league.ID)
	if err != nil {
		return nil, err
	}

	return ComputeNeeds(teamIDs, owned, league.Settings.TargetComposition), nil
}
