// Package engine coordinates the auction draft cycle: collecting picks,
// deciding when a round is full, running resolution passes and advancing
// to the next round. It is the single authority for the round state
// machine; the selection, resolver and advancer apps never transition a
// round on their own.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/draft/resolver"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// LeaguesApp defines what the engine needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	StartAuction(ctx context.Context, id uuid.UUID) (*models.League, error)
}

// TeamsApp defines what the engine needs from the teams application
type TeamsApp interface {
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// PlayersApp defines what the engine needs from the player application
type PlayersApp interface {
	RemainingSupply(ctx context.Context, leagueID uuid.UUID) (map[models.Position]int, error)
}

// RoundsApp defines what the engine needs from the round application
type RoundsApp interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error)
	BeginResolution(ctx context.Context, id uuid.UUID, trigger round.Trigger) (bool, error)
	Complete(ctx context.Context, id uuid.UUID) (bool, error)
	RearmDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error
}

// SelectionsApp defines what the engine needs from the selection application
type SelectionsApp interface {
	Submit(ctx context.Context, req selection.SubmitRequest) (*models.Selection, error)
	GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error)
}

// Resolver runs one resolution pass over a round in RESOLUTION.
type Resolver interface {
	Resolve(ctx context.Context, roundID uuid.UUID) (*resolver.Result, error)
}

// Advancer opens the next round after a completion, or ends the auction.
type Advancer interface {
	Advance(ctx context.Context, leagueID uuid.UUID, previousRoundID uuid.UUID) (*models.Round, error)
	TeamNeeds(ctx context.Context, league *models.League) ([]models.TeamNeeds, error)
}

// BotApp injects auto-picks for teams lacking a selection.
type BotApp interface {
	FillBots(ctx context.Context, league *models.League, round *models.Round) (int, error)
	FillMissing(ctx context.Context, league *models.League, round *models.Round) (int, error)
}

// OutboxWriter queues events for the real-time channel.
type OutboxWriter interface {
	InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error
}

// Clock yields the current time; satisfied by clockwork clocks.
type Clock interface {
	Now() time.Time
}

// App is the draft engine.
type App struct {
	leagues    LeaguesApp
	teams      TeamsApp
	players    PlayersApp
	rounds     RoundsApp
	selections SelectionsApp
	resolver   Resolver
	advancer   Advancer
	bots       BotApp
	outbox     OutboxWriter
	clock      Clock
}

// NewApp creates a new engine App
func NewApp(
	leagues LeaguesApp,
	teams TeamsApp,
	players PlayersApp,
	rounds RoundsApp,
	selections SelectionsApp,
	res Resolver,
	adv Advancer,
	bots BotApp,
	outbox OutboxWriter,
	clock Clock,
) *App {
	return &App{
		leagues:    leagues,
		teams:      teams,
		players:    players,
		rounds:     rounds,
		selections: selections,
		resolver:   res,
		advancer:   adv,
		bots:       bots,
		outbox:     outbox,
		clock:      clock,
	}
}

// StartAuction moves the league out of SETUP and opens its first round.
func (a *App) StartAuction(ctx context.Context, leagueID uuid.UUID) (*models.Round, error) {
	teamList, err := a.teams.GetTeamsByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if len(teamList) == 0 {
		return nil, apperrors.Validationf("league has no teams to draft for")
	}

	league, err := a.leagues.StartAuction(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	first, err := a.advancer.Advance(ctx, leagueID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if first == nil {
		// Nothing to draft: no category had both need and supply. The
		// advancer already completed the league.
		return nil, nil
	}

	if err := a.afterRoundOpened(ctx, league, first); err != nil {
		return first, err
	}
	return first, nil
}

// Submit records a team's pick, then checks whether the round just became
// full and, if so, drives it through resolution.
func (a *App) Submit(ctx context.Context, req selection.SubmitRequest) (*models.Selection, error) {
	sel, err := a.selections.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	rnd, err := a.rounds.GetRound(ctx, req.RoundID)
	if err != nil {
		return sel, err
	}
	league, err := a.leagues.GetLeague(ctx, rnd.LeagueID)
	if err != nil {
		return sel, err
	}

	if err := a.maybeResolve(ctx, league, rnd); err != nil {
		return sel, err
	}
	return sel, nil
}

// EvaluateRound re-checks fullness for a round after an out-of-band pick
// (admin select, bot injection) and drives resolution when it is full.
func (a *App) EvaluateRound(ctx context.Context, roundID uuid.UUID) error {
	rnd, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	league, err := a.leagues.GetLeague(ctx, rnd.LeagueID)
	if err != nil {
		return err
	}
	return a.maybeResolve(ctx, league, rnd)
}

// ForceResolution pushes a round into resolution regardless of fullness.
// Used by the admin override and by the timeout manager; the two race for
// the same conditional status update, one wins, the other no-ops.
func (a *App) ForceResolution(ctx context.Context, roundID uuid.UUID, trigger round.Trigger) error {
	rnd, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	league, err := a.leagues.GetLeague(ctx, rnd.LeagueID)
	if err != nil {
		return err
	}

	// Auto-select covers continuation deadlines too: a round sitting in
	// RESOLUTION waiting on re-picks gets its holes filled the same way a
	// first-pass SELECTION timeout does.
	if rnd.Active() &&
		trigger == round.TriggerTimeout &&
		league.Settings.AutoSelectOnTimeout {
		if _, err := a.bots.FillMissing(ctx, league, rnd); err != nil {
			return err
		}
	}

	if rnd.Status == models.RoundStatusSelection {
		won, err := a.rounds.BeginResolution(ctx, roundID, trigger)
		if err != nil {
			return err
		}
		if !won {
			// Lost the transition race; re-read to see where the round
			// landed before deciding whether a pass is still owed.
			rnd, err = a.rounds.GetRound(ctx, roundID)
			if err != nil {
				return err
			}
		} else {
			rnd.Status = models.RoundStatusResolution
		}
	}

	if rnd.Status != models.RoundStatusResolution {
		if trigger == round.TriggerForced {
			return apperrors.InvalidStatef("round %s is %s, nothing to resolve", roundID, rnd.Status)
		}
		return nil
	}

	return a.runResolution(ctx, league, rnd)
}

// afterRoundOpened announces a freshly opened round, injects bot picks and
// resolves immediately when the round is already full (an all-bot league).
func (a *App) afterRoundOpened(ctx context.Context, league *models.League, rnd *models.Round) error {
	payload := events.RoundStartedPayload{
		RoundID:   rnd.ID.String(),
		Position:  string(rnd.Position),
		Number:    rnd.Number,
		Deadline:  rnd.Deadline,
		StartedAt: a.clock.Now(),
	}
	if err := a.outbox.InsertEvent(ctx, league.ID, events.LeagueTopic(league.ID), events.TypeRoundStarted, payload); err != nil {
		log.Error().Err(err).Str("round_id", rnd.ID.String()).Msg("failed to emit RoundStarted event")
	}

	if _, err := a.bots.FillBots(ctx, league, rnd); err != nil {
		return err
	}
	return a.maybeResolve(ctx, league, rnd)
}

// maybeResolve checks fullness and, when every eligible team has a live
// pick, claims the transition and runs resolution. Safe to call on rounds
// in any state; it no-ops unless the round is actually full.
func (a *App) maybeResolve(ctx context.Context, league *models.League, rnd *models.Round) error {
	full, err := a.roundFull(ctx, league, rnd)
	if err != nil {
		return err
	}
	if !full {
		return nil
	}

	if rnd.Status == models.RoundStatusSelection {
		won, err := a.rounds.BeginResolution(ctx, rnd.ID, round.TriggerFull)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		rnd.Status = models.RoundStatusResolution
	}

	return a.runResolution(ctx, league, rnd)
}

// runResolution drives resolution passes until the round completes or is
// left waiting on human re-picks. Each iteration assigns at least one
// contested player, so the loop is bounded by the round's selection count.
func (a *App) runResolution(ctx context.Context, league *models.League, rnd *models.Round) error {
	for {
		result, err := a.resolver.Resolve(ctx, rnd.ID)
		if err != nil {
			return err
		}

		completed := len(result.UnresolvedTeams) == 0
		if !completed {
			supply, err := a.players.RemainingSupply(ctx, league.ID)
			if err != nil {
				return err
			}
			// Unresolved teams with nothing left to pick from cannot
			// re-pick; finish the round rather than strand it.
			if supply[rnd.Position] == 0 {
				completed = true
			}
		}

		a.emitRoundResolved(ctx, league.ID, rnd.ID, result, completed)

		if completed {
			return a.completeAndAdvance(ctx, league, rnd)
		}

		// Continuation: the round stays in RESOLUTION and the losing
		// teams pick again at the same round number.
		if league.Settings.TimeoutSeconds > 0 {
			deadline := a.clock.Now().Add(league.TimeoutDuration())
			if err := a.rounds.RearmDeadline(ctx, rnd.ID, deadline); err != nil {
				return err
			}
		}

		if _, err := a.bots.FillBots(ctx, league, rnd); err != nil {
			return err
		}
		full, err := a.roundFull(ctx, league, rnd)
		if err != nil {
			return err
		}
		if !full {
			return nil
		}
	}
}

func (a *App) completeAndAdvance(ctx context.Context, league *models.League, rnd *models.Round) error {
	done, err := a.rounds.Complete(ctx, rnd.ID)
	if err != nil {
		return err
	}
	if !done {
		// A concurrent caller already completed and advanced it.
		return nil
	}

	next, err := a.advancer.Advance(ctx, league.ID, rnd.ID)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return a.afterRoundOpened(ctx, league, next)
}

// roundFull reports whether every eligible human team holds a live pick.
// During SELECTION eligibility means a positive need in the round's
// category; during RESOLUTION teams already holding a winning selection
// are done and drop out of the check. Bot teams never gate fullness, their
// picks are injected the moment a round opens.
func (a *App) roundFull(ctx context.Context, league *models.League, rnd *models.Round) (bool, error) {
	if !rnd.Active() {
		return false, nil
	}

	teamList, err := a.teams.GetTeamsByLeague(ctx, league.ID)
	if err != nil {
		return false, err
	}
	sels, err := a.selections.GetSelectionsByRound(ctx, rnd.ID)
	if err != nil {
		return false, err
	}
	needs, err := a.advancer.TeamNeeds(ctx, league)
	if err != nil {
		return false, err
	}

	pending := make(map[uuid.UUID]bool, len(sels))
	won := make(map[uuid.UUID]bool)
	for _, s := range sels {
		if s.IsWinner {
			won[s.TeamID] = true
		} else {
			pending[s.TeamID] = true
		}
	}
	needByTeam := make(map[uuid.UUID]int, len(needs))
	for _, n := range needs {
		needByTeam[n.TeamID] = n.Needs[rnd.Position]
	}

	for _, t := range teamList {
		if t.IsBot {
			continue
		}
		if needByTeam[t.ID] <= 0 || won[t.ID] {
			continue
		}
		if !pending[t.ID] {
			return false, nil
		}
	}
	return true, nil
}

func (a *App) emitRoundResolved(ctx context.Context, leagueID, roundID uuid.UUID, result *resolver.Result, completed bool) {
	payload := events.RoundResolvedPayload{
		RoundID:     roundID.String(),
		Assignments: make([]events.AssignmentPayload, 0, len(result.Assignments)),
		Completed:   completed,
		ResolvedAt:  a.clock.Now(),
	}
	for _, as := range result.Assignments {
		payload.Assignments = append(payload.Assignments, events.AssignmentPayload{
			TeamID:     as.TeamID.String(),
			TeamName:   as.TeamName,
			PlayerID:   as.PlayerID.String(),
			PlayerName: as.PlayerName,
			Price:      as.Price,
		})
	}
	for _, d := range result.Dropped {
		payload.Dropped = append(payload.Dropped, d.TeamID.String())
	}
	for _, teamID := range result.UnresolvedTeams {
		payload.Unresolved = append(payload.Unresolved, teamID.String())
	}
	if err := a.outbox.InsertEvent(ctx, leagueID, events.LeagueTopic(leagueID), events.TypeRoundResolved, payload); err != nil {
		log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to emit RoundResolved event")
	}
}
