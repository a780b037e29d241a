// Package admin exposes the privileged override surface. Every operation
// requires the caller to be the league's admin and appends an audit record
// before touching the draft.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/draft/outbox"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/leagues"
	"github.com/mcdev12/gavel/go/internal/models"
	playerrepo "github.com/mcdev12/gavel/go/internal/player"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
	"github.com/mcdev12/gavel/go/internal/teams"
	"github.com/rs/zerolog/log"
)

// LeaguesApp defines what the admin surface needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	CompleteAuction(ctx context.Context, id uuid.UUID) (*models.League, error)
}

// RoundsApp defines what the admin surface needs from the round application
type RoundsApp interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error)
}

// SelectionsApp defines what the admin surface needs from the selection application
type SelectionsApp interface {
	AdminSelect(ctx context.Context, req selection.AdminSelectRequest) (*models.Selection, error)
	Cancel(ctx context.Context, roundID, teamID uuid.UUID) error
}

// PlayersApp defines what the admin surface needs from the player application
type PlayersApp interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
}

// Engine drives the round state machine for forced transitions.
type Engine interface {
	ForceResolution(ctx context.Context, roundID uuid.UUID, trigger round.Trigger) error
	EvaluateRound(ctx context.Context, roundID uuid.UUID) error
}

// App implements the admin override operations.
type App struct {
	repo       *Repository
	pool       *pgxpool.Pool
	leagues    LeaguesApp
	rounds     RoundsApp
	selections SelectionsApp
	players    PlayersApp
	engine     Engine
	outbox     *outbox.Repository

	// Repositories reached directly for the multi-table reset paths.
	leagueRepo    *leagues.Repository
	teamRepo      *teams.Repository
	playerRepo    *playerrepo.Repository
	roundRepo     *round.Repository
	selectionRepo *selection.Repository
}

// NewApp creates a new admin App
func NewApp(
	repo *Repository,
	pool *pgxpool.Pool,
	leaguesApp LeaguesApp,
	roundsApp RoundsApp,
	selectionsApp SelectionsApp,
	playersApp PlayersApp,
	engine Engine,
	outboxRepo *outbox.Repository,
	leagueRepo *leagues.Repository,
	teamRepo *teams.Repository,
	playerRepo *playerrepo.Repository,
	roundRepo *round.Repository,
	selectionRepo *selection.Repository,
) *App {
	return &App{
		repo:          repo,
		pool:          pool,
		leagues:       leaguesApp,
		rounds:        roundsApp,
		selections:    selectionsApp,
		players:       playersApp,
		engine:        engine,
		outbox:        outboxRepo,
		leagueRepo:    leagueRepo,
		teamRepo:      teamRepo,
		playerRepo:    playerRepo,
		roundRepo:     roundRepo,
		selectionRepo: selectionRepo,
	}
}

// authorize loads the league and rejects callers other than its admin.
func (a *App) authorize(ctx context.Context, adminID, leagueID uuid.UUID) (*models.League, error) {
	league, err := a.leagues.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league.AdminID != adminID {
		return nil, apperrors.Forbiddenf("user %s is not the admin of league %s", adminID, leagueID)
	}
	return league, nil
}

// ForceResolution pushes the round into resolution as if it were full.
func (a *App) ForceResolution(ctx context.Context, adminID, roundID uuid.UUID, reason string) error {
	rnd, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	league, err := a.authorize(ctx, adminID, rnd.LeagueID)
	if err != nil {
		return err
	}

	if err := a.engine.ForceResolution(ctx, roundID, round.TriggerForced); err != nil {
		return err
	}

	a.record(ctx, models.AdminAction{
		LeagueID: league.ID,
		AdminID:  adminID,
		Kind:     models.AdminActionForceResolution,
		RoundID:  &roundID,
		Reason:   reason,
	})
	return nil
}

// CancelSelection removes a team's pending pick. Only legal during SELECTION.
func (a *App) CancelSelection(ctx context.Context, adminID, roundID, teamID uuid.UUID, reason string) error {
	rnd, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	league, err := a.authorize(ctx, adminID, rnd.LeagueID)
	if err != nil {
		return err
	}

	if err := a.selections.Cancel(ctx, roundID, teamID); err != nil {
		return err
	}

	a.record(ctx, models.AdminAction{
		LeagueID: league.ID,
		AdminID:  adminID,
		Kind:     models.AdminActionCancelSelection,
		RoundID:  &roundID,
		TeamID:   &teamID,
		Reason:   reason,
	})
	return nil
}

// AdminSelect creates or overwrites a selection on a team's behalf, then
// re-evaluates the round in case the pick made it full.
func (a *App) AdminSelect(ctx context.Context, req selection.AdminSelectRequest) (*models.Selection, error) {
	rnd, err := a.rounds.GetRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	league, err := a.authorize(ctx, req.AdminID, rnd.LeagueID)
	if err != nil {
		return nil, err
	}

	sel, err := a.selections.AdminSelect(ctx, req)
	if err != nil {
		return nil, err
	}

	a.record(ctx, models.AdminAction{
		LeagueID: league.ID,
		AdminID:  req.AdminID,
		Kind:     models.AdminActionSelect,
		RoundID:  &req.RoundID,
		TeamID:   &req.TeamID,
		PlayerID: &req.PlayerID,
		Reason:   req.Reason,
	})

	if err := a.engine.EvaluateRound(ctx, req.RoundID); err != nil {
		return sel, err
	}
	return sel, nil
}

// ResetRound clears every selection for the round without advancing it.
func (a *App) ResetRound(ctx context.Context, adminID, roundID uuid.UUID, reason string) error {
	rnd, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	league, err := a.authorize(ctx, adminID, rnd.LeagueID)
	if err != nil {
		return err
	}
	if !rnd.Active() {
		return apperrors.InvalidStatef("round %s is already completed", roundID)
	}

	cleared, err := a.selectionRepo.DeleteSelectionsByRound(ctx, roundID)
	if err != nil {
		return err
	}
	log.Info().
		Str("round_id", roundID.String()).
		Int("cleared", cleared).
		Msg("round reset by admin")

	a.record(ctx, models.AdminAction{
		LeagueID: league.ID,
		AdminID:  adminID,
		Kind:     models.AdminActionResetRound,
		RoundID:  &roundID,
		Reason:   reason,
	})
	return nil
}

// UnassignPlayer returns an assigned player to the pool and refunds the
// owning team, both in one transaction.
func (a *App) UnassignPlayer(ctx context.Context, adminID, playerID uuid.UUID, reason string) error {
	player, err := a.players.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	league, err := a.authorize(ctx, adminID, player.LeagueID)
	if err != nil {
		return err
	}
	if !player.IsAssigned || player.TeamID == nil {
		return apperrors.InvalidStatef("player %s is not assigned", playerID)
	}
	teamID := *player.TeamID

	err = sqlutil.Run(ctx, a.pool, func(tx pgx.Tx) error {
		if _, err := a.playerRepo.WithTx(tx).UnassignPlayer(ctx, playerID); err != nil {
			return err
		}
		return a.teamRepo.WithTx(tx).RefundCredits(ctx, teamID, player.Price)
	})
	if err != nil {
		return err
	}

	a.record(ctx, models.AdminAction{
		LeagueID: league.ID,
		AdminID:  adminID,
		Kind:     models.AdminActionUnassignPlayer,
		TeamID:   &teamID,
		PlayerID: &playerID,
		Reason:   reason,
	})
	return nil
}

// EndAuction completes the league early, leaving assignments in place.
func (a *App) EndAuction(ctx context.Context, adminID, leagueID uuid.UUID, reason string) error {
	if _, err := a.authorize(ctx, adminID, leagueID); err != nil {
		return err
	}
	if _, err := a.leagues.CompleteAuction(ctx, leagueID); err != nil {
		return err
	}
	a.record(ctx, models.AdminAction{
		LeagueID: leagueID,
		AdminID:  adminID,
		Kind:     models.AdminActionEndAuction,
		Reason:   reason,
	})
	return nil
}

// ResetAuction rolls the league all the way back to SETUP: every round and
// selection deleted, every player back in the pool, every team refunded to
// the configured budget, the audit history wiped. One transaction, no
// partial application.
func (a *App) ResetAuction(ctx context.Context, adminID, leagueID uuid.UUID, reason string) error {
	league, err := a.authorize(ctx, adminID, leagueID)
	if err != nil {
		return err
	}

	err = sqlutil.Run(ctx, a.pool, func(tx pgx.Tx) error {
		// Rounds cascade to their selections.
		if err := a.roundRepo.WithTx(tx).DeleteRoundsByLeague(ctx, leagueID); err != nil {
			return err
		}
		if err := a.playerRepo.WithTx(tx).UnassignAllPlayers(ctx, leagueID); err != nil {
			return err
		}
		if err := a.teamRepo.WithTx(tx).ResetCredits(ctx, leagueID, league.Settings.BudgetPerTeam); err != nil {
			return err
		}
		if err := a.repo.WithTx(tx).DeleteByLeague(ctx, leagueID); err != nil {
			return err
		}
		if err := a.outbox.WithTx(tx).DeleteByLeague(ctx, leagueID); err != nil {
			return err
		}
		if err := a.leagueRepo.WithTx(tx).ForceLeagueStatus(ctx, leagueID, models.LeagueStatusSetup); err != nil {
			return err
		}

		// The reset itself is the first entry of the fresh audit log,
		// written inside the same transaction so a rollback leaves no
		// stray record.
		if _, err := a.repo.WithTx(tx).CreateAction(ctx, models.AdminAction{
			ID:       uuid.New(),
			LeagueID: leagueID,
			AdminID:  adminID,
			Kind:     models.AdminActionResetAuction,
			Reason:   reason,
		}); err != nil {
			return err
		}
		return a.outbox.WithTx(tx).InsertEvent(ctx, leagueID, events.LeagueTopic(leagueID), events.TypeAdminAction, events.AdminActionPayload{
			LeagueID: leagueID.String(),
			Kind:     string(models.AdminActionResetAuction),
			Reason:   reason,
		})
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("admin_id", adminID.String()).
		Msg("auction reset to setup")
	return nil
}

// ListActions returns a page of the league's audit log.
func (a *App) ListActions(ctx context.Context, adminID, leagueID uuid.UUID, limit, offset int) ([]models.AdminAction, error) {
	if _, err := a.authorize(ctx, adminID, leagueID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return a.repo.ListByLeague(ctx, leagueID, limit, offset)
}

// record appends the audit entry and mirrors it to the league topic.
// Failures are logged rather than unwinding an operation that already
// took effect.
func (a *App) record(ctx context.Context, action models.AdminAction) {
	action.ID = uuid.New()
	action.CreatedAt = time.Now()
	if _, err := a.repo.CreateAction(ctx, action); err != nil {
		log.Error().Err(err).
			Str("league_id", action.LeagueID.String()).
			Str("kind", string(action.Kind)).
			Msg("failed to append admin action")
		return
	}

	payload := events.AdminActionPayload{
		LeagueID: action.LeagueID.String(),
		Kind:     string(action.Kind),
		Reason:   action.Reason,
	}
	if action.RoundID != nil {
		payload.RoundID = action.RoundID.String()
	}
	if action.TeamID != nil {
		payload.TeamID = action.TeamID.String()
	}
	if err := a.outbox.InsertEvent(ctx, action.LeagueID, events.LeagueTopic(action.LeagueID), events.TypeAdminAction, payload); err != nil {
		log.Error().Err(err).
			Str("league_id", action.LeagueID.String()).
			Msg("failed to emit AdminAction event")
	}
}
