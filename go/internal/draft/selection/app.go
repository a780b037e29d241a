package selection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SelectionRepository defines what the app layer needs from the repository
type SelectionRepository interface {
	CreateSelection(ctx context.Context, sel models.Selection) (*models.Selection, error)
	UpsertAdminSelection(ctx context.Context, sel models.Selection) (*models.Selection, error)
	GetSelection(ctx context.Context, roundID, teamID uuid.UUID) (*models.Selection, error)
	GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error)
	DeleteSelection(ctx context.Context, roundID, teamID uuid.UUID) (bool, error)
}

// RoundsApp defines what the collector needs from the round application
type RoundsApp interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
}

// TeamsApp defines what the collector needs from the teams application
type TeamsApp interface {
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
}

// PlayersApp defines what the collector needs from the player application
type PlayersApp interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
}

// OutboxWriter queues events for the real-time channel.
type OutboxWriter interface {
	InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error
}

// App is the selection collector: it accepts at most one validated pick per
// team per round. No credits move at submission time; deduction happens only
// on a confirmed win during resolution.
type App struct {
	repo    SelectionRepository
	rounds  RoundsApp
	teams   TeamsApp
	players PlayersApp
	outbox  OutboxWriter
}

// NewApp creates a new selection App
func NewApp(repo SelectionRepository, rounds RoundsApp, teams TeamsApp, players PlayersApp, outbox OutboxWriter) *App {
	return &App{
		repo:    repo,
		rounds:  rounds,
		teams:   teams,
		players: players,
		outbox:  outbox,
	}
}

// Submit validates and records a team's pick. Duplicate picks fail with
// ErrConflict — the caller must cancel first, there is no silent overwrite.
func (a *App) Submit(ctx context.Context, req SubmitRequest) (*models.Selection, error) {
	round, team, player, err := a.validatePick(ctx, req.RoundID, req.TeamID, req.PlayerID)
	if err != nil {
		return nil, err
	}

	sel, err := a.repo.CreateSelection(ctx, models.Selection{
		ID:       uuid.New(),
		RoundID:  round.ID,
		TeamID:   team.ID,
		UserID:   req.UserID,
		PlayerID: player.ID,
	})
	if err != nil {
		return nil, err
	}

	a.emitPickEvents(ctx, round, team, player, sel)

	log.Info().
		Str("round_id", round.ID.String()).
		Str("team_id", team.ID.String()).
		Msg("selection submitted")
	return sel, nil
}

// AdminSelect creates or overwrites a selection on behalf of a team. The
// caller has already passed the admin gate; validation otherwise matches
// Submit.
func (a *App) AdminSelect(ctx context.Context, req AdminSelectRequest) (*models.Selection, error) {
	round, team, player, err := a.validatePick(ctx, req.RoundID, req.TeamID, req.PlayerID)
	if err != nil {
		return nil, err
	}

	reason := req.Reason
	sel, err := a.repo.UpsertAdminSelection(ctx, models.Selection{
		ID:          uuid.New(),
		RoundID:     round.ID,
		TeamID:      team.ID,
		UserID:      req.AdminID,
		PlayerID:    player.ID,
		AdminReason: &reason,
	})
	if err != nil {
		return nil, err
	}

	a.emitPickEvents(ctx, round, team, player, sel)

	log.Info().
		Str("round_id", round.ID.String()).
		Str("team_id", team.ID.String()).
		Str("admin_id", req.AdminID.String()).
		Msg("admin selection recorded")
	return sel, nil
}

// Cancel removes a team's pending selection. Only legal during SELECTION.
func (a *App) Cancel(ctx context.Context, roundID, teamID uuid.UUID) error {
	round, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	if round.Status != models.RoundStatusSelection {
		return apperrors.InvalidStatef("selections can only be cancelled while round %s is in selection", roundID)
	}

	sel, err := a.repo.GetSelection(ctx, roundID, teamID)
	if err != nil {
		return err
	}

	deleted, err := a.repo.DeleteSelection(ctx, roundID, teamID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.Conflictf("selection for team %s was already consumed", teamID)
	}

	if err := a.outbox.InsertEvent(ctx, round.LeagueID, events.TeamTopic(teamID), events.TypeSelectionCleared, events.SelectionClearedPayload{
		RoundID:  roundID.String(),
		TeamID:   teamID.String(),
		PlayerID: sel.PlayerID.String(),
	}); err != nil {
		log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to emit SelectionCleared event")
	}
	return nil
}

// GetSelection returns one team's selection for a round.
func (a *App) GetSelection(ctx context.Context, roundID, teamID uuid.UUID) (*models.Selection, error) {
	return a.repo.GetSelection(ctx, roundID, teamID)
}

// GetSelectionsByRound returns all selections of a round.
func (a *App) GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error) {
	return a.repo.GetSelectionsByRound(ctx, roundID)
}

// validatePick runs every check shared by Submit and AdminSelect.
func (a *App) validatePick(ctx context.Context, roundID, teamID, playerID uuid.UUID) (*models.Round, *models.Team, *models.Player, error) {
	round, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, nil, nil, err
	}

	team, err := a.teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, nil, nil, err
	}
	if team.LeagueID != round.LeagueID {
		return nil, nil, nil, apperrors.Validationf("team %s does not belong to round %s's league", teamID, roundID)
	}

	switch round.Status {
	case models.RoundStatusSelection:
		// normal submission window
	case models.RoundStatusResolution:
		// Continuation pass: teams that lost a tie-break re-pick at the
		// same round number. A team that already won is done.
		if existing, err := a.repo.GetSelection(ctx, roundID, teamID); err == nil && existing.IsWinner {
			return nil, nil, nil, apperrors.InvalidStatef("team %s already won round %s", teamID, roundID)
		}
	default:
		return nil, nil, nil, apperrors.InvalidStatef("round %s is not accepting selections", roundID)
	}

	player, err := a.players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if player.LeagueID != round.LeagueID {
		return nil, nil, nil, apperrors.Validationf("player %s does not belong to round %s's league", playerID, roundID)
	}
	if player.Position != round.Position {
		return nil, nil, nil, apperrors.Validationf("player %s is a %s, round %s drafts %s", playerID, player.Position, roundID, round.Position)
	}
	if player.IsAssigned {
		return nil, nil, nil, apperrors.Conflictf("player %s is already assigned", playerID)
	}
	if team.Credits < player.Price {
		return nil, nil, nil, apperrors.Validationf("team %s has %d credits, player costs %d", teamID, team.Credits, player.Price)
	}

	return round, team, player, nil
}

// emitPickEvents queues both payload variants: full detail to the acting
// team's topic, anonymized to the league's shared topic. Event failures are
// logged, never fatal — the pick itself is already durable.
func (a *App) emitPickEvents(ctx context.Context, round *models.Round, team *models.Team, player *models.Player, sel *models.Selection) {
	madeAt := sel.CreatedAt
	if madeAt.IsZero() {
		madeAt = time.Now()
	}

	if err := a.outbox.InsertEvent(ctx, round.LeagueID, events.TeamTopic(team.ID), events.TypeSelectionMade, events.SelectionMadePayload{
		RoundID:    round.ID.String(),
		TeamID:     team.ID.String(),
		PlayerID:   player.ID.String(),
		PlayerName: player.FullName,
		Price:      player.Price,
		MadeAt:     madeAt,
	}); err != nil {
		log.Error().Err(err).Str("round_id", round.ID.String()).Msg("failed to emit SelectionMade event")
	}

	if err := a.outbox.InsertEvent(ctx, round.LeagueID, events.LeagueTopic(round.LeagueID), events.TypeSelectionMade, events.SelectionAnnouncedPayload{
		RoundID:  round.ID.String(),
		TeamID:   team.ID.String(),
		TeamName: team.Name,
		MadeAt:   madeAt,
	}); err != nil {
		log.Error().Err(err).Str("round_id", round.ID.String()).Msg("failed to emit selection announcement")
	}
}
