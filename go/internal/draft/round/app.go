package round

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RoundRepository defines what the app layer needs from the repository
type RoundRepository interface {
	CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error)
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.RoundStatus) (bool, error)
	CompleteRound(ctx context.Context, id uuid.UUID) (bool, error)
	SetDeadline(ctx context.Context, id uuid.UUID, deadline *time.Time) error
	PauseDeadline(ctx context.Context, id uuid.UUID) (time.Duration, error)
	ResumeDeadline(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error)
	LastRoundNumber(ctx context.Context, leagueID uuid.UUID, pos models.Position) (int, error)
	FetchNextDeadline(ctx context.Context) (*NextDeadline, error)
	FetchRoundsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// App owns the round lifecycle: SELECTION -> RESOLUTION -> {RESOLUTION re-entrant | COMPLETED}.
type App struct {
	repo RoundRepository
}

// NewApp creates a new round App
func NewApp(repo RoundRepository) *App {
	return &App{repo: repo}
}

// OpenRound creates the next round for a category in SELECTION.
func (a *App) OpenRound(ctx context.Context, leagueID uuid.UUID, pos models.Position, deadline *time.Time) (*models.Round, error) {
	last, err := a.repo.LastRoundNumber(ctx, leagueID, pos)
	if err != nil {
		return nil, err
	}

	round, err := a.repo.CreateRound(ctx, CreateRoundRequest{
		ID:       uuid.New(),
		LeagueID: leagueID,
		Position: pos,
		Number:   last + 1,
		Deadline: deadline,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("round_id", round.ID.String()).
		Str("position", string(round.Position)).
		Int("number", round.Number).
		Msg("round opened")
	return round, nil
}

// GetRound retrieves a round by ID
func (a *App) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	return a.repo.GetRound(ctx, id)
}

// GetCurrentRound returns the league's non-completed round.
func (a *App) GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error) {
	return a.repo.GetCurrentRound(ctx, leagueID)
}

// BeginResolution claims the SELECTION -> RESOLUTION transition. All three
// triggers (round full, admin force, timeout) funnel through here; exactly
// one caller wins, the rest observe won=false and no-op.
func (a *App) BeginResolution(ctx context.Context, id uuid.UUID, trigger Trigger) (bool, error) {
	won, err := a.repo.TransitionStatus(ctx, id, models.RoundStatusSelection, models.RoundStatusResolution)
	if err != nil {
		return false, err
	}
	if won {
		log.Info().
			Str("round_id", id.String()).
			Str("trigger", string(trigger)).
			Msg("round entering resolution")
	}
	return won, nil
}

// Complete moves the round out of RESOLUTION into its terminal state.
func (a *App) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	done, err := a.repo.CompleteRound(ctx, id)
	if err != nil {
		return false, err
	}
	if done {
		log.Info().Str("round_id", id.String()).Msg("round completed")
	}
	return done, nil
}

// RearmDeadline resets the countdown, used when a round re-enters selection
// activity after a partial resolution pass.
func (a *App) RearmDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	return a.repo.SetDeadline(ctx, id, &deadline)
}

// PauseDeadline suspends the countdown and reports the remainder.
func (a *App) PauseDeadline(ctx context.Context, id uuid.UUID) (time.Duration, error) {
	return a.repo.PauseDeadline(ctx, id)
}

// ResumeDeadline restarts a suspended countdown from its remainder.
func (a *App) ResumeDeadline(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error) {
	return a.repo.ResumeDeadline(ctx, id, now)
}

// FetchNextDeadline reports the soonest armed deadline for the scheduler.
func (a *App) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	return a.repo.FetchNextDeadline(ctx)
}

// FetchRoundsDue lists active rounds whose deadline has passed.
func (a *App) FetchRoundsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	return a.repo.FetchRoundsDue(ctx, now, limit)
}
