// Package orchestrator owns the round countdown: it watches deadlines in
// the database, forces overdue rounds into resolution and pauses or
// resumes timers when league presence changes.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// RoundsApp defines what the orchestrator needs from the round application
type RoundsApp interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error)
	FetchNextDeadline(ctx context.Context) (*round.NextDeadline, error)
	FetchRoundsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
	PauseDeadline(ctx context.Context, id uuid.UUID) (time.Duration, error)
	ResumeDeadline(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error)
}

// Engine drives the state machine once a deadline has expired.
type Engine interface {
	ForceResolution(ctx context.Context, roundID uuid.UUID, trigger round.Trigger) error
}

// LeaguesApp defines what the orchestrator needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
}

// TeamsApp defines what the orchestrator needs from the teams application
type TeamsApp interface {
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// OutboxWriter queues events for the real-time channel.
type OutboxWriter interface {
	InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error
}

// Orchestrator polls round deadlines and dispatches timeouts to a worker
// pool. Multiple instances can run side by side: the engine's conditional
// status transition makes the actual firing idempotent.
type Orchestrator struct {
	rounds     RoundsApp
	leagues    LeaguesApp
	teams      TeamsApp
	engine     Engine
	outbox     OutboxWriter
	clock      Clock
	batchSize  int32 // how many due rounds to claim at once
	wakeCh     chan struct{}
	instanceID string // unique ID for this scheduler instance

	// Worker pool configuration
	numWorkers int
	workCh     chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewOrchestrator creates a new timeout orchestrator with worker pool
func NewOrchestrator(rounds RoundsApp, leagues LeaguesApp, teams TeamsApp, engine Engine, outbox OutboxWriter, batchSize int32) *Orchestrator {
	numWorkers := 4
	return &Orchestrator{
		rounds:     rounds,
		leagues:    leagues,
		teams:      teams,
		engine:     engine,
		outbox:     outbox,
		clock:      clockwork.NewRealClock(),
		batchSize:  batchSize,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8], // short ID for logging

		numWorkers: numWorkers,
		workCh:     make(chan uuid.UUID, numWorkers*2), // Buffer to prevent blocking
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// WithClock swaps the clock, for tests with clockwork.FakeClock.
func (o *Orchestrator) WithClock(clock Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Wake nudges the scheduler loop to re-read the next deadline. Called
// whenever a deadline may have moved (new round, re-armed continuation,
// resume after pause).
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// OnPresenceChange reacts to the league's connected-participant count
// moving. With pauseOnDisconnect set, the countdown suspends while fewer
// humans are connected than the league has human teams, and resumes once
// everyone is back.
func (o *Orchestrator) OnPresenceChange(ctx context.Context, leagueID uuid.UUID, connected int) error {
	league, err := o.leagues.GetLeague(ctx, leagueID)
	if err != nil {
		return err
	}
	if !league.Settings.PauseOnDisconnect || league.Settings.TimeoutSeconds == 0 {
		return nil
	}

	rnd, err := o.rounds.GetCurrentRound(ctx, leagueID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if !rnd.Active() {
		return nil
	}

	teamList, err := o.teams.GetTeamsByLeague(ctx, leagueID)
	if err != nil {
		return err
	}
	humans := 0
	for _, t := range teamList {
		if !t.IsBot {
			humans++
		}
	}

	switch {
	case connected < humans && rnd.Deadline != nil:
		remaining, err := o.rounds.PauseDeadline(ctx, rnd.ID)
		if err != nil {
			return err
		}
		log.Info().
			Str("round_id", rnd.ID.String()).
			Dur("remaining", remaining).
			Msg("countdown paused, participant disconnected")
		o.emitTimer(ctx, leagueID, events.TypeTimerPaused, events.TimerPayload{
			RoundID:   rnd.ID.String(),
			Remaining: remaining.String(),
		})

	case connected >= humans && rnd.Deadline == nil && rnd.PausedRemaining != nil:
		deadline, err := o.rounds.ResumeDeadline(ctx, rnd.ID, o.clock.Now())
		if err != nil {
			return err
		}
		log.Info().
			Str("round_id", rnd.ID.String()).
			Time("deadline", *deadline).
			Msg("countdown resumed, participants reconnected")
		o.emitTimer(ctx, leagueID, events.TypeTimerResumed, events.TimerPayload{
			RoundID:  rnd.ID.String(),
			Deadline: deadline,
		})
		o.Wake()
	}
	return nil
}

func (o *Orchestrator) emitTimer(ctx context.Context, leagueID uuid.UUID, eventType string, payload events.TimerPayload) {
	if err := o.outbox.InsertEvent(ctx, leagueID, events.LeagueTopic(leagueID), eventType, payload); err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msgf("failed to emit %s event", eventType)
	}
}
