package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/rs/zerolog/log"
)

// idlePollInterval bounds how long the scheduler sleeps when no round has
// a deadline, so rounds armed by another instance are still noticed.
const idlePollInterval = 30 * time.Second

// RunScheduler runs the deadline loop until ctx is cancelled. It sleeps
// until the soonest deadline in the database, claims everything due and
// hands the round IDs to the worker pool.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.numWorkers).
		Msg("timeout scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	for {
		wait := idlePollInterval
		next, err := o.rounds.FetchNextDeadline(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch next deadline")
		} else if next != nil && next.Deadline != nil {
			wait = next.Deadline.Sub(o.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}

		timer := o.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			log.Info().Str("instance", o.instanceID).Msg("scheduler shutdown requested")
			return nil
		case <-o.wakeCh:
			// A deadline moved; recompute the wait.
			stopAndDrainTimer(timer)
			continue
		case <-timer.Chan():
		}

		o.dispatchDue(ctx)
	}
}

// dispatchDue claims every round whose deadline has passed and enqueues it
// for the workers, skipping rounds already in flight on this instance.
func (o *Orchestrator) dispatchDue(ctx context.Context) {
	due, err := o.rounds.FetchRoundsDue(ctx, o.clock.Now(), o.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch due rounds")
		return
	}

	for _, roundID := range due {
		o.inFlightMu.Lock()
		if o.inFlight[roundID] {
			o.inFlightMu.Unlock()
			continue
		}
		o.inFlight[roundID] = true
		o.inFlightMu.Unlock()

		select {
		case o.workCh <- roundID:
			log.Debug().Str("round_id", roundID.String()).Msg("deadline expired - enqueued for processing")
		default:
			o.clearInFlight(roundID)
			log.Warn().Str("round_id", roundID.String()).Msg("deadline expired but work channel full")
		}
	}
}

// worker processes round timeouts from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case roundID, ok := <-o.workCh:
			if !ok {
				return
			}

			log.Info().
				Str("round_id", roundID.String()).
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker handling timeout")

			if err := o.handleTimeout(ctx, roundID); err != nil {
				log.Error().
					Err(err).
					Str("round_id", roundID.String()).
					Int("worker_id", workerID).
					Msg("failed to handle timeout")
			}
			o.clearInFlight(roundID)
		}
	}
}

// handleTimeout forces the expired round into resolution. The engine
// applies auto-select first when the league has it enabled, and no-ops if
// an admin force or a full round already claimed the transition.
func (o *Orchestrator) handleTimeout(ctx context.Context, roundID uuid.UUID) error {
	rnd, err := o.rounds.GetRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("load round: %w", err)
	}
	if !rnd.Active() || rnd.Deadline == nil || rnd.Deadline.After(o.clock.Now()) {
		// Completed, paused or re-armed since we claimed it.
		return nil
	}
	return o.engine.ForceResolution(ctx, roundID, round.TriggerTimeout)
}

func (o *Orchestrator) clearInFlight(roundID uuid.UUID) {
	o.inFlightMu.Lock()
	delete(o.inFlight, roundID)
	o.inFlightMu.Unlock()
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
// This follows the pattern recommended in the time.Timer.Stop() documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
