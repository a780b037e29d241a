package resolver

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/draft/outbox"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/player"
	"github.com/mcdev12/gavel/go/internal/sqlutil"
	"github.com/mcdev12/gavel/go/internal/teams"
	"github.com/rs/zerolog/log"
)

// RoundsRepo defines what the resolver needs from round storage
type RoundsRepo interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
}

// SelectionsRepo defines what the resolver reads outside the commit
type SelectionsRepo interface {
	GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error)
}

// TxSelectionsRepo is the selection surface inside a group commit.
type TxSelectionsRepo interface {
	SetTieBreak(ctx context.Context, id uuid.UUID, n int) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	MarkWinner(ctx context.Context, id uuid.UUID) error
}

// TxPlayersRepo is the player surface inside a group commit.
type TxPlayersRepo interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	AssignPlayer(ctx context.Context, id, teamID uuid.UUID) error
}

// TxTeamsRepo is the team surface inside a group commit.
type TxTeamsRepo interface {
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	DeductCredits(ctx context.Context, id uuid.UUID, amount int) error
}

// TxOutboxRepo is the outbox surface inside a group commit.
type TxOutboxRepo interface {
	InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error
}

// TxRepos bundles the repositories bound to one commit transaction.
type TxRepos struct {
	Selections TxSelectionsRepo
	Players    TxPlayersRepo
	Teams      TxTeamsRepo
	Outbox     TxOutboxRepo
}

// TxRunner executes fn with repositories bound to a single transaction.
// If fn returns an error nothing it did is visible.
type TxRunner interface {
	InTx(ctx context.Context, fn func(TxRepos) error) error
}

// pgxRunner runs group commits on a serializable pgx transaction, so two
// passes over the same round cannot interleave their writes.
type pgxRunner struct {
	pool       *pgxpool.Pool
	selections *selection.Repository
	players    *player.Repository
	teams      *teams.Repository
	outbox     *outbox.Repository
}

func (r *pgxRunner) InTx(ctx context.Context, fn func(TxRepos) error) error {
	return sqlutil.RunSerializable(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(TxRepos{
			Selections: r.selections.WithTx(tx),
			Players:    r.players.WithTx(tx),
			Teams:      r.teams.WithTx(tx),
			Outbox:     r.outbox.WithTx(tx),
		})
	})
}

// App runs resolution passes over rounds in RESOLUTION. Each contested
// player group commits as one transaction: tie-break stamps, player
// assignment, credit deduction and loser clearing are all-or-nothing, so a
// persistence failure can never leave an assigned player without the
// matching deduction.
type App struct {
	rounds     RoundsRepo
	selections SelectionsRepo
	tx         TxRunner
	rng        Rand

	// Track in-flight rounds so only one resolution pass runs per round;
	// concurrent requests are rejected rather than interleaved.
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewApp creates a resolver with its own seeded randomness source.
func NewApp(pool *pgxpool.Pool, rounds *round.Repository, selections *selection.Repository, players *player.Repository, teamsRepo *teams.Repository, outboxRepo *outbox.Repository) *App {
	return &App{
		rounds:     rounds,
		selections: selections,
		tx: &pgxRunner{
			pool:       pool,
			selections: selections,
			players:    players,
			teams:      teamsRepo,
			outbox:     outboxRepo,
		},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		inFlight: make(map[uuid.UUID]bool),
	}
}

// WithRand substitutes the randomness source; used by tests.
func (a *App) WithRand(rng Rand) *App {
	a.rng = rng
	return a
}

// Resolve runs one pass over the round's unresolved selections. The caller
// must already have won the SELECTION -> RESOLUTION transition (or the
// round is re-entrant in RESOLUTION).
func (a *App) Resolve(ctx context.Context, roundID uuid.UUID) (*Result, error) {
	a.inFlightMu.Lock()
	if a.inFlight[roundID] {
		a.inFlightMu.Unlock()
		return nil, apperrors.Conflictf("resolution already in progress for round %s", roundID)
	}
	a.inFlight[roundID] = true
	a.inFlightMu.Unlock()

	defer func() {
		a.inFlightMu.Lock()
		delete(a.inFlight, roundID)
		a.inFlightMu.Unlock()
	}()

	rnd, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if rnd.Status != models.RoundStatusResolution {
		return nil, apperrors.InvalidStatef("round %s is not in resolution", roundID)
	}

	selections, err := a.selections.GetSelectionsByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	groups := groupByPlayer(selections)
	result := &Result{RoundID: roundID}

	// Deterministic processing order keeps logs and events stable.
	playerIDs := make([]uuid.UUID, 0, len(groups))
	for playerID := range groups {
		playerIDs = append(playerIDs, playerID)
	}
	sort.Slice(playerIDs, func(i, j int) bool { return playerIDs[i].String() < playerIDs[j].String() })

	for _, playerID := range playerIDs {
		group := groups[playerID]
		if err := a.commitGroup(ctx, rnd, playerID, group, result); err != nil {
			return nil, fmt.Errorf("failed to commit group for player %s: %w", playerID, err)
		}
	}

	result.Clean = len(result.Conflicts) == 0 && len(result.Dropped) == 0

	log.Info().
		Str("round_id", roundID.String()).
		Int("assignments", len(result.Assignments)).
		Int("conflicts", len(result.Conflicts)).
		Int("dropped", len(result.Dropped)).
		Bool("clean", result.Clean).
		Msg("resolution pass finished")

	return result, nil
}

// commitGroup decides and commits one player group atomically.
func (a *App) commitGroup(ctx context.Context, rnd *models.Round, playerID uuid.UUID, group []models.Selection, result *Result) error {
	var winner models.Selection
	var draws map[uuid.UUID]int
	var fallback bool

	if len(group) == 1 {
		// Uncontested: wins unconditionally, no tie-break number needed.
		winner = group[0]
	} else {
		winner, draws, fallback = drawWinner(group, a.rng)
	}

	return a.tx.InTx(ctx, func(repos TxRepos) error {
		contested, err := repos.Players.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}

		// Stamp the draws on winners and losers alike for transparency.
		for _, sel := range group {
			if n, ok := draws[sel.TeamID]; ok {
				if err := repos.Selections.SetTieBreak(ctx, sel.ID, n); err != nil {
					return err
				}
			}
		}

		winningTeam, err := repos.Teams.GetTeam(ctx, winner.TeamID)
		if err != nil {
			return err
		}

		if winningTeam.Credits < contested.Price {
			// The winning pick would breach the budget: drop it, return
			// the player to the pool, surface the outcome to the admin.
			if err := repos.Selections.DeleteByID(ctx, winner.ID); err != nil {
				return err
			}
			result.Dropped = append(result.Dropped, DroppedPick{
				TeamID:   winner.TeamID,
				PlayerID: playerID,
				Reason:   fmt.Sprintf("team %s has %d credits, player costs %d", winningTeam.Name, winningTeam.Credits, contested.Price),
			})
			result.UnresolvedTeams = append(result.UnresolvedTeams, winner.TeamID)
		} else {
			if err := repos.Players.AssignPlayer(ctx, playerID, winner.TeamID); err != nil {
				return err
			}
			if err := repos.Teams.DeductCredits(ctx, winner.TeamID, contested.Price); err != nil {
				return err
			}
			if err := repos.Selections.MarkWinner(ctx, winner.ID); err != nil {
				return err
			}
			result.Assignments = append(result.Assignments, Assignment{
				SelectionID: winner.ID,
				TeamID:      winner.TeamID,
				TeamName:    winningTeam.Name,
				PlayerID:    playerID,
				PlayerName:  contested.FullName,
				Price:       contested.Price,
			})
		}

		// Losing selections are cleared so those teams can re-pick in a
		// continuation of the same round; the player pool already reflects
		// this pass's assignment.
		for _, sel := range group {
			if sel.ID == winner.ID {
				continue
			}
			if err := repos.Selections.DeleteByID(ctx, sel.ID); err != nil {
				return err
			}
			result.UnresolvedTeams = append(result.UnresolvedTeams, sel.TeamID)
			if err := repos.Outbox.InsertEvent(ctx, rnd.LeagueID, events.TeamTopic(sel.TeamID), events.TypeSelectionCleared, events.SelectionClearedPayload{
				RoundID:  rnd.ID.String(),
				TeamID:   sel.TeamID.String(),
				PlayerID: playerID.String(),
			}); err != nil {
				return err
			}
		}

		if len(group) > 1 {
			conflict := Conflict{
				PlayerID:     playerID,
				PlayerName:   contested.FullName,
				Draws:        draws,
				WinnerTeamID: winner.TeamID,
				Fallback:     fallback,
			}
			result.Conflicts = append(result.Conflicts, conflict)

			drawsByString := make(map[string]int, len(draws))
			for teamID, n := range draws {
				drawsByString[teamID.String()] = n
			}
			if err := repos.Outbox.InsertEvent(ctx, rnd.LeagueID, events.LeagueTopic(rnd.LeagueID), events.TypeConflictDetected, events.ConflictDetectedPayload{
				RoundID:    rnd.ID.String(),
				PlayerID:   playerID.String(),
				PlayerName: contested.FullName,
				Draws:      drawsByString,
				WinnerID:   winner.TeamID.String(),
				Fallback:   fallback,
			}); err != nil {
				return err
			}
		}

		return nil
	})
}

// IsInFlight reports whether a resolution pass is currently running for the
// round.
func (a *App) IsInFlight(roundID uuid.UUID) bool {
	a.inFlightMu.Lock()
	defer a.inFlightMu.Unlock()
	return a.inFlight[roundID]
}
