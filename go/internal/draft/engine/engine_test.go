package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/resolver"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/models"
)

type mockLeagues struct{ mock.Mock }

func (m *mockLeagues) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.League), args.Error(1)
}

func (m *mockLeagues) StartAuction(ctx context.Context, id uuid.UUID) (*models.League, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.League), args.Error(1)
}

type mockTeams struct{ mock.Mock }

func (m *mockTeams) GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error) {
	args := m.Called(ctx, leagueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Team), args.Error(1)
}

type mockPlayers struct{ mock.Mock }

func (m *mockPlayers) RemainingSupply(ctx context.Context, leagueID uuid.UUID) (map[models.Position]int, error) {
	args := m.Called(ctx, leagueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Position]int), args.Error(1)
}

type mockRounds struct{ mock.Mock }

func (m *mockRounds) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *mockRounds) GetCurrentRound(ctx context.Context, leagueID uuid.UUID) (*models.Round, error) {
	args := m.Called(ctx, leagueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *mockRounds) BeginResolution(ctx context.Context, id uuid.UUID, trigger round.Trigger) (bool, error) {
	args := m.Called(ctx, id, trigger)
	return args.Bool(0), args.Error(1)
}

func (m *mockRounds) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRounds) RearmDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	args := m.Called(ctx, id, deadline)
	return args.Error(0)
}

type mockSelections struct{ mock.Mock }

func (m *mockSelections) Submit(ctx context.Context, req selection.SubmitRequest) (*models.Selection, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Selection), args.Error(1)
}

func (m *mockSelections) GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Selection), args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, roundID uuid.UUID) (*resolver.Result, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resolver.Result), args.Error(1)
}

type mockAdvancer struct{ mock.Mock }

func (m *mockAdvancer) Advance(ctx context.Context, leagueID uuid.UUID, previousRoundID uuid.UUID) (*models.Round, error) {
	args := m.Called(ctx, leagueID, previousRoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *mockAdvancer) TeamNeeds(ctx context.Context, league *models.League) ([]models.TeamNeeds, error) {
	args := m.Called(ctx, league)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TeamNeeds), args.Error(1)
}

type mockBots struct{ mock.Mock }

func (m *mockBots) FillBots(ctx context.Context, league *models.League, rnd *models.Round) (int, error) {
	args := m.Called(ctx, league, rnd)
	return args.Int(0), args.Error(1)
}

func (m *mockBots) FillMissing(ctx context.Context, league *models.League, rnd *models.Round) (int, error) {
	args := m.Called(ctx, league, rnd)
	return args.Int(0), args.Error(1)
}

type mockOutbox struct{ mock.Mock }

func (m *mockOutbox) InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error {
	args := m.Called(ctx, leagueID, topic, eventType, payload)
	return args.Error(0)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixture struct {
	leagues    *mockLeagues
	teams      *mockTeams
	players    *mockPlayers
	rounds     *mockRounds
	selections *mockSelections
	resolver   *mockResolver
	advancer   *mockAdvancer
	bots       *mockBots
	outbox     *mockOutbox
	clock      fixedClock
	app        *App
}

func newFixture() *fixture {
	f := &fixture{
		leagues:    &mockLeagues{},
		teams:      &mockTeams{},
		players:    &mockPlayers{},
		rounds:     &mockRounds{},
		selections: &mockSelections{},
		resolver:   &mockResolver{},
		advancer:   &mockAdvancer{},
		bots:       &mockBots{},
		outbox:     &mockOutbox{},
		clock:      fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.app = NewApp(f.leagues, f.teams, f.players, f.rounds, f.selections,
		f.resolver, f.advancer, f.bots, f.outbox, f.clock)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.leagues.AssertExpectations(t)
	f.teams.AssertExpectations(t)
	f.players.AssertExpectations(t)
	f.rounds.AssertExpectations(t)
	f.selections.AssertExpectations(t)
	f.resolver.AssertExpectations(t)
	f.advancer.AssertExpectations(t)
	f.bots.AssertExpectations(t)
}

func testLeague(timeoutSeconds int) *models.League {
	return &models.League{
		ID:     uuid.New(),
		Name:   "Test League",
		Status: models.LeagueStatusAuction,
		Settings: models.LeagueSettings{
			BudgetPerTeam:       500,
			TimeoutSeconds:      timeoutSeconds,
			AutoSelectOnTimeout: true,
			TargetComposition: map[models.Position]int{
				models.PositionDefender: 2,
			},
		},
	}
}

func testRound(leagueID uuid.UUID, status models.RoundStatus) *models.Round {
	return &models.Round{
		ID:       uuid.New(),
		LeagueID: leagueID,
		Position: models.PositionDefender,
		Number:   1,
		Status:   status,
	}
}

func needsFor(teams []models.Team, need int) []models.TeamNeeds {
	needs := make([]models.TeamNeeds, len(teams))
	for i, tm := range teams {
		needs[i] = models.TeamNeeds{
			TeamID: tm.ID,
			Needs:  map[models.Position]int{models.PositionDefender: need},
		}
	}
	return needs
}

func TestSubmitLastPickResolvesAndCompletes(t *testing.T) {
	f := newFixture()
	league := testLeague(0)
	rnd := testRound(league.ID, models.RoundStatusSelection)

	human := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Humans"}
	bot := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Bot", IsBot: true}
	teams := []models.Team{human, bot}

	req := selection.SubmitRequest{RoundID: rnd.ID, TeamID: human.ID, UserID: uuid.New(), PlayerID: uuid.New()}
	sel := &models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: human.ID, PlayerID: req.PlayerID}

	f.selections.On("Submit", mock.Anything, req).Return(sel, nil)
	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.leagues.On("GetLeague", mock.Anything, league.ID).Return(league, nil)

	// Fullness check: the only human team now holds a pending pick.
	f.teams.On("GetTeamsByLeague", mock.Anything, league.ID).Return(teams, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{*sel}, nil)
	f.advancer.On("TeamNeeds", mock.Anything, league).Return(needsFor(teams, 1), nil)

	f.rounds.On("BeginResolution", mock.Anything, rnd.ID, round.TriggerFull).Return(true, nil)
	f.resolver.On("Resolve", mock.Anything, rnd.ID).Return(&resolver.Result{
		RoundID: rnd.ID,
		Assignments: []resolver.Assignment{
			{SelectionID: sel.ID, TeamID: human.ID, PlayerID: req.PlayerID, Price: 10},
		},
		Clean: true,
	}, nil)
	f.outbox.On("InsertEvent", mock.Anything, league.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.rounds.On("Complete", mock.Anything, rnd.ID).Return(true, nil)
	f.advancer.On("Advance", mock.Anything, league.ID, rnd.ID).Return(nil, nil)

	got, err := f.app.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != sel.ID {
		t.Errorf("returned selection incorrect")
	}
	f.assertExpectations(t)
}

func TestSubmitNotFullDoesNotResolve(t *testing.T) {
	f := newFixture()
	league := testLeague(0)
	rnd := testRound(league.ID, models.RoundStatusSelection)

	teamA := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "A"}
	teamB := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "B"}
	teams := []models.Team{teamA, teamB}

	req := selection.SubmitRequest{RoundID: rnd.ID, TeamID: teamA.ID, UserID: uuid.New(), PlayerID: uuid.New()}
	sel := &models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamA.ID}

	f.selections.On("Submit", mock.Anything, req).Return(sel, nil)
	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.leagues.On("GetLeague", mock.Anything, league.ID).Return(league, nil)
	f.teams.On("GetTeamsByLeague", mock.Anything, league.ID).Return(teams, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{*sel}, nil)
	f.advancer.On("TeamNeeds", mock.Anything, league).Return(needsFor(teams, 1), nil)

	if _, err := f.app.Submit(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.rounds.AssertNotCalled(t, "BeginResolution", mock.Anything, mock.Anything, mock.Anything)
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestRoundFullIgnoresSatisfiedAndWinningTeams(t *testing.T) {
	f := newFixture()
	league := testLeague(0)
	rnd := testRound(league.ID, models.RoundStatusResolution)

	winner := models.Team{ID: uuid.New(), Name: "Winner"}
	satisfied := models.Team{ID: uuid.New(), Name: "Satisfied"}
	loser := models.Team{ID: uuid.New(), Name: "Loser"}
	teams := []models.Team{winner, satisfied, loser}

	f.teams.On("GetTeamsByLeague", mock.Anything, league.ID).Return(teams, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{
		{TeamID: winner.ID, IsWinner: true},
		{TeamID: loser.ID},
	}, nil)
	f.advancer.On("TeamNeeds", mock.Anything, league).Return([]models.TeamNeeds{
		{TeamID: winner.ID, Needs: map[models.Position]int{models.PositionDefender: 1}},
		{TeamID: satisfied.ID, Needs: map[models.Position]int{models.PositionDefender: 0}},
		{TeamID: loser.ID, Needs: map[models.Position]int{models.PositionDefender: 1}},
	}, nil)

	full, err := f.app.roundFull(context.Background(), league, rnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !full {
		t.Errorf("winner and satisfied team must not gate fullness")
	}
	f.assertExpectations(t)
}

func TestRoundFullFalseOnCompletedRound(t *testing.T) {
	f := newFixture()
	league := testLeague(0)
	rnd := testRound(league.ID, models.RoundStatusCompleted)

	full, err := f.app.roundFull(context.Background(), league, rnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full {
		t.Errorf("completed round can never be full")
	}
}

func TestForceResolutionTimeoutFillsMissingPicks(t *testing.T) {
	f := newFixture()
	league := testLeague(60)
	rnd := testRound(league.ID, models.RoundStatusSelection)

	loser := models.Team{ID: uuid.New(), Name: "Slow"}
	teams := []models.Team{loser}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.leagues.On("GetLeague", mock.Anything, league.ID).Return(league, nil)
	f.bots.On("FillMissing", mock.Anything, league, rnd).Return(1, nil)
	f.rounds.On("BeginResolution", mock.Anything, rnd.ID, round.TriggerTimeout).Return(true, nil)

	// One pass: the pick loses a tie-break and the round waits for a re-pick.
	f.resolver.On("Resolve", mock.Anything, rnd.ID).Return(&resolver.Result{
		RoundID:         rnd.ID,
		UnresolvedTeams: []uuid.UUID{loser.ID},
	}, nil)
	f.players.On("RemainingSupply", mock.Anything, league.ID).Return(map[models.Position]int{models.PositionDefender: 3}, nil)
	f.outbox.On("InsertEvent", mock.Anything, league.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.rounds.On("RearmDeadline", mock.Anything, rnd.ID, f.clock.now.Add(60*time.Second)).Return(nil)
	f.bots.On("FillBots", mock.Anything, league, rnd).Return(0, nil)

	// Continuation fullness check: loser has no live pick yet.
	f.teams.On("GetTeamsByLeague", mock.Anything, league.ID).Return(teams, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{}, nil)
	f.advancer.On("TeamNeeds", mock.Anything, league).Return(needsFor(teams, 1), nil)

	if err := f.app.ForceResolution(context.Background(), rnd.ID, round.TriggerTimeout); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.rounds.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestForceResolutionTimeoutAutoPicksOnContinuation(t *testing.T) {
	f := newFixture()
	league := testLeague(60)
	rnd := testRound(league.ID, models.RoundStatusResolution)

	slow := models.Team{ID: uuid.New(), LeagueID: league.ID, Name: "Slow"}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.leagues.On("GetLeague", mock.Anything, league.ID).Return(league, nil)

	// The continuation deadline expired with a hole: the tie-break loser
	// never re-picked, so auto-select fills for it before the pass.
	f.bots.On("FillMissing", mock.Anything, league, rnd).Return(1, nil)

	f.resolver.On("Resolve", mock.Anything, rnd.ID).Return(&resolver.Result{
		RoundID: rnd.ID,
		Assignments: []resolver.Assignment{
			{SelectionID: uuid.New(), TeamID: slow.ID, PlayerID: uuid.New(), Price: 15},
		},
		Clean: true,
	}, nil)
	f.outbox.On("InsertEvent", mock.Anything, league.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.rounds.On("Complete", mock.Anything, rnd.ID).Return(true, nil)
	f.advancer.On("Advance", mock.Anything, league.ID, rnd.ID).Return(nil, nil)

	if err := f.app.ForceResolution(context.Background(), rnd.ID, round.TriggerTimeout); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.rounds.AssertNotCalled(t, "BeginResolution", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestForceResolutionTimeoutNoopsOnCompletedRound(t *testing.T) {
	f := newFixture()
	league := testLeague(60)
	rnd := testRound(league.ID, models.RoundStatusCompleted)

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.leagues.On("GetLeague", mock.Anything, league.ID).Return(league, nil)

	if err := f.app.ForceResolution(context.Background(), rnd.ID, round.TriggerTimeout); err != nil {
		t.Fatalf("timeout on a finished round must be silent, got: %v", err)
	}
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestForceResolutionForcedErrorsOnCompletedRound(t *testing.T) {
	f := newFixture()
	league := testLeague(60)
	rnd := testRound(league.ID, models.RoundStatusCompleted)

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.leagues.On("GetLeague", mock.Anything, league.ID).Return(league, nil)

	err := f.app.ForceResolution(context.Background(), rnd.ID, round.TriggerForced)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("expected invalid state error, got %v", err)
	}
	f.assertExpectations(t)
}

func TestRunResolutionCompletesWhenSupplyExhausted(t *testing.T) {
	f := newFixture()
	league := testLeague(0)
	rnd := testRound(league.ID, models.RoundStatusResolution)
	loser := uuid.New()

	f.resolver.On("Resolve", mock.Anything, rnd.ID).Return(&resolver.Result{
		RoundID:         rnd.ID,
		UnresolvedTeams: []uuid.UUID{loser},
	}, nil)
	f.players.On("RemainingSupply", mock.Anything, league.ID).Return(map[models.Position]int{models.PositionDefender: 0}, nil)
	f.outbox.On("InsertEvent", mock.Anything, league.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.rounds.On("Complete", mock.Anything, rnd.ID).Return(true, nil)
	f.advancer.On("Advance", mock.Anything, league.ID, rnd.ID).Return(nil, nil)

	if err := f.app.runResolution(context.Background(), league, rnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.rounds.AssertNotCalled(t, "RearmDeadline", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCompleteAndAdvanceLostRaceReturns(t *testing.T) {
	f := newFixture()
	league := testLeague(0)
	rnd := testRound(league.ID, models.RoundStatusResolution)

	f.rounds.On("Complete", mock.Anything, rnd.ID).Return(false, nil)

	if err := f.app.completeAndAdvance(context.Background(), league, rnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.advancer.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestStartAuctionRequiresTeams(t *testing.T) {
	f := newFixture()
	leagueID := uuid.New()

	f.teams.On("GetTeamsByLeague", mock.Anything, leagueID).Return([]models.Team{}, nil)

	_, err := f.app.StartAuction(context.Background(), leagueID)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	f.leagues.AssertNotCalled(t, "StartAuction", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}
