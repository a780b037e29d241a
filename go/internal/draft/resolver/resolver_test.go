package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/draft/events"
	"github.com/mcdev12/gavel/go/internal/models"
)

type mockRoundsRepo struct{ mock.Mock }

func (m *mockRoundsRepo) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

type mockSelectionsRepo struct{ mock.Mock }

func (m *mockSelectionsRepo) GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Selection), args.Error(1)
}

type mockTxSelections struct{ mock.Mock }

func (m *mockTxSelections) SetTieBreak(ctx context.Context, id uuid.UUID, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *mockTxSelections) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTxSelections) MarkWinner(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockTxPlayers struct{ mock.Mock }

func (m *mockTxPlayers) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *mockTxPlayers) AssignPlayer(ctx context.Context, id, teamID uuid.UUID) error {
	args := m.Called(ctx, id, teamID)
	return args.Error(0)
}

type mockTxTeams struct{ mock.Mock }

func (m *mockTxTeams) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *mockTxTeams) DeductCredits(ctx context.Context, id uuid.UUID, amount int) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

type mockTxOutbox struct{ mock.Mock }

func (m *mockTxOutbox) InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error {
	args := m.Called(ctx, leagueID, topic, eventType, payload)
	return args.Error(0)
}

// stubRunner hands the commit closure the mock repositories and counts
// transactions, one per player group.
type stubRunner struct {
	repos   TxRepos
	commits int
}

func (s *stubRunner) InTx(ctx context.Context, fn func(TxRepos) error) error {
	s.commits++
	return fn(s.repos)
}

type resolverFixture struct {
	rounds       *mockRoundsRepo
	selections   *mockSelectionsRepo
	txSelections *mockTxSelections
	txPlayers    *mockTxPlayers
	txTeams      *mockTxTeams
	txOutbox     *mockTxOutbox
	runner       *stubRunner
	app          *App
}

func newResolverFixture(rng Rand) *resolverFixture {
	f := &resolverFixture{
		rounds:       &mockRoundsRepo{},
		selections:   &mockSelectionsRepo{},
		txSelections: &mockTxSelections{},
		txPlayers:    &mockTxPlayers{},
		txTeams:      &mockTxTeams{},
		txOutbox:     &mockTxOutbox{},
	}
	f.runner = &stubRunner{repos: TxRepos{
		Selections: f.txSelections,
		Players:    f.txPlayers,
		Teams:      f.txTeams,
		Outbox:     f.txOutbox,
	}}
	f.app = &App{
		rounds:     f.rounds,
		selections: f.selections,
		tx:         f.runner,
		rng:        rng,
		inFlight:   make(map[uuid.UUID]bool),
	}
	return f
}

func resolutionRound() *models.Round {
	return &models.Round{
		ID:       uuid.New(),
		LeagueID: uuid.New(),
		Position: models.PositionForward,
		Number:   1,
		Status:   models.RoundStatusResolution,
	}
}

func TestResolveUncontestedCommitsAssignment(t *testing.T) {
	f := newResolverFixture(&scriptedRand{})
	rnd := resolutionRound()
	teamID := uuid.New()
	playerID := uuid.New()
	pick := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamID, PlayerID: playerID}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{pick}, nil)
	f.txPlayers.On("GetPlayer", mock.Anything, playerID).Return(&models.Player{ID: playerID, FullName: "Mateo Quintero", Price: 40}, nil)
	f.txTeams.On("GetTeam", mock.Anything, teamID).Return(&models.Team{ID: teamID, Name: "Reds", Credits: 100}, nil)
	f.txPlayers.On("AssignPlayer", mock.Anything, playerID, teamID).Return(nil)
	f.txTeams.On("DeductCredits", mock.Anything, teamID, 40).Return(nil)
	f.txSelections.On("MarkWinner", mock.Anything, pick.ID).Return(nil)

	result, err := f.app.Resolve(context.Background(), rnd.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.Assignments))
	}
	got := result.Assignments[0]
	if got.TeamID != teamID || got.PlayerID != playerID || got.Price != 40 {
		t.Errorf("assignment incorrect: %+v", got)
	}
	if !result.Clean {
		t.Errorf("uncontested pass should be clean")
	}
	if len(result.UnresolvedTeams) != 0 {
		t.Errorf("no team should be unresolved, got %v", result.UnresolvedTeams)
	}
	if f.runner.commits != 1 {
		t.Errorf("expected 1 commit, got %d", f.runner.commits)
	}
	f.txSelections.AssertNotCalled(t, "SetTieBreak", mock.Anything, mock.Anything, mock.Anything)
	f.txPlayers.AssertExpectations(t)
	f.txTeams.AssertExpectations(t)
	f.txSelections.AssertExpectations(t)
}

func TestResolveContestedClearsLoserAndStampsDraws(t *testing.T) {
	// Final draws 100 for the first submitter, 700 for the second.
	f := newResolverFixture(&scriptedRand{values: []int{99, 699}})
	rnd := resolutionRound()
	teamA := uuid.New()
	teamB := uuid.New()
	playerID := uuid.New()
	pickA := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamA, PlayerID: playerID}
	pickB := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamB, PlayerID: playerID}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{pickA, pickB}, nil)
	f.txPlayers.On("GetPlayer", mock.Anything, playerID).Return(&models.Player{ID: playerID, FullName: "Adama Toure", Price: 46}, nil)
	f.txSelections.On("SetTieBreak", mock.Anything, pickA.ID, 100).Return(nil)
	f.txSelections.On("SetTieBreak", mock.Anything, pickB.ID, 700).Return(nil)
	f.txTeams.On("GetTeam", mock.Anything, teamB).Return(&models.Team{ID: teamB, Name: "Blues", Credits: 200}, nil)
	f.txPlayers.On("AssignPlayer", mock.Anything, playerID, teamB).Return(nil)
	f.txTeams.On("DeductCredits", mock.Anything, teamB, 46).Return(nil)
	f.txSelections.On("MarkWinner", mock.Anything, pickB.ID).Return(nil)
	f.txSelections.On("DeleteByID", mock.Anything, pickA.ID).Return(nil)
	f.txOutbox.On("InsertEvent", mock.Anything, rnd.LeagueID, events.TeamTopic(teamA), events.TypeSelectionCleared, mock.Anything).Return(nil)
	f.txOutbox.On("InsertEvent", mock.Anything, rnd.LeagueID, events.LeagueTopic(rnd.LeagueID), events.TypeConflictDetected, mock.MatchedBy(func(p events.ConflictDetectedPayload) bool {
		return p.WinnerID == teamB.String() &&
			p.Draws[teamA.String()] == 100 &&
			p.Draws[teamB.String()] == 700 &&
			!p.Fallback
	})).Return(nil)

	result, err := f.app.Resolve(context.Background(), rnd.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(result.Conflicts))
	}
	if result.Conflicts[0].WinnerTeamID != teamB {
		t.Errorf("expected team B to win the draw")
	}
	if len(result.UnresolvedTeams) != 1 || result.UnresolvedTeams[0] != teamA {
		t.Errorf("loser should be unresolved, got %v", result.UnresolvedTeams)
	}
	if result.Clean {
		t.Errorf("contested pass must not be clean")
	}
	f.txSelections.AssertExpectations(t)
	f.txPlayers.AssertExpectations(t)
	f.txTeams.AssertExpectations(t)
	f.txOutbox.AssertExpectations(t)
}

func TestResolveCreditShortfallDropsWinningPick(t *testing.T) {
	f := newResolverFixture(&scriptedRand{})
	rnd := resolutionRound()
	teamID := uuid.New()
	playerID := uuid.New()
	pick := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamID, PlayerID: playerID}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{pick}, nil)
	f.txPlayers.On("GetPlayer", mock.Anything, playerID).Return(&models.Player{ID: playerID, FullName: "Henrik Dalgaard", Price: 58}, nil)
	f.txTeams.On("GetTeam", mock.Anything, teamID).Return(&models.Team{ID: teamID, Name: "Broke FC", Credits: 10}, nil)
	f.txSelections.On("DeleteByID", mock.Anything, pick.ID).Return(nil)

	result, err := f.app.Resolve(context.Background(), rnd.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Dropped) != 1 {
		t.Fatalf("expected 1 dropped pick, got %d", len(result.Dropped))
	}
	dropped := result.Dropped[0]
	if dropped.TeamID != teamID || dropped.PlayerID != playerID {
		t.Errorf("dropped pick incorrect: %+v", dropped)
	}
	if !strings.Contains(dropped.Reason, "10 credits") {
		t.Errorf("drop reason should carry the shortfall, got %q", dropped.Reason)
	}
	if len(result.UnresolvedTeams) != 1 || result.UnresolvedTeams[0] != teamID {
		t.Errorf("dropped team should be unresolved, got %v", result.UnresolvedTeams)
	}
	if result.Clean {
		t.Errorf("a dropped pick must not leave the pass clean")
	}
	f.txPlayers.AssertNotCalled(t, "AssignPlayer", mock.Anything, mock.Anything, mock.Anything)
	f.txTeams.AssertNotCalled(t, "DeductCredits", mock.Anything, mock.Anything, mock.Anything)
	f.txSelections.AssertNotCalled(t, "MarkWinner", mock.Anything, mock.Anything)
	f.txSelections.AssertExpectations(t)
}

func TestResolveDeductionFailureAbortsCommit(t *testing.T) {
	f := newResolverFixture(&scriptedRand{})
	rnd := resolutionRound()
	teamID := uuid.New()
	playerID := uuid.New()
	pick := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamID, PlayerID: playerID}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{pick}, nil)
	f.txPlayers.On("GetPlayer", mock.Anything, playerID).Return(&models.Player{ID: playerID, Price: 40}, nil)
	f.txTeams.On("GetTeam", mock.Anything, teamID).Return(&models.Team{ID: teamID, Credits: 100}, nil)
	f.txPlayers.On("AssignPlayer", mock.Anything, playerID, teamID).Return(nil)
	f.txTeams.On("DeductCredits", mock.Anything, teamID, 40).Return(errors.New("connection reset"))

	// The deduction failing inside the transaction must surface as an
	// error; the assignment never becomes visible without it.
	if _, err := f.app.Resolve(context.Background(), rnd.ID); err == nil {
		t.Fatalf("expected the pass to fail")
	}
	f.txSelections.AssertNotCalled(t, "MarkWinner", mock.Anything, mock.Anything)
	f.txTeams.AssertExpectations(t)
}

func TestResolveEachGroupCommitsSeparately(t *testing.T) {
	f := newResolverFixture(&scriptedRand{})
	rnd := resolutionRound()
	teamA := uuid.New()
	teamB := uuid.New()
	playerX := uuid.New()
	playerY := uuid.New()
	pickA := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamA, PlayerID: playerX}
	pickB := models.Selection{ID: uuid.New(), RoundID: rnd.ID, TeamID: teamB, PlayerID: playerY}

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)
	f.selections.On("GetSelectionsByRound", mock.Anything, rnd.ID).Return([]models.Selection{pickA, pickB}, nil)
	f.txPlayers.On("GetPlayer", mock.Anything, playerX).Return(&models.Player{ID: playerX, Price: 20}, nil)
	f.txPlayers.On("GetPlayer", mock.Anything, playerY).Return(&models.Player{ID: playerY, Price: 30}, nil)
	f.txTeams.On("GetTeam", mock.Anything, teamA).Return(&models.Team{ID: teamA, Credits: 100}, nil)
	f.txTeams.On("GetTeam", mock.Anything, teamB).Return(&models.Team{ID: teamB, Credits: 100}, nil)
	f.txPlayers.On("AssignPlayer", mock.Anything, playerX, teamA).Return(nil)
	f.txPlayers.On("AssignPlayer", mock.Anything, playerY, teamB).Return(nil)
	f.txTeams.On("DeductCredits", mock.Anything, teamA, 20).Return(nil)
	f.txTeams.On("DeductCredits", mock.Anything, teamB, 30).Return(nil)
	f.txSelections.On("MarkWinner", mock.Anything, pickA.ID).Return(nil)
	f.txSelections.On("MarkWinner", mock.Anything, pickB.ID).Return(nil)

	result, err := f.app.Resolve(context.Background(), rnd.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Assignments) != 2 {
		t.Errorf("expected 2 assignments, got %d", len(result.Assignments))
	}
	if f.runner.commits != 2 {
		t.Errorf("each player group should commit alone, got %d commits", f.runner.commits)
	}
}

func TestResolveRequiresResolutionStatus(t *testing.T) {
	f := newResolverFixture(&scriptedRand{})
	rnd := resolutionRound()
	rnd.Status = models.RoundStatusSelection

	f.rounds.On("GetRound", mock.Anything, rnd.ID).Return(rnd, nil)

	_, err := f.app.Resolve(context.Background(), rnd.ID)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("expected invalid state error, got %v", err)
	}
	if f.runner.commits != 0 {
		t.Errorf("no commit should run, got %d", f.runner.commits)
	}
}

func TestResolveRejectsConcurrentPass(t *testing.T) {
	f := newResolverFixture(&scriptedRand{})
	roundID := uuid.New()
	f.app.inFlight[roundID] = true

	_, err := f.app.Resolve(context.Background(), roundID)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}
