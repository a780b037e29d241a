package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) CreateSelection(ctx context.Context, sel models.Selection) (*models.Selection, error) {
	args := m.Called(ctx, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Selection), args.Error(1)
}

func (m *mockRepo) UpsertAdminSelection(ctx context.Context, sel models.Selection) (*models.Selection, error) {
	args := m.Called(ctx, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Selection), args.Error(1)
}

func (m *mockRepo) GetSelection(ctx context.Context, roundID, teamID uuid.UUID) (*models.Selection, error) {
	args := m.Called(ctx, roundID, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Selection), args.Error(1)
}

func (m *mockRepo) GetSelectionsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Selection, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Selection), args.Error(1)
}

func (m *mockRepo) DeleteSelection(ctx context.Context, roundID, teamID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roundID, teamID)
	return args.Bool(0), args.Error(1)
}

type mockRounds struct{ mock.Mock }

func (m *mockRounds) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

type mockTeams struct{ mock.Mock }

func (m *mockTeams) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

type mockPlayers struct{ mock.Mock }

func (m *mockPlayers) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

type mockOutbox struct{ mock.Mock }

func (m *mockOutbox) InsertEvent(ctx context.Context, leagueID uuid.UUID, topic, eventType string, payload any) error {
	args := m.Called(ctx, leagueID, topic, eventType, payload)
	return args.Error(0)
}

type fixture struct {
	repo    *mockRepo
	rounds  *mockRounds
	teams   *mockTeams
	players *mockPlayers
	outbox  *mockOutbox
	app     *App

	leagueID uuid.UUID
	round    *models.Round
	team     *models.Team
	player   *models.Player
}

func newFixture(status models.RoundStatus) *fixture {
	f := &fixture{
		repo:    &mockRepo{},
		rounds:  &mockRounds{},
		teams:   &mockTeams{},
		players: &mockPlayers{},
		outbox:  &mockOutbox{},
	}
	f.app = NewApp(f.repo, f.rounds, f.teams, f.players, f.outbox)

	f.leagueID = uuid.New()
	f.round = &models.Round{
		ID:       uuid.New(),
		LeagueID: f.leagueID,
		Position: models.PositionForward,
		Number:   1,
		Status:   status,
	}
	f.team = &models.Team{ID: uuid.New(), LeagueID: f.leagueID, Name: "Strikers", Credits: 100}
	f.player = &models.Player{ID: uuid.New(), LeagueID: f.leagueID, FullName: "Ada Striker", Position: models.PositionForward, Price: 40}
	return f
}

func (f *fixture) submitReq() SubmitRequest {
	return SubmitRequest{RoundID: f.round.ID, TeamID: f.team.ID, UserID: uuid.New(), PlayerID: f.player.ID}
}

func TestSubmit(t *testing.T) {
	f := newFixture(models.RoundStatusSelection)
	req := f.submitReq()

	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
	f.teams.On("GetTeam", mock.Anything, f.team.ID).Return(f.team, nil)
	f.players.On("GetPlayer", mock.Anything, f.player.ID).Return(f.player, nil)
	f.repo.On("CreateSelection", mock.Anything, mock.MatchedBy(func(sel models.Selection) bool {
		return sel.RoundID == f.round.ID && sel.TeamID == f.team.ID && sel.PlayerID == f.player.ID && !sel.IsWinner
	})).Return(&models.Selection{ID: uuid.New(), RoundID: f.round.ID, TeamID: f.team.ID, PlayerID: f.player.ID}, nil)
	// Full detail to the team topic, anonymized to the league topic.
	f.outbox.On("InsertEvent", mock.Anything, f.leagueID, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(2)

	sel, err := f.app.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.TeamID != f.team.ID {
		t.Errorf("selection team incorrect")
	}
	f.repo.AssertExpectations(t)
	f.outbox.AssertExpectations(t)
}

func TestSubmitValidation(t *testing.T) {
	tests := map[string]struct {
		mutate  func(f *fixture)
		wantErr error
	}{
		"wrong league team": {
			mutate:  func(f *fixture) { f.team.LeagueID = uuid.New() },
			wantErr: apperrors.ErrValidation,
		},
		"wrong league player": {
			mutate:  func(f *fixture) { f.player.LeagueID = uuid.New() },
			wantErr: apperrors.ErrValidation,
		},
		"wrong position player": {
			mutate:  func(f *fixture) { f.player.Position = models.PositionGoalkeeper },
			wantErr: apperrors.ErrValidation,
		},
		"player already assigned": {
			mutate:  func(f *fixture) { f.player.IsAssigned = true },
			wantErr: apperrors.ErrConflict,
		},
		"unaffordable player": {
			mutate:  func(f *fixture) { f.player.Price = f.team.Credits + 1 },
			wantErr: apperrors.ErrValidation,
		},
		"completed round": {
			mutate:  func(f *fixture) { f.round.Status = models.RoundStatusCompleted },
			wantErr: apperrors.ErrInvalidState,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(models.RoundStatusSelection)
			tc.mutate(f)

			f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
			f.teams.On("GetTeam", mock.Anything, f.team.ID).Return(f.team, nil)
			f.players.On("GetPlayer", mock.Anything, f.player.ID).Return(f.player, nil)

			_, err := f.app.Submit(context.Background(), f.submitReq())
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			f.repo.AssertNotCalled(t, "CreateSelection", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitDuringResolutionContinuation(t *testing.T) {
	// Teams that lost a tie-break re-pick while the round sits in RESOLUTION.
	f := newFixture(models.RoundStatusResolution)

	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
	f.teams.On("GetTeam", mock.Anything, f.team.ID).Return(f.team, nil)
	f.repo.On("GetSelection", mock.Anything, f.round.ID, f.team.ID).Return(nil, apperrors.NotFoundf("no selection"))
	f.players.On("GetPlayer", mock.Anything, f.player.ID).Return(f.player, nil)
	f.repo.On("CreateSelection", mock.Anything, mock.Anything).Return(&models.Selection{ID: uuid.New(), TeamID: f.team.ID}, nil)
	f.outbox.On("InsertEvent", mock.Anything, f.leagueID, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(2)

	if _, err := f.app.Submit(context.Background(), f.submitReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitAfterWinningRejected(t *testing.T) {
	f := newFixture(models.RoundStatusResolution)

	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
	f.teams.On("GetTeam", mock.Anything, f.team.ID).Return(f.team, nil)
	f.repo.On("GetSelection", mock.Anything, f.round.ID, f.team.ID).
		Return(&models.Selection{TeamID: f.team.ID, IsWinner: true}, nil)

	_, err := f.app.Submit(context.Background(), f.submitReq())
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
	f.repo.AssertNotCalled(t, "CreateSelection", mock.Anything, mock.Anything)
}

func TestAdminSelectCarriesReason(t *testing.T) {
	f := newFixture(models.RoundStatusSelection)
	adminID := uuid.New()

	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
	f.teams.On("GetTeam", mock.Anything, f.team.ID).Return(f.team, nil)
	f.players.On("GetPlayer", mock.Anything, f.player.ID).Return(f.player, nil)
	f.repo.On("UpsertAdminSelection", mock.Anything, mock.MatchedBy(func(sel models.Selection) bool {
		return sel.UserID == adminID && sel.AdminReason != nil && *sel.AdminReason == "team offline"
	})).Return(&models.Selection{ID: uuid.New(), TeamID: f.team.ID, AdminAssigned: true}, nil)
	f.outbox.On("InsertEvent", mock.Anything, f.leagueID, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(2)

	sel, err := f.app.AdminSelect(context.Background(), AdminSelectRequest{
		RoundID:  f.round.ID,
		TeamID:   f.team.ID,
		PlayerID: f.player.ID,
		AdminID:  adminID,
		Reason:   "team offline",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sel.AdminAssigned {
		t.Errorf("expected admin assigned selection")
	}
	f.repo.AssertExpectations(t)
}

func TestCancel(t *testing.T) {
	f := newFixture(models.RoundStatusSelection)
	sel := &models.Selection{ID: uuid.New(), RoundID: f.round.ID, TeamID: f.team.ID, PlayerID: f.player.ID}

	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
	f.repo.On("GetSelection", mock.Anything, f.round.ID, f.team.ID).Return(sel, nil)
	f.repo.On("DeleteSelection", mock.Anything, f.round.ID, f.team.ID).Return(true, nil)
	f.outbox.On("InsertEvent", mock.Anything, f.leagueID, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	if err := f.app.Cancel(context.Background(), f.round.ID, f.team.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.repo.AssertExpectations(t)
}

func TestCancelOutsideSelectionWindow(t *testing.T) {
	f := newFixture(models.RoundStatusResolution)
	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)

	err := f.app.Cancel(context.Background(), f.round.ID, f.team.ID)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
	f.repo.AssertNotCalled(t, "DeleteSelection", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelAlreadyConsumed(t *testing.T) {
	f := newFixture(models.RoundStatusSelection)
	sel := &models.Selection{ID: uuid.New(), RoundID: f.round.ID, TeamID: f.team.ID}

	f.rounds.On("GetRound", mock.Anything, f.round.ID).Return(f.round, nil)
	f.repo.On("GetSelection", mock.Anything, f.round.ID, f.team.ID).Return(sel, nil)
	f.repo.On("DeleteSelection", mock.Anything, f.round.ID, f.team.ID).Return(false, nil)

	err := f.app.Cancel(context.Background(), f.round.ID, f.team.ID)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}
