package resolver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
)

// scriptedRand returns a fixed sequence of draws. The values are the final
// tie-break numbers, so a script entry of n-1 yields a draw of n.
type scriptedRand struct {
	values []int
	idx    int
}

func (r *scriptedRand) Intn(n int) int {
	if r.idx >= len(r.values) {
		panic("scripted rand exhausted")
	}
	v := r.values[r.idx]
	r.idx++
	return v % n
}

func sel(teamID, playerID uuid.UUID) models.Selection {
	return models.Selection{ID: uuid.New(), TeamID: teamID, PlayerID: playerID}
}

func TestGroupByPlayer(t *testing.T) {
	player1 := uuid.New()
	player2 := uuid.New()
	teamA := uuid.New()
	teamB := uuid.New()
	teamC := uuid.New()

	winner := sel(teamC, player1)
	winner.IsWinner = true

	selections := []models.Selection{
		sel(teamA, player1),
		sel(teamB, player1),
		sel(teamC, player2),
		winner,
	}

	groups := groupByPlayer(selections)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[player1]) != 2 {
		t.Errorf("expected 2 contenders for player1, got %d", len(groups[player1]))
	}
	if len(groups[player2]) != 1 {
		t.Errorf("expected 1 contender for player2, got %d", len(groups[player2]))
	}
	if groups[player1][0].TeamID != teamA || groups[player1][1].TeamID != teamB {
		t.Errorf("submission order not preserved within group")
	}
}

func TestDrawWinner(t *testing.T) {
	teamA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	teamB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	teamC := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	playerID := uuid.New()

	tests := map[string]struct {
		teams        []uuid.UUID
		script       []int
		wantWinner   uuid.UUID
		wantFallback bool
	}{
		"single contender wins without contest": {
			teams:      []uuid.UUID{teamA},
			script:     []int{499},
			wantWinner: teamA,
		},
		"highest draw wins": {
			teams:      []uuid.UUID{teamA, teamB, teamC},
			script:     []int{99, 699, 299},
			wantWinner: teamB,
		},
		"tied maximum redraws only tied subset": {
			// A and B tie at 500, C is out; redraw gives B the higher number.
			teams:      []uuid.UUID{teamA, teamB, teamC},
			script:     []int{499, 499, 99, 9, 799},
			wantWinner: teamB,
		},
		"exhausted redraws fall back to lowest team id": {
			// Two contenders tie on the initial draw and on all five redraws.
			teams:        []uuid.UUID{teamB, teamA},
			script:       []int{499, 499, 499, 499, 499, 499, 499, 499, 499, 499, 499, 499},
			wantWinner:   teamA,
			wantFallback: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			group := make([]models.Selection, len(tc.teams))
			for i, teamID := range tc.teams {
				group[i] = sel(teamID, playerID)
			}

			winner, draws, fallback := drawWinner(group, &scriptedRand{values: tc.script})
			if winner.TeamID != tc.wantWinner {
				t.Errorf("winner incorrect, wanted: %s, got: %s", tc.wantWinner, winner.TeamID)
			}
			if fallback != tc.wantFallback {
				t.Errorf("fallback incorrect, wanted: %v, got: %v", tc.wantFallback, fallback)
			}
			if len(draws) != len(tc.teams) {
				t.Errorf("expected a draw for every contender, got %d of %d", len(draws), len(tc.teams))
			}
			for teamID, d := range draws {
				if d < tieBreakMin || d > tieBreakMax {
					t.Errorf("draw for %s out of range: %d", teamID, d)
				}
			}
		})
	}
}

func TestDrawWinnerRangeWithRealRand(t *testing.T) {
	// The draw must stay inside [1, 1000] regardless of the source.
	teams := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	playerID := uuid.New()
	group := make([]models.Selection, len(teams))
	for i, teamID := range teams {
		group[i] = sel(teamID, playerID)
	}

	rng := &scriptedRand{values: []int{0, 999, 500}}
	_, draws, _ := drawWinner(group, rng)
	if draws[teams[0]] != 1 {
		t.Errorf("minimum script value should map to 1, got %d", draws[teams[0]])
	}
	if draws[teams[1]] != 1000 {
		t.Errorf("maximum script value should map to 1000, got %d", draws[teams[1]])
	}
}

func TestLowestTeamID(t *testing.T) {
	teamA := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	teamB := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	playerID := uuid.New()

	got := lowestTeamID([]models.Selection{sel(teamB, playerID), sel(teamA, playerID)})
	if got.TeamID != teamA {
		t.Errorf("expected lowest team id %s, got %s", teamA, got.TeamID)
	}
}
