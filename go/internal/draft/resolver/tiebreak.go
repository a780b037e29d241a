package resolver

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
)

// Tie-break numbers are drawn uniformly from [tieBreakMin, tieBreakMax].
// The range is wide relative to the realistic number of simultaneous
// contenders, so a full re-draw loop is rare; redraws are bounded and the
// policy fallback is deterministic rather than a silent hang.
const (
	tieBreakMin = 1
	tieBreakMax = 1000
	maxRedraws  = 5
)

// Rand is the randomness source for tie-break draws. math/rand's *Rand
// satisfies it; tests substitute a scripted sequence.
type Rand interface {
	Intn(n int) int
}

// groupByPlayer buckets unresolved selections by contested player,
// preserving submission order within each bucket.
func groupByPlayer(selections []models.Selection) map[uuid.UUID][]models.Selection {
	groups := make(map[uuid.UUID][]models.Selection)
	for _, sel := range selections {
		if sel.IsWinner {
			continue
		}
		groups[sel.PlayerID] = append(groups[sel.PlayerID], sel)
	}
	return groups
}

// drawWinner decides a contested group. Every selection gets an independent
// uniform draw; the maximum wins. A tied maximum re-draws only the tied
// subset, up to maxRedraws; if the bound is exhausted the lowest team id
// among the remaining contenders wins and fallback is reported.
func drawWinner(group []models.Selection, rng Rand) (winner models.Selection, draws map[uuid.UUID]int, fallback bool) {
	draws = make(map[uuid.UUID]int, len(group))

	contenders := make([]models.Selection, len(group))
	copy(contenders, group)

	for _, sel := range contenders {
		draws[sel.TeamID] = tieBreakMin + rng.Intn(tieBreakMax-tieBreakMin+1)
	}

	for redraw := 0; ; redraw++ {
		tied := topTied(contenders, draws)
		if len(tied) == 1 {
			return tied[0], draws, false
		}
		if redraw >= maxRedraws {
			return lowestTeamID(tied), draws, true
		}
		// Re-draw only the tied subset.
		contenders = tied
		for _, sel := range contenders {
			draws[sel.TeamID] = tieBreakMin + rng.Intn(tieBreakMax-tieBreakMin+1)
		}
	}
}

// topTied returns the selections holding the current maximum draw.
func topTied(contenders []models.Selection, draws map[uuid.UUID]int) []models.Selection {
	max := tieBreakMin - 1
	for _, sel := range contenders {
		if d := draws[sel.TeamID]; d > max {
			max = d
		}
	}
	var tied []models.Selection
	for _, sel := range contenders {
		if draws[sel.TeamID] == max {
			tied = append(tied, sel)
		}
	}
	return tied
}

// lowestTeamID is the deterministic policy fallback: lexicographically
// smallest team UUID wins.
func lowestTeamID(tied []models.Selection) models.Selection {
	sorted := make([]models.Selection, len(tied))
	copy(sorted, tied)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TeamID.String() < sorted[j].TeamID.String()
	})
	return sorted[0]
}
