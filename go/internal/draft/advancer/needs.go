package advancer

import (
	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
)

// ComputeNeeds derives each team's per-category shortfall against the
// league's target composition: need = target - owned, floored at zero.
func ComputeNeeds(teamIDs []uuid.UUID, owned map[uuid.UUID]map[models.Position]int, target map[models.Position]int) []models.TeamNeeds {
	needs := make([]models.TeamNeeds, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		teamOwned := owned[teamID]
		n := models.TeamNeeds{
			TeamID: teamID,
			Owned:  make(map[models.Position]int, len(models.PositionOrder)),
			Needs:  make(map[models.Position]int, len(models.PositionOrder)),
		}
		for _, pos := range models.PositionOrder {
			have := teamOwned[pos]
			n.Owned[pos] = have
			if want := target[pos]; want > have {
				n.Needs[pos] = want - have
			} else {
				n.Needs[pos] = 0
			}
		}
		needs = append(needs, n)
	}
	return needs
}

// GlobalNeeds sums positive per-team needs per category.
func GlobalNeeds(needs []models.TeamNeeds) map[models.Position]int {
	global := make(map[models.Position]int, len(models.PositionOrder))
	for _, n := range needs {
		for pos, v := range n.Needs {
			global[pos] += v
		}
	}
	return global
}

// NextPosition walks the fixed category priority order and returns the
// first category with both outstanding need and remaining supply. The
// second return is false when every category is exhausted and the auction
// should complete.
func NextPosition(global map[models.Position]int, supply map[models.Position]int) (models.Position, bool) {
	for _, pos := range models.PositionOrder {
		if global[pos] > 0 && supply[pos] > 0 {
			return pos, true
		}
	}
	return "", false
}
