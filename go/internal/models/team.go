package models

import (
	"github.com/google/uuid"
	"time"
)

// Team belongs to exactly one league and one controlling user. Bot teams
// are drafted for by the auto-pick strategy instead of a human.
type Team struct {
	ID        uuid.UUID `json:"id"`
	LeagueID  uuid.UUID `json:"league_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Credits   int       `json:"credits"` // remaining balance, never negative
	IsBot     bool      `json:"is_bot"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamNeeds is a team's per-category shortfall against the league's target
// composition: need = target - owned, floored at zero.
type TeamNeeds struct {
	TeamID uuid.UUID        `json:"team_id"`
	Owned  map[Position]int `json:"owned"`
	Needs  map[Position]int `json:"needs"`
}

// Total returns the sum of all per-category needs.
func (n TeamNeeds) Total() int {
	total := 0
	for _, v := range n.Needs {
		total += v
	}
	return total
}
