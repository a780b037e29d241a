package models

import (
	"time"

	"github.com/google/uuid"
)

// Position is the category a player is drafted under.
type Position string

const (
	PositionGoalkeeper Position = "GOALKEEPER"
	PositionDefender   Position = "DEFENDER"
	PositionMidfielder Position = "MIDFIELDER"
	PositionForward    Position = "FORWARD"
)

// PositionOrder is the fixed priority in which categories are drafted.
var PositionOrder = []Position{
	PositionGoalkeeper,
	PositionDefender,
	PositionMidfielder,
	PositionForward,
}

// Valid reports whether p is one of the four draftable categories.
func (p Position) Valid() bool {
	switch p {
	case PositionGoalkeeper, PositionDefender, PositionMidfielder, PositionForward:
		return true
	}
	return false
}

// Player is a draftable item in a league's pool. Price is fixed at import
// time; there is no bidding price discovery. Assignment is cleared only by
// admin removal or a full auction reset.
type Player struct {
	ID         uuid.UUID  `json:"id"`
	LeagueID   uuid.UUID  `json:"league_id"`
	FullName   string     `json:"full_name"`
	Position   Position   `json:"position"`
	Price      int        `json:"price"`
	IsAssigned bool       `json:"is_assigned"`
	TeamID     *uuid.UUID `json:"team_id,omitempty"` // nil until assigned
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
