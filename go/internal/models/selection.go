package models

import (
	"github.com/google/uuid"
	"time"
)

// Selection is one team's pick within a round. At most one selection exists
// per (round, team); the storage layer enforces this with a unique
// constraint so concurrent submissions cannot double-pick.
type Selection struct {
	ID       uuid.UUID `json:"id"`
	RoundID  uuid.UUID `json:"round_id"`
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	PlayerID uuid.UUID `json:"player_id"`

	// TieBreak is the random draw stamped during resolution. It is set on
	// every selection of a contested group, winners and losers alike, and
	// stays nil for uncontested picks.
	TieBreak *int `json:"tie_break,omitempty"`

	IsWinner      bool    `json:"is_winner"`
	AdminAssigned bool    `json:"admin_assigned"`
	AdminReason   *string `json:"admin_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
