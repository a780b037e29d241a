package models

import (
	"github.com/google/uuid"
	"time"
)

type RoundStatus string

const (
	RoundStatusSelection  RoundStatus = "SELECTION"
	RoundStatusResolution RoundStatus = "RESOLUTION"
	RoundStatusCompleted  RoundStatus = "COMPLETED"
)

// Round is one category's draft cycle. The round number is sequential per
// category within a league. A league has at most one round outside COMPLETED
// at any time; the storage layer enforces this with a partial unique index.
type Round struct {
	ID       uuid.UUID   `json:"id"`
	LeagueID uuid.UUID   `json:"league_id"`
	Position Position    `json:"position"`
	Number   int         `json:"number"`
	Status   RoundStatus `json:"status"`

	// Deadline is the selection timeout for this round, nil while paused or
	// once the round has left SELECTION/RESOLUTION. PausedRemaining holds the
	// countdown remainder while the timer is suspended.
	Deadline        *time.Time     `json:"deadline,omitempty"`
	PausedRemaining *time.Duration `json:"paused_remaining,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the round still accepts picks or resolution passes.
func (r *Round) Active() bool {
	return r.Status == RoundStatusSelection || r.Status == RoundStatusResolution
}
