package resolver

import (
	"github.com/google/uuid"
)

// Assignment is one committed player-to-team assignment: the player marked
// assigned, the credits deducted and the selection flagged winner, all in
// one transaction.
type Assignment struct {
	SelectionID uuid.UUID `json:"selection_id"`
	TeamID      uuid.UUID `json:"team_id"`
	TeamName    string    `json:"team_name"`
	PlayerID    uuid.UUID `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	Price       int       `json:"price"`
}

// Conflict reports one contested player group and how it was decided.
type Conflict struct {
	PlayerID     uuid.UUID         `json:"player_id"`
	PlayerName   string            `json:"player_name"`
	Draws        map[uuid.UUID]int `json:"draws"` // team id -> final tie-break number
	WinnerTeamID uuid.UUID         `json:"winner_team_id"`
	// Fallback is set when the bounded re-draws never produced a unique
	// maximum and the winner was chosen by lowest team id instead.
	Fallback bool `json:"fallback,omitempty"`
}

// DroppedPick is a winning pick invalidated at commit time, surfaced to the
// admin. The player returns to the pool.
type DroppedPick struct {
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
	Reason   string    `json:"reason"`
}

// Result summarizes one resolution pass over a round.
type Result struct {
	RoundID     uuid.UUID     `json:"round_id"`
	Assignments []Assignment  `json:"assignments"`
	Conflicts   []Conflict    `json:"conflicts"`
	Dropped     []DroppedPick `json:"dropped,omitempty"`

	// UnresolvedTeams lost a tie-break (or had their pick dropped) this
	// pass; their selections were cleared so they can re-pick in a
	// continuation of the same round.
	UnresolvedTeams []uuid.UUID `json:"unresolved_teams,omitempty"`

	// Clean is true when the pass produced no new conflicts and dropped
	// nothing: the round has no remaining contention and may complete.
	Clean bool `json:"clean"`
}
