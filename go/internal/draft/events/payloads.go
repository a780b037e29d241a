package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the auction engine. Pick events have two payload
// shapes: the full variant goes to the acting team's private topic, the
// anonymized variant to the league's shared auction topic.
const (
	TypeRoundStarted     = "RoundStarted"
	TypeSelectionMade    = "SelectionMade"
	TypeSelectionCleared = "SelectionCleared"
	TypeConflictDetected = "ConflictDetected"
	TypeRoundResolved    = "RoundResolved"
	TypeRoundAdvanced    = "RoundAdvanced"
	TypeAuctionCompleted = "AuctionCompleted"
	TypeAdminAction      = "AdminAction"
	TypeTimerPaused      = "TimerPaused"
	TypeTimerResumed     = "TimerResumed"
)

// LeagueTopic is the shared auction subject for a league.
func LeagueTopic(leagueID uuid.UUID) string {
	return "auction.league." + leagueID.String()
}

// TeamTopic is the private subject for one team.
func TeamTopic(teamID uuid.UUID) string {
	return "auction.team." + teamID.String()
}

// RoundStartedPayload announces a round entering SELECTION.
type RoundStartedPayload struct {
	RoundID   string     `json:"round_id"`
	Position  string     `json:"position"`
	Number    int        `json:"number"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	StartedAt time.Time  `json:"started_at"`
}

// SelectionMadePayload is the full-detail variant, visible only to the
// acting team.
type SelectionMadePayload struct {
	RoundID    string    `json:"round_id"`
	TeamID     string    `json:"team_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Price      int       `json:"price"`
	MadeAt     time.Time `json:"made_at"`
}

// SelectionAnnouncedPayload is the anonymized variant broadcast to the
// league topic: it says that a team picked, never what.
type SelectionAnnouncedPayload struct {
	RoundID  string    `json:"round_id"`
	TeamID   string    `json:"team_id"`
	TeamName string    `json:"team_name"`
	MadeAt   time.Time `json:"made_at"`
}

// SelectionClearedPayload tells a losing team its pick was released for a
// continuation pass.
type SelectionClearedPayload struct {
	RoundID  string `json:"round_id"`
	TeamID   string `json:"team_id"`
	PlayerID string `json:"player_id"`
}

// ConflictDetectedPayload reports a contested player group and the draws.
type ConflictDetectedPayload struct {
	RoundID    string            `json:"round_id"`
	PlayerID   string            `json:"player_id"`
	PlayerName string            `json:"player_name"`
	Draws      map[string]int    `json:"draws"` // team id -> tie-break number
	WinnerID   string            `json:"winner_id"`
	Fallback   bool              `json:"fallback,omitempty"` // tie-break retries exhausted
}

// AssignmentPayload is one committed player assignment.
type AssignmentPayload struct {
	TeamID     string `json:"team_id"`
	TeamName   string `json:"team_name"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Price      int    `json:"price"`
}

// RoundResolvedPayload summarizes one resolution pass.
type RoundResolvedPayload struct {
	RoundID     string              `json:"round_id"`
	Assignments []AssignmentPayload `json:"assignments"`
	Dropped     []string            `json:"dropped,omitempty"` // team ids dropped for insufficient credit
	Unresolved  []string            `json:"unresolved,omitempty"`
	Completed   bool                `json:"completed"`
	ResolvedAt  time.Time           `json:"resolved_at"`
}

// RoundAdvancedPayload announces the next round after completion.
type RoundAdvancedPayload struct {
	PreviousRoundID string `json:"previous_round_id"`
	RoundID         string `json:"round_id"`
	Position        string `json:"position"`
	Number          int    `json:"number"`
}

// AuctionCompletedPayload announces the league reaching COMPLETED.
type AuctionCompletedPayload struct {
	LeagueID    string    `json:"league_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// AdminActionPayload mirrors the audit record for the league topic.
type AdminActionPayload struct {
	LeagueID string `json:"league_id"`
	Kind     string `json:"kind"`
	RoundID  string `json:"round_id,omitempty"`
	TeamID   string `json:"team_id,omitempty"`
	Reason   string `json:"reason"`
}

// TimerPayload carries pause/resume notifications for the round countdown.
type TimerPayload struct {
	RoundID   string     `json:"round_id"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Remaining string     `json:"remaining,omitempty"`
}
