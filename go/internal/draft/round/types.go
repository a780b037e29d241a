package round

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
)

// CreateRoundRequest represents a request to open a new round
type CreateRoundRequest struct {
	ID       uuid.UUID       `json:"id"`
	LeagueID uuid.UUID       `json:"league_id"`
	Position models.Position `json:"position"`
	Number   int             `json:"number"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// Trigger identifies who requested a SELECTION -> RESOLUTION transition.
// All three funnel through the same transition path.
type Trigger string

const (
	TriggerFull    Trigger = "FULL"
	TriggerForced  Trigger = "FORCED"
	TriggerTimeout Trigger = "TIMEOUT"
)

// NextDeadline is the soonest round deadline across all active leagues,
// consumed by the orchestrator's scheduler loop.
type NextDeadline struct {
	RoundID  uuid.UUID  `json:"round_id"`
	Deadline *time.Time `json:"deadline"`
}
