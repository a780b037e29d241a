package selection

import (
	"github.com/google/uuid"
)

// SubmitRequest represents one team's pick attempt within a round.
type SubmitRequest struct {
	RoundID  uuid.UUID `json:"round_id"`
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

// AdminSelectRequest creates or overwrites a selection on a team's behalf,
// tagged with the acting admin's reason.
type AdminSelectRequest struct {
	RoundID  uuid.UUID `json:"round_id"`
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
	AdminID  uuid.UUID `json:"admin_id"`
	Reason   string    `json:"reason"`
}
