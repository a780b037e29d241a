package models

import (
	"github.com/google/uuid"
	"time"
)

// AdminActionKind identifies a privileged operation in the audit log.
type AdminActionKind string

const (
	AdminActionForceResolution AdminActionKind = "FORCE_RESOLUTION"
	AdminActionCancelSelection AdminActionKind = "CANCEL_SELECTION"
	AdminActionSelect          AdminActionKind = "ADMIN_SELECT"
	AdminActionResetRound      AdminActionKind = "RESET_ROUND"
	AdminActionResetAuction    AdminActionKind = "RESET_AUCTION"
	AdminActionUnassignPlayer  AdminActionKind = "UNASSIGN_PLAYER"
	AdminActionEndAuction      AdminActionKind = "END_AUCTION"
)

// AdminAction is an append-only audit record of a privileged operation.
type AdminAction struct {
	ID       uuid.UUID       `json:"id"`
	LeagueID uuid.UUID       `json:"league_id"`
	AdminID  uuid.UUID       `json:"admin_id"`
	Kind     AdminActionKind `json:"kind"`
	RoundID  *uuid.UUID      `json:"round_id,omitempty"`
	TeamID   *uuid.UUID      `json:"team_id,omitempty"`
	PlayerID *uuid.UUID      `json:"player_id,omitempty"`
	Reason   string          `json:"reason"`

	CreatedAt time.Time `json:"created_at"`
}
