package leagues

import (
	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
)

// CreateLeagueRequest represents the data needed to create a new league
type CreateLeagueRequest struct {
	ID       uuid.UUID             `json:"id"`
	Name     string                `json:"name"`
	AdminID  uuid.UUID             `json:"admin_id"`
	Settings models.LeagueSettings `json:"settings"`
}

// JoinLeagueRequest represents a user joining a league by code
type JoinLeagueRequest struct {
	JoinCode string    `json:"join_code"`
	UserID   uuid.UUID `json:"user_id"`
	TeamName string    `json:"team_name"`
	IsBot    bool      `json:"is_bot"`
}
