package models

import (
	"github.com/google/uuid"
	"time"
)

type LeagueStatus string

const (
	LeagueStatusSetup     LeagueStatus = "SETUP"
	LeagueStatusAuction   LeagueStatus = "AUCTION"
	LeagueStatusCompleted LeagueStatus = "COMPLETED"
)

// LeagueSettings holds JSONB configuration for a league's auction.
type LeagueSettings struct {
	BudgetPerTeam       int              `json:"budget_per_team"`
	TimeoutSeconds      int              `json:"timeout_seconds"`
	AutoSelectOnTimeout bool             `json:"auto_select_on_timeout"`
	PauseOnDisconnect   bool             `json:"pause_on_disconnect"`
	TargetComposition   map[Position]int `json:"target_composition"`
}

// League is the aggregate root for one auction draft. It owns the teams,
// the player pool and the rounds drafted against that pool.
type League struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	AdminID   uuid.UUID      `json:"admin_id"`
	JoinCode  string         `json:"join_code"`
	Status    LeagueStatus   `json:"status"`
	Settings  LeagueSettings `json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TimeoutDuration returns the per-round selection countdown.
func (l *League) TimeoutDuration() time.Duration {
	return time.Duration(l.Settings.TimeoutSeconds) * time.Second
}
