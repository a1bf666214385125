package models

import (
	"time"
)

// PlayerRole defines a player's position on the squad.
type PlayerRole string

const (
	PlayerRoleBatsman      PlayerRole = "batsman"
	PlayerRoleBowler       PlayerRole = "bowler"
	PlayerRoleAllRounder   PlayerRole = "all-rounder"
	PlayerRoleWicketKeeper PlayerRole = "wicket-keeper"
)

// Valid reports whether the role is one of the four allowed values.
func (r PlayerRole) Valid() bool {
	switch r {
	case PlayerRoleBatsman, PlayerRoleBowler, PlayerRoleAllRounder, PlayerRoleWicketKeeper:
		return true
	}
	return false
}

// Roster size limits enforced before any persistence happens.
const (
	MinSquadSize = 11
	MaxSquadSize = 15
)

// Player represents one roster entry. The ID derives from the parent team ID
// plus the player's 1-based position (e.g. "CYT-0042-P01"). Player rows are
// created and deleted atomically with their team.
type Player struct {
	ID              string     `json:"id"`
	TeamID          string     `json:"team_id"`
	Name            string     `json:"name"`
	Age             int        `json:"age"`
	Phone           string     `json:"phone"`
	Role            PlayerRole `json:"role"`
	JerseyNumber    string     `json:"jersey_number"`
	AadharURL       *string    `json:"aadhar_url,omitempty"`
	SubscriptionURL *string    `json:"subscription_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
