// Package events holds the JSON payloads shared between the registration
// pipeline, the notification worker and the live feed.
package events

import (
	"time"
)

// TeamRegisteredPayload is published once per committed registration.
type TeamRegisteredPayload struct {
	TeamID       string    `json:"team_id"`
	TeamName     string    `json:"team_name"`
	ChurchName   string    `json:"church_name"`
	CaptainName  string    `json:"captain_name"`
	CaptainEmail string    `json:"captain_email"`
	PlayerCount  int       `json:"player_count"`
	RegisteredAt time.Time `json:"registered_at"`
}
