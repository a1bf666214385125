package models

import (
	"time"
)

// Contact holds the reachable details for a team official.
type Contact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
}

// Team represents one registered squad. The ID is assigned once at creation
// and never changes; the registration pipeline never mutates a team after
// its creating transaction commits.
type Team struct {
	ID              string    `json:"id"`
	TeamName        string    `json:"team_name"`
	ChurchName      string    `json:"church_name"`
	Captain         Contact   `json:"captain"`
	ViceCaptain     Contact   `json:"vice_captain"`
	PastorLetterURL *string   `json:"pastor_letter_url,omitempty"`
	ReceiptURL      *string   `json:"receipt_url,omitempty"`
	GroupPhotoURL   *string   `json:"group_photo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
