package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord maps a client-supplied key to the response body produced
// the first time that key was processed. A key maps to at most one response;
// the row is immutable for its retention window.
type IdempotencyRecord struct {
	ID        uuid.UUID       `json:"id"`
	Key       string          `json:"key"`
	Response  json.RawMessage `json:"response,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}
