package session

import "time"

// EndResponse is returned when a caller ends a session.
type EndResponse struct {
	SessionID      string    `json:"session_id"`
	Status         Status    `json:"status"`
	Turns          int       `json:"turns"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
