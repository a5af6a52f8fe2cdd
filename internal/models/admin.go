package models

import "time"

// AdminSession represents an authenticated administrator login.
type AdminSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at t.
func (s *AdminSession) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
