package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthProvider identifies how an account was created.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Hidden from JSON responses
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is a server-side session record backing an issued access token.
// The token ID is the JWT jti claim; a token whose session row is gone or
// expired is rejected even if the signature still verifies.
type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
