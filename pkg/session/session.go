// Package session keeps server-side login sessions addressed by an opaque
// cookie token. Stores are pluggable: in-memory for development and tests,
// Redis in production.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated browser session.
type Session struct {
	Token          string    `json:"token"`
	UserID         uuid.UUID `json:"user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// extend moves the idle expiry forward without crossing the max lifetime.
func (s *Session) extend(now time.Time, idle, maxLifetime time.Duration) {
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(idle)
	if hard := s.CreatedAt.Add(maxLifetime); hard.Before(s.ExpiresAt) {
		s.ExpiresAt = hard
	}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
