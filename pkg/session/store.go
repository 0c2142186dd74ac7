package session

import (
	"context"

	"github.com/google/uuid"
)

// Store persists sessions by token.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	// DeleteByUser drops every session of the user, used after a password reset.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
