package auth

import (
	"context"

	"github.com/google/uuid"
)

// Storage persists users and their password hashes.
// CreateUser returns ErrEmailAlreadyExists on a duplicate email and lookups
// return ErrUserNotFound when nothing matches.
type Storage interface {
	CreateUser(ctx context.Context, user *User, passwordHash []byte) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error
}
