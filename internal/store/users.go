package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/auth"
	"github.com/dmitrymomot/seoscope/pkg/pg"
)

// UserStore implements auth.Storage.
type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *auth.User, passwordHash []byte) error {
	query, args, err := psql.Insert("users").
		Columns("id", "email", "name", "password_hash", "created_at", "updated_at").
		Values(user.ID, user.Email, user.Name, passwordHash, user.CreatedAt, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user query: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *UserStore) getUser(ctx context.Context, column string, value any) (*auth.User, error) {
	query, args, err := psql.Select("id", "email", "name", "created_at").
		From("users").
		Where(squirrel.Eq{column: value}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user query: %w", err)
	}

	var u auth.User
	if err := s.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var hash []byte
	err := s.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select password hash: %w", err)
	}
	return hash, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error {
	query, args, err := psql.Update("users").
		Set("password_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password query: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// EmailByID returns the user's address. It backs billing notifications.
func (s *UserStore) EmailByID(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
