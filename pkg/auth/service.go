// Package auth implements email and password accounts: registration,
// sign-in and password reset with signed one-time tokens.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/token"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

// Service provides password authentication.
type Service struct {
	storage       Storage
	tokens        *token.Signer
	bcryptCost    int
	resetTokenTTL time.Duration
	log           *slog.Logger
	now           func() time.Time
	afterRegister func(context.Context, *User) error
	dummyHash     []byte
}

type Option func(*Service)

// WithBcryptCost sets the bcrypt cost for new hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithResetTokenTTL sets how long reset links stay valid.
func WithResetTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.resetTokenTTL = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAfterRegister runs fn in the background after each successful sign-up.
func WithAfterRegister(fn func(context.Context, *User) error) Option {
	return func(s *Service) { s.afterRegister = fn }
}

func NewService(storage Storage, tokenSecret string, opts ...Option) *Service {
	s := &Service{
		storage:       storage,
		tokens:        token.NewSigner(tokenSecret),
		bcryptCost:    bcrypt.DefaultCost,
		resetTokenTTL: time.Hour,
		log:           logger.Discard(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Compared against when the email is unknown so both paths cost a bcrypt round.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("seoscope-dummy-password"), s.bcryptCost)
	return s
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenTTL returns the validity period of reset tokens.
func (s *Service) TokenTTL() time.Duration { return s.resetTokenTTL }

// Register creates a user. Validation failures are validator.Errors.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:        uuid.New(),
		Email:     in.Email,
		Name:      in.Name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.storage.CreateUser(ctx, user, hash); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.InfoContext(ctx, "user registered", logger.UserID(user.ID), logger.Component("auth"))

	if s.afterRegister != nil {
		go s.runAfterRegister(user)
	}
	return user, nil
}

func (s *Service) runAfterRegister(user *User) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("after register hook panicked", logger.UserID(user.ID), slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.afterRegister(ctx, user); err != nil {
		s.log.Error("after register hook failed", logger.UserID(user.ID), logger.Error(err))
	}
}

// Authenticate checks credentials and returns ErrInvalidCredentials for any
// mismatch, including an unknown email.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.storage.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	hash, err := s.storage.GetPasswordHash(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// User returns the account with id.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.storage.GetUserByID(ctx, id)
}

// ForgotPassword issues a reset token. Callers should answer the same way
// whether or not the email exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	user, err := s.storage.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	hash, err := s.storage.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.resetTokenTTL).Truncate(time.Second)
	tok, err := s.tokens.Issue(token.Claims{
		Purpose:     PurposePasswordReset,
		Subject:     user.ID.String(),
		Fingerprint: fingerprint(hash),
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	return &ResetRequest{User: user, Token: tok, ExpiresAt: expiresAt}, nil
}

// ResetPassword sets a new password using a token from ForgotPassword.
// A token stops working once the password it was issued for has changed.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) (*User, error) {
	if err := validator.Var("password", newPassword, "required,password"); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Verify(resetToken, PurposePasswordReset, s.now())
	if errors.Is(err, token.ErrExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.storage.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	current, err := s.storage.GetPasswordHash(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fingerprint(current) != claims.Fingerprint {
		return nil, ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.storage.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "password reset", logger.UserID(user.ID), logger.Component("auth"))
	return user, nil
}

func fingerprint(hash []byte) string {
	sum := sha256.Sum256(hash)
	return hex.EncodeToString(sum[:8])
}
