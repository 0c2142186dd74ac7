package auth

import (
	"time"

	"github.com/google/uuid"
)

// PurposePasswordReset tags password reset tokens.
const PurposePasswordReset = "password_reset"

// User is an account that signs in with email and password.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterInput carries sign-up form fields.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

// ResetRequest is returned by ForgotPassword for delivery by email.
type ResetRequest struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
