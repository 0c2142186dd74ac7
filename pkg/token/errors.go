package token

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrSignatureInvalid = errors.New("signature mismatch")
	ErrExpired          = errors.New("token expired")
	ErrWrongPurpose     = errors.New("token issued for a different purpose")
)
