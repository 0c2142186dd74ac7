// Package token signs the one-off links sent by email, such as password
// resets. A token reads
//
//	<purpose>.<expires unix>.<subject>.<fingerprint>.<mac>
//
// where subject and fingerprint are base64url encoded and mac is the
// HMAC-SHA256 of everything before it. Purpose and expiry sit in the signed
// envelope itself, so a token minted for one flow never verifies in another.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const fieldCount = 5

var enc = base64.RawURLEncoding

// Claims is what a token asserts.
type Claims struct {
	Purpose string
	Subject string
	// Fingerprint ties the token to mutable subject state, such as a password
	// hash, so it stops verifying once that state changes.
	Fingerprint string
	ExpiresAt   time.Time
}

// Signer issues and verifies tokens with one secret.
type Signer struct {
	key []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Issue signs c. ExpiresAt is kept with second precision.
func (s *Signer) Issue(c Claims) (string, error) {
	if c.Purpose == "" || strings.Contains(c.Purpose, ".") {
		return "", errors.Join(ErrInvalidClaims, errors.New("purpose must be a non-empty dot-free name"))
	}
	if c.Subject == "" {
		return "", errors.Join(ErrInvalidClaims, errors.New("subject is required"))
	}
	if c.ExpiresAt.IsZero() {
		return "", errors.Join(ErrInvalidClaims, errors.New("expiry is required"))
	}

	body := strings.Join([]string{
		c.Purpose,
		strconv.FormatInt(c.ExpiresAt.Unix(), 10),
		enc.EncodeToString([]byte(c.Subject)),
		enc.EncodeToString([]byte(c.Fingerprint)),
	}, ".")
	return body + "." + enc.EncodeToString(s.mac(body)), nil
}

// Verify checks the signature first, then that the token was issued for
// purpose and has not expired at now.
func (s *Signer) Verify(tok, purpose string, now time.Time) (Claims, error) {
	fields := strings.Split(tok, ".")
	if len(fields) != fieldCount {
		return Claims{}, ErrInvalidToken
	}

	body := tok[:strings.LastIndexByte(tok, '.')]
	mac, err := enc.DecodeString(fields[4])
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	if !hmac.Equal(mac, s.mac(body)) {
		return Claims{}, ErrSignatureInvalid
	}

	expires, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	subject, err := enc.DecodeString(fields[2])
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	fp, err := enc.DecodeString(fields[3])
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}

	c := Claims{
		Purpose:     fields[0],
		Subject:     string(subject),
		Fingerprint: string(fp),
		ExpiresAt:   time.Unix(expires, 0).UTC(),
	}
	if c.Purpose != purpose {
		return Claims{}, ErrWrongPurpose
	}
	if !now.Before(c.ExpiresAt) {
		return Claims{}, ErrExpired
	}
	return c, nil
}

func (s *Signer) mac(body string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(body))
	return h.Sum(nil)
}
