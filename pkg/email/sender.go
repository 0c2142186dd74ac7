// Package email sends transactional mail through Postmark, or writes it to
// disk during development.
package email

import (
	"context"
	"errors"

	"github.com/dmitrymomot/seoscope/pkg/validator"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email.
type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	HTML    string `json:"html" validate:"required"`
	Tag     string `json:"tag,omitempty" validate:"omitempty,max=100"`
}

// Validate checks that the message can be sent.
func (m Message) Validate() error {
	if err := validator.Struct(m); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	return nil
}
