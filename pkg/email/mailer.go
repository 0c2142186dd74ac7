package email

import (
	"context"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/seoscope/pkg/email/templates"
)

// Message tags, reported to Postmark for grouping.
const (
	TagWelcome       = "welcome"
	TagPasswordReset = "password-reset"
	TagPaymentFailed = "payment-failed"
)

// Mailer renders the application's transactional emails and hands them to a Sender.
type Mailer struct {
	sender  Sender
	baseURL string
}

// NewMailer creates a Mailer building links from baseURL.
func NewMailer(sender Sender, baseURL string) *Mailer {
	return &Mailer{sender: sender, baseURL: baseURL}
}

func (m *Mailer) SendWelcome(ctx context.Context, to string) error {
	return m.send(ctx, to, "Welcome to Seoscope", TagWelcome, templates.Welcome(m.baseURL+"/projects"))
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string, ttl time.Duration) error {
	link := m.baseURL + "/reset-password?token=" + token
	return m.send(ctx, to, "Reset your password", TagPasswordReset, templates.PasswordReset(link, ttl.String()))
}

func (m *Mailer) SendPaymentFailed(ctx context.Context, to, planName string) error {
	return m.send(ctx, to, "Your payment failed", TagPaymentFailed, templates.PaymentFailed(planName, m.baseURL+"/billing"))
}

func (m *Mailer) send(ctx context.Context, to, subject, tag string, body templ.Component) error {
	html, err := templates.Render(ctx, body)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{To: to, Subject: subject, HTML: html, Tag: tag})
}
