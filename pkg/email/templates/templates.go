// Package templates renders transactional email bodies.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Render renders a component into a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+
			`</title></head><body style="font-family:Arial,sans-serif;color:#1f2937;max-width:560px;margin:0 auto;padding:24px">`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p style="color:#6b7280;font-size:12px;margin-top:32px">Seoscope</p></body></html>`)
		return err
	})
}

func button(href, label string) string {
	return `<p><a href="` + templ.EscapeString(href) +
		`" style="display:inline-block;background:#2563eb;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none">` +
		templ.EscapeString(label) + `</a></p>`
}

func html(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// Welcome greets a newly registered user.
func Welcome(dashboardURL string) templ.Component {
	return layout("Welcome to Seoscope", html(
		`<h1>Welcome to Seoscope</h1>`+
			`<p>Your account is ready on the Free plan. Import a project to start tracking keywords.</p>`+
			button(dashboardURL, "Open dashboard"),
	))
}

// PasswordReset carries a one-time reset link.
func PasswordReset(resetURL string, validFor string) templ.Component {
	return layout("Reset your password", html(
		`<h1>Reset your password</h1>`+
			`<p>Someone asked to reset the password for your account. The link is valid for `+templ.EscapeString(validFor)+`.</p>`+
			button(resetURL, "Choose a new password")+
			`<p>If you did not ask for this, you can ignore this email.</p>`,
	))
}

// PaymentFailed asks the user to update their card.
func PaymentFailed(planName, billingURL string) templ.Component {
	return layout("Payment failed", html(
		`<h1>We could not charge your card</h1>`+
			`<p>The latest payment for your `+templ.EscapeString(planName)+` subscription failed. `+
			`Update your payment method to keep your plan limits.</p>`+
			button(billingURL, "Update payment method"),
	))
}
