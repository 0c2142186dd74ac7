package api

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/internal/projects"
	"github.com/dmitrymomot/seoscope/pkg/auth"
	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/dataforseo"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/session"
)

var (
	errQuotaExceeded       = handler.HTTPError{Code: http.StatusTooManyRequests, Key: "quota_exceeded"}
	errUsageUnavailable    = handler.HTTPError{Code: http.StatusServiceUnavailable, Key: "usage_unavailable", Message: "Usage tracking is temporarily unavailable. Please try again shortly."}
	errProviderConfig      = handler.HTTPError{Code: http.StatusServiceUnavailable, Key: "provider_not_configured", Message: "The data provider is not configured."}
	errProviderFailed      = handler.HTTPError{Code: http.StatusBadGateway, Key: "provider_error"}
	errProviderUnreachable = handler.HTTPError{Code: http.StatusBadGateway, Key: "provider_unreachable", Message: "The data provider could not be reached."}
	errBillingFailed       = handler.HTTPError{Code: http.StatusBadGateway, Key: "billing_provider_error"}
)

// toHTTPError translates domain errors into client-facing HTTP errors.
// Validation errors and HTTPErrors pass through unchanged.
func toHTTPError(err error) error {
	var (
		verr  handler.ValidationError
		herr  handler.HTTPError
		qerr  *dataforseo.QuotaExceededError
		lerr  *quota.LimitError
		perr  *dataforseo.ProviderError
		bperr *billing.ProviderError
	)

	switch {
	case errors.As(err, &verr), errors.As(err, &herr):
		return err

	case errors.As(err, &qerr):
		return errQuotaExceeded.WithMessage(qerr.Error())
	case errors.As(err, &lerr):
		return errQuotaExceeded.WithMessage(lerr.Error())
	case errors.Is(err, quota.ErrPersistence):
		return errUsageUnavailable

	case errors.Is(err, dataforseo.ErrConfigurationMissing):
		return errProviderConfig
	case errors.As(err, &perr):
		msg := perr.Message
		if msg == "" {
			msg = "The data provider returned an error."
		}
		return errProviderFailed.WithMessage(msg)
	case errors.Is(err, dataforseo.ErrTransport):
		return errProviderUnreachable

	case errors.Is(err, auth.ErrInvalidCredentials):
		return handler.ErrUnauthorized.WithMessage("Invalid email or password.")
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return handler.ErrConflict.WithMessage("An account with this email already exists.")
	case errors.Is(err, auth.ErrTokenExpired):
		return handler.ErrBadRequest.WithMessage("This reset link has expired. Please request a new one.")
	case errors.Is(err, auth.ErrTokenInvalid):
		return handler.ErrBadRequest.WithMessage("This reset link is invalid or was already used.")
	case errors.Is(err, auth.ErrUserNotFound):
		return handler.ErrNotFound.WithMessage("User not found.")
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired):
		return handler.ErrUnauthorized

	case errors.Is(err, projects.ErrProjectNotFound):
		return handler.ErrNotFound.WithMessage("Project not found.")
	case errors.Is(err, projects.ErrKeywordNotFound):
		return handler.ErrNotFound.WithMessage("Keyword not found.")
	case errors.Is(err, projects.ErrProjectExists):
		return handler.ErrConflict.WithMessage("A project with this URL already exists.")
	case errors.Is(err, projects.ErrKeywordExists):
		return handler.ErrConflict.WithMessage("This keyword is already tracked.")

	case errors.Is(err, billing.ErrPlanNotPurchasable):
		return handler.ErrBadRequest.WithMessage("This plan cannot be purchased.")
	case errors.Is(err, billing.ErrAlreadySubscribed):
		return handler.ErrConflict.WithMessage("You are already subscribed to this plan.")
	case errors.Is(err, billing.ErrNoActiveSubscription):
		return handler.ErrConflict.WithMessage("You have no paid subscription to change.")
	case errors.Is(err, billing.ErrNoCustomer):
		return handler.ErrConflict.WithMessage("You have no billing account yet.")
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		return handler.ErrNotFound.WithMessage("Subscription not found.")
	case errors.Is(err, billing.ErrInvalidWebhook):
		return handler.ErrBadRequest.WithMessage("Invalid webhook.")
	case errors.As(err, &bperr):
		switch bperr.Code {
		case billing.CodeCardDeclined, billing.CodeExpiredCard, billing.CodeAuthenticationRequired:
			return handler.ErrPaymentRequired.WithMessage(bperr.Code.UserMessage())
		case billing.CodeRateLimit:
			return handler.ErrServiceUnavailable.WithMessage(bperr.Code.UserMessage())
		case billing.CodeResourceMissing, billing.CodeInvalidRequest, billing.CodeAPIError, billing.CodeUnknown:
			return errBillingFailed.WithMessage(bperr.Code.UserMessage())
		}
		return errBillingFailed.WithMessage(bperr.Code.UserMessage())
	}

	return err
}
