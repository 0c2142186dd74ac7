package billing

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrNoActiveSubscription = errors.New("billing: no paid subscription to change")
	ErrNoCustomer           = errors.New("billing: user has no billing account yet")
	ErrPlanNotPurchasable   = errors.New("billing: plan cannot be purchased")
	ErrAlreadySubscribed    = errors.New("billing: already subscribed to this plan")
	ErrInvalidWebhook       = errors.New("billing: invalid webhook payload or signature")
	ErrUnknownSubscriber    = errors.New("billing: webhook does not match any user")
)

// ProviderErrorCode enumerates the provider failures the service tells apart.
type ProviderErrorCode string

const (
	CodeResourceMissing        ProviderErrorCode = "resource_missing"
	CodeCardDeclined           ProviderErrorCode = "card_declined"
	CodeExpiredCard            ProviderErrorCode = "expired_card"
	CodeRateLimit              ProviderErrorCode = "rate_limit"
	CodeAuthenticationRequired ProviderErrorCode = "authentication_required"
	CodeInvalidRequest         ProviderErrorCode = "invalid_request"
	CodeAPIError               ProviderErrorCode = "api_error"
	CodeUnknown                ProviderErrorCode = "unknown"
)

// ProviderError is a classified billing provider failure.
type ProviderError struct {
	Code       ProviderErrorCode
	HTTPStatus int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing provider: %s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Temporary reports whether the same call may succeed later.
func (c ProviderErrorCode) Temporary() bool {
	switch c {
	case CodeRateLimit, CodeAPIError:
		return true
	case CodeResourceMissing, CodeCardDeclined, CodeExpiredCard,
		CodeAuthenticationRequired, CodeInvalidRequest, CodeUnknown:
		return false
	}
	return false
}

// UserMessage is safe to show to the customer.
func (c ProviderErrorCode) UserMessage() string {
	switch c {
	case CodeResourceMissing:
		return "Your subscription could not be found at the billing provider."
	case CodeCardDeclined:
		return "Your card was declined."
	case CodeExpiredCard:
		return "Your card has expired."
	case CodeRateLimit:
		return "The billing provider is busy. Please try again in a minute."
	case CodeAuthenticationRequired:
		return "Your bank requires additional authentication."
	case CodeInvalidRequest:
		return "The billing request was rejected."
	case CodeAPIError, CodeUnknown:
		return "Billing is temporarily unavailable."
	}
	return "Billing is temporarily unavailable."
}
