package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// Status mirrors the provider's subscription status.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
)

// Subscription is the local record of a user's plan. Every user has at most
// one; it is never hard-deleted while the user exists.
type Subscription struct {
	UserID               uuid.UUID      `json:"userId"`
	Plan                 quota.PlanType `json:"plan"`
	Status               Status         `json:"status"`
	StripeCustomerID     string         `json:"-"`
	StripeSubscriptionID string         `json:"-"`
	CurrentPeriodStart   *time.Time     `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time     `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd    bool           `json:"cancelAtPeriodEnd"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// EffectivePlan is the plan whose limits apply at now. Paid access survives
// cancellation until the end of the paid period.
func (s *Subscription) EffectivePlan(now time.Time) quota.PlanType {
	if s == nil || !s.Plan.Valid() {
		return quota.PlanFree
	}
	switch s.Status {
	case StatusActive, StatusTrialing, StatusPastDue:
		return s.Plan
	case StatusCanceled:
		if s.CurrentPeriodEnd != nil && now.Before(*s.CurrentPeriodEnd) {
			return s.Plan
		}
		return quota.PlanFree
	default:
		return quota.PlanFree
	}
}

// Paid reports whether the subscription is linked to a provider subscription.
func (s *Subscription) Paid() bool {
	return s != nil && s.StripeSubscriptionID != ""
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	UserID             uuid.UUID
	Status             Status
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// Customer identifies the user when creating a provider customer.
type Customer struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// CheckoutParams describes a hosted checkout for a plan.
type CheckoutParams struct {
	UserID     uuid.UUID
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// EventType names webhook events the service reacts to.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout.session.completed"
	EventSubscriptionCreated  EventType = "customer.subscription.created"
	EventSubscriptionUpdated  EventType = "customer.subscription.updated"
	EventSubscriptionDeleted  EventType = "customer.subscription.deleted"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
)

// Event is a verified webhook notification. Only the field matching Type is set.
type Event struct {
	ID           string
	Type         EventType
	Checkout     *CheckoutCompleted
	Subscription *ProviderSubscription
	Invoice      *InvoiceFailed
}

type CheckoutCompleted struct {
	UserID         uuid.UUID
	CustomerID     string
	SubscriptionID string
}

type InvoiceFailed struct {
	CustomerID     string
	SubscriptionID string
}
