// Package billing keeps each user's subscription in sync with Stripe and
// resolves the plan whose limits apply.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// Observer receives webhook processing results.
type Observer interface {
	WebhookEvent(eventType, result string)
}

// Notifier is told about billing events the user should hear about.
type Notifier interface {
	PaymentFailed(ctx context.Context, userID uuid.UUID, plan quota.PlanType) error
}

type Service struct {
	store    Store
	provider Provider
	cfg      Config
	log      *slog.Logger
	observer Observer
	notifier Notifier
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, provider Provider, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		cfg:      cfg,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the user's subscription, creating a free active one
// when none exists. It writes on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	now := s.now().UTC()
	sub, err = s.store.CreateIfNotExists(ctx, &Subscription{
		UserID:    userID,
		Plan:      quota.PlanFree,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// CurrentPlan resolves the plan in effect. Users without a subscription row
// are on the free plan. It never writes.
func (s *Service) CurrentPlan(ctx context.Context, userID uuid.UUID) (quota.PlanType, error) {
	sub, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return quota.PlanFree, nil
	}
	if err != nil {
		return "", err
	}
	return sub.EffectivePlan(s.now()), nil
}

// Checkout starts a hosted checkout for plan and returns its URL.
func (s *Service) Checkout(ctx context.Context, c Customer, plan quota.PlanType) (string, error) {
	priceID := s.priceFor(plan)
	if priceID == "" {
		return "", fmt.Errorf("%w: %s", ErrPlanNotPurchasable, plan)
	}

	sub, err := s.GetOrCreate(ctx, c.UserID)
	if err != nil {
		return "", err
	}
	if sub.Paid() && sub.EffectivePlan(s.now()) == plan && !sub.CancelAtPeriodEnd {
		return "", ErrAlreadySubscribed
	}

	if sub.StripeCustomerID == "" {
		customerID, err := s.provider.EnsureCustomer(ctx, c)
		if err != nil {
			return "", err
		}
		sub.StripeCustomerID = customerID
		sub.UpdatedAt = s.now().UTC()
		if err := s.store.Save(ctx, sub); err != nil {
			return "", fmt.Errorf("save customer id: %w", err)
		}
	}

	return s.provider.CreateCheckout(ctx, CheckoutParams{
		UserID:     c.UserID,
		CustomerID: sub.StripeCustomerID,
		PriceID:    priceID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
}

// Cancel schedules cancellation at the end of the paid period. If the
// provider no longer knows the subscription, the local record is closed and
// the user drops to the free plan.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.paidSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	ps, err := s.provider.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID)
	if err != nil {
		var perr *ProviderError
		if !errors.As(err, &perr) {
			return nil, err
		}
		switch perr.Code {
		case CodeResourceMissing:
			s.log.WarnContext(ctx, "subscription missing at provider, closing locally",
				logger.UserID(userID), slog.String("subscription_id", sub.StripeSubscriptionID))
			s.closeLocally(sub)
			if err := s.store.Save(ctx, sub); err != nil {
				return nil, fmt.Errorf("save subscription: %w", err)
			}
			return sub, nil
		case CodeCardDeclined, CodeExpiredCard, CodeRateLimit, CodeAuthenticationRequired,
			CodeInvalidRequest, CodeAPIError, CodeUnknown:
			return nil, perr
		}
		return nil, perr
	}

	s.apply(sub, ps)
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// ChangePlan moves a paid subscription to another paid plan with proration.
func (s *Service) ChangePlan(ctx context.Context, userID uuid.UUID, plan quota.PlanType) (*Subscription, error) {
	priceID := s.priceFor(plan)
	if priceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotPurchasable, plan)
	}
	sub, err := s.paidSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Plan == plan && !sub.CancelAtPeriodEnd {
		return nil, ErrAlreadySubscribed
	}

	ps, err := s.provider.ChangePrice(ctx, sub.StripeSubscriptionID, priceID)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Code == CodeResourceMissing {
			s.closeLocally(sub)
			if err := s.store.Save(ctx, sub); err != nil {
				return nil, fmt.Errorf("save subscription: %w", err)
			}
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	s.apply(sub, ps)
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// PortalLink returns a self-service billing portal URL.
func (s *Service) PortalLink(ctx context.Context, userID uuid.UUID, returnURL string) (string, error) {
	sub, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return "", ErrNoCustomer
	}
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}
	return s.provider.CreatePortal(ctx, sub.StripeCustomerID, returnURL)
}

// Webhook results reported to the Observer.
const (
	WebhookHandled = "handled"
	WebhookIgnored = "ignored"
	WebhookFailed  = "failed"
)

// HandleWebhook verifies and applies a provider notification.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.observe("invalid", WebhookFailed)
		return errors.Join(ErrInvalidWebhook, err)
	}

	result := WebhookHandled
	switch ev.Type {
	case EventCheckoutCompleted:
		err = s.onCheckoutCompleted(ctx, ev.Checkout)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		err = s.onSubscriptionChanged(ctx, ev.Subscription)
	case EventSubscriptionDeleted:
		err = s.onSubscriptionDeleted(ctx, ev.Subscription)
	case EventInvoicePaymentFailed:
		err = s.onPaymentFailed(ctx, ev.Invoice)
	default:
		result = WebhookIgnored
	}
	if err != nil {
		result = WebhookFailed
		s.log.ErrorContext(ctx, "billing webhook failed",
			logger.Event(string(ev.Type)), slog.String("event_id", ev.ID), logger.Error(err))
	}
	s.observe(string(ev.Type), result)
	return err
}

func (s *Service) onCheckoutCompleted(ctx context.Context, co *CheckoutCompleted) error {
	if co == nil || co.UserID == uuid.Nil {
		return ErrUnknownSubscriber
	}
	sub, err := s.GetOrCreate(ctx, co.UserID)
	if err != nil {
		return err
	}
	if co.CustomerID != "" {
		sub.StripeCustomerID = co.CustomerID
	}
	if co.SubscriptionID != "" {
		sub.StripeSubscriptionID = co.SubscriptionID
	}
	sub.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, sub)
}

func (s *Service) onSubscriptionChanged(ctx context.Context, ps *ProviderSubscription) error {
	sub, err := s.subscriber(ctx, ps)
	if err != nil {
		return err
	}
	s.apply(sub, ps)
	return s.store.Save(ctx, sub)
}

func (s *Service) onSubscriptionDeleted(ctx context.Context, ps *ProviderSubscription) error {
	sub, err := s.subscriber(ctx, ps)
	if err != nil {
		return err
	}
	if sub.StripeSubscriptionID != "" && sub.StripeSubscriptionID != ps.ID {
		// A newer subscription replaced this one.
		return nil
	}
	s.closeLocally(sub)
	return s.store.Save(ctx, sub)
}

func (s *Service) onPaymentFailed(ctx context.Context, inv *InvoiceFailed) error {
	if inv == nil || inv.CustomerID == "" {
		return ErrUnknownSubscriber
	}
	sub, err := s.store.GetByCustomerID(ctx, inv.CustomerID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return ErrUnknownSubscriber
	}
	if err != nil {
		return err
	}
	if inv.SubscriptionID != "" && sub.StripeSubscriptionID != inv.SubscriptionID {
		return nil
	}
	sub.Status = StatusPastDue
	sub.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sub); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.PaymentFailed(ctx, sub.UserID, sub.Plan); err != nil {
			s.log.WarnContext(ctx, "payment failure notification not sent",
				logger.UserID(sub.UserID), logger.Error(err))
		}
	}
	return nil
}

// subscriber finds the local record for a provider subscription, by user ID
// metadata first and by customer ID second.
func (s *Service) subscriber(ctx context.Context, ps *ProviderSubscription) (*Subscription, error) {
	if ps == nil {
		return nil, ErrUnknownSubscriber
	}
	if ps.UserID != uuid.Nil {
		return s.GetOrCreate(ctx, ps.UserID)
	}
	if ps.CustomerID == "" {
		return nil, ErrUnknownSubscriber
	}
	sub, err := s.store.GetByCustomerID(ctx, ps.CustomerID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, ErrUnknownSubscriber
	}
	return sub, err
}

func (s *Service) paidSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	if !sub.Paid() {
		return nil, ErrNoActiveSubscription
	}
	return sub, nil
}

func (s *Service) apply(sub *Subscription, ps *ProviderSubscription) {
	if ps.ID != "" {
		sub.StripeSubscriptionID = ps.ID
	}
	if ps.CustomerID != "" {
		sub.StripeCustomerID = ps.CustomerID
	}
	if plan := s.planFor(ps.PriceID); plan != "" {
		sub.Plan = plan
	}
	if ps.Status != "" {
		sub.Status = ps.Status
	}
	if !ps.CurrentPeriodStart.IsZero() {
		start := ps.CurrentPeriodStart.UTC()
		sub.CurrentPeriodStart = &start
	}
	if !ps.CurrentPeriodEnd.IsZero() {
		end := ps.CurrentPeriodEnd.UTC()
		sub.CurrentPeriodEnd = &end
	}
	sub.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
	sub.UpdatedAt = s.now().UTC()
}

func (s *Service) closeLocally(sub *Subscription) {
	sub.Plan = quota.PlanFree
	sub.Status = StatusCanceled
	sub.StripeSubscriptionID = ""
	sub.CancelAtPeriodEnd = false
	sub.CurrentPeriodStart = nil
	sub.CurrentPeriodEnd = nil
	sub.UpdatedAt = s.now().UTC()
}

func (s *Service) priceFor(plan quota.PlanType) string {
	switch plan {
	case quota.PlanPro:
		return s.cfg.PricePro
	case quota.PlanAgency:
		return s.cfg.PriceAgency
	case quota.PlanFree:
		return ""
	}
	return ""
}

func (s *Service) planFor(priceID string) quota.PlanType {
	switch {
	case priceID == "":
		return ""
	case priceID == s.cfg.PricePro:
		return quota.PlanPro
	case priceID == s.cfg.PriceAgency:
		return quota.PlanAgency
	}
	return ""
}

func (s *Service) observe(eventType, result string) {
	if s.observer != nil {
		s.observer.WebhookEvent(eventType, result)
	}
}
