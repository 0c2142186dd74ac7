package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const metadataUserID = "user_id"

// StripeProvider implements Provider on the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider builds a provider. Pass nil backends for the live API.
func NewStripeProvider(cfg Config, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (p *StripeProvider) EnsureCustomer(ctx context.Context, c Customer) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(c.Email),
	}
	if c.Name != "" {
		params.Name = stripe.String(c.Name)
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, c.UserID.String())

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", classify(err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, cp CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(cp.CustomerID),
		ClientReferenceID: stripe.String(cp.UserID.String()),
		SuccessURL:        stripe.String(cp.SuccessURL),
		CancelURL:         stripe.String(cp.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(cp.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataUserID: cp.UserID.String()},
		},
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", classify(err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) CreatePortal(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", classify(err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, classify(err)
	}
	return fromStripe(sub), nil
}

func (p *StripeProvider) ChangePrice(ctx context.Context, subscriptionID, priceID string) (*ProviderSubscription, error) {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := p.api.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return nil, classify(err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, &ProviderError{Code: CodeInvalidRequest, Message: "subscription has no items"}
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		ProrationBehavior: stripe.String("create_prorations"),
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(priceID)},
		},
	}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, classify(err)
	}
	return fromStripe(sub), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the events
// the service handles. Other event types come back with only ID and Type set.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, err
	}

	out := Event{ID: ev.ID, Type: EventType(ev.Type)}
	switch out.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return Event{}, fmt.Errorf("decode checkout session: %w", err)
		}
		co := &CheckoutCompleted{}
		if id, err := uuid.Parse(cs.ClientReferenceID); err == nil {
			co.UserID = id
		}
		if cs.Customer != nil {
			co.CustomerID = cs.Customer.ID
		}
		if cs.Subscription != nil {
			co.SubscriptionID = cs.Subscription.ID
		}
		out.Checkout = co
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return Event{}, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = fromStripe(&sub)
	case EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return Event{}, fmt.Errorf("decode invoice: %w", err)
		}
		failed := &InvoiceFailed{}
		if inv.Customer != nil {
			failed.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			failed.SubscriptionID = inv.Subscription.ID
		}
		out.Invoice = failed
	}
	return out, nil
}

func fromStripe(sub *stripe.Subscription) *ProviderSubscription {
	ps := &ProviderSubscription{
		ID:                sub.ID,
		Status:            Status(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}
	if id, err := uuid.Parse(sub.Metadata[metadataUserID]); err == nil {
		ps.UserID = id
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ps.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodStart > 0 {
		ps.CurrentPeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		ps.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return ps
}

// classify maps a Stripe error onto a ProviderError code.
func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &ProviderError{Code: CodeUnknown, Message: err.Error(), Err: err}
	}

	pe := &ProviderError{HTTPStatus: se.HTTPStatusCode, Message: se.Msg, Err: err}
	switch string(se.Code) {
	case string(CodeResourceMissing):
		pe.Code = CodeResourceMissing
	case string(CodeCardDeclined):
		pe.Code = CodeCardDeclined
	case string(CodeExpiredCard):
		pe.Code = CodeExpiredCard
	case string(CodeRateLimit):
		pe.Code = CodeRateLimit
	case string(CodeAuthenticationRequired):
		pe.Code = CodeAuthenticationRequired
	default:
		switch se.Type {
		case stripe.ErrorTypeInvalidRequest:
			pe.Code = CodeInvalidRequest
		case stripe.ErrorTypeAPI:
			pe.Code = CodeAPIError
		default:
			pe.Code = CodeUnknown
		}
	}
	return pe
}
