package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store persists subscriptions.
type Store interface {
	// Get returns ErrSubscriptionNotFound when the user has none.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Subscription, error)
	// CreateIfNotExists inserts sub unless the user already has a row and
	// returns whichever row is stored.
	CreateIfNotExists(ctx context.Context, sub *Subscription) (*Subscription, error)
	// Save upserts sub by user ID.
	Save(ctx context.Context, sub *Subscription) error
}

// Provider is the external billing system.
type Provider interface {
	EnsureCustomer(ctx context.Context, c Customer) (string, error)
	CreateCheckout(ctx context.Context, p CheckoutParams) (string, error)
	CreatePortal(ctx context.Context, customerID, returnURL string) (string, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
	ChangePrice(ctx context.Context, subscriptionID, priceID string) (*ProviderSubscription, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}
