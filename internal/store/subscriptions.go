package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/pg"
)

var subscriptionColumns = []string{
	"user_id",
	"plan",
	"status",
	"stripe_customer_id",
	"stripe_subscription_id",
	"current_period_start",
	"current_period_end",
	"cancel_at_period_end",
	"created_at",
	"updated_at",
}

// SubscriptionStore implements billing.Store.
type SubscriptionStore struct {
	db  DB
	now func() time.Time
}

func NewSubscriptionStore(db DB) *SubscriptionStore {
	return &SubscriptionStore{db: db, now: time.Now}
}

func (s *SubscriptionStore) Get(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	return s.getBy(ctx, squirrel.Eq{"user_id": userID})
}

func (s *SubscriptionStore) GetByCustomerID(ctx context.Context, customerID string) (*billing.Subscription, error) {
	return s.getBy(ctx, squirrel.Eq{"stripe_customer_id": customerID})
}

func (s *SubscriptionStore) getBy(ctx context.Context, where squirrel.Eq) (*billing.Subscription, error) {
	query, args, err := psql.Select(subscriptionColumns...).
		From("subscriptions").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subscription query: %w", err)
	}

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("select subscription: %w", err)
	}
	return sub, nil
}

// CreateIfNotExists relies on the primary key on user_id. The no-op update
// makes RETURNING yield the stored row on conflict.
func (s *SubscriptionStore) CreateIfNotExists(ctx context.Context, sub *billing.Subscription) (*billing.Subscription, error) {
	now := s.now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query, args, err := psql.Insert("subscriptions").
		Columns(subscriptionColumns...).
		Values(subscriptionValues(sub)...).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id RETURNING " + strings.Join(subscriptionColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert subscription query: %w", err)
	}

	stored, err := scanSubscription(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	return stored, nil
}

func (s *SubscriptionStore) Save(ctx context.Context, sub *billing.Subscription) error {
	now := s.now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query, args, err := psql.Insert("subscriptions").
		Columns(subscriptionColumns...).
		Values(subscriptionValues(sub)...).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert subscription query: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func subscriptionValues(sub *billing.Subscription) []any {
	return []any{
		sub.UserID,
		sub.Plan,
		sub.Status,
		nullString(sub.StripeCustomerID),
		nullString(sub.StripeSubscriptionID),
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.CreatedAt,
		sub.UpdatedAt,
	}
}

func scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var (
		sub            billing.Subscription
		customerID     *string
		subscriptionID *string
	)
	err := row.Scan(
		&sub.UserID,
		&sub.Plan,
		&sub.Status,
		&customerID,
		&subscriptionID,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if customerID != nil {
		sub.StripeCustomerID = *customerID
	}
	if subscriptionID != nil {
		sub.StripeSubscriptionID = *subscriptionID
	}
	return &sub, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
