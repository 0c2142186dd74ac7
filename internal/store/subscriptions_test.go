package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seoscope/internal/store"
	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

var subscriptionCols = []string{
	"user_id", "plan", "status", "stripe_customer_id", "stripe_subscription_id",
	"current_period_start", "current_period_end", "cancel_at_period_end",
	"created_at", "updated_at",
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestSubscriptionStoreGet(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		s := store.NewSubscriptionStore(mock)
		userID := uuid.New()
		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT user_id, plan, status, .* FROM subscriptions WHERE user_id = \\$1").
			WithArgs(args(userID)...).
			WillReturnRows(mock.NewRows(subscriptionCols).AddRow(
				userID, quota.PlanPro, billing.StatusActive, strPtr("cus_1"), strPtr("sub_1"),
				timePtr(end.AddDate(0, -1, 0)), timePtr(end), false, time.Now(), time.Now(),
			))

		sub, err := s.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, quota.PlanPro, sub.Plan)
		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.Equal(t, "cus_1", sub.StripeCustomerID)
		assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
		require.NotNil(t, sub.CurrentPeriodEnd)
		assert.Equal(t, end, *sub.CurrentPeriodEnd)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("free row without stripe ids", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		s := store.NewSubscriptionStore(mock)
		userID := uuid.New()

		mock.ExpectQuery("FROM subscriptions WHERE user_id = \\$1").
			WithArgs(args(userID)...).
			WillReturnRows(mock.NewRows(subscriptionCols).AddRow(
				userID, quota.PlanFree, billing.StatusActive, (*string)(nil), (*string)(nil),
				(*time.Time)(nil), (*time.Time)(nil), false, time.Now(), time.Now(),
			))

		sub, err := s.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Empty(t, sub.StripeCustomerID)
		assert.False(t, sub.Paid())
		assert.Nil(t, sub.CurrentPeriodEnd)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		s := store.NewSubscriptionStore(mock)

		mock.ExpectQuery("FROM subscriptions WHERE stripe_customer_id = \\$1").
			WithArgs(args("cus_missing")...).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.GetByCustomerID(context.Background(), "cus_missing")
		require.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionStoreCreateIfNotExists(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	s := store.NewSubscriptionStore(mock)
	userID := uuid.New()

	mock.ExpectQuery("INSERT INTO subscriptions .* ON CONFLICT \\(user_id\\) DO UPDATE SET user_id = EXCLUDED.user_id RETURNING").
		WithArgs(args(
			userID, quota.PlanFree, billing.StatusActive, nil, nil,
			nil, nil, false, pgxmock.AnyArg(), pgxmock.AnyArg(),
		)...).
		WillReturnRows(mock.NewRows(subscriptionCols).AddRow(
			userID, quota.PlanAgency, billing.StatusActive, strPtr("cus_9"), strPtr("sub_9"),
			(*time.Time)(nil), (*time.Time)(nil), false, time.Now(), time.Now(),
		))

	stored, err := s.CreateIfNotExists(context.Background(), &billing.Subscription{
		UserID: userID,
		Plan:   quota.PlanFree,
		Status: billing.StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, quota.PlanAgency, stored.Plan)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionStoreSave(t *testing.T) {
	t.Parallel()

	t.Run("upserts", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		s := store.NewSubscriptionStore(mock)

		end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		sub := &billing.Subscription{
			UserID:               uuid.New(),
			Plan:                 quota.PlanPro,
			Status:               billing.StatusPastDue,
			StripeCustomerID:     "cus_2",
			StripeSubscriptionID: "sub_2",
			CurrentPeriodEnd:     &end,
		}

		mock.ExpectExec("INSERT INTO subscriptions .* ON CONFLICT \\(user_id\\) DO UPDATE SET").
			WithArgs(args(
				sub.UserID, quota.PlanPro, billing.StatusPastDue, "cus_2", "sub_2",
				nil, end, false, pgxmock.AnyArg(), pgxmock.AnyArg(),
			)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, s.Save(context.Background(), sub))
		assert.False(t, sub.UpdatedAt.IsZero())
		assert.False(t, sub.CreatedAt.IsZero())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		s := store.NewSubscriptionStore(mock)

		sub := &billing.Subscription{UserID: uuid.New()}

		mock.ExpectExec("INSERT INTO subscriptions").
			WithArgs(args(
				sub.UserID, pgxmock.AnyArg(), pgxmock.AnyArg(), nil, nil,
				nil, nil, false, pgxmock.AnyArg(), pgxmock.AnyArg(),
			)...).
			WillReturnError(errors.New("boom"))

		err := s.Save(context.Background(), sub)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
