package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockStore) GetByCustomerID(ctx context.Context, customerID string) (*billing.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockStore) CreateIfNotExists(ctx context.Context, sub *billing.Subscription) (*billing.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) EnsureCustomer(ctx context.Context, c billing.Customer) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckout(ctx context.Context, p billing.CheckoutParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreatePortal(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

func (m *mockProvider) ChangePrice(ctx context.Context, subscriptionID, priceID string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, subscriptionID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

func (m *mockProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(billing.Event), args.Error(1)
}

var testCfg = billing.Config{PricePro: "price_pro", PriceAgency: "price_agency", SuccessURL: "https://app/success", CancelURL: "https://app/pricing"}

func fixedNow() time.Time { return time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC) }

func newService(store *mockStore, provider *mockProvider) *billing.Service {
	return billing.NewService(store, provider, testCfg, billing.WithClock(fixedNow))
}

func TestGetOrCreateCreatesFreeSubscription(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(nil, billing.ErrSubscriptionNotFound)
	store.On("CreateIfNotExists", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.UserID == userID && s.Plan == quota.PlanFree && s.Status == billing.StatusActive
	})).Return(&billing.Subscription{UserID: userID, Plan: quota.PlanFree, Status: billing.StatusActive}, nil)

	sub, err := newService(store, &mockProvider{}).GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, quota.PlanFree, sub.Plan)
	store.AssertExpectations(t)
}

func TestCurrentPlan(t *testing.T) {
	t.Parallel()

	past := fixedNow().Add(-time.Hour)
	future := fixedNow().Add(72 * time.Hour)

	tests := []struct {
		name string
		sub  *billing.Subscription
		err  error
		want quota.PlanType
	}{
		{name: "no subscription is free", err: billing.ErrSubscriptionNotFound, want: quota.PlanFree},
		{name: "active pro", sub: &billing.Subscription{Plan: quota.PlanPro, Status: billing.StatusActive}, want: quota.PlanPro},
		{name: "past due keeps plan", sub: &billing.Subscription{Plan: quota.PlanAgency, Status: billing.StatusPastDue}, want: quota.PlanAgency},
		{name: "canceled inside paid period", sub: &billing.Subscription{Plan: quota.PlanPro, Status: billing.StatusCanceled, CurrentPeriodEnd: &future}, want: quota.PlanPro},
		{name: "canceled after period end", sub: &billing.Subscription{Plan: quota.PlanPro, Status: billing.StatusCanceled, CurrentPeriodEnd: &past}, want: quota.PlanFree},
		{name: "unpaid drops to free", sub: &billing.Subscription{Plan: quota.PlanPro, Status: billing.StatusUnpaid}, want: quota.PlanFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userID := uuid.New()
			store := &mockStore{}
			if tt.sub != nil {
				store.On("Get", mock.Anything, userID).Return(tt.sub, nil)
			} else {
				store.On("Get", mock.Anything, userID).Return(nil, tt.err)
			}

			plan, err := newService(store, &mockProvider{}).CurrentPlan(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan)
			store.AssertNotCalled(t, "CreateIfNotExists", mock.Anything, mock.Anything)
		})
	}
}

func TestCurrentPlanStorageError(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(nil, errors.New("timeout"))

	_, err := newService(store, &mockProvider{}).CurrentPlan(context.Background(), userID)
	assert.Error(t, err)
}

func TestCheckoutCreatesCustomerOnce(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sub := &billing.Subscription{UserID: userID, Plan: quota.PlanFree, Status: billing.StatusActive}
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(sub, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.StripeCustomerID == "cus_1"
	})).Return(nil).Once()

	customer := billing.Customer{UserID: userID, Email: "a@b.co"}
	provider := &mockProvider{}
	provider.On("EnsureCustomer", mock.Anything, customer).Return("cus_1", nil).Once()
	provider.On("CreateCheckout", mock.Anything, billing.CheckoutParams{
		UserID: userID, CustomerID: "cus_1", PriceID: "price_pro",
		SuccessURL: testCfg.SuccessURL, CancelURL: testCfg.CancelURL,
	}).Return("https://checkout.stripe.com/c/pay/cs_1", nil)

	url, err := newService(store, provider).Checkout(context.Background(), customer, quota.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", url)

	// The customer ID is now on the record, so a second checkout reuses it.
	provider.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(p billing.CheckoutParams) bool {
		return p.PriceID == "price_agency" && p.CustomerID == "cus_1"
	})).Return("https://checkout.stripe.com/c/pay/cs_2", nil)
	url, err = newService(store, provider).Checkout(context.Background(), customer, quota.PlanAgency)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_2", url)
	provider.AssertNumberOfCalls(t, "EnsureCustomer", 1)
}

func TestCheckoutRejectsFreeAndCurrentPlan(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanPro, Status: billing.StatusActive, StripeSubscriptionID: "sub_1", StripeCustomerID: "cus_1",
	}, nil)
	svc := newService(store, &mockProvider{})

	_, err := svc.Checkout(context.Background(), billing.Customer{UserID: userID}, quota.PlanFree)
	assert.ErrorIs(t, err, billing.ErrPlanNotPurchasable)

	_, err = svc.Checkout(context.Background(), billing.Customer{UserID: userID}, quota.PlanPro)
	assert.ErrorIs(t, err, billing.ErrAlreadySubscribed)
}

func TestCancelSchedulesAtPeriodEnd(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	end := fixedNow().AddDate(0, 0, 10)
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanPro, Status: billing.StatusActive, StripeSubscriptionID: "sub_1", StripeCustomerID: "cus_1",
	}, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	provider := &mockProvider{}
	provider.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(&billing.ProviderSubscription{
		ID: "sub_1", CustomerID: "cus_1", Status: billing.StatusActive, PriceID: "price_pro",
		CurrentPeriodEnd: end, CancelAtPeriodEnd: true,
	}, nil)

	sub, err := newService(store, provider).Cancel(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, quota.PlanPro, sub.Plan)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, end, *sub.CurrentPeriodEnd)
}

func TestCancelResourceMissingClosesLocally(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanAgency, Status: billing.StatusActive, StripeSubscriptionID: "sub_gone",
	}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Status == billing.StatusCanceled && s.Plan == quota.PlanFree && s.StripeSubscriptionID == ""
	})).Return(nil).Once()

	provider := &mockProvider{}
	provider.On("CancelAtPeriodEnd", mock.Anything, "sub_gone").
		Return(nil, &billing.ProviderError{Code: billing.CodeResourceMissing, HTTPStatus: 404, Message: "No such subscription"})

	sub, err := newService(store, provider).Cancel(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, quota.PlanFree, sub.EffectivePlan(fixedNow()))
	store.AssertExpectations(t)
}

func TestCancelOtherProviderErrorsPropagate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanPro, Status: billing.StatusActive, StripeSubscriptionID: "sub_1",
	}, nil)
	provider := &mockProvider{}
	provider.On("CancelAtPeriodEnd", mock.Anything, "sub_1").
		Return(nil, &billing.ProviderError{Code: billing.CodeRateLimit, Message: "slow down"})

	_, err := newService(store, provider).Cancel(context.Background(), userID)
	var perr *billing.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, billing.CodeRateLimit, perr.Code)
	assert.True(t, perr.Code.Temporary())
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCancelWithoutPaidSubscription(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{UserID: userID, Plan: quota.PlanFree, Status: billing.StatusActive}, nil)

	_, err := newService(store, &mockProvider{}).Cancel(context.Background(), userID)
	assert.ErrorIs(t, err, billing.ErrNoActiveSubscription)
}

func TestChangePlan(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanPro, Status: billing.StatusActive, StripeSubscriptionID: "sub_1",
	}, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	provider := &mockProvider{}
	provider.On("ChangePrice", mock.Anything, "sub_1", "price_agency").Return(&billing.ProviderSubscription{
		ID: "sub_1", Status: billing.StatusActive, PriceID: "price_agency",
	}, nil)

	sub, err := newService(store, provider).ChangePlan(context.Background(), userID, quota.PlanAgency)
	require.NoError(t, err)
	assert.Equal(t, quota.PlanAgency, sub.Plan)
}

func TestPortalLinkRequiresCustomer(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(nil, billing.ErrSubscriptionNotFound)

	_, err := newService(store, &mockProvider{}).PortalLink(context.Background(), userID, "https://app")
	assert.ErrorIs(t, err, billing.ErrNoCustomer)
}

type webhookCounter struct {
	results []string
}

func (w *webhookCounter) WebhookEvent(_, result string) { w.results = append(w.results, result) }

func TestHandleWebhookSubscriptionUpdated(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	start := fixedNow()
	end := start.AddDate(0, 1, 0)
	store := &mockStore{}
	store.On("GetByCustomerID", mock.Anything, "cus_1").Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanFree, Status: billing.StatusActive, StripeCustomerID: "cus_1",
	}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Plan == quota.PlanPro && s.Status == billing.StatusActive && s.StripeSubscriptionID == "sub_1" &&
			s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Equal(end)
	})).Return(nil).Once()

	provider := &mockProvider{}
	provider.On("ParseWebhook", []byte("payload"), "sig").Return(billing.Event{
		ID:   "evt_1",
		Type: billing.EventSubscriptionUpdated,
		Subscription: &billing.ProviderSubscription{
			ID: "sub_1", CustomerID: "cus_1", Status: billing.StatusActive, PriceID: "price_pro",
			CurrentPeriodStart: start, CurrentPeriodEnd: end,
		},
	}, nil)
	obs := &webhookCounter{}

	svc := billing.NewService(store, provider, testCfg, billing.WithClock(fixedNow), billing.WithObserver(obs))
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("payload"), "sig"))
	store.AssertExpectations(t)
	assert.Equal(t, []string{billing.WebhookHandled}, obs.results)
}

func TestHandleWebhookSubscriptionDeleted(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanAgency, Status: billing.StatusActive, StripeSubscriptionID: "sub_9",
	}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Plan == quota.PlanFree && s.Status == billing.StatusCanceled
	})).Return(nil).Once()

	provider := &mockProvider{}
	provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(billing.Event{
		Type:         billing.EventSubscriptionDeleted,
		Subscription: &billing.ProviderSubscription{ID: "sub_9", UserID: userID, Status: billing.StatusCanceled},
	}, nil)

	require.NoError(t, newService(store, provider).HandleWebhook(context.Background(), nil, ""))
	store.AssertExpectations(t)
}

func TestHandleWebhookPaymentFailed(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("GetByCustomerID", mock.Anything, "cus_7").Return(&billing.Subscription{
		UserID: userID, Plan: quota.PlanPro, Status: billing.StatusActive, StripeSubscriptionID: "sub_7",
	}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Status == billing.StatusPastDue
	})).Return(nil).Once()
	provider := &mockProvider{}
	provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(billing.Event{
		Type:    billing.EventInvoicePaymentFailed,
		Invoice: &billing.InvoiceFailed{CustomerID: "cus_7", SubscriptionID: "sub_7"},
	}, nil)

	notifier := &mockNotifier{}
	notifier.On("PaymentFailed", mock.Anything, userID, quota.PlanPro).Return(errors.New("smtp down")).Once()

	svc := billing.NewService(store, provider, testCfg, billing.WithClock(fixedNow), billing.WithNotifier(notifier))
	require.NoError(t, svc.HandleWebhook(context.Background(), nil, ""))
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PaymentFailed(ctx context.Context, userID uuid.UUID, plan quota.PlanType) error {
	return m.Called(ctx, userID, plan).Error(0)
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := &mockStore{}
	store.On("Get", mock.Anything, userID).Return(&billing.Subscription{UserID: userID, Plan: quota.PlanFree, Status: billing.StatusActive}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.StripeCustomerID == "cus_3" && s.StripeSubscriptionID == "sub_3"
	})).Return(nil).Once()
	provider := &mockProvider{}
	provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(billing.Event{
		Type:     billing.EventCheckoutCompleted,
		Checkout: &billing.CheckoutCompleted{UserID: userID, CustomerID: "cus_3", SubscriptionID: "sub_3"},
	}, nil)

	require.NoError(t, newService(store, provider).HandleWebhook(context.Background(), nil, ""))
	store.AssertExpectations(t)
}

func TestHandleWebhookInvalidSignatureAndIgnoredTypes(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{}
	provider.On("ParseWebhook", []byte("bad"), mock.Anything).Return(billing.Event{}, errors.New("signature mismatch"))
	provider.On("ParseWebhook", []byte("other"), mock.Anything).Return(billing.Event{Type: "charge.refunded"}, nil)
	obs := &webhookCounter{}
	svc := billing.NewService(&mockStore{}, provider, testCfg, billing.WithObserver(obs))

	assert.ErrorIs(t, svc.HandleWebhook(context.Background(), []byte("bad"), "x"), billing.ErrInvalidWebhook)
	assert.NoError(t, svc.HandleWebhook(context.Background(), []byte("other"), "x"))
	assert.Equal(t, []string{billing.WebhookFailed, billing.WebhookIgnored}, obs.results)
}

func TestProviderErrorCodesAreClassified(t *testing.T) {
	t.Parallel()

	codes := []billing.ProviderErrorCode{
		billing.CodeResourceMissing, billing.CodeCardDeclined, billing.CodeExpiredCard, billing.CodeRateLimit,
		billing.CodeAuthenticationRequired, billing.CodeInvalidRequest, billing.CodeAPIError, billing.CodeUnknown,
	}
	for _, c := range codes {
		assert.NotEmpty(t, c.UserMessage(), c)
	}
	assert.False(t, billing.CodeCardDeclined.Temporary())
	assert.True(t, billing.CodeAPIError.Temporary())
}
