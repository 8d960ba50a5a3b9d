package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aizeeno/internal/cache"
	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
	"aizeeno/internal/provider"
	"aizeeno/internal/repository"
)

// MockProviderClient is a mock implementation of provider.Client.
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) RetrieveCheckoutSession(ctx context.Context, id string) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockProviderClient) RetrieveSubscription(ctx context.Context, id string) (*provider.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Subscription), args.Error(1)
}

func seedUser(t *testing.T, repo repository.UserRepository, username string) {
	t.Helper()
	salt := "ab"
	require.NoError(t, repo.Create(context.Background(), &model.User{
		Username:         username,
		PasswordHash:     "digest",
		Salt:             &salt,
		Name:             username,
		Email:            username + "@example.com",
		SubscriptionPlan: model.PlanFree,
	}))
}

func mustFind(t *testing.T, repo repository.UserRepository, username string) *model.User {
	t.Helper()
	user, err := repo.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return user
}

func checkoutEvent(username, plan, sessionID, subscriptionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"customer": "cus_1",
			"subscription": %q,
			"payment_status": "paid",
			"metadata": {"username": %q, "plan": %q}
		}}
	}`, sessionID, subscriptionID, username, plan))
}

func paidSession(sessionID, subscriptionID string) *provider.CheckoutSession {
	return &provider.CheckoutSession{
		ID:             sessionID,
		CustomerID:     "cus_1",
		SubscriptionID: subscriptionID,
		PaymentStatus:  "paid",
	}
}

func newReconciler(repo repository.UserRepository, client provider.Client, secret string) SubscriptionService {
	return NewSubscriptionService(repo, client, (*cache.Client)(nil), secret)
}

func TestPushThenPullConverge(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)
	client.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(&provider.Subscription{ID: "sub_1", Status: "active"}, nil)

	svc := newReconciler(repo, client, "")
	require.NoError(t, svc.ReconcilePush(context.Background(), checkoutEvent("alice", "pro", "cs_1", "sub_1"), ""))

	afterPush := mustFind(t, repo, "alice")
	assert.True(t, afterPush.PaymentActive)
	assert.Equal(t, model.PlanPro, afterPush.SubscriptionPlan)
	require.NotNil(t, afterPush.ProviderSubscriptionID)
	assert.Equal(t, "sub_1", *afterPush.ProviderSubscriptionID)

	result, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)
	assert.True(t, result.PaymentActive)
	assert.Equal(t, model.PlanPro, result.SubscriptionPlan)
	assert.False(t, result.Applied) // second channel arrival is a no-op

	afterPull := mustFind(t, repo, "alice")
	assert.Equal(t, afterPush.SubscriptionStatus(), afterPull.SubscriptionStatus())
}

func TestPullThenPushConverge(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)
	client.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(&provider.Subscription{ID: "sub_1", Status: "active"}, nil)

	svc := newReconciler(repo, client, "")
	result, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)
	assert.True(t, result.Applied)

	afterPull := mustFind(t, repo, "alice")
	require.NoError(t, svc.ReconcilePush(context.Background(), checkoutEvent("alice", "pro", "cs_1", "sub_1"), ""))
	afterPush := mustFind(t, repo, "alice")

	assert.Equal(t, afterPull.SubscriptionStatus(), afterPush.SubscriptionStatus())
	assert.True(t, afterPush.PaymentActive)
	assert.Equal(t, model.PlanPro, afterPush.SubscriptionPlan)
}

func TestDuplicatePullIsNoOp(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)
	client.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(&provider.Subscription{ID: "sub_1", Status: "active"}, nil)

	svc := newReconciler(repo, client, "")

	first, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.True(t, second.PaymentActive)
}

func TestPendingPullDoesNotRegressActiveRecord(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)
	client.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(&provider.Subscription{ID: "sub_1", Status: "active"}, nil)

	svc := newReconciler(repo, client, "")
	_, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)

	// A later poll claims the same subscription is still unpaid.
	stale := new(MockProviderClient)
	stale.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(&provider.CheckoutSession{
		ID:             "cs_1",
		SubscriptionID: "sub_1",
		PaymentStatus:  "unpaid",
	}, nil)
	staleSvc := newReconciler(repo, stale, "")

	result, err := staleSvc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)
	assert.True(t, result.PaymentActive)
	assert.Equal(t, "unpaid", result.ProviderStatus)

	user := mustFind(t, repo, "alice")
	assert.True(t, user.PaymentActive)
	assert.Equal(t, model.PlanPro, user.SubscriptionPlan)
}

func TestPendingPullOnUnpaidUser(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(&provider.CheckoutSession{
		ID:            "cs_1",
		PaymentStatus: "unpaid",
	}, nil)

	svc := newReconciler(repo, client, "")
	result, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)
	assert.False(t, result.PaymentActive)
	assert.Equal(t, "Payment is pending", result.Message)

	user := mustFind(t, repo, "alice")
	assert.False(t, user.PaymentActive)
	assert.Equal(t, model.PlanFree, user.SubscriptionPlan)
}

func TestPullUnknownPlan(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)

	svc := newReconciler(repo, client, "")
	_, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "platinum")
	assert.ErrorIs(t, err, apperrors.ErrPlanUnknown)

	_, err = svc.ReconcilePull(context.Background(), "alice", "cs_1", "free")
	assert.ErrorIs(t, err, apperrors.ErrPlanUnknown)

	client.AssertNotCalled(t, "RetrieveCheckoutSession", mock.Anything, mock.Anything)
}

func TestPullProviderLookupFailure(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").
		Return(nil, fmt.Errorf("%w: timeout", apperrors.ErrProviderLookupFailed))

	svc := newReconciler(repo, client, "")
	_, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	assert.ErrorIs(t, err, apperrors.ErrProviderLookupFailed)

	user := mustFind(t, repo, "alice")
	assert.False(t, user.PaymentActive)
}

func TestPushInvalidSignatureLeavesStoreUntouched(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)

	svc := newReconciler(repo, client, "whsec_test")
	payload := checkoutEvent("alice", "pro", "cs_1", "sub_1")
	ts := time.Now().Unix()
	badHeader := fmt.Sprintf("t=%d,v1=%s", ts, provider.ComputeSignature(payload, ts, "whsec_other"))

	err := svc.ReconcilePush(context.Background(), payload, badHeader)
	assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)

	user := mustFind(t, repo, "alice")
	assert.False(t, user.PaymentActive)
	client.AssertNotCalled(t, "RetrieveCheckoutSession", mock.Anything, mock.Anything)
}

func TestPushValidSignatureApplies(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)

	svc := newReconciler(repo, client, "whsec_test")
	payload := checkoutEvent("alice", "pro", "cs_1", "sub_1")
	ts := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, provider.ComputeSignature(payload, ts, "whsec_test"))

	require.NoError(t, svc.ReconcilePush(context.Background(), payload, header))
	assert.True(t, mustFind(t, repo, "alice").PaymentActive)
}

func TestPushOrphanEventAcknowledged(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)

	svc := newReconciler(repo, client, "")
	payload := []byte(`{
		"id": "evt_orphan",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "subscription": "sub_1", "metadata": {"plan": "pro"}}}
	}`)

	require.NoError(t, svc.ReconcilePush(context.Background(), payload, ""))
	assert.False(t, mustFind(t, repo, "alice").PaymentActive)
}

func TestPushUnknownUserAcknowledged(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)

	svc := newReconciler(repo, client, "")
	err := svc.ReconcilePush(context.Background(), checkoutEvent("ghost", "pro", "cs_1", "sub_1"), "")
	assert.NoError(t, err)
}

func TestPushUnknownPlanKeepsPriorState(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)

	svc := newReconciler(repo, client, "")
	err := svc.ReconcilePush(context.Background(), checkoutEvent("alice", "platinum", "cs_1", "sub_1"), "")
	assert.NoError(t, err) // acknowledged, not retried
	assert.False(t, mustFind(t, repo, "alice").PaymentActive)
	client.AssertNotCalled(t, "RetrieveCheckoutSession", mock.Anything, mock.Anything)
}

func TestPushIgnoresUnrelatedEventTypes(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	svc := newReconciler(repo, new(MockProviderClient), "")

	payload := []byte(`{"id": "evt_x", "type": "invoice.payment_succeeded", "data": {"object": {}}}`)
	require.NoError(t, svc.ReconcilePush(context.Background(), payload, ""))
	assert.False(t, mustFind(t, repo, "alice").PaymentActive)
}

func TestPushUnparsablePayload(t *testing.T) {
	svc := newReconciler(repository.NewMemoryUserRepository(), new(MockProviderClient), "")
	err := svc.ReconcilePush(context.Background(), []byte("not json"), "")
	assert.ErrorIs(t, err, apperrors.ErrEventUnparsable)
}

func TestCancellationRegressesPayment(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)
	client.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(&provider.Subscription{ID: "sub_1", Status: "active"}, nil)

	svc := newReconciler(repo, client, "")
	_, err := svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
	require.NoError(t, err)

	cancel := []byte(`{
		"id": "evt_cancel",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "status": "canceled"}}
	}`)
	require.NoError(t, svc.ReconcilePush(context.Background(), cancel, ""))

	user := mustFind(t, repo, "alice")
	assert.False(t, user.PaymentActive)
	assert.Equal(t, model.PlanFree, user.SubscriptionPlan)
	// Provider ids are retained for audit.
	require.NotNil(t, user.ProviderSubscriptionID)
	assert.Equal(t, "sub_1", *user.ProviderSubscriptionID)

	// Duplicate cancellation is a no-op.
	require.NoError(t, svc.ReconcilePush(context.Background(), cancel, ""))
	assert.False(t, mustFind(t, repo, "alice").PaymentActive)
}

func TestConcurrentPushAndPullConverge(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	client := new(MockProviderClient)
	client.On("RetrieveCheckoutSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "sub_1"), nil)
	client.On("RetrieveSubscription", mock.Anything, "sub_1").
		Return(&provider.Subscription{ID: "sub_1", Status: "active"}, nil)

	svc := newReconciler(repo, client, "")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.ReconcilePush(context.Background(), checkoutEvent("alice", "pro", "cs_1", "sub_1"), "")
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.ReconcilePull(context.Background(), "alice", "cs_1", "pro")
		}()
	}
	wg.Wait()

	user := mustFind(t, repo, "alice")
	assert.True(t, user.PaymentActive)
	assert.Equal(t, model.PlanPro, user.SubscriptionPlan)
	require.NotNil(t, user.ProviderSubscriptionID)
	assert.Equal(t, "sub_1", *user.ProviderSubscriptionID)
}

func TestStatusReportsSubscriptionView(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	seedUser(t, repo, "alice")
	svc := newReconciler(repo, new(MockProviderClient), "")

	view, err := svc.Status(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, model.PlanFree, view.SubscriptionPlan)
	assert.False(t, view.PaymentActive)

	_, err = svc.Status(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
