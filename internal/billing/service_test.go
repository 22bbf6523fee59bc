package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/apikeys"
	"github.com/leasedesk/leasedesk/internal/config"
	"github.com/leasedesk/leasedesk/internal/plans"
	"github.com/leasedesk/leasedesk/internal/users"
)

type fakeUserRepo struct {
	byID map[uuid.UUID]*users.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[uuid.UUID]*users.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *users.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByStripeCustomer(_ context.Context, customerID string) (*users.User, error) {
	for _, u := range f.byID {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := f.GetByEmail(ctx, email)
	return u != nil, nil
}

func (f *fakeUserRepo) UpdatePlan(_ context.Context, id uuid.UUID, plan string) error {
	f.byID[id].Plan = plan
	return nil
}

func (f *fakeUserRepo) UpdatePlanByEmail(ctx context.Context, email, plan string) (bool, error) {
	u, _ := f.GetByEmail(ctx, email)
	if u == nil {
		return false, nil
	}
	u.Plan = plan
	return true, nil
}

func (f *fakeUserRepo) SetStripeCustomer(_ context.Context, id uuid.UUID, customerID string) error {
	f.byID[id].StripeCustomerID = &customerID
	return nil
}

type fakeKeyRepo struct {
	keys map[uuid.UUID]*apikeys.APIKey
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: make(map[uuid.UUID]*apikeys.APIKey)}
}

func (f *fakeKeyRepo) Create(_ context.Context, k *apikeys.APIKey) error {
	f.keys[k.UserID] = k
	return nil
}

func (f *fakeKeyRepo) GetActiveByUser(_ context.Context, userID uuid.UUID) (*apikeys.APIKey, error) {
	return f.keys[userID], nil
}

func (f *fakeKeyRepo) GetByKey(_ context.Context, key string) (*apikeys.APIKey, error) {
	for _, k := range f.keys {
		if k.Key == key {
			return k, nil
		}
	}
	return nil, nil
}

func (f *fakeKeyRepo) DeactivateForUser(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeKeyRepo) UpdatePlanForUser(_ context.Context, userID uuid.UUID, plan string) error {
	if k, ok := f.keys[userID]; ok {
		k.Plan = plan
	}
	return nil
}

type billingEnv struct {
	svc      *Service
	userRepo *fakeUserRepo
	keyRepo  *fakeKeyRepo
	user     *users.User
}

func newBillingEnv(t *testing.T) *billingEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	keyRepo := newFakeKeyRepo()

	user := &users.User{
		ID:        uuid.New(),
		Email:     "tenant@example.com",
		Plan:      plans.Free,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, userRepo.Create(context.Background(), user))
	require.NoError(t, keyRepo.Create(context.Background(), &apikeys.APIKey{
		ID: uuid.New(), UserID: user.ID, Key: "sk_x", Plan: plans.Free, Active: true,
	}))

	cfg := config.StripeConfig{
		SecretKey:         "sk_test",
		PriceIDPro:        "price_pro",
		PriceIDEnterprise: "price_ent",
	}
	return &billingEnv{
		svc:      NewService(users.NewService(userRepo), apikeys.NewService(keyRepo), nil, cfg),
		userRepo: userRepo,
		keyRepo:  keyRepo,
		user:     user,
	}
}

func TestService_CheckoutCompletedUpgradesToPro(t *testing.T) {
	env := newBillingEnv(t)
	ctx := context.Background()

	err := env.svc.HandleEvent(ctx, &Event{
		Type:          "checkout.session.completed",
		CustomerID:    "cus_1",
		CustomerEmail: "tenant@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, plans.Pro, env.user.Plan)
	assert.Equal(t, plans.Pro, env.keyRepo.keys[env.user.ID].Plan)
	require.NotNil(t, env.user.StripeCustomerID)
	assert.Equal(t, "cus_1", *env.user.StripeCustomerID)
}

func TestService_EnterprisePriceUpgradesToEnterprise(t *testing.T) {
	env := newBillingEnv(t)

	err := env.svc.HandleEvent(context.Background(), &Event{
		Type:          "customer.subscription.updated",
		CustomerEmail: "tenant@example.com",
		PriceID:       "price_ent",
	})
	require.NoError(t, err)
	assert.Equal(t, plans.Enterprise, env.user.Plan)
}

func TestService_SubscriptionDeletedDowngradesByCustomerID(t *testing.T) {
	env := newBillingEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.HandleEvent(ctx, &Event{
		Type:          "checkout.session.completed",
		CustomerID:    "cus_1",
		CustomerEmail: "tenant@example.com",
	}))
	require.Equal(t, plans.Pro, env.user.Plan)

	// Cancellation arrives with the customer id only, no email.
	require.NoError(t, env.svc.HandleEvent(ctx, &Event{
		Type:       "customer.subscription.deleted",
		CustomerID: "cus_1",
	}))
	assert.Equal(t, plans.Free, env.user.Plan)
	assert.Equal(t, plans.Free, env.keyRepo.keys[env.user.ID].Plan)
}

func TestService_PaymentFailedDowngrades(t *testing.T) {
	env := newBillingEnv(t)
	env.user.Plan = plans.Pro
	env.keyRepo.keys[env.user.ID].Plan = plans.Pro

	err := env.svc.HandleEvent(context.Background(), &Event{
		Type:          "invoice.payment_failed",
		CustomerEmail: "tenant@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, plans.Free, env.user.Plan)
}

func TestService_UnknownUserIgnoredSilently(t *testing.T) {
	env := newBillingEnv(t)

	err := env.svc.HandleEvent(context.Background(), &Event{
		Type:          "checkout.session.completed",
		CustomerEmail: "stranger@example.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, plans.Free, env.user.Plan)
}

func TestService_UnhandledEventTypeIgnored(t *testing.T) {
	env := newBillingEnv(t)

	err := env.svc.HandleEvent(context.Background(), &Event{
		Type:          "charge.succeeded",
		CustomerEmail: "tenant@example.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, plans.Free, env.user.Plan)
}
