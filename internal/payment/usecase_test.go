package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
	"avatarbook/internal/infrastructure/redis"
	"avatarbook/internal/notification"
	"avatarbook/internal/testutil"
)

type mockVerifier struct {
	VerifyFunc func(payload []byte, signature string) (*domain.PaymentEvent, error)
}

func (m *mockVerifier) Verify(payload []byte, signature string) (*domain.PaymentEvent, error) {
	return m.VerifyFunc(payload, signature)
}

type mockDispatcher struct {
	DispatchFunc func(ctx context.Context, order domain.Order) error
	calls        []domain.Order
}

func (m *mockDispatcher) Dispatch(ctx context.Context, order domain.Order) error {
	m.calls = append(m.calls, order)
	if m.DispatchFunc == nil {
		return nil
	}
	return m.DispatchFunc(ctx, order)
}

type recordingNotifier struct {
	kinds []notification.Kind
}

func (n *recordingNotifier) Notify(ctx context.Context, kind notification.Kind, order domain.Order) {
	n.kinds = append(n.kinds, kind)
}

type mockLocker struct {
	TryLockFunc func(ctx context.Context, scope, key string) (bool, error)
	released    []string
}

func (m *mockLocker) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return m.TryLockFunc(ctx, scope, key)
}

func (m *mockLocker) Release(ctx context.Context, scope, key string) error {
	m.released = append(m.released, scope+":"+key)
	return nil
}

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func seedPendingOrder(t *testing.T, store *testutil.MemoryStore) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ID:            "order-1",
		OrderNumber:   "AV-1",
		OrderType:     domain.OrderTypeVideo,
		Status:        domain.OrderStatusPending,
		CustomerEmail: "parent@example.com",
		Child:         domain.ChildProfile{Name: "Mia", Age: 7},
		DeliveryToken: "tok",
	}
	ctx := context.Background()
	require.NoError(t, store.Orders().Create(ctx, order))
	require.NoError(t, store.Orders().SetCheckoutSession(ctx, order.ID, "cs_1", 2900, "usd"))
	return order
}

func completedEvent() *domain.PaymentEvent {
	return &domain.PaymentEvent{
		ID:              "evt_1",
		Type:            domain.PaymentEventCheckoutCompleted,
		CreatedAt:       testNow.Add(-30 * time.Second),
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
		AmountTotal:     2900,
		Currency:        "usd",
		Metadata:        map[string]string{domain.MetadataOrderID: "order-1"},
	}
}

func verifierReturning(evt *domain.PaymentEvent) *mockVerifier {
	return &mockVerifier{
		VerifyFunc: func(payload []byte, signature string) (*domain.PaymentEvent, error) {
			copied := *evt
			return &copied, nil
		},
	}
}

type fixture struct {
	store      *testutil.MemoryStore
	dispatcher *mockDispatcher
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	store := testutil.NewMemoryStore()
	seedPendingOrder(t, store)
	return &fixture{store: store, dispatcher: &mockDispatcher{}, notifier: &recordingNotifier{}}
}

func (f *fixture) useCase(verifier Verifier, locker *mockLocker) *UseCase {
	var uc *UseCase
	if locker == nil {
		uc = NewUseCase(verifier, f.store.Orders(), nil, f.notifier, f.dispatcher, zap.NewNop())
	} else {
		uc = NewUseCase(verifier, f.store.Orders(), locker, f.notifier, f.dispatcher, zap.NewNop())
	}
	uc.now = func() time.Time { return testNow }
	return uc
}

func TestHandleEvent_MarksPaidAndDispatches(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.useCase(verifierReturning(completedEvent()), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	order, _ := f.store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, "pi_1", *order.PaymentIntentID)

	require.Len(t, f.dispatcher.calls, 1)
	assert.Equal(t, domain.OrderStatusPaid, f.dispatcher.calls[0].Status)
	assert.Equal(t, []notification.Kind{notification.KindOrderConfirmed}, f.notifier.kinds)
}

func TestHandleEvent_InvalidSignatureMutatesNothing(t *testing.T) {
	f := newFixture(t)
	verifier := &mockVerifier{
		VerifyFunc: func(payload []byte, signature string) (*domain.PaymentEvent, error) {
			return nil, apperrors.NewAuthenticationError("invalid payment signature")
		},
	}

	_, err := f.useCase(verifier, nil).HandleEvent(context.Background(), []byte(`{}`), "bad")
	_, isAuth := apperrors.IsAuthenticationError(err)
	assert.True(t, isAuth)

	order, _ := f.store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_StaleEventRejected(t *testing.T) {
	f := newFixture(t)
	evt := completedEvent()
	evt.CreatedAt = testNow.Add(-6 * time.Minute)

	_, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	_, isAuth := apperrors.IsAuthenticationError(err)
	assert.True(t, isAuth)

	order, _ := f.store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestHandleEvent_OtherTypesIgnored(t *testing.T) {
	f := newFixture(t)
	evt := completedEvent()
	evt.Type = "charge.refunded"

	outcome, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_DuplicateDeliveryDispatchesOnce(t *testing.T) {
	f := newFixture(t)
	uc := f.useCase(verifierReturning(completedEvent()), nil)

	first, err := uc.HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	second, err := uc.HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeProcessed, first)
	assert.Equal(t, OutcomeDuplicate, second)
	assert.Len(t, f.dispatcher.calls, 1)
	assert.Len(t, f.notifier.kinds, 1)
}

func TestHandleEvent_InFlightLockShortCircuits(t *testing.T) {
	f := newFixture(t)
	locker := &mockLocker{
		TryLockFunc: func(ctx context.Context, scope, key string) (bool, error) {
			assert.Equal(t, "payment", scope)
			assert.Equal(t, "pi_1", key)
			return false, nil
		},
	}

	outcome, err := f.useCase(verifierReturning(completedEvent()), locker).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInFlight, outcome)
	assert.Empty(t, locker.released)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_LockErrorFallsBackToDatabaseGuard(t *testing.T) {
	f := newFixture(t)
	locker := &mockLocker{
		TryLockFunc: func(ctx context.Context, scope, key string) (bool, error) {
			return false, errors.New("redis down")
		},
	}

	outcome, err := f.useCase(verifierReturning(completedEvent()), locker).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Len(t, f.dispatcher.calls, 1)
}

func TestHandleEvent_RedisLockReleasedAfterProcessing(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	uc := NewUseCase(verifierReturning(completedEvent()), f.store.Orders(), redis.NewIdempotencyStore(rdb, time.Minute), f.notifier, f.dispatcher, zap.NewNop())
	uc.now = func() time.Time { return testNow }

	outcome, err := uc.HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Empty(t, mr.Keys())
}

func TestHandleEvent_UnknownSessionAcknowledged(t *testing.T) {
	f := newFixture(t)
	evt := completedEvent()
	evt.SessionID = "cs_unknown"
	evt.PaymentIntentID = "pi_unknown"
	evt.Metadata = map[string]string{domain.MetadataOrderID: "order-missing"}

	outcome, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrder, outcome)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_SessionWithoutMetadataAcknowledged(t *testing.T) {
	f := newFixture(t)
	evt := completedEvent()
	evt.SessionID = "cs_unknown"
	evt.Metadata = nil

	outcome, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrder, outcome)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_SupersededSessionStillPays(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Orders().SetCheckoutSession(context.Background(), "order-1", "cs_2", 2900, "usd"))

	evt := completedEvent()
	evt.Metadata[domain.MetadataOrderNumber] = "AV-1"

	outcome, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	order, _ := f.store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, "pi_1", *order.PaymentIntentID)
	require.Len(t, f.dispatcher.calls, 1)
}

func TestHandleEvent_SupersededSessionWithWrongOrderNumberIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Orders().SetCheckoutSession(context.Background(), "order-1", "cs_2", 2900, "usd"))

	evt := completedEvent()
	evt.Metadata[domain.MetadataOrderNumber] = "AV-999"

	outcome, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrder, outcome)

	order, _ := f.store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_MetadataMismatchNotApplied(t *testing.T) {
	f := newFixture(t)
	evt := completedEvent()
	evt.Metadata[domain.MetadataOrderID] = "someone-else"

	outcome, err := f.useCase(verifierReturning(evt), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrder, outcome)

	order, _ := f.store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestHandleEvent_SupersededSessionAfterPaymentIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Orders().SetCheckoutSession(ctx, "order-1", "cs_2", 2900, "usd"))
	require.NoError(t, f.store.Orders().MarkPaid(ctx, "order-1", "pi_2", 2900, "usd"))

	outcome, err := f.useCase(verifierReturning(completedEvent()), nil).HandleEvent(ctx, []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Empty(t, f.dispatcher.calls)
}

func TestHandleEvent_DispatchFailureStillAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.DispatchFunc = func(ctx context.Context, order domain.Order) error {
		return apperrors.NewUpstreamError(apperrors.CodeProviderRequestFailed, "provider down", nil)
	}

	outcome, err := f.useCase(verifierReturning(completedEvent()), nil).HandleEvent(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
}
