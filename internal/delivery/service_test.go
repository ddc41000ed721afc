package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
	"avatarbook/internal/notification"
	"avatarbook/internal/testutil"
)

type recordingNotifier struct {
	kinds  []notification.Kind
	tokens []string
}

func (n *recordingNotifier) Notify(ctx context.Context, kind notification.Kind, order domain.Order) {
	n.kinds = append(n.kinds, kind)
	n.tokens = append(n.tokens, order.DeliveryToken)
}

// seedVideo creates a video order and drives it to the given status through
// the store's own transitions.
func seedVideo(t *testing.T, store *testutil.MemoryStore, status domain.OrderStatus) *domain.Order {
	t.Helper()
	ctx := context.Background()
	order := &domain.Order{
		ID:            "order-1",
		OrderNumber:   "AV-1",
		OrderType:     domain.OrderTypeVideo,
		Status:        domain.OrderStatusPending,
		CustomerEmail: "parent@example.com",
		Child:         domain.ChildProfile{Name: "Mia", Age: 7, Interests: []string{"space", "music"}},
		DeliveryToken: "old-token",
	}
	require.NoError(t, store.Orders().Create(ctx, order))
	if status == domain.OrderStatusPending {
		return order
	}

	require.NoError(t, store.Orders().MarkPaid(ctx, order.ID, "pi_1", 2900, "usd"))
	if status == domain.OrderStatusPaid {
		return order
	}

	job := &domain.VideoJob{ID: "job-1", OrderID: order.ID, Status: domain.VideoJobQueued}
	require.NoError(t, store.VideoJobs().StartVideoFulfillment(ctx, job))
	require.NoError(t, store.VideoJobs().MarkSubmitted(ctx, job.ID, "vid_1"))

	switch status {
	case domain.OrderStatusReady:
		require.NoError(t, store.VideoJobs().CompleteVideoJob(ctx, job.ID, order.ID, "https://cdn.example.com/v.mp4", nil, time.Now()))
	case domain.OrderStatusFailed:
		require.NoError(t, store.VideoJobs().FailVideoJob(ctx, job.ID, order.ID, "boom"))
	}
	return order
}

func newTestService(store *testutil.MemoryStore, notifier Notifier) *Service {
	svc := NewService(store.Orders(), notifier, "https://book.example.com", zap.NewNop())
	svc.newToken = func() (string, error) { return "new-token", nil }
	return svc
}

func TestLookup_ReturnsStatusView(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedVideo(t, store, domain.OrderStatusProcessing)

	resp, err := newTestService(store, &recordingNotifier{}).Lookup(context.Background(), "AV-1", "old-token")
	require.NoError(t, err)

	assert.Equal(t, "order-1", resp.ID)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, "video", resp.OrderType)
	assert.Equal(t, []string{"space", "music"}, resp.Child.Interests)
	assert.False(t, resp.Terminal)
	assert.Equal(t, pollWhileProcessing, resp.PollAfterSeconds)
	assert.Nil(t, resp.DeliveryURL)
}

func TestLookup_ReadyVideoIsSettled(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedVideo(t, store, domain.OrderStatusReady)

	resp, err := newTestService(store, &recordingNotifier{}).Lookup(context.Background(), "AV-1", "old-token")
	require.NoError(t, err)
	assert.True(t, resp.Terminal)
	assert.Zero(t, resp.PollAfterSeconds)
	assert.Equal(t, "https://cdn.example.com/v.mp4", *resp.DeliveryURL)
}

func TestLookup_MismatchIsNotFound(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedVideo(t, store, domain.OrderStatusPending)
	svc := newTestService(store, &recordingNotifier{})

	cases := [][2]string{
		{"AV-1", "wrong"},
		{"AV-2", "old-token"},
		{"AV-1", ""},
		{"", "old-token"},
	}
	for _, c := range cases {
		_, err := svc.Lookup(context.Background(), c[0], c[1])
		_, isNotFound := apperrors.IsNotFoundError(err)
		assert.True(t, isNotFound, c)
	}
}

func TestPollInterval(t *testing.T) {
	assert.Equal(t, pollWhilePending, pollInterval(&domain.Order{Status: domain.OrderStatusPending}))
	assert.Equal(t, pollWhilePending, pollInterval(&domain.Order{Status: domain.OrderStatusPaid}))
	assert.Equal(t, pollWhileProcessing, pollInterval(&domain.Order{Status: domain.OrderStatusProcessing}))
	assert.Equal(t, pollWhileCallReady, pollInterval(&domain.Order{OrderType: domain.OrderTypeCall, Status: domain.OrderStatusReady}))

	assert.False(t, isSettled(&domain.Order{OrderType: domain.OrderTypeCall, Status: domain.OrderStatusReady}))
	assert.True(t, isSettled(&domain.Order{OrderType: domain.OrderTypeCall, Status: domain.OrderStatusDelivered}))
	assert.True(t, isSettled(&domain.Order{OrderType: domain.OrderTypeVideo, Status: domain.OrderStatusFailed}))
}

func TestRegenerate_RotatesToken(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedVideo(t, store, domain.OrderStatusReady)
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	resp, err := svc.Regenerate(context.Background(), "AV-1")
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "new-token", resp.NewToken)
	assert.Equal(t, "https://book.example.com/orders/AV-1?token=new-token", resp.ViewURL)
	assert.Equal(t, []notification.Kind{notification.KindLinkRegenerated}, notifier.kinds)
	assert.Equal(t, []string{"new-token"}, notifier.tokens)

	_, err = svc.Lookup(context.Background(), "AV-1", "old-token")
	_, isNotFound := apperrors.IsNotFoundError(err)
	assert.True(t, isNotFound)

	view, err := svc.Lookup(context.Background(), "AV-1", "new-token")
	require.NoError(t, err)
	assert.Equal(t, "ready", view.Status)
}

func TestRegenerate_RequiresFulfilledOrder(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusPaid, domain.OrderStatusProcessing, domain.OrderStatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			store := testutil.NewMemoryStore()
			seedVideo(t, store, status)
			notifier := &recordingNotifier{}

			_, err := newTestService(store, notifier).Regenerate(context.Background(), "AV-1")
			_, isConflict := apperrors.IsConflictError(err)
			assert.True(t, isConflict)
			assert.Empty(t, notifier.kinds)

			order, _ := store.Orders().FindByID(context.Background(), "order-1")
			assert.Equal(t, "old-token", order.DeliveryToken)
		})
	}
}

func TestRegenerate_UnknownOrder(t *testing.T) {
	store := testutil.NewMemoryStore()

	_, err := newTestService(store, &recordingNotifier{}).Regenerate(context.Background(), "AV-404")
	_, isNotFound := apperrors.IsNotFoundError(err)
	assert.True(t, isNotFound)
}

func TestRegenerate_TokenGenerationFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	seedVideo(t, store, domain.OrderStatusReady)
	svc := newTestService(store, &recordingNotifier{})
	svc.newToken = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, err := svc.Regenerate(context.Background(), "AV-1")
	assert.Error(t, err)

	order, _ := store.Orders().FindByID(context.Background(), "order-1")
	assert.Equal(t, "old-token", order.DeliveryToken)
}
