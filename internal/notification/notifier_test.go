package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avatarbook/internal/domain"
)

type mockPublisher struct {
	PublishFunc func(ctx context.Context, routingKey string, payload []byte) error
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	return m.PublishFunc(ctx, routingKey, payload)
}

func testOrder() domain.Order {
	url := "https://cdn.example.com/v.mp4"
	return domain.Order{
		ID:            "order-1",
		OrderNumber:   "AV-100",
		OrderType:     domain.OrderTypeVideo,
		CustomerEmail: "parent@example.com",
		CustomerName:  "Sam",
		Child:         domain.ChildProfile{Name: "Mia", Age: 7},
		DeliveryURL:   &url,
		DeliveryToken: "tok123",
	}
}

func TestNotify_PublishesEvent(t *testing.T) {
	var gotKey string
	var got Event

	pub := &mockPublisher{
		PublishFunc: func(ctx context.Context, routingKey string, payload []byte) error {
			gotKey = routingKey
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return json.Unmarshal(payload, &got)
		},
	}

	svc := NewService(pub, "https://book.example.com", zap.NewNop())
	svc.Notify(context.Background(), KindVideoReady, testOrder())

	assert.Equal(t, "order.video_ready", gotKey)
	assert.Equal(t, KindVideoReady, got.Kind)
	assert.Equal(t, "AV-100", got.OrderNumber)
	assert.Equal(t, "Mia", got.ChildName)
	assert.Equal(t, "https://book.example.com/orders/AV-100?token=tok123", got.ViewURL)
	assert.Equal(t, "https://cdn.example.com/v.mp4", got.DeliveryURL)
	assert.WithinDuration(t, time.Now(), got.OccurredAt, time.Minute)
}

func TestNotify_PublishFailureIsSwallowed(t *testing.T) {
	calls := 0
	pub := &mockPublisher{
		PublishFunc: func(ctx context.Context, routingKey string, payload []byte) error {
			calls++
			return errors.New("broker down")
		},
	}

	svc := NewService(pub, "https://book.example.com", zap.NewNop())

	require.NotPanics(t, func() {
		svc.Notify(context.Background(), KindOrderConfirmed, testOrder())
	})
	assert.Equal(t, 1, calls)
}

func TestNotify_SurvivesCancelledRequestContext(t *testing.T) {
	var ctxErr error
	pub := &mockPublisher{
		PublishFunc: func(ctx context.Context, routingKey string, payload []byte) error {
			ctxErr = ctx.Err()
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewService(pub, "https://book.example.com", zap.NewNop()).Notify(ctx, KindCallCompleted, testOrder())

	assert.NoError(t, ctxErr)
}

func TestLogPublisher_NeverFails(t *testing.T) {
	pub := NewLogPublisher(zap.NewNop())
	assert.NoError(t, pub.Publish(context.Background(), "order.confirmed", []byte(`{}`)))
}
