package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestOrder_Creation(t *testing.T) {
	createdAt := time.Now()
	hint := "telescope"

	order := Order{
		ID:            "0b8f6c1e-0000-4000-8000-000000000001",
		OrderNumber:   "AV-1",
		OrderType:     OrderTypeVideo,
		Status:        OrderStatusPending,
		CustomerEmail: "parent@example.com",
		Child: ChildProfile{
			Name:      "Mia",
			Age:       7,
			Interests: []string{"space", "music"},
			GiftHint:  &hint,
		},
		DeliveryToken: "tok",
		CreatedAt:     createdAt,
	}

	assert.Equal(t, OrderTypeVideo, order.OrderType)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, 7, order.Child.Age)
	assert.Equal(t, &hint, order.Child.GiftHint)
	assert.Nil(t, order.Child.Message)
	assert.False(t, order.HasDeliveryURL())
	assert.NoError(t, order.Validate())
}

func TestOrder_Validate_SchedulingOnlyForCalls(t *testing.T) {
	at := time.Date(2026, 10, 21, 21, 0, 0, 0, time.UTC)

	call := Order{OrderType: OrderTypeCall, ScheduledAt: &at, Timezone: strPtr("Europe/Madrid")}
	assert.NoError(t, call.Validate())

	callWithoutSchedule := Order{OrderType: OrderTypeCall}
	assert.Error(t, callWithoutSchedule.Validate())

	videoWithSchedule := Order{OrderType: OrderTypeVideo, ScheduledAt: &at}
	assert.Error(t, videoWithSchedule.Validate())

	unknown := Order{OrderType: "letter"}
	assert.Error(t, unknown.Validate())
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusDelivered, OrderStatusFailed, OrderStatusRefunded}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}

	open := []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusReady}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusPaid))
	assert.True(t, CanTransition(OrderStatusPaid, OrderStatusProcessing))
	assert.True(t, CanTransition(OrderStatusProcessing, OrderStatusReady))
	assert.True(t, CanTransition(OrderStatusProcessing, OrderStatusFailed))
	assert.True(t, CanTransition(OrderStatusReady, OrderStatusDelivered))

	assert.False(t, CanTransition(OrderStatusPending, OrderStatusProcessing))
	assert.False(t, CanTransition(OrderStatusReady, OrderStatusFailed))

	for _, terminal := range []OrderStatus{OrderStatusDelivered, OrderStatusFailed, OrderStatusRefunded} {
		for _, to := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusReady, OrderStatusDelivered, OrderStatusFailed} {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestVideoJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, VideoJobCompleted.IsTerminal())
	assert.True(t, VideoJobFailed.IsTerminal())
	assert.False(t, VideoJobQueued.IsTerminal())
	assert.False(t, VideoJobProcessing.IsTerminal())
}

func TestConversationStatus_IsTerminal(t *testing.T) {
	assert.True(t, ConversationCompleted.IsTerminal())
	assert.True(t, ConversationMissed.IsTerminal())
	assert.True(t, ConversationCancelled.IsTerminal())
	assert.False(t, ConversationScheduled.IsTerminal())
	assert.False(t, ConversationActive.IsTerminal())
}

func TestCanRecover(t *testing.T) {
	assert.True(t, CanRecover(OrderStatusFailed, OrderStatusProcessing))

	assert.False(t, CanRecover(OrderStatusDelivered, OrderStatusProcessing))
	assert.False(t, CanRecover(OrderStatusFailed, OrderStatusReady))
	assert.False(t, CanRecover(OrderStatusPaid, OrderStatusProcessing))
}
