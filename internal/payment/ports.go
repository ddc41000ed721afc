package payment

import (
	"context"

	"avatarbook/internal/domain"
	"avatarbook/internal/notification"
)

type Verifier interface {
	Verify(payload []byte, signature string) (*domain.PaymentEvent, error)
}

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	MarkPaid(ctx context.Context, id, paymentIntentID string, amount int64, currency string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, order domain.Order) error
}

type Notifier interface {
	Notify(ctx context.Context, kind notification.Kind, order domain.Order)
}
