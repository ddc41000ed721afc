package delivery

import (
	"context"

	"avatarbook/internal/domain"
	"avatarbook/internal/notification"
)

type OrderRepository interface {
	FindByNumberAndToken(ctx context.Context, orderNumber, token string) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	RotateDeliveryToken(ctx context.Context, id, oldToken, newToken string) error
}

type Notifier interface {
	Notify(ctx context.Context, kind notification.Kind, order domain.Order)
}
