package checkout

import (
	"context"

	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
)

type Booker interface {
	Book(ctx context.Context, req dto.CheckoutRequest, bypassWindow bool) (*domain.Order, error)
}

type OrderRepository interface {
	FindByNumberAndToken(ctx context.Context, orderNumber, token string) (*domain.Order, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string, amount int64, currency string) error
}

type Gateway interface {
	CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (*domain.CheckoutSession, error)
}

type Catalog interface {
	ForOrderType(orderType domain.OrderType) (domain.Product, error)
}
