package checkout

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
)

type UseCase struct {
	booker     Booker
	orders     OrderRepository
	gateway    Gateway
	catalog    Catalog
	baseURL    string
	cancelPath string
	logger     *zap.Logger
}

func NewUseCase(booker Booker, orders OrderRepository, gateway Gateway, catalog Catalog, baseURL, cancelPath string, logger *zap.Logger) *UseCase {
	return &UseCase{
		booker:     booker,
		orders:     orders,
		gateway:    gateway,
		catalog:    catalog,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cancelPath: cancelPath,
		logger:     logger,
	}
}

// Checkout books a pending order and opens a hosted payment session for it.
// When the gateway fails the order stays pending and can be retried with
// Retry.
func (uc *UseCase) Checkout(ctx context.Context, req dto.CheckoutRequest, bypassWindow bool) (*dto.CheckoutResponse, error) {
	order, err := uc.booker.Book(ctx, req, bypassWindow)
	if err != nil {
		return nil, err
	}

	return uc.openSession(ctx, order)
}

// Retry re-issues checkout for an order that has not been paid yet.
func (uc *UseCase) Retry(ctx context.Context, orderNumber, token string) (*dto.CheckoutResponse, error) {
	order, err := uc.orders.FindByNumberAndToken(ctx, orderNumber, token)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.NewConflictError("order is not awaiting payment")
	}

	return uc.openSession(ctx, order)
}

func (uc *UseCase) openSession(ctx context.Context, order *domain.Order) (*dto.CheckoutResponse, error) {
	logger := uc.logger.With(zap.String("orderId", order.ID), zap.String("orderNumber", order.OrderNumber))

	product, err := uc.catalog.ForOrderType(order.OrderType)
	if err != nil {
		return nil, err
	}

	sess, err := uc.gateway.CreateSession(ctx, domain.CheckoutSessionRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OrderType:     order.OrderType,
		CustomerEmail: order.CustomerEmail,
		ProductName:   product.Name,
		Description:   product.Description,
		UnitAmount:    product.UnitAmount,
		Currency:      product.Currency,
		SuccessURL:    commons.ViewURL(uc.baseURL, order.OrderNumber, order.DeliveryToken),
		CancelURL:     uc.baseURL + uc.cancelPath,
	})
	if err != nil {
		logger.Error("checkout session creation failed", zap.Error(err))
		return nil, apperrors.NewUpstreamError(apperrors.CodeOrderCreationFailed, "could not create checkout session", err)
	}

	if sess.URL == "" {
		logger.Error("checkout session returned no redirect url", zap.String("sessionId", sess.ID))
		return nil, apperrors.NewUpstreamError(apperrors.CodeCheckoutURLMissing, "checkout session has no redirect url", nil)
	}

	if err := uc.orders.SetCheckoutSession(ctx, order.ID, sess.ID, product.UnitAmount, product.Currency); err != nil {
		return nil, err
	}

	logger.Info("checkout session created", zap.String("sessionId", sess.ID), zap.Int64("amount", product.UnitAmount))

	return &dto.CheckoutResponse{
		CheckoutURL: sess.URL,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}
