package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"avatarbook/internal/booking"
	"avatarbook/internal/commons"
	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
	"avatarbook/internal/notification"
)

// Polling hints, in seconds, for the status page.
const (
	pollWhilePending    = 5
	pollWhileProcessing = 10
	pollWhileCallReady  = 60
)

type Service struct {
	orders   OrderRepository
	notifier Notifier
	baseURL  string
	newToken func() (string, error)
	logger   *zap.Logger
}

func NewService(orders OrderRepository, notifier Notifier, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		orders:   orders,
		notifier: notifier,
		baseURL:  baseURL,
		newToken: booking.NewDeliveryToken,
		logger:   logger,
	}
}

// Lookup resolves the capability pair. Any mismatch is reported as not found
// so callers cannot probe which half was wrong.
func (s *Service) Lookup(ctx context.Context, orderNumber, token string) (*dto.OrderStatusResponse, error) {
	if orderNumber == "" || token == "" {
		return nil, apperrors.NewNotFoundError("order not found")
	}

	order, err := s.orders.FindByNumberAndToken(ctx, orderNumber, token)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, err
	}

	return toStatusResponse(order), nil
}

// Regenerate issues a fresh delivery token for a fulfilled order. The old
// token stops resolving as soon as the swap commits.
func (s *Service) Regenerate(ctx context.Context, orderNumber string) (*dto.RegenerateLinkResponse, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusReady && order.Status != domain.OrderStatusDelivered {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is %s; links exist only for ready or delivered orders", orderNumber, order.Status))
	}
	if !order.HasDeliveryURL() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s has no delivery url", orderNumber))
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generating delivery token: %w", err)
	}

	if err := s.orders.RotateDeliveryToken(ctx, order.ID, order.DeliveryToken, token); err != nil {
		return nil, err
	}
	order.DeliveryToken = token

	s.logger.Info("delivery link regenerated", zap.String("orderId", order.ID), zap.String("orderNumber", order.OrderNumber))
	s.notifier.Notify(ctx, notification.KindLinkRegenerated, *order)

	return &dto.RegenerateLinkResponse{
		Success:     true,
		OrderNumber: order.OrderNumber,
		NewToken:    token,
		ViewURL:     commons.ViewURL(s.baseURL, order.OrderNumber, token),
	}, nil
}

func toStatusResponse(order *domain.Order) *dto.OrderStatusResponse {
	terminal := isSettled(order)

	resp := &dto.OrderStatusResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		OrderType:   string(order.OrderType),
		Status:      string(order.Status),
		Child: dto.ChildSummary{
			Name:      order.Child.Name,
			Age:       order.Child.Age,
			Interests: order.Child.Interests,
		},
		DeliveryURL: order.DeliveryURL,
		ScheduledAt: order.ScheduledAt,
		Timezone:    order.Timezone,
		CreatedAt:   order.CreatedAt,
		Terminal:    terminal,
	}
	if resp.Child.Interests == nil {
		resp.Child.Interests = []string{}
	}
	if !terminal {
		resp.PollAfterSeconds = pollInterval(order)
	}
	return resp
}

// isSettled reports whether the page has nothing left to wait for. A ready
// video is settled; a ready call still moves to delivered.
func isSettled(order *domain.Order) bool {
	if order.Status.IsTerminal() {
		return true
	}
	return order.OrderType == domain.OrderTypeVideo && order.Status == domain.OrderStatusReady
}

func pollInterval(order *domain.Order) int {
	switch order.Status {
	case domain.OrderStatusPending, domain.OrderStatusPaid:
		return pollWhilePending
	case domain.OrderStatusReady:
		return pollWhileCallReady
	}
	return pollWhileProcessing
}
