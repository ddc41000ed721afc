package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
)

// Order number and token collisions are astronomically rare; a couple of
// fresh draws is enough.
const maxCreateAttempts = 3

type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) error
}

type NumberGenerator interface {
	Next() string
}

type Service struct {
	orders   OrderCreator
	numbers  NumberGenerator
	window   SchedulingWindow
	newToken func() (string, error)
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(orders OrderCreator, numbers NumberGenerator, logger *zap.Logger) *Service {
	return &Service{
		orders:   orders,
		numbers:  numbers,
		window:   DefaultWindow,
		newToken: NewDeliveryToken,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *Service) Window() SchedulingWindow {
	return s.window
}

// Book validates req and persists a pending order for it.
func (s *Service) Book(ctx context.Context, req dto.CheckoutRequest, bypassWindow bool) (*domain.Order, error) {
	order, err := Validate(req, s.now(), s.window, bypassWindow)
	if err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if bypassWindow {
		s.logger.Warn("scheduling window bypassed for test booking", zap.String("orderType", string(order.OrderType)))
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, err
		}

		order.ID = uuid.New().String()
		order.OrderNumber = s.numbers.Next()
		order.DeliveryToken = token

		err = s.orders.Create(ctx, order)
		if err == nil {
			s.logger.Info("order booked",
				zap.String("orderId", order.ID),
				zap.String("orderNumber", order.OrderNumber),
				zap.String("orderType", string(order.OrderType)),
			)
			return order, nil
		}

		if _, ok := apperrors.IsConflictError(err); !ok {
			return nil, err
		}
		s.logger.Warn("order identifier collision, retrying", zap.Int("attempt", attempt))
	}

	return nil, apperrors.NewPersistenceError("could not allocate unique order identifiers", nil)
}
