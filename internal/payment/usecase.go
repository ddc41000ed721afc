package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
	"avatarbook/internal/notification"
)

// freshnessWindow is the maximum age of an event's origination time.
const freshnessWindow = 5 * time.Minute

const lockScope = "payment"

type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeInFlight     Outcome = "in_flight"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnknownOrder Outcome = "unknown_order"
	OutcomeFailed       Outcome = "failed"
)

type UseCase struct {
	verifier   Verifier
	orders     OrderRepository
	locker     commons.Locker
	notifier   Notifier
	dispatcher Dispatcher
	now        func() time.Time
	logger     *zap.Logger
}

func NewUseCase(verifier Verifier, orders OrderRepository, locker commons.Locker, notifier Notifier, dispatcher Dispatcher, logger *zap.Logger) *UseCase {
	if locker == nil {
		locker = commons.NoLocker{}
	}
	return &UseCase{
		verifier:   verifier,
		orders:     orders,
		locker:     locker,
		notifier:   notifier,
		dispatcher: dispatcher,
		now:        time.Now,
		logger:     logger,
	}
}

// HandleEvent authenticates and applies one payment webhook delivery. Only an
// AuthenticationError is returned; once the event is authentic and fresh every
// other failure is logged and reported through the outcome, so the sender
// never retries into duplicate side effects.
func (uc *UseCase) HandleEvent(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	evt, err := uc.verifier.Verify(payload, signature)
	if err != nil {
		if _, ok := apperrors.IsAuthenticationError(err); ok {
			return "", err
		}
		uc.logger.Error("undecodable payment event", zap.Error(err))
		return OutcomeFailed, nil
	}

	if age := uc.now().Sub(evt.CreatedAt); age > freshnessWindow {
		return "", apperrors.NewAuthenticationError(fmt.Sprintf("payment event %s is %s old", evt.ID, age.Truncate(time.Second)))
	}

	logger := uc.logger.With(zap.String("eventId", evt.ID), zap.String("eventType", evt.Type))

	if evt.Type != domain.PaymentEventCheckoutCompleted {
		logger.Debug("ignoring payment event type")
		return OutcomeIgnored, nil
	}

	logger = logger.With(zap.String("checkoutSessionId", evt.SessionID), zap.String("paymentIntentId", evt.PaymentIntentID))

	if evt.PaymentIntentID != "" {
		existing, err := uc.orders.FindByPaymentIntentID(ctx, evt.PaymentIntentID)
		switch {
		case err == nil && existing.Status != domain.OrderStatusPending:
			logger.Info("duplicate payment event acknowledged", zap.String("orderNumber", existing.OrderNumber))
			return OutcomeDuplicate, nil
		case err != nil:
			if _, notFound := apperrors.IsNotFoundError(err); !notFound {
				logger.Error("payment intent lookup failed", zap.Error(err))
				return OutcomeFailed, nil
			}
		}
	}

	lockKey := evt.PaymentIntentID
	if lockKey == "" {
		lockKey = evt.SessionID
	}
	acquired, err := uc.locker.TryLock(ctx, lockScope, lockKey)
	if err != nil {
		logger.Warn("idempotency lock unavailable, relying on conditional update", zap.Error(err))
	} else if !acquired {
		logger.Info("payment event already in flight")
		return OutcomeInFlight, nil
	} else {
		defer func() {
			if err := uc.locker.Release(context.WithoutCancel(ctx), lockScope, lockKey); err != nil {
				logger.Warn("releasing idempotency lock", zap.Error(err))
			}
		}()
	}

	order, err := uc.findOrder(ctx, evt, logger)
	if err != nil {
		if _, notFound := apperrors.IsNotFoundError(err); notFound {
			logger.Warn("payment for unknown checkout session")
			return OutcomeUnknownOrder, nil
		}
		logger.Error("order lookup failed", zap.Error(err))
		return OutcomeFailed, nil
	}

	if id := evt.Metadata[domain.MetadataOrderID]; id != "" && id != order.ID {
		logger.Error("checkout metadata does not match stored order",
			zap.String("metadataOrderId", id), zap.String("orderId", order.ID))
		return OutcomeUnknownOrder, nil
	}

	logger = logger.With(zap.String("orderId", order.ID), zap.String("orderNumber", order.OrderNumber))

	if err := uc.orders.MarkPaid(ctx, order.ID, evt.PaymentIntentID, evt.AmountTotal, evt.Currency); err != nil {
		if _, conflict := apperrors.IsConflictError(err); conflict {
			logger.Info("order already past pending, acknowledging duplicate")
			return OutcomeDuplicate, nil
		}
		logger.Error("marking order paid failed", zap.Error(err))
		return OutcomeFailed, nil
	}

	order.Status = domain.OrderStatusPaid
	order.PaymentIntentID = &evt.PaymentIntentID
	order.AmountTotal = evt.AmountTotal
	order.Currency = evt.Currency
	logger.Info("order paid", zap.Int64("amountTotal", evt.AmountTotal), zap.String("currency", evt.Currency))

	uc.notifier.Notify(ctx, notification.KindOrderConfirmed, *order)

	if err := uc.dispatcher.Dispatch(ctx, *order); err != nil {
		logger.Error("fulfillment dispatch failed, operator follow-up required", zap.Error(err))
	}

	return OutcomeProcessed, nil
}

// findOrder resolves the order a completed session pays for. A retried
// checkout replaces the stored session id while the earlier hosted page stays
// payable, so a miss falls back to the order id carried in the session
// metadata.
func (uc *UseCase) findOrder(ctx context.Context, evt *domain.PaymentEvent, logger *zap.Logger) (*domain.Order, error) {
	order, err := uc.orders.FindByCheckoutSessionID(ctx, evt.SessionID)
	if _, notFound := apperrors.IsNotFoundError(err); !notFound {
		return order, err
	}

	orderID := evt.Metadata[domain.MetadataOrderID]
	if orderID == "" {
		return nil, err
	}

	order, err = uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if number := evt.Metadata[domain.MetadataOrderNumber]; number != "" && number != order.OrderNumber {
		logger.Error("checkout metadata order number does not match stored order",
			zap.String("metadataOrderNumber", number), zap.String("orderNumber", order.OrderNumber))
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no order for checkout session %s", evt.SessionID))
	}

	logger.Warn("payment for a superseded checkout session, matched by metadata",
		zap.String("orderId", order.ID), zap.String("currentSessionId", derefOr(order.CheckoutSessionID, "")))
	return order, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
