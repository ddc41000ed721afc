package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
	"avatarbook/internal/notification"
)

// Dispatcher starts provider-side fulfillment for paid orders. Provider
// failures mark the order failed; there is no automatic retry, only the
// operator Resubmit path.
type Dispatcher struct {
	orders        OrderRepository
	videoJobs     VideoJobRepository
	conversations ConversationRepository
	provider      ContentProvider
	notifier      Notifier
	callbackURL   string
	now           func() time.Time
	logger        *zap.Logger
}

func NewDispatcher(
	orders OrderRepository,
	videoJobs VideoJobRepository,
	conversations ConversationRepository,
	provider ContentProvider,
	notifier Notifier,
	callbackURL string,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		orders:        orders,
		videoJobs:     videoJobs,
		conversations: conversations,
		provider:      provider,
		notifier:      notifier,
		callbackURL:   callbackURL,
		now:           time.Now,
		logger:        logger,
	}
}

// Dispatch creates the order's VideoJob or Conversation and calls the
// provider. A ConflictError means the order was already dispatched.
func (d *Dispatcher) Dispatch(ctx context.Context, order domain.Order) error {
	if order.Status != domain.OrderStatusPaid {
		return apperrors.NewConflictError(fmt.Sprintf("order %s is %s, not paid", order.OrderNumber, order.Status))
	}

	switch order.OrderType {
	case domain.OrderTypeVideo:
		job := &domain.VideoJob{
			ID:      uuid.New().String(),
			OrderID: order.ID,
			Status:  domain.VideoJobQueued,
		}
		if err := d.videoJobs.StartVideoFulfillment(ctx, job); err != nil {
			return err
		}
		order.Status = domain.OrderStatusProcessing
		return d.submitVideo(ctx, order, job)

	case domain.OrderTypeCall:
		if order.ScheduledAt == nil {
			return fmt.Errorf("call order %s has no scheduledAt", order.OrderNumber)
		}
		conv := &domain.Conversation{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			Status:      domain.ConversationScheduled,
			ScheduledAt: *order.ScheduledAt,
		}
		if err := d.conversations.StartCallFulfillment(ctx, conv); err != nil {
			return err
		}
		order.Status = domain.OrderStatusProcessing
		return d.bookCall(ctx, order, conv)
	}

	return fmt.Errorf("unknown order type %q", order.OrderType)
}

// Resubmit re-runs fulfillment for a failed order, or for a paid order whose
// dispatch never created its VideoJob or Conversation. It is the only way out
// of the failed status and is reserved for operators.
func (d *Dispatcher) Resubmit(ctx context.Context, orderNumber string) (*domain.Order, error) {
	order, err := d.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case domain.OrderStatusFailed:
	case domain.OrderStatusPaid:
		return d.redispatch(ctx, *order)
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is %s; only failed or undispatched paid orders can be resubmitted", orderNumber, order.Status))
	}

	logger := d.logger.With(zap.String("orderId", order.ID), zap.String("orderNumber", order.OrderNumber))

	switch order.OrderType {
	case domain.OrderTypeVideo:
		job, err := d.videoJobs.FindByOrderID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if err := d.videoJobs.Requeue(ctx, job.ID, order.ID); err != nil {
			return nil, err
		}
		job.Status = domain.VideoJobQueued
		job.RetryCount++
		order.Status = domain.OrderStatusProcessing
		logger.Info("video order resubmitted", zap.Int("retryCount", job.RetryCount))

		if err := d.submitVideo(ctx, *order, job); err != nil {
			return nil, err
		}

	case domain.OrderTypeCall:
		if err := d.callStillAhead(*order); err != nil {
			return nil, err
		}
		conv, err := d.conversations.FindByOrderID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if err := d.conversations.Reschedule(ctx, conv.ID, order.ID); err != nil {
			return nil, err
		}
		conv.Status = domain.ConversationScheduled
		order.Status = domain.OrderStatusProcessing
		logger.Info("call order resubmitted")

		if err := d.bookCall(ctx, *order, conv); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown order type %q", order.OrderType)
	}

	return d.orders.FindByOrderNumber(ctx, orderNumber)
}

// redispatch covers a paid order left behind when Dispatch failed before its
// fulfillment record committed. The payment event was already acknowledged,
// so nothing else will ever move it.
func (d *Dispatcher) redispatch(ctx context.Context, order domain.Order) (*domain.Order, error) {
	started, err := d.hasFulfillmentRecord(ctx, order)
	if err != nil {
		return nil, err
	}
	if started {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is already being fulfilled", order.OrderNumber))
	}

	if order.OrderType == domain.OrderTypeCall {
		if err := d.callStillAhead(order); err != nil {
			return nil, err
		}
	}

	d.logger.Info("re-dispatching paid order",
		zap.String("orderId", order.ID), zap.String("orderNumber", order.OrderNumber))

	if err := d.Dispatch(ctx, order); err != nil {
		return nil, err
	}

	return d.orders.FindByOrderNumber(ctx, order.OrderNumber)
}

func (d *Dispatcher) hasFulfillmentRecord(ctx context.Context, order domain.Order) (bool, error) {
	var err error
	switch order.OrderType {
	case domain.OrderTypeVideo:
		_, err = d.videoJobs.FindByOrderID(ctx, order.ID)
	case domain.OrderTypeCall:
		_, err = d.conversations.FindByOrderID(ctx, order.ID)
	default:
		return false, fmt.Errorf("unknown order type %q", order.OrderType)
	}

	if err == nil {
		return true, nil
	}
	if _, notFound := apperrors.IsNotFoundError(err); notFound {
		return false, nil
	}
	return false, err
}

func (d *Dispatcher) callStillAhead(order domain.Order) error {
	if order.ScheduledAt == nil || !order.ScheduledAt.After(d.now()) {
		return apperrors.NewValidationError("scheduled call time has passed; the customer must rebook",
			apperrors.ValidationDetail{Field: "scheduledAt", Message: "scheduledAt must be in the future"})
	}
	return nil
}

func (d *Dispatcher) submitVideo(ctx context.Context, order domain.Order, job *domain.VideoJob) error {
	logger := d.logger.With(zap.String("orderId", order.ID), zap.String("videoJobId", job.ID))

	sub, err := d.provider.CreateVideo(ctx, domain.VideoRequest{
		Name:        order.OrderNumber,
		Script:      VideoScript(order.Child),
		CallbackURL: d.callbackURL,
	})
	if err != nil {
		logger.Error("video generation request failed", zap.Error(err))
		if failErr := d.videoJobs.FailVideoJob(ctx, job.ID, order.ID, failureMessage(err)); failErr != nil {
			logger.Error("recording video failure", zap.Error(failErr))
		}
		return err
	}

	if err := d.videoJobs.MarkSubmitted(ctx, job.ID, sub.ExternalID); err != nil {
		logger.Error("provider accepted video but its id was not recorded; callbacks for it will not match",
			zap.String("externalVideoId", sub.ExternalID), zap.Error(err))
		return err
	}

	logger.Info("video generation submitted", zap.String("externalVideoId", sub.ExternalID))
	return nil
}

func (d *Dispatcher) bookCall(ctx context.Context, order domain.Order, conv *domain.Conversation) error {
	logger := d.logger.With(zap.String("orderId", order.ID), zap.String("conversationId", conv.ID))

	booking, err := d.provider.CreateConversation(ctx, domain.ConversationRequest{
		Name:        order.OrderNumber,
		Context:     ConversationContext(order.Child),
		Greeting:    ConversationGreeting(order.Child),
		CallbackURL: d.callbackURL,
		ScheduledAt: conv.ScheduledAt,
	})
	if err != nil {
		logger.Error("conversation booking failed", zap.Error(err))
		if cancelErr := d.conversations.Cancel(ctx, conv.ID, order.ID, failureMessage(err)); cancelErr != nil {
			logger.Error("recording conversation failure", zap.Error(cancelErr))
		}
		return err
	}

	if err := d.conversations.MarkBooked(ctx, conv.ID, order.ID, booking.ExternalID, booking.RoomURL); err != nil {
		logger.Error("provider booked conversation but its id was not recorded; callbacks for it will not match",
			zap.String("externalConversationId", booking.ExternalID), zap.Error(err))
		return err
	}

	order.Status = domain.OrderStatusReady
	order.DeliveryURL = &booking.RoomURL
	d.notifier.Notify(ctx, notification.KindCallLinkReady, order)

	logger.Info("conversation booked", zap.String("externalConversationId", booking.ExternalID))
	return nil
}

func failureMessage(err error) string {
	if ue, ok := apperrors.IsUpstreamError(err); ok {
		if ue.Cause != nil {
			return fmt.Sprintf("%s: %v", ue.Message, ue.Cause)
		}
		return ue.Message
	}
	return err.Error()
}
