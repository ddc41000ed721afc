package content

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
	"avatarbook/internal/notification"
)

const lockScope = "content"

type Outcome string

const (
	OutcomeProcessed     Outcome = "processed"
	OutcomeNoChange      Outcome = "no_change"
	OutcomeAlreadyFinal  Outcome = "already_final"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeUnknownEntity Outcome = "unknown_entity"
	OutcomeInFlight      Outcome = "in_flight"
	OutcomeFailed        Outcome = "failed"
)

type UseCase struct {
	secret        string
	orders        OrderRepository
	videoJobs     VideoJobRepository
	conversations ConversationRepository
	notifier      Notifier
	locker        commons.Locker
	now           func() time.Time
	logger        *zap.Logger
}

func NewUseCase(secret string, orders OrderRepository, videoJobs VideoJobRepository, conversations ConversationRepository, notifier Notifier, locker commons.Locker, logger *zap.Logger) *UseCase {
	if locker == nil {
		locker = commons.NoLocker{}
	}
	return &UseCase{
		secret:        secret,
		orders:        orders,
		videoJobs:     videoJobs,
		conversations: conversations,
		notifier:      notifier,
		locker:        locker,
		now:           time.Now,
		logger:        logger,
	}
}

// HandleEvent authenticates a provider callback and applies it. Once the
// secret matches, storage failures are logged and acknowledged; recovery is
// left to operators.
func (uc *UseCase) HandleEvent(ctx context.Context, secret string, body []byte) (Outcome, error) {
	if uc.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(uc.secret)) != 1 {
		return "", apperrors.NewAuthenticationError("invalid content webhook secret")
	}

	var payload dto.ContentWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", apperrors.NewValidationError("invalid JSON body",
			apperrors.ValidationDetail{Field: "body", Message: "request body must be valid JSON"})
	}

	switch {
	case payload.VideoID != "":
		return uc.withLock(ctx, "video:"+payload.VideoID, func() Outcome {
			return uc.applyVideoEvent(ctx, payload)
		}), nil
	case payload.ConversationID != "":
		return uc.withLock(ctx, "conversation:"+payload.ConversationID, func() Outcome {
			return uc.applyConversationEvent(ctx, payload)
		}), nil
	}

	return "", apperrors.NewValidationError("unrecognized webhook payload",
		apperrors.ValidationDetail{Field: "body", Message: "video_id or conversation_id is required"})
}

func (uc *UseCase) withLock(ctx context.Context, key string, apply func() Outcome) Outcome {
	acquired, err := uc.locker.TryLock(ctx, lockScope, key)
	if err != nil {
		uc.logger.Warn("idempotency lock unavailable, relying on conditional update", zap.String("key", key), zap.Error(err))
		return apply()
	}
	if !acquired {
		uc.logger.Info("content event already in flight", zap.String("key", key))
		return OutcomeInFlight
	}
	defer func() {
		if err := uc.locker.Release(context.WithoutCancel(ctx), lockScope, key); err != nil {
			uc.logger.Warn("releasing idempotency lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return apply()
}

func (uc *UseCase) applyVideoEvent(ctx context.Context, payload dto.ContentWebhookPayload) Outcome {
	logger := uc.logger.With(zap.String("externalVideoId", payload.VideoID), zap.String("providerStatus", payload.Status))

	job, err := uc.videoJobs.FindByExternalID(ctx, payload.VideoID)
	if err != nil {
		return uc.lookupOutcome(logger, "video job", err)
	}
	logger = logger.With(zap.String("videoJobId", job.ID), zap.String("orderId", job.OrderID))

	target, known := mapVideoStatus(payload.Status)
	if !known {
		logger.Warn("unrecognized video status, treating as processing")
	}

	if job.Status.IsTerminal() {
		logger.Info("video job already final, event ignored", zap.String("jobStatus", string(job.Status)))
		return OutcomeAlreadyFinal
	}

	switch target {
	case domain.VideoJobQueued, domain.VideoJobProcessing:
		// Only queued -> processing moves forward; anything else is a replay
		// or out-of-order delivery.
		if job.Status != domain.VideoJobQueued || target != domain.VideoJobProcessing {
			return OutcomeNoChange
		}
		if err := uc.videoJobs.UpdateStatus(ctx, job.ID, target); err != nil {
			return uc.writeOutcome(logger, "updating video job status", err)
		}
		return OutcomeProcessed

	case domain.VideoJobCompleted:
		videoURL := payload.DownloadURL
		if videoURL == "" {
			videoURL = payload.HostedURL
		}
		if videoURL == "" {
			logger.Warn("video reported ready without a download url, waiting for a later event")
			return OutcomeNoChange
		}
		var thumbnail *string
		if payload.ThumbnailURL != "" {
			thumbnail = &payload.ThumbnailURL
		}
		if err := uc.videoJobs.CompleteVideoJob(ctx, job.ID, job.OrderID, videoURL, thumbnail, uc.now()); err != nil {
			return uc.writeOutcome(logger, "completing video job", err)
		}
		logger.Info("video ready")
		uc.notify(ctx, logger, notification.KindVideoReady, job.OrderID)
		return OutcomeProcessed

	case domain.VideoJobFailed:
		message := payload.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("video generation ended with provider status %q", payload.Status)
		}
		if err := uc.videoJobs.FailVideoJob(ctx, job.ID, job.OrderID, message); err != nil {
			return uc.writeOutcome(logger, "failing video job", err)
		}
		logger.Warn("video generation failed", zap.String("errorMessage", message))
		return OutcomeProcessed
	}

	return OutcomeNoChange
}

func (uc *UseCase) applyConversationEvent(ctx context.Context, payload dto.ContentWebhookPayload) Outcome {
	logger := uc.logger.With(zap.String("externalConversationId", payload.ConversationID), zap.String("providerStatus", payload.Status))

	target, known := mapConversationStatus(payload.Status)
	if !known {
		logger.Info("conversation status not tracked, event ignored")
		return OutcomeIgnored
	}

	conv, err := uc.conversations.FindByExternalID(ctx, payload.ConversationID)
	if err != nil {
		return uc.lookupOutcome(logger, "conversation", err)
	}
	logger = logger.With(zap.String("conversationId", conv.ID), zap.String("orderId", conv.OrderID))

	if conv.Status.IsTerminal() {
		logger.Info("conversation already final, event ignored", zap.String("conversationStatus", string(conv.Status)))
		return OutcomeAlreadyFinal
	}

	switch target {
	case domain.ConversationActive:
		if conv.Status == domain.ConversationActive {
			return OutcomeNoChange
		}
		startedAt := uc.now()
		if payload.StartedAt != nil {
			startedAt = *payload.StartedAt
		}
		if err := uc.conversations.MarkActive(ctx, conv.ID, startedAt); err != nil {
			return uc.writeOutcome(logger, "marking conversation active", err)
		}
		logger.Info("conversation started")
		return OutcomeProcessed

	case domain.ConversationCompleted:
		startedAt, endedAt, duration := uc.callTiming(conv, payload)
		if err := uc.conversations.Complete(ctx, conv.ID, conv.OrderID, startedAt, endedAt, duration); err != nil {
			return uc.writeOutcome(logger, "completing conversation", err)
		}
		logger.Info("conversation completed", zap.Int("durationSeconds", duration))
		uc.notify(ctx, logger, notification.KindCallCompleted, conv.OrderID)
		return OutcomeProcessed
	}

	return OutcomeNoChange
}

// callTiming prefers provider-reported values and derives the rest. A call
// whose start was never reported is assumed to have begun duration seconds
// before it ended.
func (uc *UseCase) callTiming(conv *domain.Conversation, payload dto.ContentWebhookPayload) (time.Time, time.Time, int) {
	endedAt := uc.now()
	if payload.EndedAt != nil {
		endedAt = *payload.EndedAt
	}

	var startedAt time.Time
	switch {
	case conv.StartedAt != nil:
		startedAt = *conv.StartedAt
	case payload.StartedAt != nil:
		startedAt = *payload.StartedAt
	}

	if payload.Duration != nil && *payload.Duration >= 0 {
		duration := *payload.Duration
		if startedAt.IsZero() {
			startedAt = endedAt.Add(-time.Duration(duration) * time.Second)
		}
		return startedAt, endedAt, duration
	}

	if startedAt.IsZero() || endedAt.Before(startedAt) {
		return endedAt, endedAt, 0
	}
	return startedAt, endedAt, int(endedAt.Sub(startedAt).Seconds())
}

func (uc *UseCase) notify(ctx context.Context, logger *zap.Logger, kind notification.Kind, orderID string) {
	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		logger.Error("loading order for notification", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	uc.notifier.Notify(ctx, kind, *order)
}

func (uc *UseCase) lookupOutcome(logger *zap.Logger, entity string, err error) Outcome {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		// The provider can call back before the dispatcher has stored its id.
		// Such an event is lost, so it must reach an operator.
		logger.Error(entity + " not found for provider event; its order needs operator attention")
		return OutcomeUnknownEntity
	}
	logger.Error("loading "+entity, zap.Error(err))
	return OutcomeFailed
}

// writeOutcome classifies a failed conditional write. A conflict means a
// concurrent or earlier delivery already moved the entity.
func (uc *UseCase) writeOutcome(logger *zap.Logger, op string, err error) Outcome {
	if _, ok := apperrors.IsConflictError(err); ok {
		logger.Info(op+": state already moved on", zap.Error(err))
		return OutcomeNoChange
	}
	logger.Error(op, zap.Error(err))
	return OutcomeFailed
}
