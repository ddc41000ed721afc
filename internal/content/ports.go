package content

import (
	"context"
	"time"

	"avatarbook/internal/domain"
	"avatarbook/internal/notification"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type VideoJobRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.VideoJob, error)
	UpdateStatus(ctx context.Context, jobID string, status domain.VideoJobStatus) error
	CompleteVideoJob(ctx context.Context, jobID, orderID, videoURL string, thumbnailURL *string, completedAt time.Time) error
	FailVideoJob(ctx context.Context, jobID, orderID, message string) error
}

type ConversationRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.Conversation, error)
	MarkActive(ctx context.Context, convID string, startedAt time.Time) error
	Complete(ctx context.Context, convID, orderID string, startedAt, endedAt time.Time, durationSeconds int) error
}

type Notifier interface {
	Notify(ctx context.Context, kind notification.Kind, order domain.Order)
}
