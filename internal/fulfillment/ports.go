package fulfillment

import (
	"context"

	"avatarbook/internal/domain"
	"avatarbook/internal/notification"
)

type OrderRepository interface {
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
}

type VideoJobRepository interface {
	StartVideoFulfillment(ctx context.Context, job *domain.VideoJob) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.VideoJob, error)
	MarkSubmitted(ctx context.Context, jobID, externalID string) error
	FailVideoJob(ctx context.Context, jobID, orderID, message string) error
	Requeue(ctx context.Context, jobID, orderID string) error
}

type ConversationRepository interface {
	StartCallFulfillment(ctx context.Context, conv *domain.Conversation) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Conversation, error)
	MarkBooked(ctx context.Context, convID, orderID, externalID, roomURL string) error
	Cancel(ctx context.Context, convID, orderID, message string) error
	Reschedule(ctx context.Context, convID, orderID string) error
}

// ContentProvider renders videos and hosts live calls.
type ContentProvider interface {
	CreateVideo(ctx context.Context, req domain.VideoRequest) (*domain.VideoSubmission, error)
	CreateConversation(ctx context.Context, req domain.ConversationRequest) (*domain.ConversationBooking, error)
}

type Notifier interface {
	Notify(ctx context.Context, kind notification.Kind, order domain.Order)
}
