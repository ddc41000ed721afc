package notification

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/domain"
)

type Kind string

const (
	KindOrderConfirmed  Kind = "order.confirmed"
	KindVideoReady      Kind = "order.video_ready"
	KindCallLinkReady   Kind = "order.call_link_ready"
	KindCallCompleted   Kind = "order.call_completed"
	KindLinkRegenerated Kind = "order.link_regenerated"
)

const publishTimeout = 5 * time.Second

// Event is the message consumed by the email service. Template rendering and
// delivery happen there.
type Event struct {
	Kind          Kind       `json:"kind"`
	OrderID       string     `json:"orderId"`
	OrderNumber   string     `json:"orderNumber"`
	OrderType     string     `json:"orderType"`
	CustomerEmail string     `json:"customerEmail"`
	CustomerName  string     `json:"customerName"`
	ChildName     string     `json:"childName"`
	ViewURL       string     `json:"viewUrl"`
	DeliveryURL   string     `json:"deliveryUrl,omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	Timezone      string     `json:"timezone,omitempty"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

type Service struct {
	publisher Publisher
	baseURL   string
	logger    *zap.Logger
}

func NewService(publisher Publisher, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		publisher: publisher,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Notify publishes kind for order. It never fails the caller: errors are logged
// and dropped.
func (s *Service) Notify(ctx context.Context, kind Kind, order domain.Order) {
	evt := Event{
		Kind:          kind,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OrderType:     string(order.OrderType),
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		ChildName:     order.Child.Name,
		ViewURL:       commons.ViewURL(s.baseURL, order.OrderNumber, order.DeliveryToken),
		ScheduledAt:   order.ScheduledAt,
		OccurredAt:    time.Now().UTC(),
	}
	if order.DeliveryURL != nil {
		evt.DeliveryURL = *order.DeliveryURL
	}
	if order.Timezone != nil {
		evt.Timezone = *order.Timezone
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("encoding notification failed", zap.String("kind", string(kind)), zap.String("orderNumber", order.OrderNumber), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, string(kind), payload); err != nil {
		s.logger.Warn("notification not sent", zap.String("kind", string(kind)), zap.String("orderNumber", order.OrderNumber), zap.Error(err))
		return
	}

	s.logger.Info("notification sent", zap.String("kind", string(kind)), zap.String("orderNumber", order.OrderNumber))
}

// LogPublisher stands in for the broker when none is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Info("notification (no broker configured)", zap.String("routingKey", routingKey), zap.Int("bytes", len(payload)))
	return nil
}
