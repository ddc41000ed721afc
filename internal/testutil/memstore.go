package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
)

// MemoryStore mirrors the MySQL repositories' conditional-write semantics in
// memory, for use-case tests that need a real state machine underneath.
type MemoryStore struct {
	mu            sync.Mutex
	orders        map[string]*domain.Order
	videoJobs     map[string]*domain.VideoJob
	conversations map[string]*domain.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:        make(map[string]*domain.Order),
		videoJobs:     make(map[string]*domain.VideoJob),
		conversations: make(map[string]*domain.Conversation),
	}
}

func (s *MemoryStore) Orders() *MemoryOrders               { return &MemoryOrders{s} }
func (s *MemoryStore) VideoJobs() *MemoryVideoJobs         { return &MemoryVideoJobs{s} }
func (s *MemoryStore) Conversations() *MemoryConversations { return &MemoryConversations{s} }

// VideoJobCount and ConversationCount report how many child records exist
// for orderID.
func (s *MemoryStore) VideoJobCount(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.videoJobs {
		if j.OrderID == orderID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) ConversationCount(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.conversations {
		if c.OrderID == orderID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) transition(orderID string, from, to domain.OrderStatus) (*domain.Order, error) {
	if !domain.CanTransition(from, to) && !domain.CanRecover(from, to) {
		return nil, fmt.Errorf("order %s: transition %s -> %s is not allowed", orderID, from, to)
	}
	o, ok := s.orders[orderID]
	if !ok || o.Status != from {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is not %s", orderID, from))
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return o, nil
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Child.Interests = append([]string(nil), o.Child.Interests...)
	return &c
}

type MemoryOrders struct{ s *MemoryStore }

func (r *MemoryOrders) Create(ctx context.Context, order *domain.Order) error {
	if err := order.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.ID == order.ID || o.OrderNumber == order.OrderNumber || o.DeliveryToken == order.DeliveryToken {
			return apperrors.NewConflictError(fmt.Sprintf("order %s already exists", order.OrderNumber))
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	r.s.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *MemoryOrders) find(match func(o *domain.Order) bool, notFound string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if match(o) {
			return copyOrder(o), nil
		}
	}
	return nil, apperrors.NewNotFoundError(notFound)
}

func (r *MemoryOrders) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id }, "order not found")
}

func (r *MemoryOrders) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.OrderNumber == orderNumber }, "order not found")
}

func (r *MemoryOrders) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool {
		return o.CheckoutSessionID != nil && *o.CheckoutSessionID == sessionID
	}, "no order for checkout session")
}

func (r *MemoryOrders) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool {
		return o.PaymentIntentID != nil && *o.PaymentIntentID == paymentIntentID
	}, "no order for payment intent")
}

func (r *MemoryOrders) FindByNumberAndToken(ctx context.Context, orderNumber, token string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool {
		return o.OrderNumber == orderNumber && o.DeliveryToken == token
	}, "order not found")
}

func (r *MemoryOrders) SetCheckoutSession(ctx context.Context, id, sessionID string, amount int64, currency string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.Status != domain.OrderStatusPending {
		return apperrors.NewConflictError("order is no longer pending")
	}
	o.CheckoutSessionID = &sessionID
	o.AmountTotal = amount
	o.Currency = currency
	return nil
}

func (r *MemoryOrders) MarkPaid(ctx context.Context, id, paymentIntentID string, amount int64, currency string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, err := r.s.transition(id, domain.OrderStatusPending, domain.OrderStatusPaid)
	if err != nil {
		return err
	}
	o.PaymentIntentID = &paymentIntentID
	o.AmountTotal = amount
	o.Currency = currency
	return nil
}

func (r *MemoryOrders) RotateDeliveryToken(ctx context.Context, id, oldToken, newToken string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.DeliveryToken != oldToken || !o.HasDeliveryURL() ||
		(o.Status != domain.OrderStatusReady && o.Status != domain.OrderStatusDelivered) {
		return apperrors.NewConflictError("order cannot rotate its delivery link")
	}
	o.DeliveryToken = newToken
	return nil
}

type MemoryVideoJobs struct{ s *MemoryStore }

func (r *MemoryVideoJobs) StartVideoFulfillment(ctx context.Context, job *domain.VideoJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, j := range r.s.videoJobs {
		if j.OrderID == job.OrderID {
			return apperrors.NewConflictError("order already has a video job")
		}
	}
	if _, err := r.s.transition(job.OrderID, domain.OrderStatusPaid, domain.OrderStatusProcessing); err != nil {
		return err
	}
	stored := *job
	stored.CreatedAt = time.Now().UTC()
	r.s.videoJobs[job.ID] = &stored
	return nil
}

func (r *MemoryVideoJobs) find(match func(j *domain.VideoJob) bool) (*domain.VideoJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, j := range r.s.videoJobs {
		if match(j) {
			c := *j
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError("video job not found")
}

func (r *MemoryVideoJobs) FindByOrderID(ctx context.Context, orderID string) (*domain.VideoJob, error) {
	return r.find(func(j *domain.VideoJob) bool { return j.OrderID == orderID })
}

func (r *MemoryVideoJobs) FindByExternalID(ctx context.Context, externalID string) (*domain.VideoJob, error) {
	return r.find(func(j *domain.VideoJob) bool { return j.ExternalVideoID != nil && *j.ExternalVideoID == externalID })
}

func (r *MemoryVideoJobs) open(jobID string) (*domain.VideoJob, error) {
	j, ok := r.s.videoJobs[jobID]
	if !ok || j.Status.IsTerminal() {
		return nil, apperrors.NewConflictError("video job is already terminal")
	}
	return j, nil
}

func (r *MemoryVideoJobs) MarkSubmitted(ctx context.Context, jobID, externalID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.videoJobs[jobID]
	if !ok || j.Status != domain.VideoJobQueued {
		return apperrors.NewConflictError("video job is not queued")
	}
	j.ExternalVideoID = &externalID
	j.Status = domain.VideoJobProcessing
	return nil
}

func (r *MemoryVideoJobs) UpdateStatus(ctx context.Context, jobID string, status domain.VideoJobStatus) error {
	if status.IsTerminal() {
		return fmt.Errorf("terminal video job status %s requires Complete or Fail", status)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, err := r.open(jobID)
	if err != nil {
		return err
	}
	j.Status = status
	return nil
}

func (r *MemoryVideoJobs) CompleteVideoJob(ctx context.Context, jobID, orderID, videoURL string, thumbnailURL *string, completedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, err := r.open(jobID)
	if err != nil {
		return err
	}
	o, ok := r.s.orders[orderID]
	if !ok || o.Status != domain.OrderStatusProcessing {
		return apperrors.NewConflictError("order is not processing")
	}

	j.Status = domain.VideoJobCompleted
	j.VideoURL = &videoURL
	j.ThumbnailURL = thumbnailURL
	at := completedAt.UTC()
	j.CompletedAt = &at
	j.ErrorMessage = nil

	o.Status = domain.OrderStatusReady
	o.DeliveryURL = &videoURL
	return nil
}

func (r *MemoryVideoJobs) FailVideoJob(ctx context.Context, jobID, orderID, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, err := r.open(jobID)
	if err != nil {
		return err
	}
	o, ok := r.s.orders[orderID]
	if !ok || o.Status != domain.OrderStatusProcessing {
		return apperrors.NewConflictError("order is not processing")
	}

	j.Status = domain.VideoJobFailed
	j.ErrorMessage = &message
	o.Status = domain.OrderStatusFailed
	o.ErrorMessage = &message
	return nil
}

func (r *MemoryVideoJobs) Requeue(ctx context.Context, jobID, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.videoJobs[jobID]
	if !ok || j.Status != domain.VideoJobFailed {
		return apperrors.NewConflictError("video job is not failed")
	}
	o, err := r.s.transition(orderID, domain.OrderStatusFailed, domain.OrderStatusProcessing)
	if err != nil {
		return err
	}

	j.Status = domain.VideoJobQueued
	j.RetryCount++
	j.ExternalVideoID = nil
	j.ErrorMessage = nil
	o.ErrorMessage = nil
	return nil
}

type MemoryConversations struct{ s *MemoryStore }

func (r *MemoryConversations) StartCallFulfillment(ctx context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.conversations {
		if c.OrderID == conv.OrderID {
			return apperrors.NewConflictError("order already has a conversation")
		}
	}
	if _, err := r.s.transition(conv.OrderID, domain.OrderStatusPaid, domain.OrderStatusProcessing); err != nil {
		return err
	}
	stored := *conv
	stored.ScheduledAt = conv.ScheduledAt.UTC()
	stored.CreatedAt = time.Now().UTC()
	r.s.conversations[conv.ID] = &stored
	return nil
}

func (r *MemoryConversations) find(match func(c *domain.Conversation) bool) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.conversations {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("conversation not found")
}

func (r *MemoryConversations) FindByOrderID(ctx context.Context, orderID string) (*domain.Conversation, error) {
	return r.find(func(c *domain.Conversation) bool { return c.OrderID == orderID })
}

func (r *MemoryConversations) FindByExternalID(ctx context.Context, externalID string) (*domain.Conversation, error) {
	return r.find(func(c *domain.Conversation) bool {
		return c.ExternalConversationID != nil && *c.ExternalConversationID == externalID
	})
}

func (r *MemoryConversations) withStatus(convID string, statuses ...domain.ConversationStatus) (*domain.Conversation, error) {
	c, ok := r.s.conversations[convID]
	if ok {
		for _, s := range statuses {
			if c.Status == s {
				return c, nil
			}
		}
	}
	return nil, apperrors.NewConflictError(fmt.Sprintf("conversation %s is not in %v", convID, statuses))
}

func (r *MemoryConversations) MarkBooked(ctx context.Context, convID, orderID, externalID, roomURL string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, err := r.withStatus(convID, domain.ConversationScheduled)
	if err != nil {
		return err
	}
	o, err := r.s.transition(orderID, domain.OrderStatusProcessing, domain.OrderStatusReady)
	if err != nil {
		return err
	}
	c.ExternalConversationID = &externalID
	c.RoomURL = &roomURL
	o.DeliveryURL = &roomURL
	o.ErrorMessage = nil
	return nil
}

func (r *MemoryConversations) Cancel(ctx context.Context, convID, orderID, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, err := r.withStatus(convID, domain.ConversationScheduled)
	if err != nil {
		return err
	}
	o, err := r.s.transition(orderID, domain.OrderStatusProcessing, domain.OrderStatusFailed)
	if err != nil {
		return err
	}
	c.Status = domain.ConversationCancelled
	o.ErrorMessage = &message
	return nil
}

func (r *MemoryConversations) MarkActive(ctx context.Context, convID string, startedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, err := r.withStatus(convID, domain.ConversationScheduled)
	if err != nil {
		return err
	}
	at := startedAt.UTC()
	c.Status = domain.ConversationActive
	c.StartedAt = &at
	return nil
}

func (r *MemoryConversations) Complete(ctx context.Context, convID, orderID string, startedAt, endedAt time.Time, durationSeconds int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, err := r.withStatus(convID, domain.ConversationScheduled, domain.ConversationActive)
	if err != nil {
		return err
	}
	if _, err := r.s.transition(orderID, domain.OrderStatusReady, domain.OrderStatusDelivered); err != nil {
		return err
	}
	if c.StartedAt == nil {
		at := startedAt.UTC()
		c.StartedAt = &at
	}
	end := endedAt.UTC()
	c.Status = domain.ConversationCompleted
	c.EndedAt = &end
	c.DurationSeconds = &durationSeconds
	return nil
}

func (r *MemoryConversations) Reschedule(ctx context.Context, convID, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, err := r.withStatus(convID, domain.ConversationCancelled)
	if err != nil {
		return err
	}
	o, err := r.s.transition(orderID, domain.OrderStatusFailed, domain.OrderStatusProcessing)
	if err != nil {
		return err
	}
	c.Status = domain.ConversationScheduled
	c.ExternalConversationID = nil
	c.RoomURL = nil
	o.ErrorMessage = nil
	return nil
}
