package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"avatarbook/internal/domain"
	"avatarbook/internal/errors"
)

const conversationColumns = `id, orderId, status, externalConversationId, roomUrl, scheduledAt,
	startedAt, endedAt, durationSeconds, createdAt, updatedAt`

type MySQLConversationRepository struct {
	db *sql.DB
}

func NewMySQLConversationRepository(db *sql.DB) *MySQLConversationRepository {
	return &MySQLConversationRepository{db: db}
}

// StartCallFulfillment inserts the conversation and moves its order
// paid→processing in one transaction.
func (r *MySQLConversationRepository) StartCallFulfillment(ctx context.Context, conv *domain.Conversation) error {
	now := time.Now().UTC()
	conv.CreatedAt, conv.UpdatedAt = now, now

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO Conversations (id, orderId, status, scheduledAt, createdAt, updatedAt)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query, conv.ID, conv.OrderID, conv.Status, conv.ScheduledAt.UTC(), now, now)
		if isDuplicateEntry(err) {
			return errors.NewConflictError(fmt.Sprintf("order %s already has a conversation", conv.OrderID))
		}
		if err != nil {
			return wrap("inserting conversation", err)
		}

		return transitionOrder(ctx, tx, conv.OrderID, domain.OrderStatusPaid, domain.OrderStatusProcessing, "")
	})
}

func (r *MySQLConversationRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Conversation, error) {
	return r.findOne(ctx, "orderId = ?", fmt.Sprintf("no conversation for order %s", orderID), orderID)
}

func (r *MySQLConversationRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Conversation, error) {
	return r.findOne(ctx, "externalConversationId = ?", fmt.Sprintf("no conversation for external id %s", externalID), externalID)
}

func (r *MySQLConversationRepository) findOne(ctx context.Context, where, notFound string, args ...any) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM Conversations WHERE ` + where

	var conv domain.Conversation
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&conv.ID, &conv.OrderID, &conv.Status, &conv.ExternalConversationID, &conv.RoomURL, &conv.ScheduledAt,
		&conv.StartedAt, &conv.EndedAt, &conv.DurationSeconds, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, wrap("querying conversation", err)
	}

	return &conv, nil
}

// MarkBooked stores the provider room on the conversation and publishes it as
// the order's delivery URL.
func (r *MySQLConversationRepository) MarkBooked(ctx context.Context, convID, orderID, externalID, roomURL string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE Conversations
			SET externalConversationId = ?, roomUrl = ?
			WHERE id = ? AND status = 'scheduled'
		`
		result, err := tx.ExecContext(ctx, query, externalID, roomURL, convID)
		if err != nil {
			return wrap("recording conversation room", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("conversation %s is not scheduled", convID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusProcessing, domain.OrderStatusReady, ", deliveryUrl = ?, errorMessage = NULL", roomURL)
	})
}

// Cancel marks a conversation that could not be booked and fails its order.
func (r *MySQLConversationRepository) Cancel(ctx context.Context, convID, orderID, message string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `UPDATE Conversations SET status = 'cancelled' WHERE id = ? AND status = 'scheduled'`
		result, err := tx.ExecContext(ctx, query, convID)
		if err != nil {
			return wrap("cancelling conversation", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("conversation %s is not scheduled", convID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusProcessing, domain.OrderStatusFailed, ", errorMessage = ?", message)
	})
}

// MarkActive records that the call started. The order status is untouched.
func (r *MySQLConversationRepository) MarkActive(ctx context.Context, convID string, startedAt time.Time) error {
	query := `
		UPDATE Conversations
		SET status = 'active', startedAt = ?
		WHERE id = ? AND status = 'scheduled'
	`

	result, err := r.db.ExecContext(ctx, query, startedAt.UTC(), convID)
	if err != nil {
		return wrap("activating conversation", err)
	}

	return expectOneRow(result, fmt.Sprintf("conversation %s is not scheduled", convID))
}

// Complete closes the conversation and delivers its order.
func (r *MySQLConversationRepository) Complete(ctx context.Context, convID, orderID string, startedAt, endedAt time.Time, durationSeconds int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE Conversations
			SET status = 'completed', startedAt = COALESCE(startedAt, ?), endedAt = ?, durationSeconds = ?
			WHERE id = ? AND status IN ('scheduled', 'active')
		`
		result, err := tx.ExecContext(ctx, query, startedAt.UTC(), endedAt.UTC(), durationSeconds, convID)
		if err != nil {
			return wrap("completing conversation", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("conversation %s is already terminal", convID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusReady, domain.OrderStatusDelivered, "")
	})
}

// Reschedule reopens a cancelled conversation for the operator resubmit path.
func (r *MySQLConversationRepository) Reschedule(ctx context.Context, convID, orderID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE Conversations
			SET status = 'scheduled', externalConversationId = NULL, roomUrl = NULL
			WHERE id = ? AND status = 'cancelled'
		`
		result, err := tx.ExecContext(ctx, query, convID)
		if err != nil {
			return wrap("rescheduling conversation", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("conversation %s is not cancelled", convID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusFailed, domain.OrderStatusProcessing, ", errorMessage = NULL")
	})
}
