package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"avatarbook/internal/domain"
	"avatarbook/internal/errors"
)

const orderColumns = `id, orderNumber, orderType, status, customerEmail, customerName,
	childName, childAge, childInterests, giftHint, message, scheduledAt, timezone,
	checkoutSessionId, paymentIntentId, amountTotal, currency, deliveryUrl,
	deliveryToken, errorMessage, createdAt, updatedAt`

type rowScanner interface {
	Scan(dest ...any) error
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := order.Validate(); err != nil {
		return errors.NewValidationError(err.Error())
	}

	interests, err := json.Marshal(nonNilInterests(order.Child.Interests))
	if err != nil {
		return fmt.Errorf("encoding child interests: %w", err)
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	query := `
		INSERT INTO Orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID, order.OrderNumber, order.OrderType, order.Status,
		order.CustomerEmail, order.CustomerName,
		order.Child.Name, order.Child.Age, interests, order.Child.GiftHint, order.Child.Message,
		utcPtr(order.ScheduledAt), order.Timezone,
		order.CheckoutSessionID, order.PaymentIntentID, order.AmountTotal, order.Currency,
		order.DeliveryURL, order.DeliveryToken, order.ErrorMessage,
		order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	)
	if isDuplicateEntry(err) {
		return errors.NewConflictError(fmt.Sprintf("order %s already exists", order.OrderNumber))
	}
	if err != nil {
		return wrap("inserting order", err)
	}

	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, "id = ?", fmt.Sprintf("order with id %s not found", id), id)
}

func (r *MySQLOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.findOne(ctx, "orderNumber = ?", fmt.Sprintf("order %s not found", orderNumber), orderNumber)
}

func (r *MySQLOrderRepository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.findOne(ctx, "checkoutSessionId = ?", fmt.Sprintf("no order for checkout session %s", sessionID), sessionID)
}

func (r *MySQLOrderRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	return r.findOne(ctx, "paymentIntentId = ?", fmt.Sprintf("no order for payment intent %s", paymentIntentID), paymentIntentID)
}

// FindByNumberAndToken resolves the capability pair. Both values must belong
// to the same row.
func (r *MySQLOrderRepository) FindByNumberAndToken(ctx context.Context, orderNumber, token string) (*domain.Order, error) {
	return r.findOne(ctx, "orderNumber = ? AND deliveryToken = ?", fmt.Sprintf("order %s not found", orderNumber), orderNumber, token)
}

func (r *MySQLOrderRepository) findOne(ctx context.Context, where, notFound string, args ...any) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE ` + where

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, wrap("querying order", err)
	}

	return order, nil
}

// SetCheckoutSession records the hosted session on a pending order. A retried
// checkout overwrites the previous session id.
func (r *MySQLOrderRepository) SetCheckoutSession(ctx context.Context, id, sessionID string, amount int64, currency string) error {
	query := `
		UPDATE Orders
		SET checkoutSessionId = ?, amountTotal = ?, currency = ?
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, amount, currency, id)
	if isDuplicateEntry(err) {
		return errors.NewConflictError(fmt.Sprintf("checkout session %s already bound to another order", sessionID))
	}
	if err != nil {
		return wrap("storing checkout session", err)
	}

	return expectOneRow(result, fmt.Sprintf("order %s is no longer pending", id))
}

// MarkPaid moves a pending order to paid. A ConflictError means another
// delivery of the same event got there first.
func (r *MySQLOrderRepository) MarkPaid(ctx context.Context, id, paymentIntentID string, amount int64, currency string) error {
	query := `
		UPDATE Orders
		SET status = 'paid', paymentIntentId = ?, amountTotal = ?, currency = ?
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, paymentIntentID, amount, currency, id)
	if isDuplicateEntry(err) {
		return errors.NewConflictError(fmt.Sprintf("payment intent %s already recorded", paymentIntentID))
	}
	if err != nil {
		return wrap("marking order paid", err)
	}

	return expectOneRow(result, fmt.Sprintf("order %s is not pending", id))
}

// RotateDeliveryToken swaps oldToken for newToken. The swap only happens while
// the order is deliverable and still holds oldToken, so two concurrent
// rotations cannot both succeed.
func (r *MySQLOrderRepository) RotateDeliveryToken(ctx context.Context, id, oldToken, newToken string) error {
	query := `
		UPDATE Orders
		SET deliveryToken = ?
		WHERE id = ? AND deliveryToken = ?
		  AND status IN ('ready', 'delivered')
		  AND deliveryUrl IS NOT NULL AND deliveryUrl <> ''
	`

	result, err := r.db.ExecContext(ctx, query, newToken, id, oldToken)
	if isDuplicateEntry(err) {
		return errors.NewConflictError("delivery token collision")
	}
	if err != nil {
		return wrap("rotating delivery token", err)
	}

	return expectOneRow(result, fmt.Sprintf("order %s cannot rotate its delivery link", id))
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var interests []byte

	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.OrderType, &order.Status,
		&order.CustomerEmail, &order.CustomerName,
		&order.Child.Name, &order.Child.Age, &interests, &order.Child.GiftHint, &order.Child.Message,
		&order.ScheduledAt, &order.Timezone,
		&order.CheckoutSessionID, &order.PaymentIntentID, &order.AmountTotal, &order.Currency,
		&order.DeliveryURL, &order.DeliveryToken, &order.ErrorMessage,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(interests) > 0 {
		if err := json.Unmarshal(interests, &order.Child.Interests); err != nil {
			return nil, fmt.Errorf("decoding child interests: %w", err)
		}
	}

	return &order, nil
}

func expectOneRow(result sql.Result, conflict string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewConflictError(conflict)
	}

	return nil
}

func nonNilInterests(interests []string) []string {
	if interests == nil {
		return []string{}
	}
	return interests
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
