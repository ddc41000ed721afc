package domain

import (
	"fmt"
	"time"
)

type OrderType string

const (
	OrderTypeVideo OrderType = "video"
	OrderTypeCall  OrderType = "call"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeVideo || t == OrderTypeCall
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsTerminal reports whether no webhook may move an order out of the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusFailed, OrderStatusRefunded:
		return true
	}
	return false
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusReady, OrderStatusFailed},
	OrderStatusReady:      {OrderStatusDelivered, OrderStatusRefunded},
}

// CanTransition reports whether from -> to is an allowed lifecycle step.
// Operator resubmission of a failed order does not go through this table.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanRecover reports whether an operator may move an order from -> to when
// resubmitting it. Only failed orders re-enter fulfillment.
func CanRecover(from, to OrderStatus) bool {
	return from == OrderStatusFailed && to == OrderStatusProcessing
}

type ChildProfile struct {
	Name      string
	Age       int
	Interests []string
	GiftHint  *string
	Message   *string
}

type Order struct {
	ID                string
	OrderNumber       string
	OrderType         OrderType
	Status            OrderStatus
	CustomerEmail     string
	CustomerName      string
	Child             ChildProfile
	ScheduledAt       *time.Time
	Timezone          *string
	CheckoutSessionID *string
	PaymentIntentID   *string
	AmountTotal       int64
	Currency          string
	DeliveryURL       *string
	DeliveryToken     string
	ErrorMessage      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the structural invariants of an order: scheduling fields are
// present if and only if the order is a call.
func (o Order) Validate() error {
	if !o.OrderType.Valid() {
		return fmt.Errorf("unknown order type %q", o.OrderType)
	}
	hasSchedule := o.ScheduledAt != nil && o.Timezone != nil && *o.Timezone != ""
	if o.OrderType == OrderTypeCall && !hasSchedule {
		return fmt.Errorf("call order requires scheduledAt and timezone")
	}
	if o.OrderType == OrderTypeVideo && (o.ScheduledAt != nil || o.Timezone != nil) {
		return fmt.Errorf("video order must not carry scheduling fields")
	}
	return nil
}

func (o Order) HasDeliveryURL() bool {
	return o.DeliveryURL != nil && *o.DeliveryURL != ""
}
