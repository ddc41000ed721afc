package domain

import "time"

const PaymentEventCheckoutCompleted = "checkout.session.completed"

// Metadata keys attached to every hosted checkout session.
const (
	MetadataOrderID     = "orderId"
	MetadataOrderNumber = "orderNumber"
	MetadataOrderType   = "orderType"
)

type CheckoutSessionRequest struct {
	OrderID       string
	OrderNumber   string
	OrderType     OrderType
	CustomerEmail string
	ProductName   string
	Description   string
	UnitAmount    int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentEvent is a verified gateway event reduced to the fields fulfillment
// needs.
type PaymentEvent struct {
	ID              string
	Type            string
	CreatedAt       time.Time
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}
