package dto

type ChildProfileRequest struct {
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Interests []string `json:"interests"`
	GiftHint  *string  `json:"giftHint"`
	Message   *string  `json:"message"`
}

// CheckoutRequest is the booking payload. Any amount the client sends is not
// part of the contract and is ignored by the decoder.
type CheckoutRequest struct {
	OrderType     string              `json:"orderType"`
	CustomerEmail string              `json:"customerEmail"`
	CustomerName  string              `json:"customerName"`
	Child         ChildProfileRequest `json:"child"`
	ScheduledAt   *string             `json:"scheduledAt"`
	Timezone      *string             `json:"timezone"`
	TestMode      bool                `json:"testMode"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}
