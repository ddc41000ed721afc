package dto

import "time"

type ChildSummary struct {
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Interests []string `json:"interests"`
}

type OrderStatusResponse struct {
	ID          string       `json:"id"`
	OrderNumber string       `json:"orderNumber"`
	OrderType   string       `json:"orderType"`
	Status      string       `json:"status"`
	Child       ChildSummary `json:"child"`
	DeliveryURL *string      `json:"deliveryUrl"`
	ScheduledAt *time.Time   `json:"scheduledAt"`
	Timezone    *string      `json:"timezone"`
	CreatedAt   time.Time    `json:"createdAt"`
	Terminal    bool         `json:"terminal"`
	// PollAfterSeconds is zero once the order is terminal.
	PollAfterSeconds int `json:"pollAfterSeconds"`
}

type RegenerateLinkResponse struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber"`
	NewToken    string `json:"newToken"`
	ViewURL     string `json:"viewUrl"`
}

type ResubmitResponse struct {
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
}
