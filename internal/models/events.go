package models

import "time"

// Event types
const (
	EventTypeOrderSubmitted      = "ORDER_SUBMITTED"
	EventTypeOrderApproved       = "ORDER_APPROVED"
	EventTypeOrderRejected       = "ORDER_REJECTED"
	EventTypeOrderQueued         = "ORDER_QUEUED_FOR_REVIEW"
	EventTypeOrderManualDecision = "ORDER_MANUAL_DECISION"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent is consumed from the checkout topic; it carries the
// same payload the HTTP approve-order endpoint accepts.
type OrderSubmittedEvent struct {
	BaseEvent
	OrderID     string              `json:"order_id"`
	Email       string              `json:"email"`
	TotalAmount float64             `json:"total_amount"`
	Items       []SubmittedItemData `json:"items"`
}

// SubmittedItemData represents item data in submission events
type SubmittedItemData struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// OrderDecisionEvent is published after every automatic decision that
// persists a status (approval or queue-for-review).
type OrderDecisionEvent struct {
	BaseEvent
	OrderID     string  `json:"order_id"`
	Email       string  `json:"email"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason"`
}

// ManualDecisionEvent is published when an operator overrides an order
type ManualDecisionEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	OperatorID string `json:"operator_id"`
}
