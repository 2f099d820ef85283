package models

import "time"

// Variant represents a purchasable product configuration with its own stock
type Variant struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"productId"`
	Name      string `db:"name" json:"name"`
	Stock     int    `db:"stock" json:"stock"`
}

// Order represents a customer order
type Order struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	TotalAmount float64   `db:"total_amount" json:"totalAmount"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// PendingOrderItem is an order item expanded with its variant and parent
// product, as returned by the manual review listing.
type PendingOrderItem struct {
	OrderID     string `db:"order_id" json:"-"`
	VariantID   string `db:"variant_id" json:"variantId"`
	Quantity    int    `db:"quantity" json:"quantity"`
	VariantName string `db:"variant_name" json:"variantName"`
	Stock       int    `db:"stock" json:"stock"`
	ProductID   string `db:"product_id" json:"productId"`
	ProductName string `db:"product_name" json:"productName"`
}

// PendingOrder is an order awaiting manual review, with expanded items
type PendingOrder struct {
	Order
	Items []PendingOrderItem `json:"items"`
}

// Order statuses. Only a subset participates in the approval lifecycle:
// pending -> {approved, pending_approval}, and
// pending_approval -> {approved, rejected} via manual override.
const (
	OrderStatusPending         = "pending"
	OrderStatusPendingApproval = "pending_approval"
	OrderStatusApproved        = "approved"
	OrderStatusRejected        = "rejected"
	OrderStatusProcessing      = "processing"
	OrderStatusPaid            = "paid"
	OrderStatusShipped         = "shipped"
	OrderStatusDelivered       = "delivered"
	OrderStatusCancelled       = "cancelled"
	OrderStatusRefunded        = "refunded"
)
