package model

import (
	"time"

	"github.com/google/uuid"

	"shopcart/internal/order"
)

// GiftItem is a non-priced bonus item attached to an order item.
type GiftItem struct {
	Name     string `json:"name" db:"name"`
	Image    string `json:"image,omitempty" db:"image"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// OrderItem is the immutable snapshot of a cart line taken at checkout. The
// applied discount is persisted here so later promotion edits cannot
// retroactively alter past orders.
type OrderItem struct {
	ID            uuid.UUID     `json:"-" db:"id"`
	OrderID       uuid.UUID     `json:"-" db:"order_id"`
	ProductID     string        `json:"productId" db:"product_id"`
	ProductName   string        `json:"productName" db:"product_name"`
	Quantity      int           `json:"quantity" db:"quantity"`
	UnitPrice     float64       `json:"unitPrice" db:"unit_price"`
	Subtotal      float64       `json:"subtotal" db:"subtotal"`
	DiscountType  *DiscountType `json:"discountType,omitempty" db:"discount_type"`
	DiscountValue *float64      `json:"discountValue,omitempty" db:"discount_value"`
	Gifts         []GiftItem    `json:"gifts,omitempty"`
}

// Order represents a customer order. Total is fixed at creation time and never
// recomputed; status is the only field that mutates post-creation. Contact
// fields are denormalized so later profile edits do not alter history.
type Order struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	UserID         string       `json:"userId" db:"user_id"`
	StoreID        string       `json:"storeId" db:"store_id"`
	RecipientName  string       `json:"recipientName" db:"recipient_name"`
	RecipientPhone string       `json:"recipientPhone" db:"recipient_phone"`
	Address        string       `json:"address" db:"address"`
	Note           *string      `json:"note,omitempty" db:"note"`
	Payment        string       `json:"payment" db:"payment"`
	Total          float64      `json:"total" db:"total"`
	Status         order.Status `json:"status" db:"status"`
	TrackingCode   *string      `json:"trackingCode,omitempty" db:"tracking_code"`
	Items          []OrderItem  `json:"items"`
	CreatedAt      time.Time    `json:"createAt" db:"created_at"`
	UpdatedAt      time.Time    `json:"updateAt" db:"updated_at"`
}

// OrderItemRequest is a single item in a checkout request.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest is the POST /api/orders payload.
type OrderRequest struct {
	UserID         string             `json:"userId"`
	StoreID        string             `json:"storeId"`
	RecipientName  string             `json:"recipientName"`
	RecipientPhone string             `json:"recipientPhone"`
	Address        string             `json:"address"`
	Total          float64            `json:"total"`
	Note           *string            `json:"note,omitempty"`
	Payment        string             `json:"payment"`
	Items          []OrderItemRequest `json:"items"`
}

// OrderStatusRequest is the PATCH /api/orders/{orderId} payload. UpdateAt is
// accepted on the wire but the server clock is authoritative.
type OrderStatusRequest struct {
	Status       order.Status `json:"status"`
	TrackingCode *string      `json:"trackingCode,omitempty"`
	UpdateAt     *time.Time   `json:"updateAt,omitempty"`
}

// OrderListResponse is a paginated page of order history.
type OrderListResponse struct {
	Orders      []Order `json:"orders"`
	Total       int     `json:"total"`
	CurrentPage int     `json:"currentPage"`
	Limit       int     `json:"limit"`
}
