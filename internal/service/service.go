package service

import (
	"context"

	"shopcart/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for catalogue reads.
type ProductService interface {
	// GetAll retrieves all products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// CartService defines operations for the session cart.
type CartService interface {
	// GetCart returns the user's cart, seeding the in-memory store from the
	// backend on first access. isSelect filters the returned lines by
	// selection state when non-nil.
	GetCart(ctx context.Context, userID string, isSelect *bool) (*model.Cart, error)

	// ApplyPatch applies a full-replace item list to the cart.
	ApplyPatch(ctx context.Context, cartID uuid.UUID, req *model.CartPatchRequest) (*model.Cart, error)

	// BadgeCount returns the user's selected-quantity count for the cart
	// badge.
	BadgeCount(ctx context.Context, userID string) (int, error)
}

// OrderService defines operations for checkout and order lifecycle.
type OrderService interface {
	// Checkout creates an order from the submitted items and prunes the
	// ordered lines from the user's cart.
	Checkout(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List retrieves a page of the user's order history.
	List(ctx context.Context, userID string, limit, currentPage int) (*model.OrderListResponse, error)

	// UpdateStatus applies an order lifecycle transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, req *model.OrderStatusRequest) (*model.Order, error)
}

// Notifier receives user-facing lifecycle notifications. Cancellation is the
// only transition with one.
type Notifier interface {
	OrderCanceled(ctx context.Context, orderID uuid.UUID, userID string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, orderID uuid.UUID, userID string)

// OrderCanceled calls f.
func (f NotifierFunc) OrderCanceled(ctx context.Context, orderID uuid.UUID, userID string) {
	f(ctx, orderID, userID)
}

// BadgeCache reads the cached cart badge count.
type BadgeCache interface {
	BadgeCount(ctx context.Context, userID string) (int, error)
}
