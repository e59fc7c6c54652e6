package repository

import (
	"context"
	"time"

	"shopcart/internal/model"
	"shopcart/internal/order"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
// Products are returned with their promotion links and gift grants embedded.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil when missing.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// CartRepository defines the interface for cart persistence.
type CartRepository interface {
	// GetByUser retrieves a user's cart with its items. Returns nil when the
	// user has no cart yet.
	GetByUser(ctx context.Context, userID string) (*model.CartRecord, error)

	// Create inserts an empty cart for a user.
	Create(ctx context.Context, userID string) (*model.CartRecord, error)

	// SaveCart replaces the cart's full item list. The write is guarded by
	// the snapshot's sequence number: a snapshot not newer than the last
	// applied one is discarded, closing the out-of-order write race.
	SaveCart(ctx context.Context, snap model.CartSnapshot) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, o *model.Order) error

	// CreateOrderItems inserts order items and their gifts within the
	// provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items and gifts. Returns nil when
	// missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser retrieves a page of a user's orders, newest first, along
	// with the total order count.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, int, error)

	// UpdateStatus applies a status change. trackingCode is left untouched
	// when nil.
	UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status, trackingCode *string, updatedAt time.Time) error
}
