package repository

import (
	"context"
	"fmt"
	"time"

	"shopcart/internal/model"
	"shopcart/internal/order"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, store_id, recipient_name, recipient_phone, address,
			note, payment, total, status, tracking_code, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := tx.Exec(ctx, query,
		o.ID, o.UserID, o.StoreID, o.RecipientName, o.RecipientPhone, o.Address,
		o.Note, o.Payment, o.Total, o.Status, o.TrackingCode, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", o.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", o.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts order items and their gifts within the provided
// transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, product_id, product_name, quantity,
			unit_price, subtotal, discount_type, discount_value
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	giftQuery := `
		INSERT INTO order_item_gifts (id, order_item_id, name, image, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	queued := 0
	for _, item := range items {
		batch.Queue(itemQuery,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice, item.Subtotal, item.DiscountType, item.DiscountValue,
		)
		queued++
		for _, gift := range item.Gifts {
			batch.Queue(giftQuery, uuid.New(), item.ID, gift.Name, gift.Image, gift.Quantity)
			queued++
		}
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < queued; i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[0].OrderID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

const orderColumns = `
	id, user_id, store_id, recipient_name, recipient_phone, address,
	note, payment, total, status, tracking_code, created_at, updated_at
`

// GetByID retrieves an order with its items and gifts.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	var o model.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.StoreID, &o.RecipientName, &o.RecipientPhone, &o.Address,
		&o.Note, &o.Payment, &o.Total, &o.Status, &o.TrackingCode, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orders := []model.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// ListByUser retrieves a page of a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, orderColumns)

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.StoreID, &o.RecipientName, &o.RecipientPhone, &o.Address,
			&o.Note, &o.Payment, &o.Total, &o.Status, &o.TrackingCode, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus applies a status change to an order.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status, trackingCode *string, updatedAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $1,
		    tracking_code = COALESCE($2, tracking_code),
		    updated_at = $3
		WHERE id = $4
	`

	tag, err := r.pool.Exec(ctx, query, status, trackingCode, updatedAt, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().
		Str("order_id", id.String()).
		Str("status", string(status)).
		Msg("order status updated")

	return nil
}

// attachItems loads items and gifts for the given orders, in place.
func (r *orderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]*model.Order, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, quantity,
		       unit_price, subtotal, discount_type, discount_value
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	itemIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity,
			&item.UnitPrice, &item.Subtotal, &item.DiscountType, &item.DiscountValue,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o := index[item.OrderID]
		o.Items = append(o.Items, item)
		itemIDs = append(itemIDs, item.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	if len(itemIDs) == 0 {
		return nil
	}

	// Index items only after all appends, so the pointers stay valid.
	itemIndex := make(map[uuid.UUID]*model.OrderItem, len(itemIDs))
	for _, o := range index {
		for i := range o.Items {
			itemIndex[o.Items[i].ID] = &o.Items[i]
		}
	}

	giftsQuery := `
		SELECT order_item_id, name, image, quantity
		FROM order_item_gifts
		WHERE order_item_id = ANY($1)
		ORDER BY order_item_id, name
	`

	giftRows, err := r.pool.Query(ctx, giftsQuery, itemIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query order item gifts")
		return fmt.Errorf("failed to query order item gifts: %w", err)
	}
	defer giftRows.Close()

	for giftRows.Next() {
		var itemID uuid.UUID
		var gift model.GiftItem
		if err := giftRows.Scan(&itemID, &gift.Name, &gift.Image, &gift.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item gift: %w", err)
		}
		if item, ok := itemIndex[itemID]; ok {
			item.Gifts = append(item.Gifts, gift)
		}
	}
	if err := giftRows.Err(); err != nil {
		return fmt.Errorf("error iterating order item gifts: %w", err)
	}

	return nil
}
