package repository

import (
	"context"
	"fmt"
	"time"

	"shopcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
// It also satisfies cart.SyncTarget, so cart syncers write through it
// directly.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetByUser retrieves a user's cart with its items in insertion order.
func (r *cartRepository) GetByUser(ctx context.Context, userID string) (*model.CartRecord, error) {
	cartQuery := `
		SELECT id, user_id, sync_seq
		FROM carts
		WHERE user_id = $1
	`

	var record model.CartRecord
	err := r.pool.QueryRow(ctx, cartQuery, userID).Scan(&record.ID, &record.UserID, &record.SyncSeq)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("user_id", userID).Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	itemsQuery := `
		SELECT id, product_id, quantity, is_selected
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, itemsQuery, record.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", record.ID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItemRecord
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.IsSelected); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		record.Items = append(record.Items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return &record, nil
}

// Create inserts an empty cart for a user.
func (r *cartRepository) Create(ctx context.Context, userID string) (*model.CartRecord, error) {
	query := `
		INSERT INTO carts (id, user_id, sync_seq, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
	`

	record := &model.CartRecord{
		ID:     uuid.New(),
		UserID: userID,
	}

	if _, err := r.pool.Exec(ctx, query, record.ID, userID, time.Now()); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create cart")
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	r.logger.Debug().
		Str("cart_id", record.ID.String()).
		Str("user_id", userID).
		Msg("cart created")

	return record, nil
}

// SaveCart replaces the cart's full item list inside one transaction. The
// sequence guard makes the write safe against reordered deliveries: only a
// snapshot with a higher sequence than the last applied one takes effect, so
// a slow older write can never clobber a newer state.
func (r *cartRepository) SaveCart(ctx context.Context, snap model.CartSnapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	guard := `
		UPDATE carts
		SET sync_seq = $1, updated_at = $2
		WHERE id = $3 AND sync_seq < $1
	`

	tag, err := tx.Exec(ctx, guard, snap.Seq, time.Now(), snap.CartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", snap.CartID.String()).Msg("failed to advance cart sync sequence")
		return fmt.Errorf("failed to advance cart sync sequence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Stale snapshot or unknown cart. Dropping it is correct either way:
		// a newer write has already landed.
		r.logger.Debug().
			Str("cart_id", snap.CartID.String()).
			Uint64("seq", snap.Seq).
			Msg("stale cart snapshot discarded")
		return nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, snap.CartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", snap.CartID.String()).Msg("failed to clear cart items")
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	if len(snap.Items) > 0 {
		insert := `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, is_selected, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`

		batch := &pgx.Batch{}
		for i, item := range snap.Items {
			batch.Queue(insert, uuid.New(), snap.CartID, item.ProductID, item.Quantity, item.IsSelect, i)
		}

		results := tx.SendBatch(ctx, batch)
		for range snap.Items {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				r.logger.Error().Err(err).Str("cart_id", snap.CartID.String()).Msg("failed to insert cart item")
				return fmt.Errorf("failed to insert cart item: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close cart item batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("cart_id", snap.CartID.String()).Msg("failed to commit cart write")
		return fmt.Errorf("failed to commit cart write: %w", err)
	}

	r.logger.Debug().
		Str("cart_id", snap.CartID.String()).
		Uint64("seq", snap.Seq).
		Int("item_count", len(snap.Items)).
		Msg("cart items replaced")

	return nil
}
