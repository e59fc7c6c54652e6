// Package cache wraps the optional Redis connection used for the cart badge
// counter and order lifecycle notifications. All operations are best-effort:
// a missing or failing Redis never blocks the cart engine.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"shopcart/internal/config"
)

const (
	badgeKeyPrefix = "cart:badge:"
	badgeTTL       = 24 * time.Hour

	// OrderCanceledChannel carries order cancellation events for user-facing
	// notification consumers.
	OrderCanceledChannel = "orders.canceled"
)

// Client is a thin wrapper over go-redis. A nil *Client is a valid no-op
// client, so callers can wire it unconditionally.
type Client struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("redis connection established")

	return &Client{
		rdb:    rdb,
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

// PublishBadge stores the user's selected-quantity count for the cart badge.
func (c *Client) PublishBadge(ctx context.Context, userID string, selectedQuantity int) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, badgeKeyPrefix+userID, selectedQuantity, badgeTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to publish cart badge")
	}
}

// BadgeCount reads the cached badge count for a user. A missing key reads as
// zero.
func (c *Client) BadgeCount(ctx context.Context, userID string) (int, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	count, err := c.rdb.Get(ctx, badgeKeyPrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cart badge: %w", err)
	}
	return count, nil
}

// orderCanceledEvent is the wire form of a cancellation notification.
type orderCanceledEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	UserID     string    `json:"userId"`
	CanceledAt time.Time `json:"canceledAt"`
}

// PublishOrderCanceled emits a cancellation event for notification consumers.
func (c *Client) PublishOrderCanceled(ctx context.Context, orderID uuid.UUID, userID string) {
	if c == nil || c.rdb == nil {
		return
	}
	payload, err := json.Marshal(orderCanceledEvent{
		OrderID:    orderID,
		UserID:     userID,
		CanceledAt: time.Now().UTC(),
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode order canceled event")
		return
	}
	if err := c.rdb.Publish(ctx, OrderCanceledChannel, payload).Err(); err != nil {
		c.logger.Warn().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to publish order canceled event")
	}
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
