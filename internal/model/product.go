package model

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType identifies how a promotion reduces a product's price.
type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

// Valid reports whether the discount type is one of the known values.
func (d DiscountType) Valid() bool {
	return d == DiscountPercent || d == DiscountFixed
}

// GiftGrant is a bonus item granted per purchased unit by a promotion.
// Grants never affect pricing.
type GiftGrant struct {
	Name     string `json:"name" db:"name"`
	Image    string `json:"image,omitempty" db:"image"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// PromotionLink attaches a promotion to a product. The backend supplies links
// in a fixed order; position is preserved so "first link wins" stays stable.
type PromotionLink struct {
	PromotionID   uuid.UUID    `json:"promotionId" db:"promotion_id"`
	Name          string       `json:"name" db:"name"`
	DiscountType  DiscountType `json:"discountType" db:"discount_type"`
	DiscountValue float64      `json:"discountValue" db:"discount_value"`
	Gifts         []GiftGrant  `json:"gifts,omitempty"`
}

// Product represents a catalogue product. From the cart engine's perspective
// it is read-only; cart lines embed a snapshot of it.
type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         float64         `json:"price" db:"price"`
	OriginalPrice *float64        `json:"originalPrice,omitempty" db:"original_price"`
	Stock         int             `json:"stock" db:"stock"`
	Image         string          `json:"image,omitempty" db:"image"`
	Promotions    []PromotionLink `json:"promotions,omitempty"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}
