package model

import (
	"github.com/google/uuid"
)

// CartLine is one product entry in a user's cart. The product is an embedded
// snapshot taken when the line was loaded, not a live reference.
type CartLine struct {
	ID         *uuid.UUID `json:"id,omitempty"` // nil until persisted
	Product    Product    `json:"product"`
	Quantity   int        `json:"quantity"`
	IsSelected bool       `json:"isSelect"`
}

// CartTotals is the derived pair recomputed from scratch on every mutation.
type CartTotals struct {
	SelectedQuantity int     `json:"totalSelectedQuantity"`
	SelectedAmount   float64 `json:"totalSelectedAmount"`
}

// Cart owns an ordered list of cart lines. Line order is insertion order from
// the backend and is never resorted.
type Cart struct {
	ID     uuid.UUID  `json:"id" db:"id"`
	UserID string     `json:"userId" db:"user_id"`
	Lines  []CartLine `json:"items"`
	Totals CartTotals `json:"totals"`

	// Dirty is set when local changes could not be persisted after retries,
	// so clients can show an unsaved-changes indicator.
	Dirty bool `json:"hasUnsavedChanges"`
}

// CartItemPatch is one entry of a full-replace cart write.
type CartItemPatch struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	IsSelect  bool   `json:"isSelect"`
}

// CartPatchRequest is the PATCH /api/cart/{cartId} payload. Replace semantics:
// items not listed are removed.
type CartPatchRequest struct {
	UserID string          `json:"userId"`
	Items  []CartItemPatch `json:"items"`
}

// CartSnapshot is one outbound persistence write of the full line list.
// Seq increases monotonically per cart so stale writes can be discarded.
type CartSnapshot struct {
	CartID uuid.UUID
	UserID string
	Seq    uint64
	Items  []CartItemPatch
}

// CartRecord is the persisted shape of a cart, before product snapshots are
// joined in.
type CartRecord struct {
	ID      uuid.UUID        `db:"id"`
	UserID  string           `db:"user_id"`
	SyncSeq uint64           `db:"sync_seq"`
	Items   []CartItemRecord `db:"-"`
}

// CartItemRecord is one persisted cart line.
type CartItemRecord struct {
	ID         uuid.UUID `db:"id"`
	ProductID  string    `db:"product_id"`
	Quantity   int       `db:"quantity"`
	IsSelected bool      `db:"is_selected"`
}
