package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopcart/internal/model"
	"shopcart/internal/pricing"
)

// BadgePublisher receives the selected-quantity count after every recompute so
// other surfaces (the cart-icon badge) can read it cheaply. Best-effort;
// implementations log their own failures.
type BadgePublisher interface {
	PublishBadge(ctx context.Context, userID string, selectedQuantity int)
}

// Store is the single source of truth for one user's cart lines during a
// session. Every mutation recomputes the derived totals synchronously and
// hands a snapshot to the syncer. State is optimistic: a failed sync never
// rolls a mutation back.
type Store struct {
	cartID uuid.UUID
	userID string
	pricer *pricing.Resolver
	syncer *Syncer
	badge  BadgePublisher
	logger zerolog.Logger

	mu     sync.Mutex
	lines  []model.CartLine
	totals model.CartTotals
}

// NewStore creates an empty store for a cart. badge may be nil.
func NewStore(
	cartID uuid.UUID,
	userID string,
	pricer *pricing.Resolver,
	syncer *Syncer,
	badge BadgePublisher,
	logger zerolog.Logger,
) *Store {
	return &Store{
		cartID: cartID,
		userID: userID,
		pricer: pricer,
		syncer: syncer,
		badge:  badge,
		logger: logger.With().Str("component", "cart-store").Str("cart_id", cartID.String()).Logger(),
	}
}

// CartID returns the persistent cart identity this store is bound to.
func (s *Store) CartID() uuid.UUID { return s.cartID }

// UserID returns the owning user.
func (s *Store) UserID() string { return s.userID }

// ReplaceAll replaces the entire line list. Used once when seeding from the
// backend, so no sync is scheduled; only the badge observable is brought back
// in step.
func (s *Store) ReplaceAll(lines []model.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append([]model.CartLine(nil), lines...)
	s.recomputeLocked()
}

// SetQuantity replaces the quantity of the line owning the given product and
// schedules a debounced sync. The value is clamped to [1, stock snapshot]; an
// invalid quantity never reaches the line. Returns false when no line matches.
func (s *Store) SetQuantity(productID string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(productID)
	if i < 0 {
		return false
	}
	s.lines[i].Quantity = clampQuantity(quantity, s.lines[i].Product.Stock)
	s.recomputeLocked()
	s.syncer.Schedule(s.snapshotLocked())
	return true
}

// ToggleSelection flips a line's selection flag and schedules a debounced
// sync. Returns false when no line carries the given id.
func (s *Store) ToggleSelection(lineID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID != nil && *s.lines[i].ID == lineID {
			s.lines[i].IsSelected = !s.lines[i].IsSelected
			s.recomputeLocked()
			s.syncer.Schedule(s.snapshotLocked())
			return true
		}
	}
	return false
}

// RemoveLine deletes the line owning the given product. Removal flushes
// immediately rather than debouncing, so a stale later write cannot make the
// deleted line reappear. Returns false when no line matches.
func (s *Store) RemoveLine(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(productID)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.recomputeLocked()
	s.syncer.Flush(s.snapshotLocked())
	return true
}

// RemoveLines deletes every line owning one of the given products with a
// single immediate flush. Used to prune ordered lines after checkout.
func (s *Store) RemoveLines(productIDs []string) int {
	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0]
	removed := 0
	for _, line := range s.lines {
		if _, ok := drop[line.Product.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return 0
	}
	s.lines = kept
	s.recomputeLocked()
	s.syncer.Flush(s.snapshotLocked())
	return removed
}

// ApplyPatch applies a full-replace item list as a diff against the current
// lines: quantity and selection changes, removals of unlisted lines, and
// additions. lookup supplies product snapshots for added lines. Removals force
// an immediate flush; otherwise the write debounces.
func (s *Store) ApplyPatch(items []model.CartItemPatch, lookup func(productID string) (model.Product, bool)) {
	want := make(map[string]model.CartItemPatch, len(items))
	for _, item := range items {
		want[item.ProductID] = item
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	kept := s.lines[:0]
	for _, line := range s.lines {
		item, ok := want[line.Product.ID]
		if !ok {
			removed = true
			continue
		}
		line.Quantity = clampQuantity(item.Quantity, line.Product.Stock)
		line.IsSelected = item.IsSelect
		kept = append(kept, line)
		delete(want, line.Product.ID)
	}
	s.lines = kept

	// Remaining patch entries are additions; keep the caller's order.
	for _, item := range items {
		patch, ok := want[item.ProductID]
		if !ok {
			continue
		}
		product, found := lookup(patch.ProductID)
		if !found {
			s.logger.Warn().
				Str("product_id", patch.ProductID).
				Msg("patch adds unknown product, entry skipped")
			continue
		}
		s.lines = append(s.lines, model.CartLine{
			Product:    product,
			Quantity:   clampQuantity(patch.Quantity, product.Stock),
			IsSelected: patch.IsSelect,
		})
	}

	s.recomputeLocked()
	if removed {
		s.syncer.Flush(s.snapshotLocked())
	} else {
		s.syncer.Schedule(s.snapshotLocked())
	}
}

// Lines returns a copy of the current line list in insertion order.
func (s *Store) Lines() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CartLine(nil), s.lines...)
}

// Totals returns the current derived totals.
func (s *Store) Totals() model.CartTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Cart returns a view of the store as a cart entity.
func (s *Store) Cart() *model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.Cart{
		ID:     s.cartID,
		UserID: s.userID,
		Lines:  append([]model.CartLine(nil), s.lines...),
		Totals: s.totals,
		Dirty:  s.syncer.Dirty(),
	}
}

// Dirty reports whether local state may be ahead of the backend.
func (s *Store) Dirty() bool { return s.syncer.Dirty() }

// recomputeLocked rebuilds the derived totals from scratch and pushes the
// badge count. Caller holds s.mu.
func (s *Store) recomputeLocked() {
	s.totals = s.pricer.Aggregate(s.lines)
	if s.badge != nil {
		go s.badge.PublishBadge(context.Background(), s.userID, s.totals.SelectedQuantity)
	}
}

// snapshotLocked builds an outbound persistence snapshot. The sequence number
// is assigned by the syncer. Caller holds s.mu.
func (s *Store) snapshotLocked() model.CartSnapshot {
	items := make([]model.CartItemPatch, len(s.lines))
	for i, line := range s.lines {
		items[i] = model.CartItemPatch{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			IsSelect:  line.IsSelected,
		}
	}
	return model.CartSnapshot{
		CartID: s.cartID,
		UserID: s.userID,
		Items:  items,
	}
}

// indexOfLocked finds the line owning a product. Caller holds s.mu.
func (s *Store) indexOfLocked(productID string) int {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// clampQuantity keeps a quantity inside [1, stock]. A non-positive stock
// snapshot only enforces the lower bound.
func clampQuantity(quantity, stock int) int {
	if quantity < 1 {
		return 1
	}
	if stock > 0 && quantity > stock {
		return stock
	}
	return quantity
}
