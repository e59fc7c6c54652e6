package service

import (
	"context"
	"fmt"

	"shopcart/internal/cart"
	"shopcart/internal/model"
	"shopcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cartService implements CartService on top of the per-session cart stores.
type cartService struct {
	manager     *cart.Manager
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	badge       BadgeCache
	logger      zerolog.Logger
}

// NewCartService creates a new cart service. badge may be nil.
func NewCartService(
	manager *cart.Manager,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	badge BadgeCache,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		manager:     manager,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		badge:       badge,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the user's cart. The in-memory store is authoritative for
// an active session; it is seeded from the backend on first access. Seeding
// errors fail open to an empty cart so the page is never blocked.
func (s *cartService) GetCart(ctx context.Context, userID string, isSelect *bool) (*model.Cart, error) {
	if userID == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "userId is required")
	}

	st, ok := s.manager.Get(userID)
	if !ok {
		st = s.seedStore(ctx, userID)
	}

	view := st.Cart()
	if isSelect != nil {
		filtered := make([]model.CartLine, 0, len(view.Lines))
		for _, line := range view.Lines {
			if line.IsSelected == *isSelect {
				filtered = append(filtered, line)
			}
		}
		view.Lines = filtered
	}

	return view, nil
}

// ApplyPatch applies a full-replace item list to the user's cart as a diff
// against the store's current lines.
func (s *cartService) ApplyPatch(ctx context.Context, cartID uuid.UUID, req *model.CartPatchRequest) (*model.Cart, error) {
	if req == nil || req.UserID == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "userId is required")
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, model.NewDomainError(model.ErrCodeMissingField, "productId is required for every item")
		}
	}

	st, ok := s.manager.Get(req.UserID)
	if !ok {
		st = s.seedStore(ctx, req.UserID)
	}
	if st.CartID() != cartID {
		s.logger.Warn().
			Str("user_id", req.UserID).
			Str("cart_id", cartID.String()).
			Str("active_cart_id", st.CartID().String()).
			Msg("cart patch addressed to unknown cart")
		return nil, model.ErrCartNotFound
	}

	// Additions need product snapshots; look up only the unknown IDs.
	known := make(map[string]struct{})
	for _, line := range st.Lines() {
		known[line.Product.ID] = struct{}{}
	}
	var newIDs []string
	for _, item := range req.Items {
		if _, ok := known[item.ProductID]; !ok {
			newIDs = append(newIDs, item.ProductID)
		}
	}

	added := make(map[string]model.Product, len(newIDs))
	if len(newIDs) > 0 {
		products, err := s.productRepo.GetByIDs(ctx, newIDs)
		if err != nil {
			s.logger.Error().Err(err).Int("count", len(newIDs)).Msg("failed to load products for cart patch")
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		for _, p := range products {
			added[p.ID] = p
		}
		if len(added) < len(newIDs) {
			return nil, model.ErrProductNotFound
		}
	}

	st.ApplyPatch(req.Items, func(productID string) (model.Product, bool) {
		p, ok := added[productID]
		return p, ok
	})

	s.logger.Debug().
		Str("user_id", req.UserID).
		Str("cart_id", cartID.String()).
		Int("item_count", len(req.Items)).
		Msg("cart patch applied")

	return st.Cart(), nil
}

// BadgeCount returns the selected-quantity count: from the live store when
// one is active, otherwise from the badge cache.
func (s *cartService) BadgeCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, model.NewDomainError(model.ErrCodeMissingField, "userId is required")
	}

	if st, ok := s.manager.Get(userID); ok {
		return st.Totals().SelectedQuantity, nil
	}
	if s.badge == nil {
		return 0, nil
	}
	return s.badge.BadgeCount(ctx, userID)
}

// seedStore loads the user's persisted cart and creates the session store.
// Any backend failure leaves the store empty rather than propagating: the
// engine fails open to an empty cart.
func (s *cartService) seedStore(ctx context.Context, userID string) *cart.Store {
	record, err := s.cartRepo.GetByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("cart fetch failed, serving empty cart")
		return s.manager.GetOrCreate(uuid.New(), userID, nil)
	}

	if record == nil {
		record, err = s.cartRepo.Create(ctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("cart create failed, serving empty cart")
			return s.manager.GetOrCreate(uuid.New(), userID, nil)
		}
	}

	lines := s.buildLines(ctx, record)
	return s.manager.GetOrCreate(record.ID, userID, lines)
}

// buildLines joins product snapshots onto the persisted cart items, keeping
// insertion order. Items whose product disappeared are skipped.
func (s *cartService) buildLines(ctx context.Context, record *model.CartRecord) []model.CartLine {
	if len(record.Items) == 0 {
		return nil
	}

	ids := make([]string, len(record.Items))
	for i, item := range record.Items {
		ids[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("cart_id", record.ID.String()).Msg("product snapshot load failed, serving empty cart")
		return nil
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]model.CartLine, 0, len(record.Items))
	for _, item := range record.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			s.logger.Warn().
				Str("cart_id", record.ID.String()).
				Str("product_id", item.ProductID).
				Msg("cart item references missing product, skipped")
			continue
		}
		lineID := item.ID
		lines = append(lines, model.CartLine{
			ID:         &lineID,
			Product:    p,
			Quantity:   item.Quantity,
			IsSelected: item.IsSelected,
		})
	}
	return lines
}
