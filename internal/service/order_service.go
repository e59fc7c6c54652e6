package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"shopcart/internal/cart"
	"shopcart/internal/model"
	"shopcart/internal/order"
	"shopcart/internal/pricing"
	"shopcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	manager     *cart.Manager
	resolver    *pricing.Resolver
	notifier    Notifier
	logger      zerolog.Logger
}

// NewOrderService creates a new order service. notifier may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	manager *cart.Manager,
	resolver *pricing.Resolver,
	notifier Notifier,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		manager:     manager,
		resolver:    resolver,
		notifier:    notifier,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// Checkout creates an order from the submitted items. Unit prices, discounts
// and gifts are resolved server-side from current product and promotion
// records and frozen into the order items; the client-submitted total is
// never trusted. Ordered lines are pruned from the user's cart afterwards so
// they cannot be re-ordered by accident.
func (s *orderService) Checkout(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(productIDs)).Msg("failed to load products for checkout")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range productIDs {
		if _, ok := byID[id]; !ok {
			s.logger.Warn().Str("product_id", id).Msg("checkout references unknown product")
			return nil, model.ErrProductNotFound
		}
	}

	now := time.Now()
	o := &model.Order{
		ID:             uuid.New(),
		UserID:         req.UserID,
		StoreID:        req.StoreID,
		RecipientName:  req.RecipientName,
		RecipientPhone: req.RecipientPhone,
		Address:        req.Address,
		Note:           req.Note,
		Payment:        req.Payment,
		Status:         order.StatusOrdered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	items := make([]model.OrderItem, len(req.Items))
	var total float64
	for i, reqItem := range req.Items {
		p := byID[reqItem.ProductID]
		line := model.CartLine{Product: p, Quantity: reqItem.Quantity, IsSelected: true}
		resolved := s.resolver.ResolveEffectivePrice(p)
		priced := s.resolver.PriceLine(line)

		items[i] = model.OrderItem{
			ID:            uuid.New(),
			OrderID:       o.ID,
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      reqItem.Quantity,
			UnitPrice:     resolved.UnitPrice,
			Subtotal:      priced.Subtotal,
			DiscountType:  resolved.DiscountType,
			DiscountValue: resolved.DiscountValue,
			Gifts:         priced.Gifts,
		}
		total += priced.Subtotal
	}
	o.Total = total
	o.Items = items

	if math.Abs(total-req.Total) > 0.005 {
		s.logger.Warn().
			Str("order_id", o.ID.String()).
			Float64("client_total", req.Total).
			Float64("server_total", total).
			Msg("client-submitted total differs from server computation")
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, o); err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", o.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if st, ok := s.manager.Get(req.UserID); ok {
		removed := st.RemoveLines(productIDs)
		s.logger.Debug().
			Str("order_id", o.ID.String()).
			Int("pruned_lines", removed).
			Msg("ordered lines pruned from cart")
	}

	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", req.UserID).
		Int("item_count", len(items)).
		Float64("total", total).
		Msg("order created successfully")

	return o, nil
}

// GetByID retrieves an order with its items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, nil
	}
	return o, nil
}

// List retrieves a page of the user's order history, newest first.
func (s *orderService) List(ctx context.Context, userID string, limit, currentPage int) (*model.OrderListResponse, error) {
	if userID == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "userId is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if currentPage < 1 {
		currentPage = 1
	}

	offset := (currentPage - 1) * limit
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &model.OrderListResponse{
		Orders:      orders,
		Total:       total,
		CurrentPage: currentPage,
		Limit:       limit,
	}, nil
}

// UpdateStatus applies a lifecycle transition. Illegal transitions, including
// any move out of a terminal state, are rejected before touching storage.
// Cancellation is the only transition with a user-facing side effect.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.OrderStatusRequest) (*model.Order, error) {
	if req == nil || !req.Status.Valid() {
		return nil, model.ErrIllegalTransition
	}

	existing, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order for status update")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if existing == nil {
		return nil, model.ErrOrderNotFound
	}

	next, err := order.Transition(existing.Status, req.Status)
	if err != nil {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(existing.Status)).
			Str("to", string(req.Status)).
			Msg("illegal order status transition rejected")
		return nil, model.ErrIllegalTransition
	}

	now := time.Now()
	if err := s.orderRepo.UpdateStatus(ctx, id, next, req.TrackingCode, now); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	wasCanceled := existing.Status == order.StatusCanceled
	existing.Status = next
	if req.TrackingCode != nil {
		existing.TrackingCode = req.TrackingCode
	}
	existing.UpdatedAt = now

	if next == order.StatusCanceled && !wasCanceled && s.notifier != nil {
		s.notifier.OrderCanceled(ctx, existing.ID, existing.UserID)
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("status", string(next)).
		Msg("order status updated")

	return existing, nil
}

// validateOrderRequest validates the checkout request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return fmt.Errorf("order request is nil")
	}
	if req.UserID == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "userId is required")
	}
	if req.Address == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "address is required")
	}
	if req.Payment == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "payment is required")
	}
	if len(req.Items) == 0 {
		return model.ErrEmptySelection
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return fmt.Errorf("item %d: product ID is required", i)
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	return nil
}
