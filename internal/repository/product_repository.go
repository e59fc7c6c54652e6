package repository

import (
	"context"
	"fmt"

	"shopcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

const productColumns = `id, name, price, original_price, stock, image, created_at`

// GetAll retrieves all products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, productColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan products")
		return nil, err
	}

	if err := r.attachPromotions(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	products, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		r.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, nil
	}
	return &products[0], nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`, productColumns)

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan products")
		return nil, err
	}

	if err := r.attachPromotions(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// attachPromotions loads promotion links and their gift grants for the given
// products, preserving the backend link order (position).
func (r *productRepository) attachPromotions(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]*model.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	linkQuery := `
		SELECT pp.product_id, p.id, p.name, p.discount_type, p.discount_value
		FROM product_promotions pp
		JOIN promotions p ON p.id = pp.promotion_id
		WHERE pp.product_id = ANY($1)
		ORDER BY pp.product_id, pp.position
	`

	rows, err := r.pool.Query(ctx, linkQuery, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query promotion links")
		return fmt.Errorf("failed to query promotion links: %w", err)
	}
	defer rows.Close()

	promotionIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var productID string
		var link model.PromotionLink
		if err := rows.Scan(&productID, &link.PromotionID, &link.Name, &link.DiscountType, &link.DiscountValue); err != nil {
			return fmt.Errorf("failed to scan promotion link: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Promotions = append(p.Promotions, link)
			promotionIDs = append(promotionIDs, link.PromotionID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating promotion links: %w", err)
	}

	if len(promotionIDs) == 0 {
		return nil
	}

	giftQuery := `
		SELECT promotion_id, name, image, quantity
		FROM promotion_gifts
		WHERE promotion_id = ANY($1)
		ORDER BY promotion_id, name
	`

	giftRows, err := r.pool.Query(ctx, giftQuery, promotionIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query promotion gifts")
		return fmt.Errorf("failed to query promotion gifts: %w", err)
	}
	defer giftRows.Close()

	gifts := make(map[uuid.UUID][]model.GiftGrant)
	for giftRows.Next() {
		var promotionID uuid.UUID
		var grant model.GiftGrant
		if err := giftRows.Scan(&promotionID, &grant.Name, &grant.Image, &grant.Quantity); err != nil {
			return fmt.Errorf("failed to scan promotion gift: %w", err)
		}
		gifts[promotionID] = append(gifts[promotionID], grant)
	}
	if err := giftRows.Err(); err != nil {
		return fmt.Errorf("error iterating promotion gifts: %w", err)
	}

	for _, p := range index {
		for i := range p.Promotions {
			p.Promotions[i].Gifts = gifts[p.Promotions[i].PromotionID]
		}
	}

	return nil
}

// scanProducts reads product rows without promotions.
func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.OriginalPrice, &p.Stock, &p.Image, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}
