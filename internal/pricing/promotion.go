// Package pricing computes effective unit prices, line subtotals and
// cart-level totals. All functions are pure: same inputs, same outputs,
// no hidden counters.
package pricing

import "shopcart/internal/model"

// Strategy selects which of a product's promotion links is effective when
// several are attached.
type Strategy string

const (
	// StrategyFirst uses the first link supplied by the backend.
	StrategyFirst Strategy = "first"

	// StrategyHighestDiscount uses the link yielding the largest discount.
	StrategyHighestDiscount Strategy = "highest"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyFirst || s == StrategyHighestDiscount
}

// ResolvedPrice is the outcome of promotion resolution for one product.
// DiscountType and DiscountValue are nil when no promotion applied.
type ResolvedPrice struct {
	UnitPrice     float64
	DiscountType  *model.DiscountType
	DiscountValue *float64
	Gifts         []model.GiftGrant
}

// Resolver resolves the effective promotion and discounted unit price for a
// product under a fixed selection strategy.
type Resolver struct {
	strategy Strategy
}

// NewResolver creates a resolver. An unknown strategy falls back to
// StrategyFirst, the backend-order behaviour.
func NewResolver(strategy Strategy) *Resolver {
	if !strategy.Valid() {
		strategy = StrategyFirst
	}
	return &Resolver{strategy: strategy}
}

// ResolveEffectivePrice returns the discounted unit price for a product.
// Discount values are sanitised before use: negative values count as zero and
// percentages are capped at 100. The result is clamped to a floor of 0.
func (r *Resolver) ResolveEffectivePrice(p model.Product) ResolvedPrice {
	if len(p.Promotions) == 0 {
		return ResolvedPrice{UnitPrice: p.Price}
	}

	link := r.pickLink(p)
	value := sanitiseDiscount(link.DiscountType, link.DiscountValue)
	price := applyDiscount(p.Price, link.DiscountType, value)

	return ResolvedPrice{
		UnitPrice:     price,
		DiscountType:  &link.DiscountType,
		DiscountValue: &value,
		Gifts:         link.Gifts,
	}
}

// pickLink chooses the effective promotion link per the configured strategy.
func (r *Resolver) pickLink(p model.Product) model.PromotionLink {
	if r.strategy == StrategyFirst || len(p.Promotions) == 1 {
		return p.Promotions[0]
	}

	best := p.Promotions[0]
	bestPrice := applyDiscount(p.Price, best.DiscountType, sanitiseDiscount(best.DiscountType, best.DiscountValue))
	for _, link := range p.Promotions[1:] {
		price := applyDiscount(p.Price, link.DiscountType, sanitiseDiscount(link.DiscountType, link.DiscountValue))
		if price < bestPrice {
			best = link
			bestPrice = price
		}
	}
	return best
}

// sanitiseDiscount clamps malformed discount values: negatives to 0, percent
// above 100 to 100. Upstream does not validate these.
func sanitiseDiscount(t model.DiscountType, value float64) float64 {
	if value < 0 {
		return 0
	}
	if t == model.DiscountPercent && value > 100 {
		return 100
	}
	return value
}

// applyDiscount computes the discounted unit price, never below zero.
func applyDiscount(price float64, t model.DiscountType, value float64) float64 {
	var discounted float64
	switch t {
	case model.DiscountPercent:
		discounted = price * (1 - value/100)
	case model.DiscountFixed:
		discounted = price - value
	default:
		discounted = price
	}
	if discounted < 0 {
		return 0
	}
	return discounted
}
