package pricing

import "shopcart/internal/model"

// LinePrice is the priced view of a single cart line. Gifts are informational
// only and never contribute to the subtotal.
type LinePrice struct {
	Subtotal float64
	Gifts    []model.GiftItem
}

// PriceLine computes a cart line's subtotal from the resolved unit price and
// collects the gift items granted by the effective promotion, scaled by the
// line quantity. Selection state does not affect the line's own subtotal;
// deselected lines are simply excluded at aggregation time.
func (r *Resolver) PriceLine(line model.CartLine) LinePrice {
	resolved := r.ResolveEffectivePrice(line.Product)

	var gifts []model.GiftItem
	for _, grant := range resolved.Gifts {
		gifts = append(gifts, model.GiftItem{
			Name:     grant.Name,
			Image:    grant.Image,
			Quantity: grant.Quantity * line.Quantity,
		})
	}

	return LinePrice{
		Subtotal: resolved.UnitPrice * float64(line.Quantity),
		Gifts:    gifts,
	}
}
