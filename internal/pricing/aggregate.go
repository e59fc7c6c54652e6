package pricing

import "shopcart/internal/model"

// Aggregate folds all selected lines into cart-level totals. The sum is
// recomputed from scratch on every call; selection toggles, quantity edits and
// promotion changes can each invalidate a prior partial sum independently, so
// callers must never patch totals incrementally. An empty line list yields
// zero totals.
func (r *Resolver) Aggregate(lines []model.CartLine) model.CartTotals {
	var totals model.CartTotals
	for _, line := range lines {
		if !line.IsSelected {
			continue
		}
		totals.SelectedQuantity += line.Quantity
		totals.SelectedAmount += r.PriceLine(line).Subtotal
	}
	return totals
}
