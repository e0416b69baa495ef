package pricing

// Item describes a line item used for summarising a cart.
type Item struct {
	Qty       int
	UnitPrice Money
	LinePrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}

// Compute totals the undiscounted subtotal (unit price times quantity) against
// the current line prices.
func Compute(items []Item) Summary {
	var subtotal, total Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
		total += ClampZero(it.LinePrice)
	}
	discount := subtotal - total
	if discount < 0 {
		discount = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}
