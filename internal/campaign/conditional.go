package campaign

import (
	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// Conditional discounts the selected items, cheapest first, optionally
// capped at a number of units.
type Conditional struct {
	Rule
	selector selector.Selector
	discount discount.Discount
	maxUnits int
}

// NewConditional builds the campaign. maxUnits of zero means unlimited.
func NewConditional(rule Rule, sel selector.Selector, d discount.Discount, maxUnits int) (*Conditional, error) {
	if d == nil {
		return nil, ErrMissingDiscount
	}
	if maxUnits < 0 {
		maxUnits = 0
	}
	return &Conditional{Rule: rule, selector: sel, discount: d, maxUnits: maxUnits}, nil
}

// Kind implements Campaign.
func (*Conditional) Kind() string { return "conditional" }

// Run implements Campaign.
func (p *Conditional) Run(c *cart.Cart) (Result, error) {
	if !qualifier.Matches(p.qualifier, c, p.selector) {
		return Result{}, nil
	}
	items := selector.Filter(p.selector, c.LineItems)
	sortByUnitPrice(items)

	applier := p.discount.NewApplier()
	n, err := applyUpTo(c, applier, items, p.maxUnits)
	if err != nil {
		return Result{Qualified: true, Items: n}, err
	}
	applier.Finalize()
	return Result{Qualified: true, Items: n}, nil
}
