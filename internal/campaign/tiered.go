package campaign

import (
	"fmt"
	"sort"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// Tier is a spend threshold and the discount it unlocks.
type Tier struct {
	Threshold pricing.Money
	Discount  discount.Discount
}

// TieredSpend applies the discount of the highest tier the cart subtotal
// reaches to every line except gift cards.
type TieredSpend struct {
	Rule
	code  string
	tiers []Tier
}

// NewTieredSpend builds the campaign. A non-empty code restricts it to carts
// carrying that code.
func NewTieredSpend(rule Rule, code string, tiers []Tier) (*TieredSpend, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: tiered spend needs at least one tier", ErrInvalidCampaign)
	}
	sorted := append([]Tier(nil), tiers...)
	for _, t := range sorted {
		if t.Discount == nil {
			return nil, ErrMissingDiscount
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })
	return &TieredSpend{Rule: rule, code: code, tiers: sorted}, nil
}

// Kind implements Campaign.
func (*TieredSpend) Kind() string { return "tiered_spend" }

// Run implements Campaign.
func (p *TieredSpend) Run(c *cart.Cart) (Result, error) {
	if p.code != "" && (!c.DiscountCode.Matches(p.code) || c.DiscountCode.Rejected()) {
		return Result{}, nil
	}
	if !qualifier.Matches(p.qualifier, c, nil) {
		return Result{}, nil
	}
	subtotal := c.Subtotal()
	for _, tier := range p.tiers {
		if subtotal < tier.Threshold {
			continue
		}
		items := selector.Filter(selector.GiftCard(false), c.LineItems)
		discount.Run(tier.Discount, items)
		return Result{Qualified: true, Items: len(items)}, nil
	}
	return Result{}, nil
}
