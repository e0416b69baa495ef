package campaign

import (
	"fmt"
	"sort"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// BuyXGetX discounts getX units for every complete set of buyX purchased units.
// The buy and get pools are selected independently and may overlap.
type BuyXGetX struct {
	Rule
	buy      selector.Selector
	buyX     int
	get      selector.Selector
	getX     int
	maxSets  int
	discount discount.Discount
}

// NewBuyXGetX builds the campaign. maxSets of zero means unlimited.
func NewBuyXGetX(rule Rule, buy selector.Selector, buyX int, get selector.Selector, getX int, d discount.Discount, maxSets int) (*BuyXGetX, error) {
	if d == nil {
		return nil, ErrMissingDiscount
	}
	if buyX <= 0 || getX <= 0 {
		return nil, fmt.Errorf("%w: buy %d get %d", ErrInvalidCampaign, buyX, getX)
	}
	if maxSets < 0 {
		maxSets = 0
	}
	return &BuyXGetX{Rule: rule, buy: buy, buyX: buyX, get: get, getX: getX, maxSets: maxSets, discount: d}, nil
}

// Kind implements Campaign.
func (*BuyXGetX) Kind() string { return "buy_x_get_x" }

// Run implements Campaign.
func (p *BuyXGetX) Run(c *cart.Cart) (Result, error) {
	if !qualifier.Matches(p.qualifier, c, p.buy) {
		return Result{}, nil
	}
	if c.TotalQuantity() < p.buyX {
		return Result{}, nil
	}

	purchased := 0
	for _, item := range selector.Filter(p.buy, c.LineItems) {
		purchased += item.Quantity
	}
	sets := purchased / p.buyX
	if p.maxSets > 0 && sets > p.maxSets {
		sets = p.maxSets
	}
	if sets < 1 {
		return Result{Qualified: true}, nil
	}

	eligible := selector.Filter(p.get, c.LineItems)
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.UnitPrice() != b.UnitPrice() {
			return a.UnitPrice() < b.UnitPrice()
		}
		return a.LinePrice > b.LinePrice
	})

	applier := p.discount.NewApplier()
	n, err := applyUpTo(c, applier, eligible, sets*p.getX)
	if err != nil {
		return Result{Qualified: true, Items: n}, err
	}
	applier.Finalize()
	return Result{Qualified: true, Items: n}, nil
}
