package campaign

import (
	"fmt"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// Component is one part of a bundle: Quantity units of lines matching Selector.
type Component struct {
	Quantity int
	Selector selector.Selector
}

// Bundle discounts complete sets of its components and moves the bundled
// lines to the front of the cart.
type Bundle struct {
	Rule
	components []Component
	discount   discount.Discount
}

// NewBundle builds the campaign.
func NewBundle(rule Rule, components []Component, d discount.Discount) (*Bundle, error) {
	if d == nil {
		return nil, ErrMissingDiscount
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: bundle has no components", ErrInvalidCampaign)
	}
	for i, comp := range components {
		if comp.Quantity <= 0 || comp.Selector == nil {
			return nil, fmt.Errorf("%w: bundle component %d needs a selector and a positive quantity", ErrInvalidCampaign, i)
		}
	}
	return &Bundle{Rule: rule, components: append([]Component(nil), components...), discount: d}, nil
}

// Kind implements Campaign.
func (*Bundle) Kind() string { return "bundle" }

// Run implements Campaign.
func (p *Bundle) Run(c *cart.Cart) (Result, error) {
	if !qualifier.Matches(p.qualifier, c, nil) {
		return Result{}, nil
	}
	members, err := p.findBundles(c)
	if err != nil {
		return Result{Qualified: true}, err
	}
	if len(members) == 0 {
		return Result{Qualified: true}, nil
	}

	discount.Run(p.discount, members)
	c.MoveToFront(members)
	return Result{Qualified: true, Items: len(members)}, nil
}

type bundlePart struct {
	items    []*cart.LineItem
	required int
}

// findBundles works out how many complete bundles the cart holds and returns
// the lines that make them up, splitting boundary lines so exactly the
// bundled quantity is returned. Component pools are fixed before any split.
func (p *Bundle) findBundles(c *cart.Cart) ([]*cart.LineItem, error) {
	parts := make([]bundlePart, len(p.components))
	bundles := -1
	for i, comp := range p.components {
		items := selector.Filter(comp.Selector, c.LineItems)
		total := 0
		for _, item := range items {
			total += item.Quantity
		}
		parts[i] = bundlePart{items: items, required: comp.Quantity}
		if possible := total / comp.Quantity; bundles < 0 || possible < bundles {
			bundles = possible
		}
	}
	if bundles <= 0 {
		return nil, nil
	}

	seen := make(map[*cart.LineItem]struct{})
	var members []*cart.LineItem
	for _, part := range parts {
		remaining := bundles * part.required
		for _, item := range part.items {
			if remaining == 0 {
				break
			}
			if item.Quantity > remaining {
				excess, err := item.Split(item.Quantity - remaining)
				if err != nil {
					return nil, fmt.Errorf("split line %s: %w", item.ID, err)
				}
				c.Append(excess)
			}
			remaining -= item.Quantity
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			members = append(members, item)
		}
	}
	return members, nil
}
