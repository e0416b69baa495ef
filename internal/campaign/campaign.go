// Package campaign implements the promotion archetypes evaluated by the engine.
package campaign

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/qualifier"
)

var (
	// ErrMissingDiscount is returned when a campaign that needs a discount has none.
	ErrMissingDiscount = errors.New("campaign: discount required")
	// ErrAmbiguousCode is returned when a cart code matches more than one configured entry.
	ErrAmbiguousCode = errors.New("campaign: discount code matches multiple entries")
	// ErrInvalidCampaign is returned for any other unusable campaign configuration.
	ErrInvalidCampaign = errors.New("campaign: invalid configuration")
)

// Campaign is a configured promotion. Run mutates the cart in place and
// returns an error only for configuration problems.
type Campaign interface {
	Name() string
	Kind() string
	// PostCondition, when non-nil, must still hold after Run or the run is rolled back.
	PostCondition() qualifier.Qualifier
	Run(c *cart.Cart) (Result, error)
}

// Result describes what a single run did.
type Result struct {
	Qualified bool
	// Items counts line items the discount was applied to.
	Items int
}

// Rule carries the settings shared by every campaign.
type Rule struct {
	name          string
	qualifier     qualifier.Qualifier
	postCondition qualifier.Qualifier
}

// NewRule builds a rule. A nil qualifier always qualifies and a nil
// post-condition disables rollback.
func NewRule(name string, q, postCondition qualifier.Qualifier) Rule {
	return Rule{name: name, qualifier: q, postCondition: postCondition}
}

// Name returns the campaign name.
func (r Rule) Name() string { return r.name }

// PostCondition returns the post-discount qualifier, if any.
func (r Rule) PostCondition() qualifier.Qualifier { return r.postCondition }

// applyUpTo applies the discount to items in order until limit units are
// covered. When the limit falls inside a line, the excess is split off and
// appended to the cart undiscounted. A limit of zero means no limit.
func applyUpTo(c *cart.Cart, applier discount.Applier, items []*cart.LineItem, limit int) (int, error) {
	limited := limit > 0
	applied := 0
	for _, item := range items {
		if limited && limit == 0 {
			break
		}
		if limited && item.Quantity > limit {
			excess, err := item.Split(item.Quantity - limit)
			if err != nil {
				return applied, fmt.Errorf("split line %s: %w", item.ID, err)
			}
			c.Append(excess)
		}
		applier.Apply(item)
		applied++
		if limited {
			limit -= item.Quantity
		}
	}
	return applied, nil
}

func sortByUnitPrice(items []*cart.LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UnitPrice() < items[j].UnitPrice()
	})
}
