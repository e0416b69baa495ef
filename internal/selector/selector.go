// Package selector provides predicates over a single cart line item.
package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/pricing"
)

// ErrUnknownKind is returned when a selector is configured with an unsupported mode.
var ErrUnknownKind = errors.New("selector: unknown kind")

// Selector reports whether a line item belongs to a campaign's target set.
type Selector interface {
	Match(item *cart.LineItem) bool
}

// Func adapts a plain function to the Selector interface.
type Func func(item *cart.LineItem) bool

// Match calls f.
func (f Func) Match(item *cart.LineItem) bool { return f(item) }

// Matches treats a nil selector as matching every line.
func Matches(s Selector, item *cart.LineItem) bool {
	return s == nil || s.Match(item)
}

// Filter returns the lines matched by s in cart order.
func Filter(s Selector, items []*cart.LineItem) []*cart.LineItem {
	out := make([]*cart.LineItem, 0, len(items))
	for _, item := range items {
		if Matches(s, item) {
			out = append(out, item)
		}
	}
	return out
}

// ProductID matches lines whose product id is (or, inverted, is not) in the set.
type ProductID struct {
	ids    map[int64]struct{}
	invert bool
}

// NewProductID builds a product id selector. With invert set it matches
// products outside the set.
func NewProductID(invert bool, ids ...int64) ProductID {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return ProductID{ids: set, invert: invert}
}

// Match implements Selector.
func (s ProductID) Match(item *cart.LineItem) bool {
	_, ok := s.ids[item.Variant.Product.ID]
	return s.invert != ok
}

// TagMode controls how product tags are compared.
type TagMode string

const (
	TagMatch      TagMode = "match"
	TagStartsWith TagMode = "start_with"
	TagContains   TagMode = "include"
	TagEndsWith   TagMode = "end_with"
)

// Tag matches lines by product tag, case-insensitively.
type Tag struct {
	mode   TagMode
	tags   []string
	invert bool
}

// NewTag builds a tag selector.
func NewTag(mode TagMode, invert bool, tags ...string) (Tag, error) {
	switch mode {
	case TagMatch, TagStartsWith, TagContains, TagEndsWith:
	default:
		return Tag{}, fmt.Errorf("%w: tag mode %q", ErrUnknownKind, mode)
	}
	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		lowered = append(lowered, strings.ToLower(tag))
	}
	return Tag{mode: mode, tags: lowered, invert: invert}, nil
}

// Match implements Selector.
func (s Tag) Match(item *cart.LineItem) bool {
	productTags := item.Variant.Product.Tags
	matched := false
	for _, raw := range productTags {
		tag := strings.ToLower(raw)
		for _, want := range s.tags {
			if s.compare(tag, want) {
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}
	return s.invert != matched
}

func (s Tag) compare(tag, want string) bool {
	switch s.mode {
	case TagStartsWith:
		return strings.HasPrefix(tag, want)
	case TagContains:
		return strings.Contains(tag, want)
	case TagEndsWith:
		return strings.HasSuffix(tag, want)
	default:
		return tag == want
	}
}

// DefaultMinPrice is the unit threshold used when a ruleset asks for the
// default minimum price.
const DefaultMinPrice pricing.Money = 10_000_000

// MinPrice matches lines whose line price is at least the unit threshold times quantity.
type MinPrice struct {
	Price pricing.Money
}

// Match implements Selector.
func (s MinPrice) Match(item *cart.LineItem) bool {
	return item.LinePrice >= s.Price*pricing.Money(item.Quantity)
}

// Properties matches lines carrying every listed property with a
// case-insensitively equal value. An empty set matches every line.
type Properties map[string]string

// Match implements Selector.
func (s Properties) Match(item *cart.LineItem) bool {
	for key, want := range s {
		got, ok := item.Property(key)
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

// Discounted matches lines whose discounted flag equals the wanted state.
type Discounted bool

// Match implements Selector.
func (s Discounted) Match(item *cart.LineItem) bool {
	return bool(s) == item.Discounted
}

// Vendor matches the product vendor exactly.
type Vendor string

// Match implements Selector.
func (s Vendor) Match(item *cart.LineItem) bool {
	return item.Variant.Product.Vendor == string(s)
}

// ProductType matches the product type exactly.
type ProductType string

// Match implements Selector.
func (s ProductType) Match(item *cart.LineItem) bool {
	return item.Variant.Product.ProductType == string(s)
}

// GiftCard matches gift card products when true, everything else when false.
type GiftCard bool

// Match implements Selector.
func (s GiftCard) Match(item *cart.LineItem) bool {
	return bool(s) == item.Variant.Product.GiftCard
}
