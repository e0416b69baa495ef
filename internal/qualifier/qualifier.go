// Package qualifier provides predicates over the whole cart.
package qualifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/selector"
)

var (
	// ErrInvalidComparison is returned for an unsupported comparison operator.
	ErrInvalidComparison = errors.New("qualifier: invalid comparison type")
	// ErrMissingSelector is returned when a qualifier that scopes by line item has no selector.
	ErrMissingSelector = errors.New("qualifier: item selector required")
	// ErrUnknownKind is returned for an unsupported aggregation or policy.
	ErrUnknownKind = errors.New("qualifier: unknown kind")
)

// Qualifier decides whether a campaign applies to a cart. The campaign's own
// line selector is passed through for qualifiers that scope by it.
type Qualifier interface {
	Match(c *cart.Cart, sel selector.Selector) bool
}

// Matches treats a nil qualifier as always matching.
func Matches(q Qualifier, c *cart.Cart, sel selector.Selector) bool {
	return q == nil || q.Match(c, sel)
}

// Comparison is a numeric comparison operator.
type Comparison string

const (
	GreaterThan        Comparison = "greater_than"
	GreaterThanOrEqual Comparison = "greater_than_or_equal"
	LessThan           Comparison = "less_than"
	LessThanOrEqual    Comparison = "less_than_or_equal"
	EqualTo            Comparison = "equal_to"
)

// Validate rejects unknown operators.
func (c Comparison) Validate() error {
	switch c {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, EqualTo:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidComparison, string(c))
	}
}

// Compare applies the operator as "value <op> target".
func (c Comparison) Compare(value, target int64) bool {
	switch c {
	case GreaterThan:
		return value > target
	case GreaterThanOrEqual:
		return value >= target
	case LessThan:
		return value < target
	case LessThanOrEqual:
		return value <= target
	default:
		return value == target
	}
}

// QuantityMethod selects how CartQuantity aggregates line quantities.
type QuantityMethod string

const (
	// QuantityItem sums quantities of lines matched by the campaign selector.
	QuantityItem QuantityMethod = "item"
	// QuantityCart sums quantities of every line.
	QuantityCart QuantityMethod = "cart"
	// QuantityLineAny compares each matched line and requires any to pass.
	QuantityLineAny QuantityMethod = "line_any"
	// QuantityLineAll compares each matched line and requires all to pass.
	QuantityLineAll QuantityMethod = "line_all"
)

// CartQuantity compares cart quantities against a fixed number.
type CartQuantity struct {
	method     QuantityMethod
	comparison Comparison
	quantity   int64
}

// NewCartQuantity validates and builds a quantity qualifier.
func NewCartQuantity(method QuantityMethod, comparison Comparison, quantity int) (CartQuantity, error) {
	switch method {
	case QuantityItem, QuantityCart, QuantityLineAny, QuantityLineAll:
	default:
		return CartQuantity{}, fmt.Errorf("%w: quantity method %q", ErrUnknownKind, string(method))
	}
	if err := comparison.Validate(); err != nil {
		return CartQuantity{}, err
	}
	return CartQuantity{method: method, comparison: comparison, quantity: int64(quantity)}, nil
}

// Match implements Qualifier.
func (q CartQuantity) Match(c *cart.Cart, sel selector.Selector) bool {
	switch q.method {
	case QuantityLineAny, QuantityLineAll:
		items := selector.Filter(sel, c.LineItems)
		for _, item := range items {
			ok := q.comparison.Compare(int64(item.Quantity), q.quantity)
			if q.method == QuantityLineAny && ok {
				return true
			}
			if q.method == QuantityLineAll && !ok {
				return false
			}
		}
		return q.method == QuantityLineAll
	case QuantityCart:
		return q.comparison.Compare(int64(c.TotalQuantity()), q.quantity)
	default:
		var total int64
		for _, item := range selector.Filter(sel, c.LineItems) {
			total += int64(item.Quantity)
		}
		return q.comparison.Compare(total, q.quantity)
	}
}

// Measure selects what CartHasItem totals.
type Measure string

const (
	MeasureQuantity Measure = "quantity"
	MeasureSubtotal Measure = "subtotal"
)

// CartHasItem totals the quantity or line price of lines matched by its own
// selector and compares the total with an amount. Subtotal amounts are in
// minor units.
type CartHasItem struct {
	measure    Measure
	comparison Comparison
	amount     int64
	selector   selector.Selector
}

// NewCartHasItem validates and builds the qualifier.
func NewCartHasItem(measure Measure, comparison Comparison, amount int64, sel selector.Selector) (CartHasItem, error) {
	if sel == nil {
		return CartHasItem{}, fmt.Errorf("%w: cart has item", ErrMissingSelector)
	}
	switch measure {
	case MeasureQuantity, MeasureSubtotal:
	default:
		return CartHasItem{}, fmt.Errorf("%w: measure %q", ErrUnknownKind, string(measure))
	}
	if err := comparison.Validate(); err != nil {
		return CartHasItem{}, err
	}
	return CartHasItem{measure: measure, comparison: comparison, amount: amount, selector: sel}, nil
}

// Match implements Qualifier.
func (q CartHasItem) Match(c *cart.Cart, _ selector.Selector) bool {
	var total int64
	for _, item := range c.LineItems {
		if !q.selector.Match(item) {
			continue
		}
		if q.measure == MeasureSubtotal {
			total += item.LinePrice
		} else {
			total += int64(item.Quantity)
		}
	}
	return q.comparison.Compare(total, q.amount)
}

// CartAmount compares the current total line price, optionally limited to
// lines matched by its own selector, against an amount. Used as a
// post-discount condition.
type CartAmount struct {
	comparison Comparison
	amount     pricing.Money
	selector   selector.Selector
}

// NewCartAmount validates and builds the qualifier.
func NewCartAmount(comparison Comparison, amount pricing.Money, sel selector.Selector) (CartAmount, error) {
	if err := comparison.Validate(); err != nil {
		return CartAmount{}, err
	}
	return CartAmount{comparison: comparison, amount: amount, selector: sel}, nil
}

// Match implements Qualifier.
func (q CartAmount) Match(c *cart.Cart, _ selector.Selector) bool {
	var total pricing.Money
	for _, item := range selector.Filter(q.selector, c.LineItems) {
		total += item.LinePrice
	}
	return q.comparison.Compare(total, q.amount)
}

// LineMode selects whether any or all lines must match in LineItems.
type LineMode string

const (
	LineAny LineMode = "any"
	LineAll LineMode = "all"
)

// LineItems qualifies a cart when any (or all) of its lines match a selector.
type LineItems struct {
	mode     LineMode
	selector selector.Selector
}

// NewLineItems validates and builds the qualifier.
func NewLineItems(mode LineMode, sel selector.Selector) (LineItems, error) {
	if sel == nil {
		return LineItems{}, fmt.Errorf("%w: line items", ErrMissingSelector)
	}
	switch mode {
	case LineAny, LineAll:
	default:
		return LineItems{}, fmt.Errorf("%w: line match mode %q", ErrUnknownKind, string(mode))
	}
	return LineItems{mode: mode, selector: sel}, nil
}

// Match implements Qualifier.
func (q LineItems) Match(c *cart.Cart, _ selector.Selector) bool {
	for _, item := range c.LineItems {
		ok := q.selector.Match(item)
		if q.mode == LineAny && ok {
			return true
		}
		if q.mode == LineAll && !ok {
			return false
		}
	}
	return q.mode == LineAll
}

// CustomerTag matches when the customer carries any of the tags.
type CustomerTag struct {
	Tags   []string
	Invert bool
}

// Match implements Qualifier.
func (q CustomerTag) Match(c *cart.Cart, _ selector.Selector) bool {
	matched := false
	if c.Customer != nil {
		for _, have := range c.Customer.Tags {
			for _, want := range q.Tags {
				if strings.EqualFold(have, want) {
					matched = true
				}
			}
		}
	}
	return q.Invert != matched
}
