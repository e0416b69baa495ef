// Package discount holds discount definitions and the appliers that write
// discounted prices onto line items.
//
// A Discount is immutable configuration shared by every evaluation. Each
// campaign run asks it for a fresh Applier, feeds the applier the selected
// line items and finally calls Finalize, so no state leaks between carts.
package discount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// ErrInvalidDiscount is returned when a discount is configured with an unusable amount.
var ErrInvalidDiscount = errors.New("discount: invalid configuration")

// Discount creates per-run appliers.
type Discount interface {
	NewApplier() Applier
}

// Applier lowers the price of the line items it is given.
type Applier interface {
	Apply(item *cart.LineItem)
	// Finalize settles any deferred work once every selected item has been applied.
	Finalize()
}

// Run applies d to items with a fresh applier and finalizes it.
func Run(d Discount, items []*cart.LineItem) {
	applier := d.NewApplier()
	for _, item := range items {
		applier.Apply(item)
	}
	applier.Finalize()
}

type applyFunc func(item *cart.LineItem)

func (f applyFunc) Apply(item *cart.LineItem) { f(item) }
func (applyFunc) Finalize() {}

// Percentage scales the line price by (100 - Percent) / 100.
type Percentage struct {
	factor  decimal.Decimal
	message string
}

// NewPercentage validates that percent lies within [0, 100].
func NewPercentage(percent decimal.Decimal, message string) (Percentage, error) {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return Percentage{}, fmt.Errorf("%w: percent %s out of range", ErrInvalidDiscount, percent.String())
	}
	factor := decimal.NewFromInt(100).Sub(percent).Div(decimal.NewFromInt(100))
	return Percentage{factor: factor, message: message}, nil
}

// NewApplier implements Discount.
func (d Percentage) NewApplier() Applier {
	return applyFunc(func(item *cart.LineItem) {
		item.ChangeLinePrice(pricing.Scale(item.LinePrice, d.factor), d.message)
	})
}

// FixedTotalMode controls how a fixed total amount is spread over items.
type FixedTotalMode string

const (
	// ToZero discounts items in order until the amount is used up.
	ToZero FixedTotalMode = "to_zero"
	// Split spreads the amount over all items in proportion to their line price.
	Split FixedTotalMode = "split"
)

// FixedTotal takes a fixed amount off the selected items as a whole.
type FixedTotal struct {
	amount  pricing.Money
	message string
	mode    FixedTotalMode
}

// NewFixedTotal validates and builds a fixed total discount.
func NewFixedTotal(amount pricing.Money, message string, mode FixedTotalMode) (FixedTotal, error) {
	if amount < 0 {
		return FixedTotal{}, fmt.Errorf("%w: negative amount", ErrInvalidDiscount)
	}
	switch mode {
	case ToZero, Split:
	case "":
		mode = ToZero
	default:
		return FixedTotal{}, fmt.Errorf("%w: fixed total mode %q", ErrInvalidDiscount, string(mode))
	}
	return FixedTotal{amount: amount, message: message, mode: mode}, nil
}

// NewApplier implements Discount.
func (d FixedTotal) NewApplier() Applier {
	return &fixedTotalApplier{FixedTotal: d}
}

type fixedTotalApplier struct {
	FixedTotal
	applied pricing.Money
	pending []*cart.LineItem
}

func (a *fixedTotalApplier) Apply(item *cart.LineItem) {
	if a.mode == Split {
		a.pending = append(a.pending, item)
		return
	}
	if a.applied >= a.amount {
		return
	}
	off := min(a.amount-a.applied, item.LinePrice)
	item.ChangeLinePrice(item.LinePrice-off, a.message)
	a.applied += off
}

// Finalize distributes the amount over the buffered items. Every item but
// the last receives its floored proportional share; the last receives
// whatever is left so the shares add up to the amount exactly.
func (a *fixedTotalApplier) Finalize() {
	if len(a.pending) == 0 {
		return
	}
	var total pricing.Money
	for _, item := range a.pending {
		total += item.LinePrice
	}
	last := len(a.pending) - 1
	for i, item := range a.pending {
		off := a.amount - a.applied
		if i != last {
			off = pricing.Share(a.amount, item.LinePrice, total)
		}
		item.ChangeLinePrice(item.LinePrice-off, a.message)
		a.applied += off
	}
	a.pending = nil
}

// FixedItem takes a fixed amount off every unit, bounded by the line price.
type FixedItem struct {
	amount  pricing.Money
	message string
}

// NewFixedItem validates and builds a per-item discount.
func NewFixedItem(amount pricing.Money, message string) (FixedItem, error) {
	if amount < 0 {
		return FixedItem{}, fmt.Errorf("%w: negative amount", ErrInvalidDiscount)
	}
	return FixedItem{amount: amount, message: message}, nil
}

// NewApplier implements Discount.
func (d FixedItem) NewApplier() Applier {
	return applyFunc(func(item *cart.LineItem) {
		perItem := max(d.amount-item.UnitPrice(), d.amount)
		off := min(perItem*pricing.Money(item.Quantity), item.LinePrice)
		item.ChangeLinePrice(item.LinePrice-off, d.message)
	})
}

// Override sets a different final unit price for items matching Selector.
type Override struct {
	Selector selector.Selector
	Price    pricing.Money
}

// FixedFinalPrice sets each item to a target unit price. Overrides are
// checked in order and the last matching one wins. The price is only ever
// lowered.
type FixedFinalPrice struct {
	price     pricing.Money
	message   string
	overrides []Override
}

// NewFixedFinalPrice validates and builds a final price discount.
func NewFixedFinalPrice(price pricing.Money, message string, overrides ...Override) (FixedFinalPrice, error) {
	if price < 0 {
		return FixedFinalPrice{}, fmt.Errorf("%w: negative final price", ErrInvalidDiscount)
	}
	for i, o := range overrides {
		if o.Selector == nil {
			return FixedFinalPrice{}, fmt.Errorf("%w: override %d has no selector", ErrInvalidDiscount, i)
		}
		if o.Price < 0 {
			return FixedFinalPrice{}, fmt.Errorf("%w: override %d has a negative price", ErrInvalidDiscount, i)
		}
	}
	return FixedFinalPrice{price: price, message: message, overrides: append([]Override(nil), overrides...)}, nil
}

// UnitPriceFor returns the final unit price that applies to item.
func (d FixedFinalPrice) UnitPriceFor(item *cart.LineItem) pricing.Money {
	price := d.price
	for _, o := range d.overrides {
		if o.Selector.Match(item) {
			price = o.Price
		}
	}
	return price
}

// NewApplier implements Discount.
func (d FixedFinalPrice) NewApplier() Applier {
	return applyFunc(func(item *cart.LineItem) {
		final := d.UnitPriceFor(item) * pricing.Money(item.Quantity)
		if final < item.LinePrice {
			item.ChangeLinePrice(final, d.message)
		}
	})
}
