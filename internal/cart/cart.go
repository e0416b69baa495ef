package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/pricing"
)

// ErrInvalidSplit is returned when a split would leave either side without quantity.
var ErrInvalidSplit = errors.New("cart: invalid split quantity")

// CodeKind is the platform type of a discount code.
type CodeKind string

const (
	CodeKindPercentage  CodeKind = "percentage"
	CodeKindFixedAmount CodeKind = "fixed_amount"
	CodeKindShipping    CodeKind = "shipping"
)

// Product is the read-only catalog entry behind a variant.
type Product struct {
	ID          int64
	Title       string
	Tags        []string
	Vendor      string
	ProductType string
	GiftCard    bool
}

// Variant is a purchasable product option with its own unit price.
type Variant struct {
	ID      int64
	Price   pricing.Money
	Product Product
}

// LineItem is a quantity of one variant at its current line price.
type LineItem struct {
	ID                string
	Variant           Variant
	Quantity          int
	LinePrice         pricing.Money
	OriginalLinePrice pricing.Money
	Properties        map[string]string
	Discounted        bool
	Message           string
}

// NewLineItem builds an undiscounted line priced at unit price times quantity.
func NewLineItem(variant Variant, quantity int, properties map[string]string) *LineItem {
	price := variant.Price * pricing.Money(quantity)
	return &LineItem{
		ID:                uuid.NewString(),
		Variant:           variant,
		Quantity:          quantity,
		LinePrice:         price,
		OriginalLinePrice: price,
		Properties:        cloneProperties(properties),
	}
}

// UnitPrice returns the variant's undiscounted unit price.
func (li *LineItem) UnitPrice() pricing.Money {
	return li.Variant.Price
}

// Property returns the value stored under key.
func (li *LineItem) Property(key string) (string, bool) {
	if li.Properties == nil {
		return "", false
	}
	v, ok := li.Properties[key]
	return v, ok
}

// ChangeLinePrice overwrites the line price and records the discount message.
// Negative prices are clamped to zero.
func (li *LineItem) ChangeLinePrice(price pricing.Money, message string) {
	li.LinePrice = pricing.ClampZero(price)
	li.Message = message
	li.Discounted = true
}

// Split carves take units off this line into a new line with the same
// variant, properties and discount state. Line prices are divided so the two
// parts sum exactly to the original price.
func (li *LineItem) Split(take int) (*LineItem, error) {
	if take <= 0 || take >= li.Quantity {
		return nil, fmt.Errorf("%w: take %d of %d", ErrInvalidSplit, take, li.Quantity)
	}
	q := pricing.Money(li.Quantity)
	k := pricing.Money(take)
	taken := &LineItem{
		ID:                uuid.NewString(),
		Variant:           li.Variant,
		Quantity:          take,
		LinePrice:         li.LinePrice * k / q,
		OriginalLinePrice: li.OriginalLinePrice * k / q,
		Properties:        cloneProperties(li.Properties),
		Discounted:        li.Discounted,
		Message:           li.Message,
	}
	li.Quantity -= take
	li.LinePrice -= taken.LinePrice
	li.OriginalLinePrice -= taken.OriginalLinePrice
	return taken, nil
}

// DiscountCode is the code the customer entered at checkout.
type DiscountCode struct {
	Code             string
	Kind             CodeKind
	rejected         bool
	rejectionMessage string
}

// Reject marks the code as rejected. Rejection is one-way; the first message is kept.
func (d *DiscountCode) Reject(message string) {
	if d == nil || d.rejected {
		return
	}
	d.rejected = true
	d.rejectionMessage = message
}

// Rejected reports whether the code has been rejected during this evaluation.
func (d *DiscountCode) Rejected() bool {
	return d != nil && d.rejected
}

// RejectionMessage returns the message recorded with the rejection.
func (d *DiscountCode) RejectionMessage() string {
	if d == nil {
		return ""
	}
	return d.rejectionMessage
}

// Matches compares the code case-insensitively.
func (d *DiscountCode) Matches(code string) bool {
	return d != nil && strings.EqualFold(strings.TrimSpace(d.Code), strings.TrimSpace(code))
}

// Customer identifies the buyer when known.
type Customer struct {
	ID    int64
	Email string
	Tags  []string
}

// Cart is the mutable checkout cart evaluated by the promotion engine.
type Cart struct {
	LineItems    []*LineItem
	DiscountCode *DiscountCode
	Customer     *Customer
}

// Subtotal sums the current line prices.
func (c *Cart) Subtotal() pricing.Money {
	var total pricing.Money
	for _, item := range c.LineItems {
		total += item.LinePrice
	}
	return total
}

// TotalQuantity sums the quantity of every line.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.LineItems {
		total += item.Quantity
	}
	return total
}

// Summary compares undiscounted and current prices across all lines.
func (c *Cart) Summary() pricing.Summary {
	items := make([]pricing.Item, 0, len(c.LineItems))
	for _, item := range c.LineItems {
		items = append(items, pricing.Item{Qty: item.Quantity, UnitPrice: item.UnitPrice(), LinePrice: item.LinePrice})
	}
	return pricing.Compute(items)
}

// Append adds lines to the end of the cart.
func (c *Cart) Append(items ...*LineItem) {
	c.LineItems = append(c.LineItems, items...)
}

// Prepend inserts a line at the front of the cart.
func (c *Cart) Prepend(item *LineItem) {
	c.LineItems = append([]*LineItem{item}, c.LineItems...)
}

// Remove deletes the line with the same identity and reports whether it was present.
func (c *Cart) Remove(item *LineItem) bool {
	for i, existing := range c.LineItems {
		if existing == item {
			c.LineItems = append(c.LineItems[:i], c.LineItems[i+1:]...)
			return true
		}
	}
	return false
}

// MoveToFront relocates items to the head of the cart keeping their relative order.
func (c *Cart) MoveToFront(items []*LineItem) {
	for i := len(items) - 1; i >= 0; i-- {
		if c.Remove(items[i]) {
			c.Prepend(items[i])
		}
	}
}

func cloneProperties(props map[string]string) map[string]string {
	if props == nil {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
