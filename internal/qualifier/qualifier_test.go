package qualifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/selector"
)

func line(productID int64, price int64, qty int, props map[string]string) *cart.LineItem {
	return cart.NewLineItem(cart.Variant{ID: productID, Price: price, Product: cart.Product{ID: productID}}, qty, props)
}

func newCart(code string, items ...*cart.LineItem) *cart.Cart {
	c := &cart.Cart{LineItems: items}
	if code != "" {
		c.DiscountCode = &cart.DiscountCode{Code: code}
	}
	return c
}

func TestComparison(t *testing.T) {
	require.True(t, GreaterThan.Compare(3, 2))
	require.False(t, GreaterThan.Compare(2, 2))
	require.True(t, GreaterThanOrEqual.Compare(2, 2))
	require.True(t, LessThan.Compare(1, 2))
	require.True(t, LessThanOrEqual.Compare(2, 2))
	require.True(t, EqualTo.Compare(2, 2))
	require.ErrorIs(t, Comparison("between").Validate(), ErrInvalidComparison)
}

func TestCartQuantityMethods(t *testing.T) {
	c := newCart("", line(1, 100, 2, nil), line(2, 100, 5, nil), line(3, 100, 1, nil))
	onlyFirstTwo := selector.NewProductID(false, 1, 2)

	q, err := NewCartQuantity(QuantityItem, GreaterThanOrEqual, 7)
	require.NoError(t, err)
	require.True(t, q.Match(c, onlyFirstTwo))

	q, err = NewCartQuantity(QuantityCart, EqualTo, 8)
	require.NoError(t, err)
	require.True(t, q.Match(c, onlyFirstTwo))

	q, err = NewCartQuantity(QuantityLineAny, GreaterThanOrEqual, 5)
	require.NoError(t, err)
	require.True(t, q.Match(c, onlyFirstTwo))

	q, err = NewCartQuantity(QuantityLineAll, GreaterThanOrEqual, 2)
	require.NoError(t, err)
	require.True(t, q.Match(c, onlyFirstTwo))
	require.False(t, q.Match(c, nil))

	_, err = NewCartQuantity("bag", EqualTo, 1)
	require.ErrorIs(t, err, ErrUnknownKind)
	_, err = NewCartQuantity(QuantityCart, "about", 1)
	require.ErrorIs(t, err, ErrInvalidComparison)
}

func TestCartHasItemRequiresSelector(t *testing.T) {
	_, err := NewCartHasItem(MeasureQuantity, GreaterThanOrEqual, 3, nil)
	require.ErrorIs(t, err, ErrMissingSelector)

	byo := selector.Properties{"_byoPage": "true"}
	c := newCart("",
		line(1, 4300, 1, map[string]string{"_byoPage": "true"}),
		line(2, 3000, 1, map[string]string{"_byoPage": "true"}),
		line(3, 9900, 1, nil),
	)
	q, err := NewCartHasItem(MeasureQuantity, GreaterThanOrEqual, 3, byo)
	require.NoError(t, err)
	require.False(t, q.Match(c, nil))

	q, err = NewCartHasItem(MeasureSubtotal, GreaterThan, 7000, byo)
	require.NoError(t, err)
	require.True(t, q.Match(c, nil))
}

func TestCartAmount(t *testing.T) {
	c := newCart("", line(1, 5000, 1, nil), line(2, 2500, 2, nil))
	q, err := NewCartAmount(GreaterThanOrEqual, 10000, nil)
	require.NoError(t, err)
	require.True(t, q.Match(c, nil))
	c.LineItems[0].ChangeLinePrice(4000, "x")
	require.False(t, q.Match(c, nil))
}

func TestLineItems(t *testing.T) {
	c := newCart("", line(1, 100, 1, nil), line(2, 100, 1, nil))
	anyFirst, err := NewLineItems(LineAny, selector.NewProductID(false, 1))
	require.NoError(t, err)
	require.True(t, anyFirst.Match(c, nil))

	allFirst, err := NewLineItems(LineAll, selector.NewProductID(false, 1))
	require.NoError(t, err)
	require.False(t, allFirst.Match(c, nil))

	_, err = NewLineItems(LineAny, nil)
	require.ErrorIs(t, err, ErrMissingSelector)
}

func TestDiscountCodeGateRejectExcept(t *testing.T) {
	gate, err := NewDiscountCodeGate(true, "", RejectExcept, []string{"WELCOME"})
	require.NoError(t, err)

	ok := newCart("welcome", line(1, 100, 1, nil))
	require.True(t, gate.Match(ok, nil))
	require.False(t, ok.DiscountCode.Rejected())

	bad := newCart("OTHER", line(1, 100, 1, nil))
	require.True(t, gate.Match(bad, nil))
	require.True(t, bad.DiscountCode.Rejected())
	require.Equal(t, DefaultRejectMessage, bad.DiscountCode.RejectionMessage())

	none := newCart("", line(1, 100, 1, nil))
	require.True(t, gate.Match(none, nil))
}

func TestDiscountCodeGateAcceptExceptHonoursMobileCarts(t *testing.T) {
	gate, err := NewDiscountCodeGate(true, "", AcceptExcept, []string{"APP20", "APP15"})
	require.NoError(t, err)

	web := newCart("app20", line(1, 100, 1, nil))
	require.True(t, gate.Match(web, nil))
	require.True(t, web.DiscountCode.Rejected())

	ios := newCart("APP20", line(1, 100, 1, map[string]string{"_platform": "ios"}))
	require.True(t, gate.Match(ios, nil))
	require.False(t, ios.DiscountCode.Rejected())

	other := newCart("SPRING", line(1, 100, 1, nil))
	require.True(t, gate.Match(other, nil))
	require.False(t, other.DiscountCode.Rejected())

	disabled, err := NewDiscountCodeGate(false, "", AcceptExcept, nil)
	require.NoError(t, err)
	require.False(t, disabled.Match(newCart("SPRING"), nil))
	require.True(t, disabled.Match(newCart(""), nil))

	_, err = NewDiscountCodeGate(true, "", "maybe", nil)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestCustomerTag(t *testing.T) {
	c := newCart("")
	require.False(t, CustomerTag{Tags: []string{"vip"}}.Match(c, nil))
	c.Customer = &cart.Customer{Tags: []string{"VIP"}}
	require.True(t, CustomerTag{Tags: []string{"vip"}}.Match(c, nil))
	require.False(t, CustomerTag{Tags: []string{"vip"}, Invert: true}.Match(c, nil))
}

type fixed bool

func (f fixed) Match(*cart.Cart, selector.Selector) bool { return bool(f) }

func TestCombinators(t *testing.T) {
	c := newCart("")
	require.True(t, And{}.Match(c, nil))
	require.True(t, Or{}.Match(c, nil))
	require.True(t, And{fixed(true), fixed(true)}.Match(c, nil))
	require.False(t, And{fixed(true), fixed(false)}.Match(c, nil))
	require.True(t, Or{fixed(false), fixed(true)}.Match(c, nil))
	require.False(t, Or{fixed(false), fixed(false)}.Match(c, nil))
	require.True(t, Not{Qualifier: fixed(false)}.Match(c, nil))
	require.True(t, Matches(nil, c, nil))
}
