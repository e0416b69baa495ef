package selector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/cart"
)

func line(productID int64, price int64, qty int, tags []string, props map[string]string) *cart.LineItem {
	return cart.NewLineItem(cart.Variant{ID: productID * 10, Price: price, Product: cart.Product{ID: productID, Tags: tags, Vendor: "Route", ProductType: "Insurance"}}, qty, props)
}

func TestProductID(t *testing.T) {
	item := line(6817243365540, 9900, 1, nil, nil)
	require.True(t, NewProductID(false, 6817243365540, 1).Match(item))
	require.False(t, NewProductID(true, 6817243365540).Match(item))
	require.True(t, NewProductID(true, 42).Match(item))
}

func TestTagModes(t *testing.T) {
	item := line(1, 100, 1, []string{"Summer-Sale", "Boxers"}, nil)

	exact, err := NewTag(TagMatch, false, "boxers")
	require.NoError(t, err)
	require.True(t, exact.Match(item))

	prefix, err := NewTag(TagStartsWith, false, "summer")
	require.NoError(t, err)
	require.True(t, prefix.Match(item))

	contains, err := NewTag(TagContains, true, "sale")
	require.NoError(t, err)
	require.False(t, contains.Match(item))

	suffix, err := NewTag(TagEndsWith, false, "pants")
	require.NoError(t, err)
	require.False(t, suffix.Match(item))

	_, err = NewTag("fuzzy", false, "x")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestMinPriceScalesWithQuantity(t *testing.T) {
	item := line(1, 3000, 3, nil, nil)
	require.True(t, MinPrice{Price: 3000}.Match(item))
	item.ChangeLinePrice(8000, "deal")
	require.False(t, MinPrice{Price: 3000}.Match(item))
}

func TestProperties(t *testing.T) {
	item := line(1, 100, 1, nil, map[string]string{"_byoPage": "TRUE"})
	require.True(t, Properties{"_byoPage": "true"}.Match(item))
	require.False(t, Properties{"_byoPage": "true", "_platform": "ios"}.Match(item))
	require.True(t, Properties{}.Match(item))
}

func TestDiscountedAndProductFields(t *testing.T) {
	item := line(1, 100, 1, nil, nil)
	require.True(t, Discounted(false).Match(item))
	item.ChangeLinePrice(50, "x")
	require.True(t, Discounted(true).Match(item))
	require.True(t, And{Vendor("Route"), ProductType("Insurance"), GiftCard(false)}.Match(item))
}

func TestCombinatorsFollowBooleanLaws(t *testing.T) {
	yes := Func(func(*cart.LineItem) bool { return true })
	no := Func(func(*cart.LineItem) bool { return false })
	item := line(1, 100, 1, nil, nil)

	cases := [][]Selector{{}, {yes}, {no}, {yes, no}, {yes, yes}, {no, no}, {yes, nil}}
	for _, children := range cases {
		all, some := true, false
		for _, c := range children {
			if c == nil {
				continue
			}
			all = all && c.Match(item)
			some = some || c.Match(item)
		}
		require.Equal(t, all, And(children).Match(item))
		require.Equal(t, some, Or(children).Match(item))
		require.Equal(t, !all, Not{Selector: And(children)}.Match(item))
	}

	nested := Or{And{yes, Not{Selector: no}}, no}
	require.True(t, nested.Match(item))
	require.Len(t, Filter(no, []*cart.LineItem{item}), 0)
	require.Len(t, Filter(nil, []*cart.LineItem{item}), 1)
}
