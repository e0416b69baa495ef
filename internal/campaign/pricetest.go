package campaign

import (
	"strconv"
	"strings"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/qualifier"
)

// Line properties written by the storefront price-testing widget. Values are
// amounts in minor units.
const (
	PriceTestPriceProperty          = "_igp"
	PriceTestVolumeProperty         = "_igvd"
	PriceTestVolumeMessageProperty  = "_igvd_message"
	PriceTestLegacyDiscountProperty = "_igLineItemDiscount"
)

// PriceTest reprices lines that carry price-test properties. Precedence is
// target price, then volume discount, then the legacy per-unit discount.
type PriceTest struct {
	Rule
	priceProperty string
	allowFree     bool
}

// NewPriceTest builds the campaign. An empty priceProperty uses PriceTestPriceProperty.
func NewPriceTest(rule Rule, priceProperty string, allowFree bool) *PriceTest {
	if priceProperty == "" {
		priceProperty = PriceTestPriceProperty
	}
	return &PriceTest{Rule: rule, priceProperty: priceProperty, allowFree: allowFree}
}

// Kind implements Campaign.
func (*PriceTest) Kind() string { return "price_test" }

// Run implements Campaign.
func (p *PriceTest) Run(c *cart.Cart) (Result, error) {
	if !qualifier.Matches(p.qualifier, c, nil) {
		return Result{}, nil
	}
	res := Result{Qualified: true}
	for _, item := range c.LineItems {
		var changed bool
		if v, ok := property(item, p.priceProperty); ok {
			changed = p.targetPrice(item, v)
		} else if v, ok := property(item, PriceTestVolumeProperty); ok {
			changed = p.volumeDiscount(item, v)
		} else if v, ok := property(item, PriceTestLegacyDiscountProperty); ok {
			changed = p.legacyDiscount(item, v)
		}
		if changed {
			res.Items++
		}
	}
	return res, nil
}

func (p *PriceTest) targetPrice(item *cart.LineItem, raw string) bool {
	target, ok := parseCents(raw)
	if !ok {
		return false
	}
	off := item.LinePrice - target*pricing.Money(item.Quantity)
	if off <= 0 || (!p.allowFree && off >= item.LinePrice) {
		return false
	}
	item.ChangeLinePrice(item.LinePrice-off, "Discount")
	return true
}

func (p *PriceTest) volumeDiscount(item *cart.LineItem, raw string) bool {
	perUnit, ok := parseCents(raw)
	if !ok {
		return false
	}
	off := perUnit * pricing.Money(item.Quantity)
	if off >= item.LinePrice {
		return false
	}
	message, _ := item.Property(PriceTestVolumeMessageProperty)
	item.ChangeLinePrice(item.LinePrice-off, message)
	return true
}

func (p *PriceTest) legacyDiscount(item *cart.LineItem, raw string) bool {
	perUnit, ok := parseCents(raw)
	if !ok {
		return false
	}
	off := perUnit * pricing.Money(item.Quantity)
	if !p.allowFree && off >= item.LinePrice {
		return false
	}
	item.ChangeLinePrice(item.LinePrice-off, "Intelligems")
	return true
}

func property(item *cart.LineItem, key string) (string, bool) {
	v, ok := item.Property(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func parseCents(raw string) (pricing.Money, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
