package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/campaign"
	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/qualifier"
)

func newLine(productID int64, unit pricing.Money, qty int, props map[string]string) *cart.LineItem {
	return cart.NewLineItem(cart.Variant{ID: productID, Price: unit, Product: cart.Product{ID: productID}}, qty, props)
}

func percentOff(t *testing.T, name string, pct int64, maxUnits int, post qualifier.Qualifier) campaign.Campaign {
	t.Helper()
	d, err := discount.NewPercentage(decimal.NewFromInt(pct), name)
	require.NoError(t, err)
	p, err := campaign.NewConditional(campaign.NewRule(name, nil, post), nil, d, maxUnits)
	require.NoError(t, err)
	return p
}

func copyLines(items []*cart.LineItem) []cart.LineItem {
	out := make([]cart.LineItem, len(items))
	for i, item := range items {
		out[i] = *item
	}
	return out
}

func TestEvaluateStacksCampaignsInOrder(t *testing.T) {
	eng := New([]campaign.Campaign{
		percentOff(t, "half", 50, 0, nil),
		percentOff(t, "ten", 10, 0, nil),
	}, zerolog.Nop())

	c := &cart.Cart{LineItems: []*cart.LineItem{newLine(1, 10000, 1, nil)}}
	report, err := eng.Evaluate(context.Background(), c)
	require.NoError(t, err)

	require.Equal(t, pricing.Money(4500), c.LineItems[0].LinePrice)
	require.Equal(t, "ten", c.LineItems[0].Message)
	require.Len(t, report.Campaigns, 2)
	require.Equal(t, OutcomeApplied, report.Campaigns[0].Outcome)
	require.Equal(t, pricing.Money(5000), report.Campaigns[0].DiscountCents)
	require.Equal(t, pricing.Money(500), report.Campaigns[1].DiscountCents)
	require.Equal(t, pricing.Summary{Subtotal: 10000, Discount: 5500, Total: 4500}, report.Summary)
}

func TestEvaluateRevertsWhenPostConditionFails(t *testing.T) {
	floor, err := qualifier.NewCartAmount(qualifier.GreaterThanOrEqual, 9000, nil)
	require.NoError(t, err)
	eng := New([]campaign.Campaign{
		percentOff(t, "ten", 10, 0, nil),
		percentOff(t, "deep", 40, 1, floor),
	}, zerolog.Nop())

	a := newLine(1, 3000, 2, map[string]string{"_byoPage": "true"})
	b := newLine(2, 4500, 1, nil)
	c := &cart.Cart{LineItems: []*cart.LineItem{a, b}}

	report, err := eng.Evaluate(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, report.Campaigns[0].Outcome)
	require.Equal(t, OutcomeReverted, report.Campaigns[1].Outcome)
	require.Zero(t, report.Campaigns[1].DiscountCents)

	// Same cart run through only the first campaign must match bit for bit.
	ref := &cart.Cart{LineItems: []*cart.LineItem{
		newLine(1, 3000, 2, map[string]string{"_byoPage": "true"}),
		newLine(2, 4500, 1, nil),
	}}
	_, err = New([]campaign.Campaign{percentOff(t, "ten", 10, 0, nil)}, zerolog.Nop()).Evaluate(context.Background(), ref)
	require.NoError(t, err)

	require.Len(t, c.LineItems, 2)
	require.Same(t, a, c.LineItems[0])
	require.Same(t, b, c.LineItems[1])
	got, want := copyLines(c.LineItems), copyLines(ref.LineItems)
	for i := range got {
		got[i].ID, want[i].ID = "", ""
	}
	require.Equal(t, want, got)
}

func TestEvaluateRevertRestoresExactSnapshot(t *testing.T) {
	impossible, err := qualifier.NewCartAmount(qualifier.GreaterThan, 1_000_000, nil)
	require.NoError(t, err)
	eng := New([]campaign.Campaign{percentOff(t, "capped", 33, 1, impossible)}, zerolog.Nop())

	c := &cart.Cart{LineItems: []*cart.LineItem{
		newLine(1, 3333, 3, map[string]string{"k": "v"}),
		newLine(2, 999, 1, nil),
	}}
	c.LineItems[1].ChangeLinePrice(777, "earlier")
	before := copyLines(c.LineItems)
	before[0].Properties = map[string]string{"k": "v"}

	_, err = eng.Evaluate(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, before, copyLines(c.LineItems))
}

func TestEvaluateAbortsOnConfigurationError(t *testing.T) {
	list, err := campaign.NewDiscountCodeList(campaign.NewRule("codes", nil, nil), nil, []campaign.CodeEntry{
		{Code: "DUP", Type: campaign.CodePercent, Amount: decimal.NewFromInt(10)},
		{Code: "dup", Type: campaign.CodePercent, Amount: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)
	eng := New([]campaign.Campaign{list, percentOff(t, "after", 50, 0, nil)}, zerolog.Nop())

	c := &cart.Cart{
		LineItems:    []*cart.LineItem{newLine(1, 1000, 1, nil)},
		DiscountCode: &cart.DiscountCode{Code: "dup"},
	}
	report, err := eng.Evaluate(context.Background(), c)
	require.ErrorIs(t, err, campaign.ErrAmbiguousCode)
	require.Len(t, report.Campaigns, 1)
	require.Equal(t, OutcomeError, report.Campaigns[0].Outcome)
	require.False(t, c.LineItems[0].Discounted)
}

func TestEvaluateReportsRejectedCode(t *testing.T) {
	gate, err := qualifier.NewDiscountCodeGate(true, "", qualifier.AcceptExcept, []string{"APP20"})
	require.NoError(t, err)
	list, err := campaign.NewDiscountCodeList(campaign.NewRule("app gate", gate, nil), nil, nil)
	require.NoError(t, err)

	c := &cart.Cart{
		LineItems:    []*cart.LineItem{newLine(1, 1000, 1, nil)},
		DiscountCode: &cart.DiscountCode{Code: "APP20"},
	}
	report, err := New([]campaign.Campaign{list}, zerolog.Nop()).Evaluate(context.Background(), c)
	require.NoError(t, err)
	require.True(t, report.CodeRejected)
	require.Equal(t, qualifier.DefaultRejectMessage, report.RejectionMessage)
}

func TestEvaluateRecordsMetrics(t *testing.T) {
	obs.MustRegisterDomainMetrics("promo_test", prometheus.NewRegistry())
	eng := New([]campaign.Campaign{percentOff(t, "metrics-half", 50, 0, nil)}, zerolog.Nop())

	c := &cart.Cart{LineItems: []*cart.LineItem{newLine(1, 1000, 1, nil)}}
	_, err := eng.Evaluate(context.Background(), c)
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(obs.CampaignOutcomeTotal.WithLabelValues("metrics-half", "applied")))
	require.Equal(t, float64(500), testutil.ToFloat64(obs.CampaignDiscountCents.WithLabelValues("metrics-half")))
}
