package ruleset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-promo/internal/campaign"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// minPriceDefault selects selector.DefaultMinPrice as a min_price value.
const minPriceDefault = "default"

// Compile builds the campaigns of doc in document order, skipping disabled ones.
func Compile(doc Document) ([]campaign.Campaign, error) {
	b := &builder{named: doc.Selectors, resolved: map[string]selector.Selector{}, resolving: map[string]bool{}}
	out := make([]campaign.Campaign, 0, len(doc.Campaigns))
	for _, spec := range doc.Campaigns {
		if spec.Disabled {
			continue
		}
		c, err := b.campaign(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: campaign %q: %w", ErrInvalidRuleset, spec.Name, err)
		}
		out = append(out, c)
	}
	return out, nil
}

type builder struct {
	named     map[string]SelectorSpec
	resolved  map[string]selector.Selector
	resolving map[string]bool
}

func (b *builder) campaign(spec CampaignSpec) (campaign.Campaign, error) {
	q, err := b.qualifiers(spec.Condition, spec.Qualifiers)
	if err != nil {
		return nil, err
	}
	var post qualifier.Qualifier
	if spec.PostCondition != nil {
		if post, err = b.qualifier(*spec.PostCondition); err != nil {
			return nil, fmt.Errorf("post_condition: %w", err)
		}
	}
	rule := campaign.NewRule(spec.Name, q, post)
	sel, err := b.optionalSelector(spec.Selector)
	if err != nil {
		return nil, err
	}

	switch spec.Type {
	case "discount_code_list":
		entries := make([]campaign.CodeEntry, 0, len(spec.Codes))
		for _, cs := range spec.Codes {
			amount, err := decimalAmount(cs.Amount)
			if err != nil {
				return nil, fmt.Errorf("code %s: %w", cs.Code, err)
			}
			entries = append(entries, campaign.CodeEntry{Code: cs.Code, Type: campaign.CodeType(cs.Type), Amount: amount})
		}
		return campaign.NewDiscountCodeList(rule, sel, entries)
	case "conditional":
		d, err := b.optionalDiscount(spec.Discount)
		if err != nil {
			return nil, err
		}
		return campaign.NewConditional(rule, sel, d, spec.MaxUnits)
	case "buy_x_get_x":
		d, err := b.optionalDiscount(spec.Discount)
		if err != nil {
			return nil, err
		}
		buy, err := b.optionalSelector(spec.Buy)
		if err != nil {
			return nil, fmt.Errorf("buy: %w", err)
		}
		get, err := b.optionalSelector(spec.Get)
		if err != nil {
			return nil, fmt.Errorf("get: %w", err)
		}
		return campaign.NewBuyXGetX(rule, buy, spec.BuyX, get, spec.GetX, d, spec.MaxSets)
	case "bundle":
		d, err := b.optionalDiscount(spec.Discount)
		if err != nil {
			return nil, err
		}
		comps := make([]campaign.Component, 0, len(spec.Components))
		for i, cs := range spec.Components {
			s, err := b.selector(cs.Selector)
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			comps = append(comps, campaign.Component{Quantity: cs.Quantity, Selector: s})
		}
		return campaign.NewBundle(rule, comps, d)
	case "price_test":
		return campaign.NewPriceTest(rule, spec.PriceProperty, spec.AllowFree), nil
	case "code_prefix_free":
		return campaign.NewCodePrefixFree(rule, spec.Prefix, sel, spec.Message)
	case "tiered_spend":
		tiers := make([]campaign.Tier, 0, len(spec.Tiers))
		for i, ts := range spec.Tiers {
			threshold, err := pricing.Parse(ts.Threshold)
			if err != nil {
				return nil, fmt.Errorf("tier %d: %w", i, err)
			}
			d, err := b.discount(ts.Discount)
			if err != nil {
				return nil, fmt.Errorf("tier %d: %w", i, err)
			}
			tiers = append(tiers, campaign.Tier{Threshold: threshold, Discount: d})
		}
		return campaign.NewTieredSpend(rule, spec.Code, tiers)
	default:
		return nil, fmt.Errorf("unknown campaign type %q", spec.Type)
	}
}

func (b *builder) optionalDiscount(spec *DiscountSpec) (discount.Discount, error) {
	if spec == nil {
		return nil, nil
	}
	return b.discount(*spec)
}

func (b *builder) discount(spec DiscountSpec) (discount.Discount, error) {
	switch spec.Type {
	case "percentage":
		pct, err := decimalAmount(spec.Percent)
		if err != nil {
			return nil, fmt.Errorf("percent: %w", err)
		}
		return discount.NewPercentage(pct, spec.Message)
	case "fixed_total":
		amount, err := pricing.Parse(spec.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		return discount.NewFixedTotal(amount, spec.Message, discount.FixedTotalMode(spec.Mode))
	case "fixed_item":
		amount, err := pricing.Parse(spec.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		return discount.NewFixedItem(amount, spec.Message)
	case "fixed_final_price":
		price, err := pricing.Parse(spec.Price)
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		overrides := make([]discount.Override, 0, len(spec.Overrides))
		for i, ov := range spec.Overrides {
			p, err := pricing.Parse(ov.Price)
			if err != nil {
				return nil, fmt.Errorf("override %d: %w", i, err)
			}
			s, err := b.selector(ov.Selector)
			if err != nil {
				return nil, fmt.Errorf("override %d: %w", i, err)
			}
			overrides = append(overrides, discount.Override{Selector: s, Price: p})
		}
		return discount.NewFixedFinalPrice(price, spec.Message, overrides...)
	default:
		return nil, fmt.Errorf("unknown discount type %q", spec.Type)
	}
}

func (b *builder) qualifiers(condition string, specs []QualifierSpec) (qualifier.Qualifier, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	list := make([]qualifier.Qualifier, 0, len(specs))
	for i, spec := range specs {
		q, err := b.qualifier(spec)
		if err != nil {
			return nil, fmt.Errorf("qualifier %d: %w", i, err)
		}
		list = append(list, q)
	}
	if condition == "any" {
		return qualifier.Or(list), nil
	}
	return qualifier.And(list), nil
}

func (b *builder) qualifier(spec QualifierSpec) (qualifier.Qualifier, error) {
	if n := countQualifierKinds(spec); n != 1 {
		return nil, fmt.Errorf("qualifier must set exactly one kind, got %d", n)
	}
	switch {
	case spec.CartQuantity != nil:
		s := spec.CartQuantity
		return qualifier.NewCartQuantity(qualifier.QuantityMethod(s.Method), qualifier.Comparison(s.Comparison), s.Quantity)
	case spec.CartHasItem != nil:
		s := spec.CartHasItem
		sel, err := b.optionalSelector(s.Selector)
		if err != nil {
			return nil, err
		}
		var amount int64
		if qualifier.Measure(s.Measure) == qualifier.MeasureSubtotal {
			amount, err = pricing.Parse(s.Amount)
		} else {
			amount, err = strconv.ParseInt(strings.TrimSpace(s.Amount), 10, 64)
		}
		if err != nil {
			return nil, fmt.Errorf("cart_has_item amount %q: %w", s.Amount, err)
		}
		return qualifier.NewCartHasItem(qualifier.Measure(s.Measure), qualifier.Comparison(s.Comparison), amount, sel)
	case spec.CartAmount != nil:
		s := spec.CartAmount
		sel, err := b.optionalSelector(s.Selector)
		if err != nil {
			return nil, err
		}
		amount, err := pricing.Parse(s.Amount)
		if err != nil {
			return nil, err
		}
		return qualifier.NewCartAmount(qualifier.Comparison(s.Comparison), amount, sel)
	case spec.LineItems != nil:
		sel, err := b.optionalSelector(spec.LineItems.Selector)
		if err != nil {
			return nil, err
		}
		return qualifier.NewLineItems(qualifier.LineMode(spec.LineItems.Mode), sel)
	case spec.DiscountCodeGate != nil:
		s := spec.DiscountCodeGate
		enabled := s.Enabled == nil || *s.Enabled
		gate, err := qualifier.NewDiscountCodeGate(enabled, s.Message, qualifier.CodePolicy(s.Policy), s.Codes)
		if err != nil {
			return nil, err
		}
		if s.MobileProperty != "" {
			gate = gate.WithMobileProperty(s.MobileProperty, s.MobileValue)
		}
		return gate, nil
	case spec.CustomerTag != nil:
		return qualifier.CustomerTag{Tags: spec.CustomerTag.Tags, Invert: spec.CustomerTag.Invert}, nil
	case spec.And != nil, spec.Or != nil:
		children := spec.And
		if spec.Or != nil {
			children = spec.Or
		}
		list := make([]qualifier.Qualifier, 0, len(children))
		for _, child := range children {
			q, err := b.qualifier(child)
			if err != nil {
				return nil, err
			}
			list = append(list, q)
		}
		if spec.Or != nil {
			return qualifier.Or(list), nil
		}
		return qualifier.And(list), nil
	default:
		q, err := b.qualifier(*spec.Not)
		if err != nil {
			return nil, err
		}
		return qualifier.Not{Qualifier: q}, nil
	}
}

func countQualifierKinds(s QualifierSpec) int {
	n := 0
	for _, set := range []bool{
		s.CartQuantity != nil, s.CartHasItem != nil, s.CartAmount != nil, s.LineItems != nil,
		s.DiscountCodeGate != nil, s.CustomerTag != nil, s.And != nil, s.Or != nil, s.Not != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (b *builder) optionalSelector(spec *SelectorSpec) (selector.Selector, error) {
	if spec == nil {
		return nil, nil
	}
	return b.selector(*spec)
}

func (b *builder) selector(spec SelectorSpec) (selector.Selector, error) {
	if n := countSelectorKinds(spec); n != 1 {
		return nil, fmt.Errorf("%w: selector must set exactly one kind, got %d", selector.ErrUnknownKind, n)
	}
	switch {
	case spec.Ref != "":
		return b.ref(spec.Ref)
	case spec.ProductIDs != nil:
		return selector.NewProductID(false, spec.ProductIDs...), nil
	case spec.ExcludeProductIDs != nil:
		return selector.NewProductID(true, spec.ExcludeProductIDs...), nil
	case spec.Tags != nil:
		return selector.NewTag(selector.TagMode(spec.Tags.Mode), spec.Tags.Invert, spec.Tags.Values...)
	case spec.MinPrice != "":
		if strings.EqualFold(strings.TrimSpace(spec.MinPrice), minPriceDefault) {
			return selector.MinPrice{Price: selector.DefaultMinPrice}, nil
		}
		price, err := pricing.Parse(spec.MinPrice)
		if err != nil {
			return nil, fmt.Errorf("min_price: %w", err)
		}
		return selector.MinPrice{Price: price}, nil
	case spec.Properties != nil:
		return selector.Properties(spec.Properties), nil
	case spec.Discounted != nil:
		return selector.Discounted(*spec.Discounted), nil
	case spec.Vendor != "":
		return selector.Vendor(spec.Vendor), nil
	case spec.ProductType != "":
		return selector.ProductType(spec.ProductType), nil
	case spec.GiftCard != nil:
		return selector.GiftCard(*spec.GiftCard), nil
	case spec.And != nil, spec.Or != nil:
		children := spec.And
		if spec.Or != nil {
			children = spec.Or
		}
		list := make([]selector.Selector, 0, len(children))
		for _, child := range children {
			s, err := b.selector(child)
			if err != nil {
				return nil, err
			}
			list = append(list, s)
		}
		if spec.Or != nil {
			return selector.Or(list), nil
		}
		return selector.And(list), nil
	default:
		s, err := b.selector(*spec.Not)
		if err != nil {
			return nil, err
		}
		return selector.Not{Selector: s}, nil
	}
}

func (b *builder) ref(name string) (selector.Selector, error) {
	if s, ok := b.resolved[name]; ok {
		return s, nil
	}
	spec, ok := b.named[name]
	if !ok {
		return nil, fmt.Errorf("unknown selector ref %q", name)
	}
	if b.resolving[name] {
		return nil, fmt.Errorf("selector ref %q is circular", name)
	}
	b.resolving[name] = true
	defer delete(b.resolving, name)

	s, err := b.selector(spec)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", name, err)
	}
	b.resolved[name] = s
	return s, nil
}

func countSelectorKinds(s SelectorSpec) int {
	n := 0
	for _, set := range []bool{
		s.Ref != "", s.ProductIDs != nil, s.ExcludeProductIDs != nil, s.Tags != nil, s.MinPrice != "",
		s.Properties != nil, s.Discounted != nil, s.Vendor != "", s.ProductType != "", s.GiftCard != nil,
		s.And != nil, s.Or != nil, s.Not != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func decimalAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", pricing.ErrInvalidAmount, raw)
	}
	return d, nil
}
