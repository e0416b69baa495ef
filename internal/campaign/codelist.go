package campaign

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// CodeType names the discount applied for a listed code.
type CodeType string

const (
	CodePercent      CodeType = "percent"
	CodePercentShort CodeType = "p"
	CodeFixed        CodeType = "fixed"
	CodeFixedShort   CodeType = "f"
	CodePerItem      CodeType = "per_item"
	// CodeInfer follows the kind of the code the customer entered.
	CodeInfer      CodeType = "code"
	CodeInferShort CodeType = "c"
)

// CodeEntry maps a discount code to a discount. Amount is a percentage for
// percent codes and a major-unit amount otherwise.
type CodeEntry struct {
	Code   string
	Type   CodeType
	Amount decimal.Decimal
}

type compiledCode struct {
	code    string
	typ     CodeType
	percent discount.Discount
	fixed   discount.Discount
	perItem discount.Discount
}

// DiscountCodeList applies the discount listed for the cart's code to the
// selected lines. With no entries it only runs its qualifier, which is how
// code gates are deployed.
type DiscountCodeList struct {
	Rule
	selector selector.Selector
	entries  []compiledCode
}

// NewDiscountCodeList compiles the entries. Duplicate codes are accepted here
// and reported when a cart actually uses one.
func NewDiscountCodeList(rule Rule, sel selector.Selector, entries []CodeEntry) (*DiscountCodeList, error) {
	compiled := make([]compiledCode, 0, len(entries))
	for _, e := range entries {
		cc, err := compileCode(e)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cc)
	}
	return &DiscountCodeList{Rule: rule, selector: sel, entries: compiled}, nil
}

func compileCode(e CodeEntry) (compiledCode, error) {
	code := strings.ToLower(strings.TrimSpace(e.Code))
	if code == "" {
		return compiledCode{}, fmt.Errorf("%w: empty discount code", ErrInvalidCampaign)
	}
	message := code
	cc := compiledCode{code: code, typ: CodeType(strings.ToLower(string(e.Type)))}

	needPercent, needFixed := false, false
	switch cc.typ {
	case CodePercent, CodePercentShort:
		needPercent = true
	case CodeFixed, CodeFixedShort:
		needFixed = true
	case CodeInfer, CodeInferShort:
		needPercent, needFixed = true, true
	case CodePerItem:
		amount, err := pricing.FromDecimal(e.Amount)
		if err != nil {
			return compiledCode{}, fmt.Errorf("%w: code %s: %v", ErrInvalidCampaign, code, err)
		}
		d, err := discount.NewFixedItem(amount, message)
		if err != nil {
			return compiledCode{}, fmt.Errorf("%w: code %s: %v", ErrInvalidCampaign, code, err)
		}
		cc.perItem = d
	default:
		return compiledCode{}, fmt.Errorf("%w: code %s has unknown type %q", ErrInvalidCampaign, code, string(e.Type))
	}

	if needPercent {
		d, err := discount.NewPercentage(e.Amount, message)
		switch {
		case err == nil:
			cc.percent = d
		case !needFixed:
			return compiledCode{}, fmt.Errorf("%w: code %s: %v", ErrInvalidCampaign, code, err)
		}
	}
	if needFixed {
		amount, err := pricing.FromDecimal(e.Amount)
		if err != nil {
			return compiledCode{}, fmt.Errorf("%w: code %s: %v", ErrInvalidCampaign, code, err)
		}
		d, err := discount.NewFixedTotal(amount, message, discount.Split)
		if err != nil {
			return compiledCode{}, fmt.Errorf("%w: code %s: %v", ErrInvalidCampaign, code, err)
		}
		cc.fixed = d
	}
	return cc, nil
}

// Kind implements Campaign.
func (*DiscountCodeList) Kind() string { return "discount_code_list" }

// Run implements Campaign.
func (p *DiscountCodeList) Run(c *cart.Cart) (Result, error) {
	if c.DiscountCode == nil {
		return Result{}, nil
	}
	if !qualifier.Matches(p.qualifier, c, p.selector) {
		return Result{}, nil
	}
	if c.DiscountCode.Rejected() {
		return Result{Qualified: true}, nil
	}

	var match *compiledCode
	for i := range p.entries {
		if !c.DiscountCode.Matches(p.entries[i].code) {
			continue
		}
		if match != nil {
			return Result{Qualified: true}, fmt.Errorf("%w: %s", ErrAmbiguousCode, p.entries[i].code)
		}
		match = &p.entries[i]
	}
	if match == nil {
		return Result{Qualified: true}, nil
	}

	d := match.discountFor(c.DiscountCode.Kind)
	if d == nil {
		return Result{Qualified: true}, nil
	}
	items := selector.Filter(p.selector, c.LineItems)
	discount.Run(d, items)
	return Result{Qualified: true, Items: len(items)}, nil
}

func (cc *compiledCode) discountFor(kind cart.CodeKind) discount.Discount {
	switch cc.typ {
	case CodePercent, CodePercentShort:
		return cc.percent
	case CodeFixed, CodeFixedShort:
		return cc.fixed
	case CodePerItem:
		return cc.perItem
	}
	switch kind {
	case cart.CodeKindPercentage:
		return cc.percent
	case cart.CodeKindFixedAmount:
		return cc.fixed
	default:
		return nil
	}
}
