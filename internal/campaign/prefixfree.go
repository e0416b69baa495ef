package campaign

import (
	"fmt"
	"strings"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// CodePrefixFree makes the selected lines free when the cart carries an
// accepted code starting with a prefix.
type CodePrefixFree struct {
	Rule
	prefix   string
	selector selector.Selector
	message  string
}

// NewCodePrefixFree builds the campaign. The prefix match is case-sensitive.
func NewCodePrefixFree(rule Rule, prefix string, sel selector.Selector, message string) (*CodePrefixFree, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: code prefix required", ErrInvalidCampaign)
	}
	if sel == nil {
		return nil, fmt.Errorf("%w: code prefix campaign needs a selector", ErrInvalidCampaign)
	}
	return &CodePrefixFree{Rule: rule, prefix: prefix, selector: sel, message: message}, nil
}

// Kind implements Campaign.
func (*CodePrefixFree) Kind() string { return "code_prefix_free" }

// Run implements Campaign.
func (p *CodePrefixFree) Run(c *cart.Cart) (Result, error) {
	code := c.DiscountCode
	if code == nil || code.Rejected() || !strings.HasPrefix(code.Code, p.prefix) {
		return Result{}, nil
	}
	if !qualifier.Matches(p.qualifier, c, p.selector) {
		return Result{}, nil
	}
	res := Result{Qualified: true}
	for _, item := range selector.Filter(p.selector, c.LineItems) {
		item.ChangeLinePrice(0, p.message)
		res.Items++
	}
	return res, nil
}
