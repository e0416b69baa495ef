package qualifier

import (
	"fmt"
	"strings"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// CodePolicy decides which discount codes a DiscountCodeGate accepts.
type CodePolicy string

const (
	// RejectExcept accepts only listed codes.
	RejectExcept CodePolicy = "reject_except"
	// AcceptExcept rejects listed codes unless the cart comes from the mobile app.
	AcceptExcept CodePolicy = "accept_except"
)

// DefaultRejectMessage is shown when a gate rejects a code without a configured message.
const DefaultRejectMessage = "This coupon is valid for mobile application only."

// DefaultMobileProperty and DefaultMobileValue identify carts built by the mobile app.
const (
	DefaultMobileProperty = "_platform"
	DefaultMobileValue    = "ios"
)

// DiscountCodeGate rejects the cart's discount code according to its policy.
// Rejecting is a side effect of matching; the gate itself passes whenever it
// is enabled, and always passes for carts without a code.
type DiscountCodeGate struct {
	enabled     bool
	message     string
	policy      CodePolicy
	codes       map[string]struct{}
	mobileKey   string
	mobileValue string
}

// NewDiscountCodeGate builds a gate. A disabled gate fails every cart that carries a code.
func NewDiscountCodeGate(enabled bool, message string, policy CodePolicy, codes []string) (DiscountCodeGate, error) {
	switch policy {
	case RejectExcept, AcceptExcept:
	default:
		return DiscountCodeGate{}, fmt.Errorf("%w: code policy %q", ErrUnknownKind, string(policy))
	}
	if strings.TrimSpace(message) == "" {
		message = DefaultRejectMessage
	}
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	return DiscountCodeGate{
		enabled:     enabled,
		message:     message,
		policy:      policy,
		codes:       set,
		mobileKey:   DefaultMobileProperty,
		mobileValue: DefaultMobileValue,
	}, nil
}

// WithMobileProperty overrides the line property that marks mobile carts.
func (q DiscountCodeGate) WithMobileProperty(key, value string) DiscountCodeGate {
	q.mobileKey = key
	q.mobileValue = value
	return q
}

// Match implements Qualifier.
func (q DiscountCodeGate) Match(c *cart.Cart, _ selector.Selector) bool {
	if c.DiscountCode == nil {
		return true
	}
	if !q.enabled {
		return false
	}
	_, listed := q.codes[strings.ToLower(strings.TrimSpace(c.DiscountCode.Code))]

	accept := false
	switch q.policy {
	case RejectExcept:
		accept = listed
	case AcceptExcept:
		accept = q.isMobile(c) || !listed
	}
	if !accept {
		c.DiscountCode.Reject(q.message)
	}
	return true
}

func (q DiscountCodeGate) isMobile(c *cart.Cart) bool {
	for _, item := range c.LineItems {
		if v, ok := item.Property(q.mobileKey); ok && v == q.mobileValue {
			return true
		}
	}
	return false
}
