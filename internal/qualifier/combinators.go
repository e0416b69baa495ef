package qualifier

import (
	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// And matches when every child matches; an empty list always matches.
type And []Qualifier

// Match implements Qualifier.
func (q And) Match(c *cart.Cart, sel selector.Selector) bool {
	for _, child := range q {
		if child != nil && !child.Match(c, sel) {
			return false
		}
	}
	return true
}

// Or matches when any child matches; an empty list always matches.
type Or []Qualifier

// Match implements Qualifier.
func (q Or) Match(c *cart.Cart, sel selector.Selector) bool {
	seen := false
	for _, child := range q {
		if child == nil {
			continue
		}
		seen = true
		if child.Match(c, sel) {
			return true
		}
	}
	return !seen
}

// Not inverts its child.
type Not struct {
	Qualifier Qualifier
}

// Match implements Qualifier.
func (q Not) Match(c *cart.Cart, sel selector.Selector) bool {
	return !Matches(q.Qualifier, c, sel)
}
