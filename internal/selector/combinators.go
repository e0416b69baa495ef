package selector

import "github.com/noah-isme/toko-promo/internal/cart"

// And matches when every child matches. Nil children are ignored.
type And []Selector

// Match implements Selector.
func (s And) Match(item *cart.LineItem) bool {
	for _, child := range s {
		if child != nil && !child.Match(item) {
			return false
		}
	}
	return true
}

// Or matches when any child matches. Nil children are ignored.
type Or []Selector

// Match implements Selector.
func (s Or) Match(item *cart.LineItem) bool {
	for _, child := range s {
		if child != nil && child.Match(item) {
			return true
		}
	}
	return false
}

// Not inverts its child.
type Not struct {
	Selector Selector
}

// Match implements Selector.
func (s Not) Match(item *cart.LineItem) bool {
	return !Matches(s.Selector, item)
}
