package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// ErrInvalidAmount is returned when a configured amount cannot be represented in minor units.
var ErrInvalidAmount = errors.New("pricing: invalid amount")

var hundred = decimal.NewFromInt(100)

// Parse converts a major-unit decimal string such as "37.25" into minor units.
// Amounts with more than two fractional digits or a negative sign are rejected.
func Parse(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return FromDecimal(d)
}

// MustParse is Parse for compiled-in constants and tests.
func MustParse(value string) Money {
	m, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a major-unit decimal into minor units.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d.String())
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has sub-cent precision", ErrInvalidAmount, d.String())
	}
	return cents.IntPart(), nil
}

// Scale multiplies m by factor, rounding half away from zero to the nearest minor unit.
func Scale(m Money, factor decimal.Decimal) Money {
	return decimal.NewFromInt(m).Mul(factor).Round(0).IntPart()
}

// Share returns floor(amount * part / whole). A non-positive whole yields zero.
func Share(amount, part, whole Money) Money {
	if whole <= 0 || part <= 0 || amount <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(part)).
		Div(decimal.NewFromInt(whole)).
		Floor().
		IntPart()
}

// ClampZero floors negative amounts at zero.
func ClampZero(m Money) Money {
	if m < 0 {
		return 0
	}
	return m
}

// Format renders minor units as a fixed two-decimal major-unit string.
func Format(m Money) string {
	return decimal.New(m, -2).StringFixed(2)
}
