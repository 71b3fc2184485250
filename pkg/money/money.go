// Package money converts between client-facing decimal amounts and the integer
// cents every amount is stored and computed in.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxCents bounds every price, line subtotal and cart total (1,000,000,000.00)
const MaxCents int64 = 100_000_000_000

// ErrOutOfRange is returned for amounts beyond MaxCents
var ErrOutOfRange = errors.New("amount out of range")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// ToCents rounds a decimal amount half away from zero to whole cents
func ToCents(d decimal.Decimal) (int64, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return 0, ErrOutOfRange
	}
	return cents.IntPart(), nil
}

// FromCents returns the decimal representation of an amount in cents
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Decimal renders cents as a float for JSON responses
func Decimal(cents int64) float64 {
	f, _ := FromCents(cents).Float64()
	return f
}

// Multiply returns unit * quantity in cents. ok is false when the result
// would exceed MaxCents.
func Multiply(unit int64, quantity int) (total int64, ok bool) {
	product := decimal.NewFromInt(unit).Mul(decimal.NewFromInt(int64(quantity)))
	if product.Abs().GreaterThan(maxCents) {
		return 0, false
	}
	return product.IntPart(), true
}
