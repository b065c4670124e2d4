package greeno

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// FixedPointScale converts token amounts to ledger units (two decimals).
const FixedPointScale = 100

// maxExponent bounds the decimal exponent of an amount in either direction.
// Anything outside it is refused before rounding or comparison.
const maxExponent = 64

var (
	scale    = decimal.NewFromInt(FixedPointScale)
	maxUnits = decimal.NewFromInt(math.MaxInt64)

	// MaxAmount is the largest token amount a single ledger leg can carry.
	MaxAmount = decimal.New(math.MaxInt64, -2)
)

// AmountInRange reports whether amount is at most MaxAmount with an exponent
// inside the supported window.
func AmountInRange(amount decimal.Decimal) bool {
	if !exponentInRange(amount) {
		return false
	}
	return amount.LessThanOrEqual(MaxAmount)
}

func exponentInRange(amount decimal.Decimal) bool {
	exp := amount.Exponent()
	return exp >= -maxExponent && exp <= maxExponent
}

// ToFixedPoint returns floor(amount * 100). Sub-unit remainders are dropped,
// so 12.345 becomes 1234 and 0.001 becomes 0.
func ToFixedPoint(amount decimal.Decimal) (int64, error) {
	if !exponentInRange(amount) {
		return 0, fmt.Errorf("amount exponent %d is outside ±%d", amount.Exponent(), maxExponent)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount)
	}
	units := amount.Mul(scale).Floor()
	if units.GreaterThan(maxUnits) {
		return 0, fmt.Errorf("amount %s exceeds ledger range", amount)
	}
	return units.IntPart(), nil
}

// FromFixedPoint converts ledger units back to a token amount.
func FromFixedPoint(units int64) decimal.Decimal {
	return decimal.NewFromInt(units).Div(scale)
}
