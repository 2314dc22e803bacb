package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are exact decimals with at most two fractional digits. Everything
// that touches money goes through this package so no binary float ever holds
// an amount.

// Scale is the number of fractional digits an amount carries.
const Scale = 2

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Parse converts a raw amount into its canonical two-digit form. It rejects
// values with more than two fractional digits rather than silently rounding,
// since a sub-cent amount from a caller is always a bug.
func Parse(raw decimal.Decimal) (decimal.Decimal, error) {
	if raw.Exponent() < -Scale {
		return decimal.Zero, fmt.Errorf("amount %s has more than %d fractional digits", raw.String(), Scale)
	}
	return raw.Round(Scale), nil
}

// Subtotal multiplies a unit price by an integer quantity.
func Subtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum folds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// FloorZero clamps a negative amount to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
