package core

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept on every posted amount.
const MoneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)

	// MoneyTolerance is the largest drift allowed between a tax amount and the
	// sum of its rounded components.
	MoneyTolerance = decimal.New(1, -MoneyPlaces)
)

// RoundMoney rounds to two places, half away from zero (half-up for the
// non-negative amounts the calculator produces).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent returns amount × pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// SuggestRoundOff returns the adjustment that brings total to the nearest whole
// rupee: fractions below .50 round down, .50 and above round up.
// The result is only a suggestion; vouchers carry whatever round-off the caller supplies.
func SuggestRoundOff(total decimal.Decimal) decimal.Decimal {
	return total.Round(0).Sub(total)
}

// withinTolerance reports whether |a − b| ≤ MoneyTolerance.
func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MoneyTolerance)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
