package domain

import "github.com/shopspring/decimal"

// Hundred is used to express ratios as percentages.
var Hundred = decimal.NewFromInt(100)

// SafeDiv divides a by b and returns zero when b is zero.
// Zero denominators are expected states (no shares, no purchase price),
// not faults.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percentage returns part / total * 100, or zero when total is zero.
func Percentage(part, total decimal.Decimal) decimal.Decimal {
	return SafeDiv(part, total).Mul(Hundred)
}

// SumDecimals adds up a list of decimals.
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
