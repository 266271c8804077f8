package analytics

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// ConcentrationIndex returns the Herfindahl index of a set of holding
// values: the sum of squared portfolio weights, in [1/n, 1]. One holding
// scores 1; n equal holdings score 1/n. Non-positive totals score 0.
func ConcentrationIndex(values []decimal.Decimal) float64 {
	if len(values) == 0 {
		return 0
	}

	weights := make([]float64, len(values))
	for i, v := range values {
		weights[i] = v.InexactFloat64()
	}

	total := floats.Sum(weights)
	if total <= 0 {
		return 0
	}
	floats.Scale(1/total, weights)

	return floats.Dot(weights, weights)
}
