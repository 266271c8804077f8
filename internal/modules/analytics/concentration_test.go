package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConcentrationIndex(t *testing.T) {
	tests := []struct {
		name     string
		values   []decimal.Decimal
		expected float64
	}{
		{"empty", nil, 0},
		{"single holding", []decimal.Decimal{d("500")}, 1},
		{"two equal holdings", []decimal.Decimal{d("100"), d("100")}, 0.5},
		{"four equal holdings", []decimal.Decimal{d("25"), d("25"), d("25"), d("25")}, 0.25},
		{"skewed", []decimal.Decimal{d("75"), d("25")}, 0.625},
		{"all zero", []decimal.Decimal{decimal.Zero, decimal.Zero}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConcentrationIndex(tt.values), 1e-9)
		})
	}
}
