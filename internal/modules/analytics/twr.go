// Package analytics holds the stateless calculations built on ledger and
// property snapshots: time-weighted return, property cash-flow metrics,
// amortization and concentration. Nothing here touches the store.
package analytics

import (
	"time"

	"github.com/aristath/holdings/internal/domain"
	"github.com/shopspring/decimal"
)

// CashFlow is a signed amount moving into (+) or out of (-) a holding.
type CashFlow struct {
	Date   time.Time
	Amount decimal.Decimal
}

// TimeWeightedReturn chains sub-period returns over date-ordered cash flows
// and closes the last period with currentValue. The result is a percentage.
//
// The first flow opens the period and is not itself a return. Sub-periods
// that start with no value are skipped. No flows yields zero.
func TimeWeightedReturn(flows []CashFlow, currentValue decimal.Decimal) decimal.Decimal {
	if len(flows) == 0 {
		return decimal.Zero
	}

	value := decimal.Zero
	cumulative := decimal.NewFromInt(1)

	for i, f := range flows {
		if i > 0 && value.IsPositive() {
			cumulative = cumulative.Mul(value.Add(f.Amount).Div(value))
		}
		value = value.Add(f.Amount)
	}

	if value.IsPositive() {
		cumulative = cumulative.Mul(currentValue.Div(value))
	}

	return cumulative.Sub(decimal.NewFromInt(1)).Mul(domain.Hundred)
}
