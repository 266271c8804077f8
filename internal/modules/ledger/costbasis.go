package ledger

import (
	"fmt"
	"sort"

	"github.com/aristath/holdings/internal/domain"
	"github.com/shopspring/decimal"
)

// OversellPolicy decides what happens when a SELL exceeds the shares held.
type OversellPolicy int

const (
	// OversellReject fails the calculation with a validation error.
	OversellReject OversellPolicy = iota
	// OversellClamp sells at most the shares held.
	OversellClamp
	// OversellAllowShort lets shares go negative (a short position).
	OversellAllowShort
)

func (p OversellPolicy) String() string {
	switch p {
	case OversellReject:
		return "reject"
	case OversellClamp:
		return "clamp"
	case OversellAllowShort:
		return "allow_short"
	default:
		return "unknown"
	}
}

// ParseOversellPolicy parses a string into an OversellPolicy.
func ParseOversellPolicy(s string) (OversellPolicy, error) {
	switch s {
	case "reject", "":
		return OversellReject, nil
	case "clamp":
		return OversellClamp, nil
	case "allow_short":
		return OversellAllowShort, nil
	default:
		return 0, fmt.Errorf("unknown oversell policy: %q", s)
	}
}

// CostBasisResult is the weighted-average cost basis of a trade sequence.
type CostBasisResult struct {
	TotalShares       decimal.Decimal
	TotalCostBasis    decimal.Decimal
	CostBasisPerShare decimal.Decimal
	RealizedGainLoss  decimal.Decimal
	// SellGains holds the realized gain/loss of each SELL, keyed by transaction id.
	SellGains map[string]decimal.Decimal
}

// SortTrades orders transactions by date. Same-date transactions keep their
// incoming order, which the repository makes insertion order.
func SortTrades(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}

// CalculateCostBasis runs the weighted-average method over a date-ordered
// BUY/SELL sequence. Other transaction types are ignored.
//
// A BUY adds shares*price+fees to the cost basis and resets the per-share
// basis. A SELL removes sharesSold*perShare and leaves the per-share basis
// of the remaining shares untouched. Selling out sets the cost basis to
// exactly zero.
func CalculateCostBasis(txs []Transaction, policy OversellPolicy) (CostBasisResult, error) {
	res := CostBasisResult{
		TotalShares:      decimal.Zero,
		TotalCostBasis:   decimal.Zero,
		RealizedGainLoss: decimal.Zero,
		SellGains:        make(map[string]decimal.Decimal),
	}

	perShare := decimal.Zero
	for _, tx := range txs {
		shares := tx.Shares.Abs()

		switch tx.Type {
		case TransactionTypeBuy:
			cost := shares.Mul(tx.PricePerShare).Add(tx.Fees)
			res.TotalCostBasis = res.TotalCostBasis.Add(cost)
			res.TotalShares = res.TotalShares.Add(shares)
			perShare = decimal.Zero
			if res.TotalShares.IsPositive() {
				perShare = res.TotalCostBasis.Div(res.TotalShares)
			}

		case TransactionTypeSell:
			if shares.GreaterThan(res.TotalShares) {
				switch policy {
				case OversellReject:
					v := domain.NewValidationError()
					v.Add("shares", fmt.Sprintf("sell of %s on %s exceeds %s shares held (transaction %s)",
						shares, tx.Date.Format(domain.DateLayout), res.TotalShares, tx.ID))
					return CostBasisResult{}, v
				case OversellClamp:
					shares = decimal.Max(res.TotalShares, decimal.Zero)
				}
			}

			if !res.TotalShares.IsPositive() {
				perShare = decimal.Zero
			}
			soldCost := shares.Mul(perShare)
			proceeds := shares.Mul(tx.PricePerShare).Sub(tx.Fees)
			gain := proceeds.Sub(soldCost)

			res.TotalCostBasis = res.TotalCostBasis.Sub(soldCost)
			res.TotalShares = res.TotalShares.Sub(shares)
			if res.TotalShares.IsZero() {
				res.TotalCostBasis = decimal.Zero
				perShare = decimal.Zero
			}
			res.RealizedGainLoss = res.RealizedGainLoss.Add(gain)
			if tx.ID != "" {
				res.SellGains[tx.ID] = gain
			}
		}
	}

	res.CostBasisPerShare = perShare
	if !res.TotalShares.IsPositive() {
		res.CostBasisPerShare = decimal.Zero
	}

	return res, nil
}
