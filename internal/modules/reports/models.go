// Package reports assembles portfolio-level views from ledger snapshots.
//
// The Build* functions are pure reducers over already-fetched collections.
// Their output order is deterministic: groups sort by value descending with
// the key as tie-break, periods sort by key ascending.
package reports

import (
	"fmt"
	"time"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/shopspring/decimal"
)

// Holding is a position together with the account holding it.
type Holding struct {
	Position ledger.Position
	Account  ledger.Account
}

// AllocationEntry is one group of an allocation breakdown.
type AllocationEntry struct {
	Key        string          `json:"key"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
	Positions  int             `json:"positions"`
}

// AllocationReport breaks portfolio value down several ways.
type AllocationReport struct {
	AsOf               *time.Time        `json:"as_of,omitempty"`
	TotalValue         decimal.Decimal   `json:"total_value"`
	ByCategory         []AllocationEntry `json:"by_category"`
	ByAccountType      []AllocationEntry `json:"by_account_type"`
	ByTaxTreatment     []AllocationEntry `json:"by_tax_treatment"`
	ByAccount          []AllocationEntry `json:"by_account"`
	ConcentrationIndex float64           `json:"concentration_index"`
}

// PositionIncome is the income one position paid over the range.
type PositionIncome struct {
	PositionID   string          `json:"position_id"`
	Symbol       string          `json:"symbol"`
	Income       decimal.Decimal `json:"income"`
	Payments     int             `json:"payments"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentValue decimal.Decimal `json:"current_value"`
	YieldOnCost  decimal.Decimal `json:"yield_on_cost"`
	CurrentYield decimal.Decimal `json:"current_yield"`
}

// PeriodAmount is a total for one period key.
type PeriodAmount struct {
	Period string          `json:"period"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// IncomeReport groups DIVIDEND, INCOME and DISTRIBUTION transactions.
type IncomeReport struct {
	Range      domain.DateRange `json:"range"`
	ByPosition []PositionIncome `json:"by_position"`
	ByType     []PeriodAmount   `json:"by_type"`
	ByMonth    []PeriodAmount   `json:"by_month"`
	ByQuarter  []PeriodAmount   `json:"by_quarter"`
	Total      decimal.Decimal  `json:"total"`
}

// TypeActivity totals one transaction type.
type TypeActivity struct {
	Type   ledger.TransactionType `json:"type"`
	Count  int                    `json:"count"`
	Amount decimal.Decimal        `json:"amount"`
	Fees   decimal.Decimal        `json:"fees"`
}

// FlowSummary classifies transaction amounts into flow classes.
type FlowSummary struct {
	Period   string          `json:"period,omitempty"`
	Count    int             `json:"count"`
	Inflows  decimal.Decimal `json:"inflows"`
	Outflows decimal.Decimal `json:"outflows"`
	Buys     decimal.Decimal `json:"buys"`
	Sells    decimal.Decimal `json:"sells"`
	NetFlow  decimal.Decimal `json:"net_flow"`
	Fees     decimal.Decimal `json:"fees"`
}

// ActivityReport summarizes every transaction in a range.
type ActivityReport struct {
	Range   domain.DateRange `json:"range"`
	ByType  []TypeActivity   `json:"by_type"`
	ByMonth []FlowSummary    `json:"by_month"`
	Totals  FlowSummary      `json:"totals"`
}

// GainLossType selects which side of the gain/loss report is built.
type GainLossType string

const (
	GainLossRealized   GainLossType = "realized"
	GainLossUnrealized GainLossType = "unrealized"
	GainLossAll        GainLossType = "all"
)

// ParseGainLossType parses a gain/loss report type. Empty means all.
func ParseGainLossType(s string) (GainLossType, error) {
	switch GainLossType(s) {
	case "", GainLossAll:
		return GainLossAll, nil
	case GainLossRealized, GainLossUnrealized:
		return GainLossType(s), nil
	}
	v := domain.NewValidationError()
	v.Add("type", fmt.Sprintf("must be realized, unrealized or all, got %q", s))
	return "", v
}

func (t GainLossType) includesRealized() bool {
	return t == GainLossRealized || t == GainLossAll
}

func (t GainLossType) includesUnrealized() bool {
	return t == GainLossUnrealized || t == GainLossAll
}

// GainLossEntry is one realized sale or one open position.
type GainLossEntry struct {
	PositionID    string          `json:"position_id"`
	Symbol        string          `json:"symbol"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Date          *time.Time      `json:"date,omitempty"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Value         decimal.Decimal `json:"value"`
	GainLoss      decimal.Decimal `json:"gain_loss"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// GainLossReport splits gains into realized (from SELL transactions) and
// unrealized (from open positions).
type GainLossReport struct {
	Type            GainLossType     `json:"type"`
	Range           domain.DateRange `json:"range"`
	Realized        []GainLossEntry  `json:"realized,omitempty"`
	Unrealized      []GainLossEntry  `json:"unrealized,omitempty"`
	TotalRealized   decimal.Decimal  `json:"total_realized"`
	TotalUnrealized decimal.Decimal  `json:"total_unrealized"`
	Total           decimal.Decimal  `json:"total"`
	TotalGains      decimal.Decimal  `json:"total_gains"`
	TotalLosses     decimal.Decimal  `json:"total_losses"`
}

// HoldingEntry is a flattened position snapshot.
type HoldingEntry struct {
	PositionID         string          `json:"position_id"`
	AccountID          string          `json:"account_id"`
	AccountName        string          `json:"account_name"`
	Symbol             string          `json:"symbol"`
	Name               string          `json:"name"`
	Category           ledger.Category `json:"category"`
	Shares             decimal.Decimal `json:"shares"`
	CostBasisPerShare  decimal.Decimal `json:"cost_basis_per_share"`
	CostBasisTotal     decimal.Decimal `json:"cost_basis_total"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	CurrentValue       decimal.Decimal `json:"current_value"`
	UnrealizedGain     decimal.Decimal `json:"unrealized_gain_loss"`
	UnrealizedGainPct  decimal.Decimal `json:"unrealized_gain_loss_pct"`
	RealizedGain       decimal.Decimal `json:"realized_gain_loss"`
	PercentOfPortfolio decimal.Decimal `json:"percent_of_portfolio"`
}

// HoldingsReport lists every position with its share of the portfolio.
type HoldingsReport struct {
	Holdings        []HoldingEntry  `json:"holdings"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalCostBasis  decimal.Decimal `json:"total_cost_basis"`
	TotalUnrealized decimal.Decimal `json:"total_unrealized_gain_loss"`
	TotalRealized   decimal.Decimal `json:"total_realized_gain_loss"`
}
