package reports

import (
	"testing"
	"time"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func holding(id, symbol string, cat ledger.Category, value string, acct ledger.Account) Holding {
	return Holding{
		Position: ledger.Position{
			ID: id, AccountID: acct.ID, Symbol: symbol, Category: cat,
			CurrentValue: dec(value),
		},
		Account: acct,
	}
}

var (
	taxable = ledger.Account{ID: "acc-a", Name: "Brokerage", AccountType: ledger.AccountTypeBrokerage, TaxTreatment: ledger.TaxTreatmentTaxable}
	ira     = ledger.Account{ID: "acc-b", Name: "IRA", AccountType: ledger.AccountTypeRetirement, TaxTreatment: ledger.TaxTreatmentTaxDeferred}
)

func sumPercentages(entries []AllocationEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Percentage.InexactFloat64()
	}
	return total
}

func TestBuildAllocation_PercentagesSumToHundred(t *testing.T) {
	holdings := []Holding{
		holding("p1", "VTI", ledger.CategoryETF, "1200", taxable),
		holding("p2", "AAPL", ledger.CategoryStock, "750", taxable),
		holding("p3", "BND", ledger.CategoryBond, "800", ira),
		holding("p4", "VXUS", ledger.CategoryETF, "333.33", ira),
	}

	report := BuildAllocation(holdings)

	assert.True(t, report.TotalValue.Equal(dec("3083.33")))
	assert.InDelta(t, 100.0, sumPercentages(report.ByCategory), 0.001)
	assert.InDelta(t, 100.0, sumPercentages(report.ByAccountType), 0.001)
	assert.InDelta(t, 100.0, sumPercentages(report.ByTaxTreatment), 0.001)
	assert.InDelta(t, 100.0, sumPercentages(report.ByAccount), 0.001)

	require.Len(t, report.ByCategory, 3)
	assert.Equal(t, "ETF", report.ByCategory[0].Key)
	assert.Equal(t, 2, report.ByCategory[0].Positions)
	assert.True(t, report.ByCategory[0].Value.Equal(dec("1533.33")))
}

func TestBuildAllocation_TiesOrderedByKey(t *testing.T) {
	holdings := []Holding{
		holding("p1", "B", ledger.CategoryStock, "100", taxable),
		holding("p2", "A", ledger.CategoryBond, "100", taxable),
		holding("p3", "C", ledger.CategoryCash, "100", taxable),
	}

	for i := 0; i < 5; i++ {
		report := BuildAllocation(holdings)
		keys := []string{report.ByCategory[0].Key, report.ByCategory[1].Key, report.ByCategory[2].Key}
		assert.Equal(t, []string{"BOND", "CASH", "STOCK"}, keys)
	}
}

func TestBuildAllocation_Empty(t *testing.T) {
	report := BuildAllocation(nil)

	assert.True(t, report.TotalValue.IsZero())
	assert.Empty(t, report.ByCategory)
	assert.Zero(t, report.ConcentrationIndex)
}

func TestBuildIncome(t *testing.T) {
	positions := map[string]ledger.Position{
		"p1": {ID: "p1", Symbol: "VTI", CostBasisTotal: dec("1000"), CurrentValue: dec("1200")},
	}
	txs := []ledger.Transaction{
		{PositionID: "p1", Type: ledger.TransactionTypeDividend, Date: date(2024, 3, 20), TotalAmount: dec("30")},
		{PositionID: "p1", Type: ledger.TransactionTypeDistribution, Date: date(2024, 6, 20), TotalAmount: dec("32")},
		{Type: ledger.TransactionTypeIncome, Date: date(2024, 4, 1), TotalAmount: dec("8")},
		{PositionID: "p1", Type: ledger.TransactionTypeBuy, Date: date(2024, 4, 2), TotalAmount: dec("500")},
	}

	report := BuildIncome(txs, positions, domain.DateRange{})

	assert.True(t, report.Total.Equal(dec("70")))
	require.Len(t, report.ByPosition, 1)
	p := report.ByPosition[0]
	assert.Equal(t, "VTI", p.Symbol)
	assert.Equal(t, 2, p.Payments)
	assert.True(t, p.YieldOnCost.Equal(dec("6.2")), "yield on cost %s", p.YieldOnCost)
	assert.True(t, p.CurrentYield.Equal(dec("5.1667")), "current yield %s", p.CurrentYield)

	require.Len(t, report.ByMonth, 3)
	assert.Equal(t, "2024-03", report.ByMonth[0].Period)
	assert.Equal(t, "2024-04", report.ByMonth[1].Period)
	assert.Equal(t, "2024-06", report.ByMonth[2].Period)

	require.Len(t, report.ByQuarter, 2)
	assert.Equal(t, "2024-Q1", report.ByQuarter[0].Period)
	assert.True(t, report.ByQuarter[1].Amount.Equal(dec("40")))

	require.Len(t, report.ByType, 3)
	assert.Equal(t, "DISTRIBUTION", report.ByType[0].Period)
}

func TestBuildActivity_FlowClasses(t *testing.T) {
	txs := []ledger.Transaction{
		{Type: ledger.TransactionTypeContribution, Date: date(2024, 1, 2), TotalAmount: dec("5000")},
		{Type: ledger.TransactionTypeBuy, Date: date(2024, 1, 10), TotalAmount: dec("1001"), Fees: dec("1")},
		{Type: ledger.TransactionTypeDividend, Date: date(2024, 2, 1), TotalAmount: dec("30")},
		{Type: ledger.TransactionTypeSell, Date: date(2024, 2, 3), TotalAmount: dec("299"), Fees: dec("1")},
		{Type: ledger.TransactionTypeWithdrawal, Date: date(2024, 2, 5), TotalAmount: dec("200")},
		{Type: ledger.TransactionTypeExpense, Date: date(2024, 2, 6), TotalAmount: dec("10")},
	}

	report := BuildActivity(txs, domain.DateRange{})

	totals := report.Totals
	assert.Equal(t, 6, totals.Count)
	assert.True(t, totals.Inflows.Equal(dec("5030")))
	assert.True(t, totals.Outflows.Equal(dec("210")))
	assert.True(t, totals.NetFlow.Equal(dec("4820")))
	assert.True(t, totals.Buys.Equal(dec("1001")))
	assert.True(t, totals.Sells.Equal(dec("299")))
	assert.True(t, totals.Fees.Equal(dec("2")))

	require.Len(t, report.ByMonth, 2)
	assert.Equal(t, "2024-01", report.ByMonth[0].Period)
	assert.True(t, report.ByMonth[0].NetFlow.Equal(dec("5000")))
	assert.True(t, report.ByMonth[1].NetFlow.Equal(dec("-180")))

	require.Len(t, report.ByType, 6)
	assert.Equal(t, ledger.TransactionTypeContribution, report.ByType[0].Type)
	assert.Equal(t, ledger.TransactionTypeBuy, report.ByType[1].Type)
	assert.Equal(t, ledger.TransactionTypeExpense, report.ByType[5].Type)
}

func TestBuildGainLoss(t *testing.T) {
	positions := []ledger.Position{
		{ID: "p1", Symbol: "VTI", CostBasisTotal: dec("1000"), CurrentValue: dec("1200"), UnrealizedGain: dec("200")},
		{ID: "p2", Symbol: "AAPL", CostBasisTotal: dec("600"), CurrentValue: dec("450"), UnrealizedGain: dec("-150")},
	}
	sells := []ledger.Transaction{
		{ID: "t2", PositionID: "p2", Type: ledger.TransactionTypeSell, Date: date(2024, 5, 1),
			TotalAmount: dec("300"), RealizedGainLoss: decimal.NewNullDecimal(dec("100"))},
		{ID: "t1", PositionID: "p2", Type: ledger.TransactionTypeSell, Date: date(2024, 4, 1),
			TotalAmount: dec("90"), RealizedGainLoss: decimal.NewNullDecimal(dec("-10"))},
		{ID: "t3", PositionID: "p2", Type: ledger.TransactionTypeSell, Date: date(2024, 6, 1), TotalAmount: dec("50")},
	}

	t.Run("all", func(t *testing.T) {
		report := BuildGainLoss(GainLossAll, sells, positions, domain.DateRange{})

		require.Len(t, report.Realized, 2)
		assert.Equal(t, "t1", report.Realized[0].TransactionID)
		assert.Equal(t, "AAPL", report.Realized[1].Symbol)
		assert.True(t, report.Realized[1].CostBasis.Equal(dec("200")))
		assert.True(t, report.Realized[1].Percentage.Equal(dec("50")))

		require.Len(t, report.Unrealized, 2)
		assert.Equal(t, "VTI", report.Unrealized[0].Symbol)

		assert.True(t, report.TotalRealized.Equal(dec("90")))
		assert.True(t, report.TotalUnrealized.Equal(dec("50")))
		assert.True(t, report.Total.Equal(dec("140")))
		assert.True(t, report.TotalGains.Equal(dec("300")))
		assert.True(t, report.TotalLosses.Equal(dec("-160")))
	})

	t.Run("realized only", func(t *testing.T) {
		report := BuildGainLoss(GainLossRealized, sells, positions, domain.DateRange{})
		assert.Len(t, report.Realized, 2)
		assert.Empty(t, report.Unrealized)
		assert.True(t, report.Total.Equal(dec("90")))
	})

	t.Run("unrealized only", func(t *testing.T) {
		report := BuildGainLoss(GainLossUnrealized, sells, positions, domain.DateRange{})
		assert.Empty(t, report.Realized)
		assert.True(t, report.Total.Equal(dec("50")))
	})
}

func TestParseGainLossType(t *testing.T) {
	typ, err := ParseGainLossType("")
	require.NoError(t, err)
	assert.Equal(t, GainLossAll, typ)

	typ, err = ParseGainLossType("realized")
	require.NoError(t, err)
	assert.Equal(t, GainLossRealized, typ)

	_, err = ParseGainLossType("paper")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBuildHoldings(t *testing.T) {
	a := holding("p1", "AAA", ledger.CategoryStock, "100", taxable)
	a.Position.CostBasisTotal = dec("80")
	a.Position.UnrealizedGain = dec("20")
	b := holding("p2", "BBB", ledger.CategoryStock, "300", ira)
	b.Position.CostBasisTotal = dec("400")
	b.Position.UnrealizedGain = dec("-100")
	b.Position.RealizedGain = dec("15")

	report := BuildHoldings([]Holding{a, b})

	require.Len(t, report.Holdings, 2)
	assert.Equal(t, "BBB", report.Holdings[0].Symbol)
	assert.Equal(t, "IRA", report.Holdings[0].AccountName)
	assert.True(t, report.Holdings[0].PercentOfPortfolio.Equal(dec("75")))
	assert.True(t, report.Holdings[0].UnrealizedGainPct.Equal(dec("-25")))
	assert.True(t, report.Holdings[1].UnrealizedGainPct.Equal(dec("25")))

	assert.True(t, report.TotalValue.Equal(dec("400")))
	assert.True(t, report.TotalCostBasis.Equal(dec("480")))
	assert.True(t, report.TotalUnrealized.Equal(dec("-80")))
	assert.True(t, report.TotalRealized.Equal(dec("15")))
}
