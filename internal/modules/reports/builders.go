package reports

import (
	"sort"
	"time"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/analytics"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/shopspring/decimal"
)

// percentPlaces is the rounding applied to report percentages.
const percentPlaces = 4

type bucket struct {
	value decimal.Decimal
	count int
}

func addTo(buckets map[string]*bucket, key string, v decimal.Decimal) {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{value: decimal.Zero}
		buckets[key] = b
	}
	b.value = b.value.Add(v)
	b.count++
}

// BuildAllocation groups holdings by category, account type, tax treatment
// and account, each group carrying its share of total value.
func BuildAllocation(holdings []Holding) *AllocationReport {
	total := decimal.Zero
	values := make([]decimal.Decimal, 0, len(holdings))
	for _, h := range holdings {
		total = total.Add(h.Position.CurrentValue)
		values = append(values, h.Position.CurrentValue)
	}

	return &AllocationReport{
		TotalValue: total,
		ByCategory: allocate(holdings, total, func(h Holding) string {
			return string(h.Position.Category)
		}),
		ByAccountType: allocate(holdings, total, func(h Holding) string {
			return string(h.Account.AccountType)
		}),
		ByTaxTreatment: allocate(holdings, total, func(h Holding) string {
			return string(h.Account.TaxTreatment)
		}),
		ByAccount: allocate(holdings, total, func(h Holding) string {
			return h.Account.ID
		}),
		ConcentrationIndex: analytics.ConcentrationIndex(values),
	}
}

func allocate(holdings []Holding, total decimal.Decimal, key func(Holding) string) []AllocationEntry {
	buckets := make(map[string]*bucket)
	for _, h := range holdings {
		addTo(buckets, key(h), h.Position.CurrentValue)
	}

	entries := make([]AllocationEntry, 0, len(buckets))
	for k, b := range buckets {
		entries = append(entries, AllocationEntry{
			Key:        k,
			Value:      b.value,
			Percentage: domain.Percentage(b.value, total).Round(percentPlaces),
			Positions:  b.count,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Value.Equal(entries[j].Value) {
			return entries[i].Value.GreaterThan(entries[j].Value)
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// BuildIncome groups income transactions by position, type, month and
// quarter. Transactions that are not income are ignored. Income booked
// without a position counts towards the period totals only.
func BuildIncome(txs []ledger.Transaction, positions map[string]ledger.Position, rng domain.DateRange) *IncomeReport {
	report := &IncomeReport{Range: rng, Total: decimal.Zero}

	byPosition := make(map[string]*bucket)
	byType := make(map[string]*bucket)
	byMonth := make(map[string]*bucket)
	byQuarter := make(map[string]*bucket)

	for _, t := range txs {
		if !t.Type.IsIncome() {
			continue
		}
		amount := t.TotalAmount.Abs()
		report.Total = report.Total.Add(amount)

		if t.PositionID != "" {
			addTo(byPosition, t.PositionID, amount)
		}
		addTo(byType, string(t.Type), amount)
		addTo(byMonth, domain.MonthKey(t.Date), amount)
		addTo(byQuarter, domain.QuarterKey(t.Date), amount)
	}

	report.ByPosition = make([]PositionIncome, 0, len(byPosition))
	for id, b := range byPosition {
		p := positions[id]
		report.ByPosition = append(report.ByPosition, PositionIncome{
			PositionID:   id,
			Symbol:       p.Symbol,
			Income:       b.value,
			Payments:     b.count,
			CostBasis:    p.CostBasisTotal,
			CurrentValue: p.CurrentValue,
			YieldOnCost:  domain.Percentage(b.value, p.CostBasisTotal).Round(percentPlaces),
			CurrentYield: domain.Percentage(b.value, p.CurrentValue).Round(percentPlaces),
		})
	}
	sort.Slice(report.ByPosition, func(i, j int) bool {
		a, b := report.ByPosition[i], report.ByPosition[j]
		if !a.Income.Equal(b.Income) {
			return a.Income.GreaterThan(b.Income)
		}
		return a.PositionID < b.PositionID
	})

	report.ByType = byValue(byType)
	report.ByMonth = byPeriod(byMonth)
	report.ByQuarter = byPeriod(byQuarter)
	return report
}

func byValue(buckets map[string]*bucket) []PeriodAmount {
	out := toPeriodAmounts(buckets)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Period < out[j].Period
	})
	return out
}

func byPeriod(buckets map[string]*bucket) []PeriodAmount {
	out := toPeriodAmounts(buckets)
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func toPeriodAmounts(buckets map[string]*bucket) []PeriodAmount {
	out := make([]PeriodAmount, 0, len(buckets))
	for k, b := range buckets {
		out = append(out, PeriodAmount{Period: k, Amount: b.value, Count: b.count})
	}
	return out
}

func newFlowSummary(period string) *FlowSummary {
	return &FlowSummary{
		Period:   period,
		Inflows:  decimal.Zero,
		Outflows: decimal.Zero,
		Buys:     decimal.Zero,
		Sells:    decimal.Zero,
		NetFlow:  decimal.Zero,
		Fees:     decimal.Zero,
	}
}

// add classifies one transaction. CONTRIBUTION and income types are
// inflows, WITHDRAWAL and EXPENSE are outflows, trades are tracked apart.
func (f *FlowSummary) add(t ledger.Transaction) {
	amount := t.TotalAmount.Abs()
	f.Count++
	f.Fees = f.Fees.Add(t.Fees)

	switch {
	case t.Type == ledger.TransactionTypeContribution || t.Type.IsIncome():
		f.Inflows = f.Inflows.Add(amount)
	case t.Type == ledger.TransactionTypeWithdrawal || t.Type == ledger.TransactionTypeExpense:
		f.Outflows = f.Outflows.Add(amount)
	case t.Type == ledger.TransactionTypeBuy:
		f.Buys = f.Buys.Add(amount)
	case t.Type == ledger.TransactionTypeSell:
		f.Sells = f.Sells.Add(amount)
	}
	f.NetFlow = f.Inflows.Sub(f.Outflows)
}

// BuildActivity totals transactions by type and by month.
func BuildActivity(txs []ledger.Transaction, rng domain.DateRange) *ActivityReport {
	report := &ActivityReport{Range: rng}
	totals := newFlowSummary("")

	types := make(map[ledger.TransactionType]*TypeActivity)
	months := make(map[string]*FlowSummary)

	for _, t := range txs {
		ta, ok := types[t.Type]
		if !ok {
			ta = &TypeActivity{Type: t.Type, Amount: decimal.Zero, Fees: decimal.Zero}
			types[t.Type] = ta
		}
		ta.Count++
		ta.Amount = ta.Amount.Add(t.TotalAmount.Abs())
		ta.Fees = ta.Fees.Add(t.Fees)

		key := domain.MonthKey(t.Date)
		m, ok := months[key]
		if !ok {
			m = newFlowSummary(key)
			months[key] = m
		}
		m.add(t)
		totals.add(t)
	}

	report.ByType = make([]TypeActivity, 0, len(types))
	for _, ta := range types {
		report.ByType = append(report.ByType, *ta)
	}
	sort.Slice(report.ByType, func(i, j int) bool {
		a, b := report.ByType[i], report.ByType[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Type < b.Type
	})

	report.ByMonth = make([]FlowSummary, 0, len(months))
	for _, m := range months {
		report.ByMonth = append(report.ByMonth, *m)
	}
	sort.Slice(report.ByMonth, func(i, j int) bool {
		return report.ByMonth[i].Period < report.ByMonth[j].Period
	})

	report.Totals = *totals
	return report
}

// BuildGainLoss splits gains into realized entries, one per SELL with a
// stored gain, and unrealized entries, one per position. Realized entries
// are in date order; unrealized entries are ordered by gain, largest first.
func BuildGainLoss(typ GainLossType, sells []ledger.Transaction, positions []ledger.Position, rng domain.DateRange) *GainLossReport {
	report := &GainLossReport{
		Type:            typ,
		Range:           rng,
		TotalRealized:   decimal.Zero,
		TotalUnrealized: decimal.Zero,
		TotalGains:      decimal.Zero,
		TotalLosses:     decimal.Zero,
	}

	symbols := make(map[string]string, len(positions))
	for _, p := range positions {
		symbols[p.ID] = p.Symbol
	}

	if typ.includesRealized() {
		for _, t := range sells {
			if t.Type != ledger.TransactionTypeSell || !t.RealizedGainLoss.Valid {
				continue
			}
			gain := t.RealizedGainLoss.Decimal
			proceeds := t.TotalAmount.Abs()
			cost := proceeds.Sub(gain)
			date := t.Date
			report.Realized = append(report.Realized, GainLossEntry{
				PositionID:    t.PositionID,
				Symbol:        symbols[t.PositionID],
				TransactionID: t.ID,
				Date:          &date,
				CostBasis:     cost,
				Value:         proceeds,
				GainLoss:      gain,
				Percentage:    domain.Percentage(gain, cost).Round(percentPlaces),
			})
			report.TotalRealized = report.TotalRealized.Add(gain)
			report.tally(gain)
		}
		sort.SliceStable(report.Realized, func(i, j int) bool {
			return report.Realized[i].Date.Before(*report.Realized[j].Date)
		})
	}

	if typ.includesUnrealized() {
		for _, p := range positions {
			report.Unrealized = append(report.Unrealized, GainLossEntry{
				PositionID: p.ID,
				Symbol:     p.Symbol,
				CostBasis:  p.CostBasisTotal,
				Value:      p.CurrentValue,
				GainLoss:   p.UnrealizedGain,
				Percentage: domain.Percentage(p.UnrealizedGain, p.CostBasisTotal).Round(percentPlaces),
			})
			report.TotalUnrealized = report.TotalUnrealized.Add(p.UnrealizedGain)
			report.tally(p.UnrealizedGain)
		}
		sort.Slice(report.Unrealized, func(i, j int) bool {
			a, b := report.Unrealized[i], report.Unrealized[j]
			if !a.GainLoss.Equal(b.GainLoss) {
				return a.GainLoss.GreaterThan(b.GainLoss)
			}
			return a.PositionID < b.PositionID
		})
	}

	report.Total = report.TotalRealized.Add(report.TotalUnrealized)
	return report
}

func (r *GainLossReport) tally(gain decimal.Decimal) {
	if gain.IsPositive() {
		r.TotalGains = r.TotalGains.Add(gain)
	} else {
		r.TotalLosses = r.TotalLosses.Add(gain)
	}
}

// BuildHoldings flattens holdings into a snapshot ordered by current value.
func BuildHoldings(holdings []Holding) *HoldingsReport {
	report := &HoldingsReport{
		Holdings:        make([]HoldingEntry, 0, len(holdings)),
		TotalValue:      decimal.Zero,
		TotalCostBasis:  decimal.Zero,
		TotalUnrealized: decimal.Zero,
		TotalRealized:   decimal.Zero,
	}
	for _, h := range holdings {
		report.TotalValue = report.TotalValue.Add(h.Position.CurrentValue)
	}

	for _, h := range holdings {
		p := h.Position
		report.Holdings = append(report.Holdings, HoldingEntry{
			PositionID:         p.ID,
			AccountID:          h.Account.ID,
			AccountName:        h.Account.Name,
			Symbol:             p.Symbol,
			Name:               p.Name,
			Category:           p.Category,
			Shares:             p.Shares,
			CostBasisPerShare:  p.CostBasisPerShare,
			CostBasisTotal:     p.CostBasisTotal,
			CurrentPrice:       p.Price(),
			CurrentValue:       p.CurrentValue,
			UnrealizedGain:     p.UnrealizedGain,
			UnrealizedGainPct:  domain.Percentage(p.UnrealizedGain, p.CostBasisTotal).Round(percentPlaces),
			RealizedGain:       p.RealizedGain,
			PercentOfPortfolio: domain.Percentage(p.CurrentValue, report.TotalValue).Round(percentPlaces),
		})
		report.TotalCostBasis = report.TotalCostBasis.Add(p.CostBasisTotal)
		report.TotalUnrealized = report.TotalUnrealized.Add(p.UnrealizedGain)
		report.TotalRealized = report.TotalRealized.Add(p.RealizedGain)
	}

	sort.Slice(report.Holdings, func(i, j int) bool {
		a, b := report.Holdings[i], report.Holdings[j]
		if !a.CurrentValue.Equal(b.CurrentValue) {
			return a.CurrentValue.GreaterThan(b.CurrentValue)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.PositionID < b.PositionID
	})
	return report
}

// reconstruct rebuilds each position's shares and cost basis from its
// trades up to asOf under the ledger's oversell policy and revalues it at
// the current price. Trades must be in date order.
func reconstruct(holdings []Holding, trades []ledger.Transaction, policy ledger.OversellPolicy) ([]Holding, error) {
	byPosition := make(map[string][]ledger.Transaction)
	for _, t := range trades {
		if t.PositionID != "" {
			byPosition[t.PositionID] = append(byPosition[t.PositionID], t)
		}
	}

	out := make([]Holding, 0, len(holdings))
	for _, h := range holdings {
		res, err := ledger.CalculateCostBasis(byPosition[h.Position.ID], policy)
		if err != nil {
			return nil, err
		}
		p := h.Position
		p.Shares = res.TotalShares
		p.CostBasisTotal = res.TotalCostBasis
		p.CostBasisPerShare = res.CostBasisPerShare
		p.RealizedGain = res.RealizedGainLoss
		p.CurrentValue = p.Shares.Mul(p.Price())
		p.UnrealizedGain = p.CurrentValue.Sub(p.CostBasisTotal)
		out = append(out, Holding{Position: p, Account: h.Account})
	}
	return out, nil
}

// asOfRange is the trade window for a point-in-time reconstruction.
func asOfRange(asOf time.Time) domain.DateRange {
	return domain.DateRange{To: asOf}
}
