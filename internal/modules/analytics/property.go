package analytics

import (
	"github.com/aristath/holdings/internal/domain"
	"github.com/shopspring/decimal"
)

// Frequency is how often an additional income amount is received.
type Frequency string

const (
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnually  Frequency = "ANNUALLY"
	FrequencyOneTime   Frequency = "ONE_TIME"
)

// Monthly normalizes an amount received at frequency f to a monthly figure.
// One-time amounts are not recurring income.
func (f Frequency) Monthly(amount decimal.Decimal) decimal.Decimal {
	switch f {
	case FrequencyMonthly:
		return amount
	case FrequencyQuarterly:
		return amount.Div(decimal.NewFromInt(3))
	case FrequencyAnnually:
		return amount.Div(monthsPerYear)
	default:
		return decimal.Zero
	}
}

// IncomeItem is an additional income source of a property.
type IncomeItem struct {
	Amount    decimal.Decimal
	Frequency Frequency
}

// PropertyInputs is everything the property metrics are derived from.
// Rates are percentages. MonthlyRents holds active leases only.
type PropertyInputs struct {
	PurchasePrice   decimal.Decimal
	CurrentValue    decimal.Decimal
	DownPayment     decimal.Decimal
	ClosingCosts    decimal.Decimal
	RenovationCosts decimal.Decimal
	LoanAmount      decimal.Decimal
	LoanBalance     decimal.Decimal
	InterestRate    decimal.Decimal
	LoanTermYears   int
	VacancyRate     decimal.Decimal
	MonthlyRents    []decimal.Decimal
	OtherIncome     []IncomeItem
	MonthlyExpenses []decimal.Decimal
}

// PropertyMetrics is the cash-flow picture of one property. Monthly figures
// unless named otherwise; ratios are percentages rounded to two places.
type PropertyMetrics struct {
	MonthlyRentalIncome    decimal.Decimal `json:"monthly_rental_income"`
	MonthlyOtherIncome     decimal.Decimal `json:"monthly_other_income"`
	GrossMonthlyIncome     decimal.Decimal `json:"gross_monthly_income"`
	VacancyLoss            decimal.Decimal `json:"vacancy_loss"`
	EffectiveMonthlyIncome decimal.Decimal `json:"effective_monthly_income"`
	MonthlyExpenses        decimal.Decimal `json:"monthly_operating_expenses"`
	MonthlyNOI             decimal.Decimal `json:"monthly_noi"`
	AnnualNOI              decimal.Decimal `json:"annual_noi"`
	CapRate                decimal.Decimal `json:"cap_rate"`
	MonthlyMortgagePayment decimal.Decimal `json:"monthly_mortgage_payment"`
	AnnualDebtService      decimal.Decimal `json:"annual_debt_service"`
	MonthlyCashFlow        decimal.Decimal `json:"monthly_cash_flow"`
	AnnualCashFlow         decimal.Decimal `json:"annual_cash_flow"`
	TotalCashInvested      decimal.Decimal `json:"total_cash_invested"`
	CashOnCashReturn       decimal.Decimal `json:"cash_on_cash_return"`
	LoanToValue            decimal.Decimal `json:"loan_to_value"`
	Equity                 decimal.Decimal `json:"equity"`
	DebtServiceCoverage    decimal.Decimal `json:"debt_service_coverage"`
	GrossRentMultiplier    decimal.Decimal `json:"gross_rent_multiplier"`
	ExpenseRatio           decimal.Decimal `json:"expense_ratio"`
	Rules                  RuleChecks      `json:"rules"`
}

// ComputePropertyMetrics derives the metrics. Every division by zero
// yields zero: an unpriced or unleveraged property is a valid state.
func ComputePropertyMetrics(in PropertyInputs) PropertyMetrics {
	var m PropertyMetrics

	m.MonthlyRentalIncome = domain.SumDecimals(in.MonthlyRents...)
	m.MonthlyOtherIncome = decimal.Zero
	for _, item := range in.OtherIncome {
		m.MonthlyOtherIncome = m.MonthlyOtherIncome.Add(item.Frequency.Monthly(item.Amount))
	}
	m.MonthlyOtherIncome = m.MonthlyOtherIncome.Round(2)

	m.GrossMonthlyIncome = m.MonthlyRentalIncome.Add(m.MonthlyOtherIncome)
	m.VacancyLoss = m.GrossMonthlyIncome.Mul(in.VacancyRate).Div(domain.Hundred).Round(2)
	m.EffectiveMonthlyIncome = m.GrossMonthlyIncome.Sub(m.VacancyLoss)
	m.MonthlyExpenses = domain.SumDecimals(in.MonthlyExpenses...)

	m.MonthlyNOI = m.EffectiveMonthlyIncome.Sub(m.MonthlyExpenses)
	m.AnnualNOI = m.MonthlyNOI.Mul(monthsPerYear)
	m.CapRate = domain.Percentage(m.AnnualNOI, in.PurchasePrice).Round(2)

	m.MonthlyMortgagePayment = MonthlyPayment(in.LoanAmount, in.InterestRate, in.LoanTermYears)
	m.AnnualDebtService = m.MonthlyMortgagePayment.Mul(monthsPerYear)
	m.MonthlyCashFlow = m.MonthlyNOI.Sub(m.MonthlyMortgagePayment)
	m.AnnualCashFlow = m.MonthlyCashFlow.Mul(monthsPerYear)

	m.TotalCashInvested = domain.SumDecimals(in.DownPayment, in.ClosingCosts, in.RenovationCosts)
	m.CashOnCashReturn = domain.Percentage(m.AnnualCashFlow, m.TotalCashInvested).Round(2)
	m.LoanToValue = domain.Percentage(in.LoanBalance, in.CurrentValue).Round(2)
	m.Equity = in.CurrentValue.Sub(in.LoanBalance)
	m.DebtServiceCoverage = domain.SafeDiv(m.AnnualNOI, m.AnnualDebtService).Round(2)
	m.GrossRentMultiplier = domain.SafeDiv(in.PurchasePrice, m.GrossMonthlyIncome.Mul(monthsPerYear)).Round(2)
	m.ExpenseRatio = domain.Percentage(m.MonthlyExpenses, m.EffectiveMonthlyIncome).Round(2)

	m.Rules = CheckRules(in.PurchasePrice, m.MonthlyRentalIncome, m.MonthlyMortgagePayment)

	return m
}
