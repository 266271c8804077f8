// Package properties reads rental property records and derives their
// cash-flow metrics. Property, lease and expense CRUD live elsewhere; this
// package never writes.
package properties

import (
	"time"

	"github.com/aristath/holdings/internal/modules/analytics"
	"github.com/shopspring/decimal"
)

// Property is a real asset with its purchase and financing terms.
// InterestRate and VacancyRate are percentages.
type Property struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	DownPayment     decimal.Decimal `json:"down_payment"`
	ClosingCosts    decimal.Decimal `json:"closing_costs"`
	RenovationCosts decimal.Decimal `json:"renovation_costs"`
	LoanAmount      decimal.Decimal `json:"loan_amount"`
	LoanBalance     decimal.Decimal `json:"loan_balance"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	LoanTermYears   int             `json:"loan_term_years"`
	VacancyRate     decimal.Decimal `json:"vacancy_rate"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LeaseStatus is the lifecycle state of a lease. Only active leases earn rent.
type LeaseStatus string

const (
	LeaseStatusActive  LeaseStatus = "ACTIVE"
	LeaseStatusExpired LeaseStatus = "EXPIRED"
	LeaseStatusPending LeaseStatus = "PENDING"
)

// Lease is a tenancy on a property.
type Lease struct {
	ID          string          `json:"id"`
	PropertyID  string          `json:"property_id"`
	TenantName  string          `json:"tenant_name"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	Status      LeaseStatus     `json:"status"`
}

// AdditionalIncome is non-rent income such as parking or laundry.
type AdditionalIncome struct {
	ID          string              `json:"id"`
	PropertyID  string              `json:"property_id"`
	Description string              `json:"description"`
	Amount      decimal.Decimal     `json:"amount"`
	Frequency   analytics.Frequency `json:"frequency"`
}

// ExpenseTemplate holds a property's fixed monthly operating expenses.
type ExpenseTemplate struct {
	PropertyTax        decimal.Decimal `json:"property_tax"`
	Insurance          decimal.Decimal `json:"insurance"`
	HOA                decimal.Decimal `json:"hoa"`
	Maintenance        decimal.Decimal `json:"maintenance"`
	PropertyManagement decimal.Decimal `json:"property_management"`
	Utilities          decimal.Decimal `json:"utilities"`
	Landscaping        decimal.Decimal `json:"landscaping"`
	PestControl        decimal.Decimal `json:"pest_control"`
	RepairsReserve     decimal.Decimal `json:"repairs_reserve"`
	CapexReserve       decimal.Decimal `json:"capex_reserve"`
	Cleaning           decimal.Decimal `json:"cleaning"`
	Other              decimal.Decimal `json:"other"`
}

// Items lists the twelve line items in a fixed order.
func (e ExpenseTemplate) Items() []decimal.Decimal {
	return []decimal.Decimal{
		e.PropertyTax, e.Insurance, e.HOA, e.Maintenance, e.PropertyManagement, e.Utilities,
		e.Landscaping, e.PestControl, e.RepairsReserve, e.CapexReserve, e.Cleaning, e.Other,
	}
}

// Financials is a property with the metrics derived from it.
type Financials struct {
	Property Property                  `json:"property"`
	Metrics  analytics.PropertyMetrics `json:"metrics"`
}

// SummaryEntry is one property's line in the portfolio summary.
type SummaryEntry struct {
	PropertyID          string          `json:"property_id"`
	Name                string          `json:"name"`
	CurrentValue        decimal.Decimal `json:"current_value"`
	Equity              decimal.Decimal `json:"equity"`
	LoanBalance         decimal.Decimal `json:"loan_balance"`
	AnnualNOI           decimal.Decimal `json:"annual_noi"`
	AnnualCashFlow      decimal.Decimal `json:"annual_cash_flow"`
	CapRate             decimal.Decimal `json:"cap_rate"`
	CashOnCashReturn    decimal.Decimal `json:"cash_on_cash_return"`
	DebtServiceCoverage decimal.Decimal `json:"debt_service_coverage"`
	OnePercentRule      bool            `json:"one_percent_rule"`
}

// PortfolioSummary ranks a user's properties by cap rate and totals them.
type PortfolioSummary struct {
	Properties          []SummaryEntry  `json:"properties"`
	TotalValue          decimal.Decimal `json:"total_value"`
	TotalEquity         decimal.Decimal `json:"total_equity"`
	TotalLoanBalance    decimal.Decimal `json:"total_loan_balance"`
	TotalAnnualNOI      decimal.Decimal `json:"total_annual_noi"`
	TotalAnnualCashFlow decimal.Decimal `json:"total_annual_cash_flow"`
	WeightedCapRate     decimal.Decimal `json:"weighted_cap_rate"`
	PortfolioLTV        decimal.Decimal `json:"portfolio_loan_to_value"`
}
