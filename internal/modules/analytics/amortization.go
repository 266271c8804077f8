package analytics

import (
	"github.com/shopspring/decimal"
)

var (
	one           = decimal.NewFromInt(1)
	monthsPerYear = decimal.NewFromInt(12)
	// 12 months * 100 percent
	annualPercentToMonthly = decimal.NewFromInt(1200)
)

// powPrecision bounds intermediate digits while raising (1+r) to n.
const powPrecision = 24

// AmortizationEntry is one month of a fixed-rate loan schedule.
type AmortizationEntry struct {
	Month     int             `json:"month"`
	Payment   decimal.Decimal `json:"payment"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"balance"`
}

// MonthlyPayment returns the fixed monthly payment of a loan, rounded to
// cents: P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate and n the
// number of months. A zero rate spreads the principal evenly; a zero term
// or principal pays nothing.
func MonthlyPayment(principal, annualRatePct decimal.Decimal, termYears int) decimal.Decimal {
	n := termYears * 12
	if n <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}

	r := annualRatePct.Div(annualPercentToMonthly)
	if !r.IsPositive() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	}

	growth := powInt(one.Add(r), n)
	return principal.Mul(r).Mul(growth).Div(growth.Sub(one)).Round(2)
}

// AmortizationSchedule lists every month of the loan. Interest is charged
// on the outstanding balance and rounded to cents; the final payment
// absorbs the rounding residue so the principal paid sums to the loan.
func AmortizationSchedule(principal, annualRatePct decimal.Decimal, termYears int) []AmortizationEntry {
	payment := MonthlyPayment(principal, annualRatePct, termYears)
	if payment.IsZero() {
		return nil
	}

	n := termYears * 12
	r := decimal.Max(annualRatePct.Div(annualPercentToMonthly), decimal.Zero)
	balance := principal
	schedule := make([]AmortizationEntry, 0, n)

	for month := 1; month <= n && balance.IsPositive(); month++ {
		interest := balance.Mul(r).Round(2)
		paid := payment
		principalPart := paid.Sub(interest)

		if month == n || principalPart.GreaterThan(balance) {
			principalPart = balance
			paid = principalPart.Add(interest)
		}
		balance = balance.Sub(principalPart)

		schedule = append(schedule, AmortizationEntry{
			Month:     month,
			Payment:   paid,
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
	}

	return schedule
}

// powInt raises base to a non-negative integer power by squaring, rounding
// intermediates to powPrecision places.
func powInt(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(powPrecision)
		}
		base = base.Mul(base).Round(powPrecision)
		exp >>= 1
	}
	return result
}
