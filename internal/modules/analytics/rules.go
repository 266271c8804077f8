package analytics

import "github.com/shopspring/decimal"

var (
	onePercent      = decimal.RequireFromString("0.01")
	twoPercent      = decimal.RequireFromString("0.02")
	rentCoverFactor = decimal.RequireFromString("1.35")
)

// RuleCheck is a pass/fail rule of thumb plus the threshold it computed.
type RuleCheck struct {
	Value decimal.Decimal `json:"value"`
	Pass  bool            `json:"pass"`
}

// RuleChecks groups the rental rules of thumb.
type RuleChecks struct {
	OnePercent        RuleCheck `json:"one_percent_rule"`
	TwoPercent        RuleCheck `json:"two_percent_rule"`
	OnePointThreeFive RuleCheck `json:"one_point_three_five_rule"`
}

// CheckRules evaluates the rules of thumb.
//
// The 1% and 2% rules pass when monthly rent reaches that share of the
// purchase price. The 1.35 rule passes when rent times 1.35 covers the
// monthly mortgage payment.
func CheckRules(purchasePrice, monthlyRent, mortgagePayment decimal.Decimal) RuleChecks {
	onePct := purchasePrice.Mul(onePercent)
	twoPct := purchasePrice.Mul(twoPercent)
	cover := monthlyRent.Mul(rentCoverFactor)

	return RuleChecks{
		OnePercent:        RuleCheck{Value: onePct, Pass: monthlyRent.GreaterThanOrEqual(onePct)},
		TwoPercent:        RuleCheck{Value: twoPct, Pass: monthlyRent.GreaterThanOrEqual(twoPct)},
		OnePointThreeFive: RuleCheck{Value: cover, Pass: cover.GreaterThanOrEqual(mortgagePayment)},
	}
}
