// Package ledger owns the transaction log and the positions derived from it.
//
// Positions are cached aggregates: their share count, cost basis and gain
// figures are rewritten only by the recompute step, which runs inside the
// same database transaction as the transaction write that triggered it.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction in the log.
type TransactionType string

const (
	TransactionTypeBuy          TransactionType = "BUY"
	TransactionTypeSell         TransactionType = "SELL"
	TransactionTypeContribution TransactionType = "CONTRIBUTION"
	TransactionTypeWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionTypeDividend     TransactionType = "DIVIDEND"
	TransactionTypeIncome       TransactionType = "INCOME"
	TransactionTypeDistribution TransactionType = "DISTRIBUTION"
	TransactionTypeExpense      TransactionType = "EXPENSE"
)

// TransactionTypes lists every type in canonical order.
var TransactionTypes = []TransactionType{
	TransactionTypeBuy,
	TransactionTypeSell,
	TransactionTypeContribution,
	TransactionTypeWithdrawal,
	TransactionTypeDividend,
	TransactionTypeIncome,
	TransactionTypeDistribution,
	TransactionTypeExpense,
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTrade reports whether t changes a position's shares and cost basis.
func (t TransactionType) IsTrade() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// IsIncome reports whether t is income paid out by a holding.
func (t TransactionType) IsIncome() bool {
	return t == TransactionTypeDividend || t == TransactionTypeIncome || t == TransactionTypeDistribution
}

// FlowSign is the sign a transaction's amount carries as a cash flow into
// the position: +1 for money put in or earned, -1 for money taken out, 0
// for types that carry no flow.
func (t TransactionType) FlowSign() int {
	switch t {
	case TransactionTypeBuy, TransactionTypeContribution,
		TransactionTypeDividend, TransactionTypeIncome, TransactionTypeDistribution:
		return 1
	case TransactionTypeSell, TransactionTypeWithdrawal:
		return -1
	default:
		return 0
	}
}

// Transaction is a dated monetary event in an account's log.
type Transaction struct {
	ID               string              `json:"id"`
	AccountID        string              `json:"account_id"`
	PositionID       string              `json:"position_id,omitempty"`
	Type             TransactionType     `json:"type"`
	Date             time.Time           `json:"date"`
	Shares           decimal.Decimal     `json:"shares"`
	PricePerShare    decimal.Decimal     `json:"price_per_share"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	Fees             decimal.Decimal     `json:"fees"`
	RealizedGainLoss decimal.NullDecimal `json:"realized_gain_loss"` // SELL only, written by recompute
	Reconciled       bool                `json:"reconciled"`
	Notes            string              `json:"notes,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// CashFlow returns the signed amount this transaction contributes as a
// cash flow into its position.
func (t Transaction) CashFlow() decimal.Decimal {
	switch t.Type.FlowSign() {
	case 1:
		return t.TotalAmount.Abs()
	case -1:
		return t.TotalAmount.Abs().Neg()
	default:
		return decimal.Zero
	}
}

// AffectsPosition reports whether writing t requires recomputing a position.
func (t Transaction) AffectsPosition() bool {
	return t.PositionID != "" && t.Type.IsTrade()
}

// Category is the asset class a position is reported under.
type Category string

const (
	CategoryStock      Category = "STOCK"
	CategoryETF        Category = "ETF"
	CategoryMutualFund Category = "MUTUAL_FUND"
	CategoryBond       Category = "BOND"
	CategoryCrypto     Category = "CRYPTO"
	CategoryRealEstate Category = "REAL_ESTATE"
	CategoryCash       Category = "CASH"
	CategoryOther      Category = "OTHER"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryStock, CategoryETF, CategoryMutualFund, CategoryBond,
		CategoryCrypto, CategoryRealEstate, CategoryCash, CategoryOther:
		return true
	}
	return false
}

// Position is a holding whose figures are derived from its BUY/SELL history.
type Position struct {
	ID                string              `json:"id"`
	AccountID         string              `json:"account_id"`
	Symbol            string              `json:"symbol"`
	Name              string              `json:"name"`
	Category          Category            `json:"category"`
	Shares            decimal.Decimal     `json:"shares"`
	CostBasisTotal    decimal.Decimal     `json:"cost_basis_total"`
	CostBasisPerShare decimal.Decimal     `json:"cost_basis_per_share"`
	CurrentPrice      decimal.NullDecimal `json:"current_price"` // NULL in storage is a corrupt state
	CurrentValue      decimal.Decimal     `json:"current_value"`
	UnrealizedGain    decimal.Decimal     `json:"unrealized_gain_loss"`
	RealizedGain      decimal.Decimal     `json:"realized_gain_loss"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Price returns the current price, or zero when none is stored.
func (p Position) Price() decimal.Decimal {
	if !p.CurrentPrice.Valid {
		return decimal.Zero
	}
	return p.CurrentPrice.Decimal
}

// revalue recomputes the price-dependent fields from shares, cost basis and price.
func (p *Position) revalue() {
	p.CurrentValue = p.Shares.Mul(p.Price())
	p.UnrealizedGain = p.CurrentValue.Sub(p.CostBasisTotal)
}

// applyCostBasis copies a calculator result onto the position and revalues it.
func (p *Position) applyCostBasis(res CostBasisResult) {
	p.Shares = res.TotalShares
	p.CostBasisTotal = res.TotalCostBasis
	p.CostBasisPerShare = res.CostBasisPerShare
	p.RealizedGain = res.RealizedGainLoss
	p.revalue()
}

// AccountType is the kind of account a position is held in.
type AccountType string

const (
	AccountTypeBrokerage  AccountType = "BROKERAGE"
	AccountTypeRetirement AccountType = "RETIREMENT"
	AccountTypeEducation  AccountType = "EDUCATION"
	AccountTypeHSA        AccountType = "HSA"
	AccountTypeOther      AccountType = "OTHER"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeBrokerage, AccountTypeRetirement, AccountTypeEducation, AccountTypeHSA, AccountTypeOther:
		return true
	}
	return false
}

// TaxTreatment is how an account is taxed. It only drives allocation reporting.
type TaxTreatment string

const (
	TaxTreatmentTaxable     TaxTreatment = "TAXABLE"
	TaxTreatmentTaxDeferred TaxTreatment = "TAX_DEFERRED"
	TaxTreatmentTaxExempt   TaxTreatment = "TAX_EXEMPT"
)

// IsValid reports whether t is a known tax treatment.
func (t TaxTreatment) IsValid() bool {
	return t == TaxTreatmentTaxable || t == TaxTreatmentTaxDeferred || t == TaxTreatmentTaxExempt
}

// Account owns positions and transactions.
type Account struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Name         string       `json:"name"`
	AccountType  AccountType  `json:"account_type"`
	TaxTreatment TaxTreatment `json:"tax_treatment"`
	CreatedAt    time.Time    `json:"created_at"`
}
