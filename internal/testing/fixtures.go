package testing

import (
	"database/sql"
	"testing"
	"time"
)

// Fixture identifiers shared by tests across packages.
const (
	UserID      = "user-1"
	OtherUserID = "user-2"
)

// AccountFixture describes an account row.
type AccountFixture struct {
	ID           string
	UserID       string
	Name         string
	AccountType  string
	TaxTreatment string
}

// InsertAccount writes an account row directly.
func InsertAccount(t *testing.T, db *sql.DB, a AccountFixture) {
	t.Helper()

	if a.UserID == "" {
		a.UserID = UserID
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if a.AccountType == "" {
		a.AccountType = "BROKERAGE"
	}
	if a.TaxTreatment == "" {
		a.TaxTreatment = "TAXABLE"
	}

	_, err := db.Exec(`INSERT INTO accounts (id, user_id, name, account_type, tax_treatment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.AccountType, a.TaxTreatment, time.Now().Unix())
	if err != nil {
		t.Fatalf("Failed to insert account %s: %v", a.ID, err)
	}
}

// PropertyFixture describes a property row. Decimal fields are strings so
// fixtures read like the stored values.
type PropertyFixture struct {
	ID              string
	UserID          string
	Name            string
	PurchasePrice   string
	CurrentValue    string
	DownPayment     string
	ClosingCosts    string
	RenovationCosts string
	LoanAmount      string
	LoanBalance     string
	InterestRate    string
	LoanTermYears   int
	VacancyRate     string
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// InsertProperty writes a property row directly.
func InsertProperty(t *testing.T, db *sql.DB, p PropertyFixture) {
	t.Helper()

	if p.UserID == "" {
		p.UserID = UserID
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	_, err := db.Exec(`INSERT INTO properties (
			id, user_id, name, purchase_price, current_value, down_payment, closing_costs,
			renovation_costs, loan_amount, loan_balance, interest_rate, loan_term_years,
			vacancy_rate, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, orZero(p.PurchasePrice), orZero(p.CurrentValue),
		orZero(p.DownPayment), orZero(p.ClosingCosts), orZero(p.RenovationCosts),
		orZero(p.LoanAmount), orZero(p.LoanBalance), orZero(p.InterestRate), p.LoanTermYears,
		orZero(p.VacancyRate), time.Now().Unix())
	if err != nil {
		t.Fatalf("Failed to insert property %s: %v", p.ID, err)
	}
}

// InsertLease writes a lease row directly.
func InsertLease(t *testing.T, db *sql.DB, id, propertyID, monthlyRent, status string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO leases (id, property_id, tenant_name, monthly_rent, status)
		VALUES (?, ?, ?, ?, ?)`, id, propertyID, "Tenant "+id, monthlyRent, status)
	if err != nil {
		t.Fatalf("Failed to insert lease %s: %v", id, err)
	}
}

// InsertAdditionalIncome writes an additional income row directly.
func InsertAdditionalIncome(t *testing.T, db *sql.DB, id, propertyID, amount, frequency string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO additional_income (id, property_id, description, amount, frequency)
		VALUES (?, ?, ?, ?, ?)`, id, propertyID, "Income "+id, amount, frequency)
	if err != nil {
		t.Fatalf("Failed to insert additional income %s: %v", id, err)
	}
}

// InsertExpenseTemplate writes an expense template with the given line items.
// Missing items are stored as zero.
func InsertExpenseTemplate(t *testing.T, db *sql.DB, propertyID string, items map[string]string) {
	t.Helper()

	columns := []string{
		"property_tax", "insurance", "hoa", "maintenance", "property_management", "utilities",
		"landscaping", "pest_control", "repairs_reserve", "capex_reserve", "cleaning", "other",
	}
	args := []any{propertyID}
	for _, c := range columns {
		args = append(args, orZero(items[c]))
	}

	_, err := db.Exec(`INSERT INTO expense_templates (
			property_id, property_tax, insurance, hoa, maintenance, property_management, utilities,
			landscaping, pest_control, repairs_reserve, capex_reserve, cleaning, other
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		t.Fatalf("Failed to insert expense template for %s: %v", propertyID, err)
	}
}
