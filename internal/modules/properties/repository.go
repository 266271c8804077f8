package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/analytics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const propertiesColumns = `id, user_id, name, purchase_price, current_value, down_payment, closing_costs,
renovation_costs, loan_amount, loan_balance, interest_rate, loan_term_years, vacancy_rate, created_at`

// Repository reads property records
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a new property repository
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{
		log: log.With().Str("repo", "property").Logger(),
	}
}

// GetByID retrieves a property, or a NotFound error
func (r *Repository) GetByID(ctx context.Context, q database.Querier, id string) (*Property, error) {
	row := q.QueryRowContext(ctx, "SELECT "+propertiesColumns+" FROM properties WHERE id = ?", id)

	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("property", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

// ListByUser returns the user's properties ordered by name then id
func (r *Repository) ListByUser(ctx context.Context, q database.Querier, userID string) ([]Property, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+propertiesColumns+" FROM properties WHERE user_id = ? ORDER BY name ASC, id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

// ListLeases returns a property's leases, optionally limited to one status
func (r *Repository) ListLeases(ctx context.Context, q database.Querier, propertyID string, status LeaseStatus) ([]Lease, error) {
	query := "SELECT id, property_id, tenant_name, monthly_rent, status FROM leases WHERE property_id = ?"
	args := []any{propertyID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leases: %w", err)
	}
	defer rows.Close()

	var leases []Lease
	for rows.Next() {
		var (
			l  Lease
			st string
		)
		if err := rows.Scan(&l.ID, &l.PropertyID, &l.TenantName, &l.MonthlyRent, &st); err != nil {
			return nil, fmt.Errorf("failed to scan lease: %w", err)
		}
		l.Status = LeaseStatus(st)
		leases = append(leases, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leases: %w", err)
	}
	return leases, nil
}

// ListAdditionalIncome returns a property's additional income records
func (r *Repository) ListAdditionalIncome(ctx context.Context, q database.Querier, propertyID string) ([]AdditionalIncome, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, property_id, description, amount, frequency
		 FROM additional_income WHERE property_id = ? ORDER BY id ASC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query additional income: %w", err)
	}
	defer rows.Close()

	var items []AdditionalIncome
	for rows.Next() {
		var (
			a         AdditionalIncome
			frequency string
		)
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.Description, &a.Amount, &frequency); err != nil {
			return nil, fmt.Errorf("failed to scan additional income: %w", err)
		}
		a.Frequency = analytics.Frequency(frequency)
		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating additional income: %w", err)
	}
	return items, nil
}

// GetExpenseTemplate returns a property's expense template. A property
// without one has no operating expenses.
func (r *Repository) GetExpenseTemplate(ctx context.Context, q database.Querier, propertyID string) (ExpenseTemplate, error) {
	var e ExpenseTemplate
	err := q.QueryRowContext(ctx, `
		SELECT property_tax, insurance, hoa, maintenance, property_management, utilities,
		       landscaping, pest_control, repairs_reserve, capex_reserve, cleaning, other
		FROM expense_templates WHERE property_id = ?`, propertyID).Scan(
		&e.PropertyTax, &e.Insurance, &e.HOA, &e.Maintenance, &e.PropertyManagement, &e.Utilities,
		&e.Landscaping, &e.PestControl, &e.RepairsReserve, &e.CapexReserve, &e.Cleaning, &e.Other,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return zeroTemplate(), nil
	}
	if err != nil {
		return ExpenseTemplate{}, fmt.Errorf("failed to get expense template for %s: %w", propertyID, err)
	}
	return e, nil
}

func zeroTemplate() ExpenseTemplate {
	z := decimal.Zero
	return ExpenseTemplate{
		PropertyTax: z, Insurance: z, HOA: z, Maintenance: z, PropertyManagement: z, Utilities: z,
		Landscaping: z, PestControl: z, RepairsReserve: z, CapexReserve: z, Cleaning: z, Other: z,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (Property, error) {
	var (
		p         Property
		createdAt int64
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.PurchasePrice,
		&p.CurrentValue,
		&p.DownPayment,
		&p.ClosingCosts,
		&p.RenovationCosts,
		&p.LoanAmount,
		&p.LoanBalance,
		&p.InterestRate,
		&p.LoanTermYears,
		&p.VacancyRate,
		&createdAt,
	)
	if err != nil {
		return Property{}, err
	}

	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}
