package properties

import (
	"context"
	"database/sql"
	"sort"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/analytics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store defines the property reads the service needs
type Store interface {
	GetByID(ctx context.Context, q database.Querier, id string) (*Property, error)
	ListByUser(ctx context.Context, q database.Querier, userID string) ([]Property, error)
	ListLeases(ctx context.Context, q database.Querier, propertyID string, status LeaseStatus) ([]Lease, error)
	ListAdditionalIncome(ctx context.Context, q database.Querier, propertyID string) ([]AdditionalIncome, error)
	GetExpenseTemplate(ctx context.Context, q database.Querier, propertyID string) (ExpenseTemplate, error)
}

var _ Store = (*Repository)(nil)

// Service derives property financials. Each call reads one consistent
// snapshot of the property and its leases, income and expenses.
type Service struct {
	db    *sql.DB
	store Store
	log   zerolog.Logger
}

// NewService creates a new property financials service
func NewService(db *sql.DB, store Store, log zerolog.Logger) *Service {
	return &Service{
		db:    db,
		store: store,
		log:   log.With().Str("service", "properties").Logger(),
	}
}

// GetPropertyFinancials returns the full metrics of one of the user's properties.
func (s *Service) GetPropertyFinancials(ctx context.Context, userID, propertyID string) (*Financials, error) {
	var f *Financials
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.authorize(ctx, tx, userID, propertyID)
		if err != nil {
			return err
		}
		f, err = s.financials(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetAmortizationSchedule returns the month-by-month schedule of the
// property's original loan.
func (s *Service) GetAmortizationSchedule(ctx context.Context, userID, propertyID string) ([]analytics.AmortizationEntry, error) {
	var p *Property
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		p, err = s.authorize(ctx, tx, userID, propertyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return analytics.AmortizationSchedule(p.LoanAmount, p.InterestRate, p.LoanTermYears), nil
}

// GetPortfolioSummary ranks the user's properties by cap rate, highest
// first, and totals them. The weighted cap rate weights each property by
// its current value.
func (s *Service) GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	var all []*Financials
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		props, err := s.store.ListByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		for i := range props {
			f, err := s.financials(ctx, tx, &props[i])
			if err != nil {
				return err
			}
			all = append(all, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		Properties:          make([]SummaryEntry, 0, len(all)),
		TotalValue:          decimal.Zero,
		TotalEquity:         decimal.Zero,
		TotalLoanBalance:    decimal.Zero,
		TotalAnnualNOI:      decimal.Zero,
		TotalAnnualCashFlow: decimal.Zero,
	}
	weightedCap := decimal.Zero

	for _, f := range all {
		m := f.Metrics
		summary.Properties = append(summary.Properties, SummaryEntry{
			PropertyID:          f.Property.ID,
			Name:                f.Property.Name,
			CurrentValue:        f.Property.CurrentValue,
			Equity:              m.Equity,
			LoanBalance:         f.Property.LoanBalance,
			AnnualNOI:           m.AnnualNOI,
			AnnualCashFlow:      m.AnnualCashFlow,
			CapRate:             m.CapRate,
			CashOnCashReturn:    m.CashOnCashReturn,
			DebtServiceCoverage: m.DebtServiceCoverage,
			OnePercentRule:      m.Rules.OnePercent.Pass,
		})

		summary.TotalValue = summary.TotalValue.Add(f.Property.CurrentValue)
		summary.TotalEquity = summary.TotalEquity.Add(m.Equity)
		summary.TotalLoanBalance = summary.TotalLoanBalance.Add(f.Property.LoanBalance)
		summary.TotalAnnualNOI = summary.TotalAnnualNOI.Add(m.AnnualNOI)
		summary.TotalAnnualCashFlow = summary.TotalAnnualCashFlow.Add(m.AnnualCashFlow)
		weightedCap = weightedCap.Add(m.CapRate.Mul(f.Property.CurrentValue))
	}

	sort.SliceStable(summary.Properties, func(i, j int) bool {
		a, b := summary.Properties[i], summary.Properties[j]
		if !a.CapRate.Equal(b.CapRate) {
			return a.CapRate.GreaterThan(b.CapRate)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PropertyID < b.PropertyID
	})

	summary.WeightedCapRate = domain.SafeDiv(weightedCap, summary.TotalValue).Round(2)
	summary.PortfolioLTV = domain.Percentage(summary.TotalLoanBalance, summary.TotalValue).Round(2)

	s.log.Debug().Str("user_id", userID).Int("properties", len(all)).Msg("Property portfolio summarised")
	return summary, nil
}

func (s *Service) authorize(ctx context.Context, q database.Querier, userID, propertyID string) (*Property, error) {
	p, err := s.store.GetByID(ctx, q, propertyID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.UnauthorizedError("property", propertyID)
	}
	return p, nil
}

func (s *Service) financials(ctx context.Context, q database.Querier, p *Property) (*Financials, error) {
	leases, err := s.store.ListLeases(ctx, q, p.ID, LeaseStatusActive)
	if err != nil {
		return nil, err
	}
	income, err := s.store.ListAdditionalIncome(ctx, q, p.ID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.GetExpenseTemplate(ctx, q, p.ID)
	if err != nil {
		return nil, err
	}

	in := analytics.PropertyInputs{
		PurchasePrice:   p.PurchasePrice,
		CurrentValue:    p.CurrentValue,
		DownPayment:     p.DownPayment,
		ClosingCosts:    p.ClosingCosts,
		RenovationCosts: p.RenovationCosts,
		LoanAmount:      p.LoanAmount,
		LoanBalance:     p.LoanBalance,
		InterestRate:    p.InterestRate,
		LoanTermYears:   p.LoanTermYears,
		VacancyRate:     p.VacancyRate,
		MonthlyExpenses: expenses.Items(),
	}
	for _, l := range leases {
		in.MonthlyRents = append(in.MonthlyRents, l.MonthlyRent)
	}
	for _, a := range income {
		in.OtherIncome = append(in.OtherIncome, analytics.IncomeItem{Amount: a.Amount, Frequency: a.Frequency})
	}

	return &Financials{Property: *p, Metrics: analytics.ComputePropertyMetrics(in)}, nil
}
