package reports

import (
	"context"
	"database/sql"
	"time"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/aristath/holdings/internal/utils"
	"github.com/rs/zerolog"
)

// Service builds reports for a user, optionally scoped to one account.
// Every report reads one consistent snapshot inside a read-only transaction.
type Service struct {
	db           *sql.DB
	accounts     ledger.AccountStore
	positions    ledger.PositionStore
	transactions ledger.TransactionStore
	policy       ledger.OversellPolicy
	log          zerolog.Logger
}

// NewService creates a new reports service. policy must match the ledger's
// so point-in-time reconstructions agree with the stored positions.
func NewService(
	db *sql.DB,
	accounts ledger.AccountStore,
	positions ledger.PositionStore,
	transactions ledger.TransactionStore,
	policy ledger.OversellPolicy,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:           db,
		accounts:     accounts,
		positions:    positions,
		transactions: transactions,
		policy:       policy,
		log:          log.With().Str("service", "reports").Logger(),
	}
}

// snapshot is what one report read sees.
type snapshot struct {
	accounts []ledger.Account
	holdings []Holding
}

func (s *Service) read(ctx context.Context, userID, accountID string, fn func(tx *sql.Tx, snap *snapshot) error) error {
	return database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var requested []string
		if accountID != "" {
			requested = []string{accountID}
		}
		accounts, err := ledger.ScopeAccounts(ctx, tx, s.accounts, userID, requested)
		if err != nil {
			return err
		}

		snap := &snapshot{accounts: accounts}
		if len(accounts) == 0 {
			return fn(tx, snap)
		}

		positions, err := s.positions.List(ctx, tx, ledger.PositionFilter{AccountIDs: ledger.AccountIDs(accounts)})
		if err != nil {
			return err
		}
		byID := make(map[string]ledger.Account, len(accounts))
		for _, a := range accounts {
			byID[a.ID] = a
		}
		for _, p := range positions {
			snap.holdings = append(snap.holdings, Holding{Position: p, Account: byID[p.AccountID]})
		}
		return fn(tx, snap)
	})
}

func (s *Service) listTransactions(ctx context.Context, tx *sql.Tx, snap *snapshot, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	if len(snap.accounts) == 0 {
		return nil, nil
	}
	filter.AccountIDs = ledger.AccountIDs(snap.accounts)
	return s.transactions.List(ctx, tx, filter)
}

// GetAllocationReport breaks the user's holdings down by category, account
// type, tax treatment and account. With asOf set, shares and cost basis are
// rebuilt from trades on or before that date and valued at current prices.
func (s *Service) GetAllocationReport(ctx context.Context, userID, accountID string, asOf *time.Time) (*AllocationReport, error) {
	defer utils.OperationTimer("allocation_report", s.log)()

	var report *AllocationReport
	err := s.read(ctx, userID, accountID, func(tx *sql.Tx, snap *snapshot) error {
		holdings := snap.holdings
		if asOf != nil {
			trades, err := s.listTransactions(ctx, tx, snap, ledger.TransactionFilter{
				Types: []ledger.TransactionType{ledger.TransactionTypeBuy, ledger.TransactionTypeSell},
				Range: asOfRange(*asOf),
			})
			if err != nil {
				return err
			}
			holdings, err = reconstruct(holdings, trades, s.policy)
			if err != nil {
				return err
			}
		}
		report = BuildAllocation(holdings)
		report.AsOf = asOf
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("accounts", len(report.ByAccount)).
		Str("total_value", report.TotalValue.String()).
		Msg("Allocation report built")
	return report, nil
}

// GetIncomeReport summarizes income paid over the range.
func (s *Service) GetIncomeReport(ctx context.Context, userID, accountID string, rng domain.DateRange) (*IncomeReport, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var report *IncomeReport
	err := s.read(ctx, userID, accountID, func(tx *sql.Tx, snap *snapshot) error {
		txs, err := s.listTransactions(ctx, tx, snap, ledger.TransactionFilter{
			Types: []ledger.TransactionType{
				ledger.TransactionTypeDividend,
				ledger.TransactionTypeIncome,
				ledger.TransactionTypeDistribution,
			},
			Range: rng,
		})
		if err != nil {
			return err
		}
		positions := make(map[string]ledger.Position, len(snap.holdings))
		for _, h := range snap.holdings {
			positions[h.Position.ID] = h.Position
		}
		report = BuildIncome(txs, positions, rng)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetActivityReport summarizes every transaction in the range.
func (s *Service) GetActivityReport(ctx context.Context, userID, accountID string, rng domain.DateRange) (*ActivityReport, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var report *ActivityReport
	err := s.read(ctx, userID, accountID, func(tx *sql.Tx, snap *snapshot) error {
		txs, err := s.listTransactions(ctx, tx, snap, ledger.TransactionFilter{Range: rng})
		if err != nil {
			return err
		}
		report = BuildActivity(txs, rng)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetGainLossReport reports realized gains from SELLs in the range and
// unrealized gains of the current positions.
func (s *Service) GetGainLossReport(ctx context.Context, userID, accountID string, typ GainLossType, rng domain.DateRange) (*GainLossReport, error) {
	if _, err := ParseGainLossType(string(typ)); err != nil {
		return nil, err
	}
	if typ == "" {
		typ = GainLossAll
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var report *GainLossReport
	err := s.read(ctx, userID, accountID, func(tx *sql.Tx, snap *snapshot) error {
		var sells []ledger.Transaction
		if typ.includesRealized() {
			var err error
			sells, err = s.listTransactions(ctx, tx, snap, ledger.TransactionFilter{
				Types: []ledger.TransactionType{ledger.TransactionTypeSell},
				Range: rng,
			})
			if err != nil {
				return err
			}
		}
		positions := make([]ledger.Position, 0, len(snap.holdings))
		for _, h := range snap.holdings {
			positions = append(positions, h.Position)
		}
		report = BuildGainLoss(typ, sells, positions, rng)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetHoldingsReport returns a snapshot of every position.
func (s *Service) GetHoldingsReport(ctx context.Context, userID, accountID string) (*HoldingsReport, error) {
	var report *HoldingsReport
	err := s.read(ctx, userID, accountID, func(_ *sql.Tx, snap *snapshot) error {
		report = BuildHoldings(snap.holdings)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
