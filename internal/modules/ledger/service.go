package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/analytics"
	"github.com/aristath/holdings/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionStore defines transaction log persistence
type TransactionStore interface {
	Create(ctx context.Context, q database.Querier, t *Transaction) error
	Update(ctx context.Context, q database.Querier, t *Transaction) error
	Delete(ctx context.Context, q database.Querier, id string) error
	GetByID(ctx context.Context, q database.Querier, id string) (*Transaction, error)
	ListTradesForPosition(ctx context.Context, q database.Querier, positionID string) ([]Transaction, error)
	List(ctx context.Context, q database.Querier, filter TransactionFilter) ([]Transaction, error)
	SetRealizedGainLoss(ctx context.Context, q database.Querier, id string, gain decimal.NullDecimal) error
}

// PositionStore defines position persistence
type PositionStore interface {
	Create(ctx context.Context, q database.Querier, p *Position) error
	GetByID(ctx context.Context, q database.Querier, id string) (*Position, error)
	UpdateDerived(ctx context.Context, q database.Querier, p *Position) error
	UpdatePrice(ctx context.Context, q database.Querier, p *Position) error
	List(ctx context.Context, q database.Querier, filter PositionFilter) ([]Position, error)
}

// AccountStore defines account persistence
type AccountStore interface {
	Create(ctx context.Context, q database.Querier, a *Account) error
	GetByID(ctx context.Context, q database.Querier, id string) (*Account, error)
	ListByUser(ctx context.Context, q database.Querier, userID string) ([]Account, error)
}

// Compile-time checks that the repositories implement the stores
var (
	_ TransactionStore = (*TransactionRepository)(nil)
	_ PositionStore    = (*PositionRepository)(nil)
	_ AccountStore     = (*AccountRepository)(nil)
)

// TransactionInput is a new transaction as submitted by a caller.
// For BUY and SELL a zero TotalAmount is derived from shares, price and fees.
type TransactionInput struct {
	AccountID     string
	PositionID    string
	Type          TransactionType
	Date          time.Time
	Shares        decimal.Decimal
	PricePerShare decimal.Decimal
	TotalAmount   decimal.Decimal
	Fees          decimal.Decimal
	Reconciled    bool
	Notes         string
}

// TransactionPatch holds the fields an edit changes. Nil fields are left alone.
type TransactionPatch struct {
	PositionID    *string
	Type          *TransactionType
	Date          *time.Time
	Shares        *decimal.Decimal
	PricePerShare *decimal.Decimal
	TotalAmount   *decimal.Decimal
	Fees          *decimal.Decimal
	Reconciled    *bool
	Notes         *string
}

// AccountInput is a new account as submitted by a caller.
type AccountInput struct {
	Name         string
	AccountType  AccountType
	TaxTreatment TaxTreatment
}

// PositionInput is a new, empty position.
type PositionInput struct {
	AccountID    string
	Symbol       string
	Name         string
	Category     Category
	CurrentPrice decimal.Decimal
}

// Service is the position ledger.
//
// It owns every write to the transaction log and is the only code that
// changes a position's shares and cost basis. A write that touches a BUY or
// SELL and the recompute of the affected positions run in one database
// transaction: they commit together or not at all.
//
// Connections begin write transactions with an immediate lock, so two
// writers touching the same position are serialized by the store and each
// recompute reads the log as committed by the previous one.
type Service struct {
	db           *sql.DB
	accounts     AccountStore
	positions    PositionStore
	transactions TransactionStore
	policy       OversellPolicy
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a new ledger service
func NewService(
	db *sql.DB,
	accounts AccountStore,
	positions PositionStore,
	transactions TransactionStore,
	policy OversellPolicy,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:           db,
		accounts:     accounts,
		positions:    positions,
		transactions: transactions,
		policy:       policy,
		now:          func() time.Time { return time.Now().UTC() },
		log:          log.With().Str("service", "ledger").Logger(),
	}
}

// Policy returns the oversell policy recomputes run under.
func (s *Service) Policy() OversellPolicy {
	return s.policy
}

// OpenAccount creates an account for a user.
func (s *Service) OpenAccount(ctx context.Context, userID string, in AccountInput) (*Account, error) {
	v := domain.NewValidationError()
	if strings.TrimSpace(userID) == "" {
		v.Add("user_id", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "is required")
	}
	if in.AccountType == "" {
		in.AccountType = AccountTypeBrokerage
	}
	if in.TaxTreatment == "" {
		in.TaxTreatment = TaxTreatmentTaxable
	}
	if !in.AccountType.IsValid() {
		v.Add("account_type", fmt.Sprintf("unknown account type %q", in.AccountType))
	}
	if !in.TaxTreatment.IsValid() {
		v.Add("tax_treatment", fmt.Sprintf("unknown tax treatment %q", in.TaxTreatment))
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	a := &Account{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		AccountType:  in.AccountType,
		TaxTreatment: in.TaxTreatment,
		CreatedAt:    s.now(),
	}

	if err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return s.accounts.Create(ctx, tx, a)
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", a.ID).Str("user_id", userID).Msg("Account opened")
	return a, nil
}

// ListAccounts returns the user's accounts.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	var accounts []Account
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		accounts, err = s.accounts.ListByUser(ctx, tx, userID)
		return err
	})
	return accounts, err
}

// OpenPosition creates an empty position in one of the user's accounts.
// Positions only come into existence here; their figures then follow the log.
func (s *Service) OpenPosition(ctx context.Context, userID string, in PositionInput) (*Position, error) {
	v := domain.NewValidationError()
	if in.AccountID == "" {
		v.Add("account_id", "is required")
	}
	if strings.TrimSpace(in.Symbol) == "" {
		v.Add("symbol", "is required")
	}
	if in.Category == "" {
		in.Category = CategoryOther
	}
	if !in.Category.IsValid() {
		v.Add("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if in.CurrentPrice.IsNegative() {
		v.Add("current_price", "must not be negative")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Position{
		ID:                uuid.NewString(),
		AccountID:         in.AccountID,
		Symbol:            strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Name:              strings.TrimSpace(in.Name),
		Category:          in.Category,
		Shares:            decimal.Zero,
		CostBasisTotal:    decimal.Zero,
		CostBasisPerShare: decimal.Zero,
		CurrentPrice:      decimal.NewNullDecimal(in.CurrentPrice),
		RealizedGain:      decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	p.revalue()

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.authorizeAccount(ctx, tx, userID, in.AccountID); err != nil {
			return err
		}
		return s.positions.Create(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("position_id", p.ID).
		Str("account_id", p.AccountID).
		Str("symbol", p.Symbol).
		Msg("Position opened")
	return p, nil
}

// RecordTransaction appends a transaction to the log. A BUY or SELL tied to
// a position recomputes that position in the same unit of work.
func (s *Service) RecordTransaction(ctx context.Context, userID string, in TransactionInput) (*Transaction, error) {
	defer utils.OperationTimer("record_transaction", s.log)()

	now := s.now()
	t := &Transaction{
		ID:            uuid.NewString(),
		AccountID:     in.AccountID,
		PositionID:    in.PositionID,
		Type:          TransactionType(strings.ToUpper(string(in.Type))),
		Date:          in.Date.UTC(),
		Shares:        in.Shares,
		PricePerShare: in.PricePerShare,
		TotalAmount:   in.TotalAmount,
		Fees:          in.Fees,
		Reconciled:    in.Reconciled,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := normalizeTransaction(t); err != nil {
		return nil, err
	}

	var created *Transaction
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.authorizeTarget(ctx, tx, userID, t.AccountID, t.PositionID); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, t); err != nil {
			return err
		}
		if t.AffectsPosition() {
			if _, err := s.RecomputeTx(ctx, tx, t.PositionID); err != nil {
				return err
			}
		}

		var err error
		created, err = s.transactions.GetByID(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", created.ID).
		Str("type", string(created.Type)).
		Str("position_id", created.PositionID).
		Msg("Transaction recorded")
	return created, nil
}

// EditTransaction applies a patch to an existing transaction and recomputes
// every position the old or new version of it touches.
func (s *Service) EditTransaction(ctx context.Context, userID, id string, patch TransactionPatch) (*Transaction, error) {
	defer utils.OperationTimer("edit_transaction", s.log)()

	var edited *Transaction
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := s.transactions.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := s.authorizeAccount(ctx, tx, userID, existing.AccountID); err != nil {
			return err
		}

		updated := *existing
		patch.apply(&updated)
		updated.UpdatedAt = s.now()
		if err := normalizeTransaction(&updated); err != nil {
			return err
		}
		if updated.PositionID != existing.PositionID {
			if err := s.authorizeTarget(ctx, tx, userID, updated.AccountID, updated.PositionID); err != nil {
				return err
			}
		}

		if err := s.transactions.Update(ctx, tx, &updated); err != nil {
			return err
		}
		if err := s.recomputeAffected(ctx, tx, existing, &updated); err != nil {
			return err
		}

		edited, err = s.transactions.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("transaction_id", id).Msg("Transaction edited")
	return edited, nil
}

// DeleteTransaction removes a transaction and recomputes the position it touched.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id string) error {
	defer utils.OperationTimer("delete_transaction", s.log)()

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := s.transactions.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := s.authorizeAccount(ctx, tx, userID, existing.AccountID); err != nil {
			return err
		}
		if err := s.transactions.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.recomputeAffected(ctx, tx, existing, nil)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("transaction_id", id).Msg("Transaction deleted")
	return nil
}

// GetTransaction returns one of the user's transactions.
func (s *Service) GetTransaction(ctx context.Context, userID, id string) (*Transaction, error) {
	var t *Transaction
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		t, err = s.transactions.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = s.authorizeAccount(ctx, tx, userID, t.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransactions returns the user's transactions matching the filter.
// An empty account list means all of the user's accounts.
func (s *Service) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]Transaction, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}
	for _, typ := range filter.Types {
		if !typ.IsValid() {
			v := domain.NewValidationError()
			v.Add("types", fmt.Sprintf("unknown transaction type %q", typ))
			return nil, v
		}
	}

	var txs []Transaction
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		accounts, err := ScopeAccounts(ctx, tx, s.accounts, userID, filter.AccountIDs)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}
		filter.AccountIDs = AccountIDs(accounts)
		txs, err = s.transactions.List(ctx, tx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// GetPosition returns the current snapshot of one of the user's positions.
func (s *Service) GetPosition(ctx context.Context, userID, positionID string) (*Position, error) {
	var p *Position
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		p, err = s.authorizePosition(ctx, tx, userID, positionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPositions returns the user's positions, optionally limited to some accounts.
func (s *Service) ListPositions(ctx context.Context, userID string, accountIDs []string) ([]Position, error) {
	var positions []Position
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		scoped, err := ScopeAccounts(ctx, tx, s.accounts, userID, accountIDs)
		if err != nil {
			return err
		}
		if len(scoped) == 0 {
			return nil
		}
		positions, err = s.positions.List(ctx, tx, PositionFilter{AccountIDs: AccountIDs(scoped)})
		return err
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// Recompute re-derives a position from its BUY/SELL history in its own unit of work.
func (s *Service) Recompute(ctx context.Context, positionID string) (*Position, error) {
	var p *Position
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		p, err = s.RecomputeTx(ctx, tx, positionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecomputeTx re-derives a position inside the caller's transaction.
//
// It reads every BUY and SELL for the position, runs the cost basis
// calculator and writes shares, cost basis, value, gains and each SELL's
// realized gain/loss back. The stored current price is used as-is; a
// missing or negative price is an InvalidState error and nothing is written.
func (s *Service) RecomputeTx(ctx context.Context, tx *sql.Tx, positionID string) (*Position, error) {
	p, err := s.positions.GetByID(ctx, tx, positionID)
	if err != nil {
		return nil, err
	}

	if !p.CurrentPrice.Valid || p.CurrentPrice.Decimal.IsNegative() {
		reason := "current price is missing"
		if p.CurrentPrice.Valid {
			reason = "current price is negative"
		}
		s.log.Error().
			Str("position_id", positionID).
			Str("reason", reason).
			Msg("Refusing to recompute position with corrupt price")
		return nil, domain.InvalidStateError("position", positionID, reason)
	}

	trades, err := s.transactions.ListTradesForPosition(ctx, tx, positionID)
	if err != nil {
		return nil, err
	}
	SortTrades(trades)

	res, err := CalculateCostBasis(trades, s.policy)
	if err != nil {
		return nil, err
	}

	for _, t := range trades {
		if t.Type != TransactionTypeSell {
			continue
		}
		gain := res.SellGains[t.ID]
		if t.RealizedGainLoss.Valid && t.RealizedGainLoss.Decimal.Equal(gain) {
			continue
		}
		if err := s.transactions.SetRealizedGainLoss(ctx, tx, t.ID, decimal.NewNullDecimal(gain)); err != nil {
			return nil, err
		}
	}

	before := *p
	p.applyCostBasis(res)
	if !sameFigures(before, *p) {
		p.UpdatedAt = s.now()
	}
	if err := s.positions.UpdateDerived(ctx, tx, p); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("position_id", positionID).
		Int("trades", len(trades)).
		Str("shares", p.Shares.String()).
		Str("cost_basis", p.CostBasisTotal.String()).
		Msg("Position recomputed")

	return p, nil
}

// SetPrice updates a position's current price and the figures that depend
// on it. Shares and cost basis are not touched.
func (s *Service) SetPrice(ctx context.Context, userID, positionID string, price decimal.Decimal) (*Position, error) {
	if price.IsNegative() {
		v := domain.NewValidationError()
		v.Add("price", "must not be negative")
		return nil, v
	}

	var p *Position
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		p, err = s.authorizePosition(ctx, tx, userID, positionID)
		if err != nil {
			return err
		}
		p.CurrentPrice = decimal.NewNullDecimal(price)
		p.revalue()
		p.UpdatedAt = s.now()
		return s.positions.UpdatePrice(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("position_id", positionID).
		Str("price", price.String()).
		Msg("Position price updated")
	return p, nil
}

// GetTimeWeightedReturn returns the position's time-weighted return, as a
// percentage, over the transactions inside the range. Either bound may be
// open. The final sub-period is closed with the position's current value.
func (s *Service) GetTimeWeightedReturn(ctx context.Context, userID, positionID string, rng domain.DateRange) (decimal.Decimal, error) {
	if err := rng.Validate(); err != nil {
		return decimal.Zero, err
	}

	var twr decimal.Decimal
	err := database.WithReadTransaction(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.authorizePosition(ctx, tx, userID, positionID)
		if err != nil {
			return err
		}
		txs, err := s.transactions.List(ctx, tx, TransactionFilter{PositionID: positionID, Range: rng})
		if err != nil {
			return err
		}
		twr = analytics.TimeWeightedReturn(CashFlows(txs), p.CurrentValue)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return twr, nil
}

// CashFlows converts date-ordered transactions into signed cash flows.
func CashFlows(txs []Transaction) []analytics.CashFlow {
	flows := make([]analytics.CashFlow, 0, len(txs))
	for _, t := range txs {
		flows = append(flows, analytics.CashFlow{Date: t.Date, Amount: t.CashFlow()})
	}
	return flows
}

func (s *Service) recomputeAffected(ctx context.Context, tx *sql.Tx, before, after *Transaction) error {
	seen := make(map[string]bool, 2)
	for _, t := range []*Transaction{before, after} {
		if t == nil || !t.AffectsPosition() || seen[t.PositionID] {
			continue
		}
		seen[t.PositionID] = true
		if _, err := s.RecomputeTx(ctx, tx, t.PositionID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) authorizeAccount(ctx context.Context, q database.Querier, userID, accountID string) (*Account, error) {
	a, err := AuthorizeAccount(ctx, q, s.accounts, userID, accountID)
	if errors.Is(err, domain.ErrUnauthorized) {
		s.log.Warn().
			Str("account_id", accountID).
			Str("user_id", userID).
			Msg("Account access denied")
	}
	return a, err
}

func (s *Service) authorizePosition(ctx context.Context, q database.Querier, userID, positionID string) (*Position, error) {
	p, err := s.positions.GetByID(ctx, q, positionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeAccount(ctx, q, userID, p.AccountID); err != nil {
		return nil, err
	}
	return p, nil
}

// authorizeTarget checks that the account belongs to the user and, when a
// position is named, that the position is held in that account.
func (s *Service) authorizeTarget(ctx context.Context, q database.Querier, userID, accountID, positionID string) error {
	if _, err := s.authorizeAccount(ctx, q, userID, accountID); err != nil {
		return err
	}
	if positionID == "" {
		return nil
	}
	p, err := s.positions.GetByID(ctx, q, positionID)
	if err != nil {
		return err
	}
	if p.AccountID != accountID {
		return domain.UnauthorizedError("position", positionID)
	}
	return nil
}

func (p TransactionPatch) apply(t *Transaction) {
	if p.PositionID != nil {
		t.PositionID = *p.PositionID
	}
	if p.Type != nil {
		t.Type = TransactionType(strings.ToUpper(string(*p.Type)))
	}
	if p.Date != nil {
		t.Date = p.Date.UTC()
	}
	if p.Shares != nil {
		t.Shares = *p.Shares
	}
	if p.PricePerShare != nil {
		t.PricePerShare = *p.PricePerShare
	}
	if p.TotalAmount != nil {
		t.TotalAmount = *p.TotalAmount
	} else if p.Shares != nil || p.PricePerShare != nil || p.Fees != nil {
		// trade inputs changed; let normalizeTransaction derive the total again
		if t.Type.IsTrade() {
			t.TotalAmount = decimal.Zero
		}
	}
	if p.Fees != nil {
		t.Fees = *p.Fees
	}
	if p.Reconciled != nil {
		t.Reconciled = *p.Reconciled
	}
	if p.Notes != nil {
		t.Notes = strings.TrimSpace(*p.Notes)
	}
	if !t.Type.IsTrade() {
		if p.Shares == nil {
			t.Shares = decimal.Zero
		}
		if p.PricePerShare == nil {
			t.PricePerShare = decimal.Zero
		}
	}
}

// normalizeTransaction validates t and fills in derived fields. SELL
// quantities are stored unsigned; a trade's zero total is derived.
func normalizeTransaction(t *Transaction) error {
	v := domain.NewValidationError()

	if t.AccountID == "" {
		v.Add("account_id", "is required")
	}
	if !t.Type.IsValid() {
		v.Add("type", fmt.Sprintf("unknown transaction type %q", t.Type))
	}
	if t.Date.IsZero() {
		v.Add("date", "is required")
	}
	if t.Fees.IsNegative() {
		v.Add("fees", "must not be negative")
	}

	if t.Type.IsTrade() {
		t.Shares = t.Shares.Abs()
		if t.PositionID == "" {
			v.Add("position_id", "is required for "+string(t.Type))
		}
		if t.Shares.IsZero() {
			v.Add("shares", "is required for "+string(t.Type))
		}
		if t.PricePerShare.IsNegative() {
			v.Add("price_per_share", "must not be negative")
		}
		if t.TotalAmount.IsZero() {
			gross := t.Shares.Mul(t.PricePerShare)
			if t.Type == TransactionTypeBuy {
				t.TotalAmount = gross.Add(t.Fees)
			} else {
				t.TotalAmount = gross.Sub(t.Fees)
			}
		}
	} else {
		if !t.Shares.IsZero() || !t.PricePerShare.IsZero() {
			v.Add("shares", "only BUY and SELL carry shares and price")
		}
		if !t.TotalAmount.IsPositive() {
			v.Add("total_amount", "must be positive")
		}
	}

	if t.Type != TransactionTypeSell {
		t.RealizedGainLoss = decimal.NullDecimal{}
	}

	return v.OrNil()
}

func sameFigures(a, b Position) bool {
	return a.Shares.Equal(b.Shares) &&
		a.CostBasisTotal.Equal(b.CostBasisTotal) &&
		a.CostBasisPerShare.Equal(b.CostBasisPerShare) &&
		a.CurrentValue.Equal(b.CurrentValue) &&
		a.UnrealizedGain.Equal(b.UnrealizedGain) &&
		a.RealizedGain.Equal(b.RealizedGain)
}
