package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	testingpkg "github.com/aristath/holdings/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// FaultyPositionStore fails UpdateDerived on demand and delegates everything
// else to the real repository.
type FaultyPositionStore struct {
	*PositionRepository
	mock.Mock
}

func (m *FaultyPositionStore) UpdateDerived(ctx context.Context, q database.Querier, p *Position) error {
	args := m.Called(p.ID)
	if err := args.Error(0); err != nil {
		return err
	}
	return m.PositionRepository.UpdateDerived(ctx, q, p)
}

type serviceFixture struct {
	svc  *Service
	db   *sql.DB
	acct *Account
	pos  *Position
}

func newServiceFixture(t *testing.T, policy OversellPolicy) *serviceFixture {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testingpkg.NewTestDB(t, "ledger")
	svc := NewService(db.Conn(), NewAccountRepository(log), NewPositionRepository(log),
		NewTransactionRepository(log), policy, log)

	return seedFixture(t, svc, db.Conn())
}

func seedFixture(t *testing.T, svc *Service, db *sql.DB) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	acct, err := svc.OpenAccount(ctx, testingpkg.UserID, AccountInput{Name: "Brokerage"})
	require.NoError(t, err)

	pos, err := svc.OpenPosition(ctx, testingpkg.UserID, PositionInput{
		AccountID: acct.ID, Symbol: "VTI", Category: CategoryETF, CurrentPrice: dec("120"),
	})
	require.NoError(t, err)

	return &serviceFixture{svc: svc, db: db, acct: acct, pos: pos}
}

func (f *serviceFixture) trade(t *testing.T, typ TransactionType, dayN int, shares, price, fees string) *Transaction {
	t.Helper()

	tx, err := f.svc.RecordTransaction(context.Background(), testingpkg.UserID, TransactionInput{
		AccountID: f.acct.ID, PositionID: f.pos.ID, Type: typ, Date: onDay(dayN),
		Shares: dec(shares), PricePerShare: dec(price), Fees: dec(fees),
	})
	require.NoError(t, err)
	return tx
}

func (f *serviceFixture) countTransactions(t *testing.T) int {
	t.Helper()

	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&n))
	return n
}

func TestRecordTransaction_BuyRecomputesPosition(t *testing.T) {
	f := newServiceFixture(t, OversellReject)

	tx := f.trade(t, TransactionTypeBuy, 1, "10", "100", "5")
	assert.True(t, tx.TotalAmount.Equal(dec("1005")), "derived total %s", tx.TotalAmount)

	p, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.Equal(dec("10")))
	assert.True(t, p.CostBasisTotal.Equal(dec("1005")))
	assert.True(t, p.CostBasisPerShare.Equal(dec("100.5")))
	assert.True(t, p.CurrentValue.Equal(dec("1200")))
	assert.True(t, p.UnrealizedGain.Equal(dec("195")))
}

func TestRecordTransaction_SellStoresRealizedGain(t *testing.T) {
	f := newServiceFixture(t, OversellReject)

	f.trade(t, TransactionTypeBuy, 1, "10", "100", "0")
	s := f.trade(t, TransactionTypeSell, 2, "-4", "150", "2")

	assert.True(t, s.Shares.Equal(dec("4")), "sell quantity stored unsigned")
	assert.True(t, s.TotalAmount.Equal(dec("598")))
	require.True(t, s.RealizedGainLoss.Valid)
	assert.True(t, s.RealizedGainLoss.Decimal.Equal(dec("198")), "got %s", s.RealizedGainLoss.Decimal)

	p, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.Equal(dec("6")))
	assert.True(t, p.CostBasisPerShare.Equal(dec("100")))
	assert.True(t, p.RealizedGain.Equal(dec("198")))
}

func TestRecordTransaction_NonTradeLeavesPositionAlone(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	f.trade(t, TransactionTypeBuy, 1, "1", "100", "0")
	before, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)

	div, err := f.svc.RecordTransaction(context.Background(), testingpkg.UserID, TransactionInput{
		AccountID: f.acct.ID, PositionID: f.pos.ID, Type: TransactionTypeDividend,
		Date: onDay(2), TotalAmount: dec("3.5"),
	})
	require.NoError(t, err)
	assert.False(t, div.RealizedGainLoss.Valid)

	after, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRecordTransaction_Validation(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    TransactionInput
		field string
	}{
		{"unknown type", TransactionInput{AccountID: f.acct.ID, Type: "SWAP", Date: onDay(1), TotalAmount: dec("1")}, "type"},
		{"missing date", TransactionInput{AccountID: f.acct.ID, Type: TransactionTypeContribution, TotalAmount: dec("1")}, "date"},
		{"negative fees", TransactionInput{AccountID: f.acct.ID, Type: TransactionTypeContribution, Date: onDay(1), TotalAmount: dec("1"), Fees: dec("-1")}, "fees"},
		{"buy without position", TransactionInput{AccountID: f.acct.ID, Type: TransactionTypeBuy, Date: onDay(1), Shares: dec("1"), PricePerShare: dec("1")}, "position_id"},
		{"buy without shares", TransactionInput{AccountID: f.acct.ID, PositionID: f.pos.ID, Type: TransactionTypeBuy, Date: onDay(1), PricePerShare: dec("1")}, "shares"},
		{"income without amount", TransactionInput{AccountID: f.acct.ID, Type: TransactionTypeIncome, Date: onDay(1)}, "total_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordTransaction(ctx, testingpkg.UserID, tt.in)
			require.Error(t, err)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	assert.Equal(t, 0, f.countTransactions(t))
}

func TestOpenAccount_Validation(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    AccountInput
		field string
	}{
		{"missing name", AccountInput{}, "name"},
		{"unknown account type", AccountInput{Name: "Savings", AccountType: "PIGGY_BANK"}, "account_type"},
		{"unknown tax treatment", AccountInput{Name: "Savings", TaxTreatment: "OFFSHORE"}, "tax_treatment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.OpenAccount(ctx, testingpkg.UserID, tt.in)
			require.Error(t, err)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	accounts, err := f.svc.ListAccounts(ctx, testingpkg.UserID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	acct, err := f.svc.OpenAccount(ctx, testingpkg.UserID, AccountInput{Name: "HSA", AccountType: AccountTypeHSA})
	require.NoError(t, err)
	assert.Equal(t, AccountTypeHSA, acct.AccountType)
}

func TestRecordTransaction_OversellRejectedAndRolledBack(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	f.trade(t, TransactionTypeBuy, 1, "5", "10", "0")

	_, err := f.svc.RecordTransaction(context.Background(), testingpkg.UserID, TransactionInput{
		AccountID: f.acct.ID, PositionID: f.pos.ID, Type: TransactionTypeSell,
		Date: onDay(2), Shares: dec("6"), PricePerShare: dec("10"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, 1, f.countTransactions(t))
}

func TestRecordTransaction_OversellClamped(t *testing.T) {
	f := newServiceFixture(t, OversellClamp)
	f.trade(t, TransactionTypeBuy, 1, "5", "10", "0")
	f.trade(t, TransactionTypeSell, 2, "6", "10", "0")

	p, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.IsZero())
}

func TestRecordTransaction_AtomicWhenRecomputeFails(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testingpkg.NewTestDB(t, "ledger")
	positions := &FaultyPositionStore{PositionRepository: NewPositionRepository(log)}
	svc := NewService(db.Conn(), NewAccountRepository(log), positions,
		NewTransactionRepository(log), OversellReject, log)
	f := seedFixture(t, svc, db.Conn())

	fault := errors.New("disk on fire")
	positions.On("UpdateDerived", f.pos.ID).Return(fault).Once()

	_, err := svc.RecordTransaction(context.Background(), testingpkg.UserID, TransactionInput{
		AccountID: f.acct.ID, PositionID: f.pos.ID, Type: TransactionTypeBuy,
		Date: onDay(1), Shares: dec("1"), PricePerShare: dec("10"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault))
	assert.Equal(t, 0, f.countTransactions(t), "transaction insert must roll back with the failed recompute")

	p, err := svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.IsZero())

	positions.On("UpdateDerived", f.pos.ID).Return(nil)
	f.trade(t, TransactionTypeBuy, 1, "1", "10", "0")
	assert.Equal(t, 1, f.countTransactions(t))
	positions.AssertExpectations(t)
}

func TestRecompute_Idempotent(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	f.trade(t, TransactionTypeBuy, 1, "3", "33.33", "1")
	f.trade(t, TransactionTypeBuy, 2, "7", "41.17", "0.5")
	f.trade(t, TransactionTypeSell, 3, "4", "50", "1")

	first, err := f.svc.Recompute(context.Background(), f.pos.ID)
	require.NoError(t, err)
	second, err := f.svc.Recompute(context.Background(), f.pos.ID)
	require.NoError(t, err)

	stored, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, stored.CostBasisTotal.Equal(second.CostBasisTotal))
	assert.True(t, stored.Shares.Equal(second.Shares))
	assert.True(t, stored.UpdatedAt.Equal(second.UpdatedAt))
}

func TestRecompute_MatchesCalculator(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	f.trade(t, TransactionTypeBuy, 1, "3", "33.33", "1")
	f.trade(t, TransactionTypeSell, 2, "1", "40", "0")
	f.trade(t, TransactionTypeBuy, 3, "7", "41.17", "0.5")

	txs, err := f.svc.ListTransactions(context.Background(), testingpkg.UserID, TransactionFilter{PositionID: f.pos.ID})
	require.NoError(t, err)
	expected, err := CalculateCostBasis(txs, OversellReject)
	require.NoError(t, err)

	p, err := f.svc.GetPosition(context.Background(), testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.Equal(expected.TotalShares))
	assert.True(t, p.CostBasisTotal.Equal(expected.TotalCostBasis))
	assert.True(t, p.RealizedGain.Equal(expected.RealizedGainLoss))
}

func TestRecompute_Failures(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	_, err := f.svc.Recompute(ctx, "no-such-position")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.db.Exec("UPDATE positions SET current_price = NULL WHERE id = ?", f.pos.ID)
	require.NoError(t, err)
	_, err = f.svc.Recompute(ctx, f.pos.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = f.db.Exec("UPDATE positions SET current_price = '-1' WHERE id = ?", f.pos.ID)
	require.NoError(t, err)
	_, err = f.svc.RecordTransaction(ctx, testingpkg.UserID, TransactionInput{
		AccountID: f.acct.ID, PositionID: f.pos.ID, Type: TransactionTypeBuy,
		Date: onDay(1), Shares: dec("1"), PricePerShare: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Equal(t, 0, f.countTransactions(t))
}

func TestRecomputeTx_JoinsCallerTransaction(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	f.trade(t, TransactionTypeBuy, 1, "2", "10", "0")
	ctx := context.Background()

	err := database.WithTransaction(ctx, f.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("UPDATE positions SET shares = '99' WHERE id = ?", f.pos.ID); err != nil {
			return err
		}
		p, err := f.svc.RecomputeTx(ctx, tx, f.pos.ID)
		if err != nil {
			return err
		}
		assert.True(t, p.Shares.Equal(dec("2")))
		return errors.New("abort")
	})
	require.Error(t, err)

	var shares string
	require.NoError(t, f.db.QueryRow("SELECT shares FROM positions WHERE id = ?", f.pos.ID).Scan(&shares))
	assert.Equal(t, "2", shares)
}

func TestEditTransaction_RecomputesOldAndNewPosition(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	other, err := f.svc.OpenPosition(ctx, testingpkg.UserID, PositionInput{
		AccountID: f.acct.ID, Symbol: "BND", CurrentPrice: dec("70"),
	})
	require.NoError(t, err)

	b := f.trade(t, TransactionTypeBuy, 1, "10", "50", "0")

	shares := dec("4")
	edited, err := f.svc.EditTransaction(ctx, testingpkg.UserID, b.ID, TransactionPatch{
		PositionID: &other.ID,
		Shares:     &shares,
	})
	require.NoError(t, err)
	assert.True(t, edited.TotalAmount.Equal(dec("200")), "total re-derived, got %s", edited.TotalAmount)

	oldPos, err := f.svc.GetPosition(ctx, testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, oldPos.Shares.IsZero())
	assert.True(t, oldPos.CostBasisTotal.IsZero())

	newPos, err := f.svc.GetPosition(ctx, testingpkg.UserID, other.ID)
	require.NoError(t, err)
	assert.True(t, newPos.Shares.Equal(dec("4")))
	assert.True(t, newPos.CostBasisTotal.Equal(dec("200")))
}

func TestEditTransaction_TypeChangeClearsTradeFields(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	b := f.trade(t, TransactionTypeBuy, 1, "10", "10", "0")

	div := TransactionTypeDividend
	amount := dec("15")
	edited, err := f.svc.EditTransaction(ctx, testingpkg.UserID, b.ID, TransactionPatch{Type: &div, TotalAmount: &amount})
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeDividend, edited.Type)
	assert.True(t, edited.Shares.IsZero())
	assert.True(t, edited.PricePerShare.IsZero())

	p, err := f.svc.GetPosition(ctx, testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.IsZero())
}

func TestEditTransaction_FailedRecomputeLeavesLogUntouched(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	b := f.trade(t, TransactionTypeBuy, 1, "10", "10", "0")
	f.trade(t, TransactionTypeSell, 2, "5", "12", "0")

	// turning the BUY into a dividend leaves the SELL with nothing to sell
	div := TransactionTypeDividend
	amount := dec("15")
	edited, err := f.svc.EditTransaction(ctx, testingpkg.UserID, b.ID, TransactionPatch{Type: &div, TotalAmount: &amount})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Nil(t, edited)

	got, err := f.svc.GetTransaction(ctx, testingpkg.UserID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeBuy, got.Type)

	p, err := f.svc.GetPosition(ctx, testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.Equal(dec("5")))
}

func TestDeleteTransaction_Recomputes(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	f.trade(t, TransactionTypeBuy, 1, "10", "10", "0")
	second := f.trade(t, TransactionTypeBuy, 2, "10", "20", "0")

	require.NoError(t, f.svc.DeleteTransaction(ctx, testingpkg.UserID, second.ID))

	p, err := f.svc.GetPosition(ctx, testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)
	assert.True(t, p.Shares.Equal(dec("10")))
	assert.True(t, p.CostBasisPerShare.Equal(dec("10")))

	err = f.svc.DeleteTransaction(ctx, testingpkg.UserID, second.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestService_Unauthorized(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()
	b := f.trade(t, TransactionTypeBuy, 1, "1", "10", "0")

	_, err := f.svc.GetPosition(ctx, testingpkg.OtherUserID, f.pos.ID)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = f.svc.GetTransaction(ctx, testingpkg.OtherUserID, b.ID)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	err = f.svc.DeleteTransaction(ctx, testingpkg.OtherUserID, b.ID)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = f.svc.SetPrice(ctx, testingpkg.OtherUserID, f.pos.ID, dec("1"))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = f.svc.RecordTransaction(ctx, testingpkg.OtherUserID, TransactionInput{
		AccountID: f.acct.ID, Type: TransactionTypeContribution, Date: onDay(1), TotalAmount: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	// a position held in another account cannot be traded through this one
	otherAcct, err := f.svc.OpenAccount(ctx, testingpkg.UserID, AccountInput{Name: "IRA", TaxTreatment: TaxTreatmentTaxDeferred})
	require.NoError(t, err)
	_, err = f.svc.RecordTransaction(ctx, testingpkg.UserID, TransactionInput{
		AccountID: otherAcct.ID, PositionID: f.pos.ID, Type: TransactionTypeBuy,
		Date: onDay(1), Shares: dec("1"), PricePerShare: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = f.svc.ListTransactions(ctx, testingpkg.OtherUserID, TransactionFilter{AccountIDs: []string{f.acct.ID}})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	none, err := f.svc.ListTransactions(ctx, testingpkg.OtherUserID, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordTransaction_UnknownTargets(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	_, err := f.svc.RecordTransaction(ctx, testingpkg.UserID, TransactionInput{
		AccountID: f.acct.ID, PositionID: "ghost", Type: TransactionTypeBuy,
		Date: onDay(1), Shares: dec("1"), PricePerShare: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.RecordTransaction(ctx, testingpkg.UserID, TransactionInput{
		AccountID: "ghost", Type: TransactionTypeContribution, Date: onDay(1), TotalAmount: dec("1"),
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 0, f.countTransactions(t))
}

func TestSetPrice_KeepsCostBasis(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()
	f.trade(t, TransactionTypeBuy, 1, "10", "100", "0")

	p, err := f.svc.SetPrice(ctx, testingpkg.UserID, f.pos.ID, dec("90"))
	require.NoError(t, err)
	assert.True(t, p.CurrentValue.Equal(dec("900")))
	assert.True(t, p.UnrealizedGain.Equal(dec("-100")))
	assert.True(t, p.CostBasisTotal.Equal(dec("1000")))

	_, err = f.svc.SetPrice(ctx, testingpkg.UserID, f.pos.ID, dec("-1"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetTimeWeightedReturn(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	twr, err := f.svc.GetTimeWeightedReturn(ctx, testingpkg.UserID, f.pos.ID, domain.DateRange{})
	require.NoError(t, err)
	assert.True(t, twr.IsZero())

	// 10 shares for 1000, now priced at 120
	f.trade(t, TransactionTypeBuy, 1, "10", "100", "0")
	twr, err = f.svc.GetTimeWeightedReturn(ctx, testingpkg.UserID, f.pos.ID, domain.DateRange{})
	require.NoError(t, err)
	assert.True(t, twr.Equal(dec("20")), "got %s", twr)

	_, err = f.svc.GetTimeWeightedReturn(ctx, testingpkg.UserID, f.pos.ID, domain.DateRange{From: onDay(5), To: onDay(1)})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRecordTransaction_ConcurrentBuysOnOnePosition(t *testing.T) {
	f := newServiceFixture(t, OversellReject)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.svc.RecordTransaction(ctx, testingpkg.UserID, TransactionInput{
				AccountID: f.acct.ID, PositionID: f.pos.ID, Type: TransactionTypeBuy,
				Date: onDay(n + 1), Shares: decimal.NewFromInt(1), PricePerShare: decimal.NewFromInt(int64(10 * (n + 1))),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	p, err := f.svc.GetPosition(ctx, testingpkg.UserID, f.pos.ID)
	require.NoError(t, err)

	// 10+20+...+80 over 8 shares
	assert.True(t, p.Shares.Equal(dec("8")), "shares %s", p.Shares)
	assert.True(t, p.CostBasisTotal.Equal(dec("360")), "cost basis %s", p.CostBasisTotal)
	assert.Equal(t, writers, f.countTransactions(t))
}
