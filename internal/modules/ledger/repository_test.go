package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/holdings/internal/domain"
	testingpkg "github.com/aristath/holdings/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepos(t *testing.T) (*sql.DB, *TransactionRepository, *PositionRepository, *AccountRepository) {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testingpkg.NewMemoryDB(t)
	testingpkg.InsertAccount(t, db.Conn(), testingpkg.AccountFixture{ID: "acc-1"})

	return db.Conn(), NewTransactionRepository(log), NewPositionRepository(log), NewAccountRepository(log)
}

func createPosition(t *testing.T, q *sql.DB, repo *PositionRepository, id string, price decimal.NullDecimal) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.Create(context.Background(), q, &Position{
		ID: id, AccountID: "acc-1", Symbol: " vti ", Category: CategoryETF,
		CurrentPrice: price, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestTransactionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db, txRepo, posRepo, _ := setupRepos(t)
	createPosition(t, db, posRepo, "pos-1", decimal.NewNullDecimal(dec("10")))

	now := time.Now().UTC().Truncate(time.Second)
	in := &Transaction{
		ID: "tx-1", AccountID: "acc-1", PositionID: "pos-1", Type: TransactionTypeBuy,
		Date: onDay(1), Shares: dec("2.5"), PricePerShare: dec("40.1"),
		TotalAmount: dec("101.25"), Fees: dec("1"), Notes: "first lot",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, txRepo.Create(ctx, db, in))

	got, err := txRepo.GetByID(ctx, db, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeBuy, got.Type)
	assert.Equal(t, "pos-1", got.PositionID)
	assert.True(t, got.Shares.Equal(dec("2.5")))
	assert.True(t, got.PricePerShare.Equal(dec("40.1")))
	assert.True(t, got.TotalAmount.Equal(dec("101.25")))
	assert.False(t, got.RealizedGainLoss.Valid)
	assert.Equal(t, onDay(1), got.Date)
	assert.Equal(t, "first lot", got.Notes)
}

func TestTransactionRepository_NonTradeStoresNoShares(t *testing.T) {
	ctx := context.Background()
	db, txRepo, _, _ := setupRepos(t)

	require.NoError(t, txRepo.Create(ctx, db, &Transaction{
		ID: "tx-div", AccountID: "acc-1", Type: TransactionTypeContribution,
		Date: onDay(1), TotalAmount: dec("500"),
	}))

	var shares sql.NullString
	require.NoError(t, db.QueryRow("SELECT shares FROM transactions WHERE id = 'tx-div'").Scan(&shares))
	assert.False(t, shares.Valid)

	got, err := txRepo.GetByID(ctx, db, "tx-div")
	require.NoError(t, err)
	assert.True(t, got.Shares.IsZero())
	assert.Empty(t, got.PositionID)
}

func TestTransactionRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	db, txRepo, _, _ := setupRepos(t)

	_, err := txRepo.GetByID(ctx, db, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = txRepo.Delete(ctx, db, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = txRepo.Update(ctx, db, &Transaction{ID: "missing", AccountID: "acc-1", Type: TransactionTypeExpense})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTransactionRepository_ListOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	db, txRepo, posRepo, _ := setupRepos(t)
	createPosition(t, db, posRepo, "pos-1", decimal.NewNullDecimal(dec("10")))

	insert := func(id string, typ TransactionType, date time.Time) {
		tx := &Transaction{ID: id, AccountID: "acc-1", PositionID: "pos-1", Type: typ, Date: date, TotalAmount: dec("1")}
		if typ.IsTrade() {
			tx.Shares = dec("1")
			tx.PricePerShare = dec("1")
		}
		require.NoError(t, txRepo.Create(ctx, db, tx))
	}

	// ids chosen so that id order differs from insertion order
	insert("z-late", TransactionTypeSell, onDay(10))
	insert("y-same-1", TransactionTypeBuy, onDay(5))
	insert("a-same-2", TransactionTypeBuy, onDay(5))
	insert("m-div", TransactionTypeDividend, onDay(5).Add(13*time.Hour))

	all, err := txRepo.List(ctx, db, TransactionFilter{PositionID: "pos-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"y-same-1", "a-same-2", "m-div", "z-late"}, ids(all))

	trades, err := txRepo.ListTradesForPosition(ctx, db, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"y-same-1", "a-same-2", "z-late"}, ids(trades))

	// the To bound covers the whole day
	ranged, err := txRepo.List(ctx, db, TransactionFilter{
		AccountIDs: []string{"acc-1"},
		Range:      domain.DateRange{From: onDay(5), To: onDay(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"y-same-1", "a-same-2", "m-div"}, ids(ranged))

	income, err := txRepo.List(ctx, db, TransactionFilter{Types: []TransactionType{TransactionTypeDividend}})
	require.NoError(t, err)
	assert.Equal(t, []string{"m-div"}, ids(income))
}

func TestTransactionRepository_SetRealizedGainLoss(t *testing.T) {
	ctx := context.Background()
	db, txRepo, posRepo, _ := setupRepos(t)
	createPosition(t, db, posRepo, "pos-1", decimal.NewNullDecimal(dec("10")))

	require.NoError(t, txRepo.Create(ctx, db, &Transaction{
		ID: "s1", AccountID: "acc-1", PositionID: "pos-1", Type: TransactionTypeSell,
		Date: onDay(1), Shares: dec("1"), PricePerShare: dec("5"), TotalAmount: dec("5"),
	}))
	require.NoError(t, txRepo.SetRealizedGainLoss(ctx, db, "s1", decimal.NewNullDecimal(dec("-1.5"))))

	got, err := txRepo.GetByID(ctx, db, "s1")
	require.NoError(t, err)
	require.True(t, got.RealizedGainLoss.Valid)
	assert.True(t, got.RealizedGainLoss.Decimal.Equal(dec("-1.5")))
}

func TestPositionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, _, posRepo, _ := setupRepos(t)
	createPosition(t, db, posRepo, "pos-1", decimal.NewNullDecimal(dec("10")))

	p, err := posRepo.GetByID(ctx, db, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, "VTI", p.Symbol)
	assert.Equal(t, CategoryETF, p.Category)
	assert.True(t, p.Price().Equal(dec("10")))

	p.Shares = dec("3")
	p.CostBasisTotal = dec("24")
	p.CostBasisPerShare = dec("8")
	p.revalue()
	require.NoError(t, posRepo.UpdateDerived(ctx, db, p))

	p.CurrentPrice = decimal.NewNullDecimal(dec("12"))
	p.revalue()
	require.NoError(t, posRepo.UpdatePrice(ctx, db, p))

	got, err := posRepo.GetByID(ctx, db, "pos-1")
	require.NoError(t, err)
	assert.True(t, got.Shares.Equal(dec("3")))
	assert.True(t, got.CurrentValue.Equal(dec("36")))
	assert.True(t, got.UnrealizedGain.Equal(dec("12")))
}

func TestPositionRepository_NullPriceAndMissing(t *testing.T) {
	ctx := context.Background()
	db, _, posRepo, _ := setupRepos(t)
	createPosition(t, db, posRepo, "pos-null", decimal.NullDecimal{})

	p, err := posRepo.GetByID(ctx, db, "pos-null")
	require.NoError(t, err)
	assert.False(t, p.CurrentPrice.Valid)
	assert.True(t, p.Price().IsZero())

	_, err = posRepo.GetByID(ctx, db, "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = posRepo.UpdateDerived(ctx, db, &Position{ID: "nope"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPositionRepository_ListByAccount(t *testing.T) {
	ctx := context.Background()
	db, _, posRepo, _ := setupRepos(t)
	testingpkg.InsertAccount(t, db, testingpkg.AccountFixture{ID: "acc-2"})

	createPosition(t, db, posRepo, "pos-1", decimal.NewNullDecimal(dec("1")))
	now := time.Now().UTC()
	require.NoError(t, posRepo.Create(ctx, db, &Position{
		ID: "pos-2", AccountID: "acc-2", Symbol: "AAPL", Category: CategoryStock,
		CurrentPrice: decimal.NewNullDecimal(dec("1")), CreatedAt: now, UpdatedAt: now,
	}))

	all, err := posRepo.List(ctx, db, PositionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AAPL", all[0].Symbol)

	scoped, err := posRepo.List(ctx, db, PositionFilter{AccountIDs: []string{"acc-1"}})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "pos-1", scoped[0].ID)
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	db, _, _, accRepo := setupRepos(t)

	require.NoError(t, accRepo.Create(ctx, db, &Account{
		ID: "acc-ira", UserID: testingpkg.UserID, Name: "An IRA",
		AccountType: AccountTypeRetirement, TaxTreatment: TaxTreatmentTaxDeferred, CreatedAt: time.Now(),
	}))

	a, err := accRepo.GetByID(ctx, db, "acc-ira")
	require.NoError(t, err)
	assert.Equal(t, TaxTreatmentTaxDeferred, a.TaxTreatment)

	accounts, err := accRepo.ListByUser(ctx, db, testingpkg.UserID)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	none, err := accRepo.ListByUser(ctx, db, testingpkg.OtherUserID)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = accRepo.GetByID(ctx, db, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func ids(txs []Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}
