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
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// transactionsColumns is the list of columns for the transactions table.
// Column order must match scanTransaction().
const transactionsColumns = `id, account_id, position_id, type, transaction_date, shares, price_per_share,
total_amount, fees, realized_gain_loss, reconciled, notes, created_at, updated_at`

// TransactionFilter narrows List. Zero fields do not filter.
type TransactionFilter struct {
	AccountIDs []string
	PositionID string
	Types      []TransactionType
	Range      domain.DateRange
}

// TransactionRepository handles transaction log persistence.
// Every method takes the Querier to run on, so writes join the caller's
// unit of work.
type TransactionRepository struct {
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Create inserts a new transaction
func (r *TransactionRepository) Create(ctx context.Context, q database.Querier, t *Transaction) error {
	query := `
		INSERT INTO transactions
		(id, account_id, position_id, type, transaction_date, shares, price_per_share,
		 total_amount, fees, realized_gain_loss, reconciled, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		t.ID,
		t.AccountID,
		nullString(t.PositionID),
		string(t.Type),
		t.Date.Unix(),
		tradeDecimal(t, t.Shares),
		tradeDecimal(t, t.PricePerShare),
		t.TotalAmount,
		t.Fees,
		t.RealizedGainLoss,
		t.Reconciled,
		t.Notes,
		t.CreatedAt.Unix(),
		t.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	r.log.Debug().
		Str("transaction_id", t.ID).
		Str("type", string(t.Type)).
		Str("position_id", t.PositionID).
		Msg("Transaction inserted")

	return nil
}

// Update rewrites every editable column of an existing transaction
func (r *TransactionRepository) Update(ctx context.Context, q database.Querier, t *Transaction) error {
	query := `
		UPDATE transactions SET
			account_id = ?, position_id = ?, type = ?, transaction_date = ?, shares = ?,
			price_per_share = ?, total_amount = ?, fees = ?, realized_gain_loss = ?,
			reconciled = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, query,
		t.AccountID,
		nullString(t.PositionID),
		string(t.Type),
		t.Date.Unix(),
		tradeDecimal(t, t.Shares),
		tradeDecimal(t, t.PricePerShare),
		t.TotalAmount,
		t.Fees,
		t.RealizedGainLoss,
		t.Reconciled,
		t.Notes,
		t.UpdatedAt.Unix(),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	return requireOneRow(result, "transaction", t.ID)
}

// Delete removes a transaction
func (r *TransactionRepository) Delete(ctx context.Context, q database.Querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireOneRow(result, "transaction", id)
}

// GetByID retrieves a transaction, or a NotFound error
func (r *TransactionRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Transaction, error) {
	row := q.QueryRowContext(ctx, "SELECT "+transactionsColumns+" FROM transactions WHERE id = ?", id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &t, nil
}

// ListTradesForPosition returns the position's BUY and SELL transactions in
// date order, same-date ties in insertion order.
func (r *TransactionRepository) ListTradesForPosition(ctx context.Context, q database.Querier, positionID string) ([]Transaction, error) {
	return r.List(ctx, q, TransactionFilter{
		PositionID: positionID,
		Types:      []TransactionType{TransactionTypeBuy, TransactionTypeSell},
	})
}

// List returns transactions matching the filter in date order, same-date
// ties in insertion order.
func (r *TransactionRepository) List(ctx context.Context, q database.Querier, filter TransactionFilter) ([]Transaction, error) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.AccountIDs) > 0 {
		conditions = append(conditions, "account_id IN ("+placeholders(len(filter.AccountIDs))+")")
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	if filter.PositionID != "" {
		conditions = append(conditions, "position_id = ?")
		args = append(args, filter.PositionID)
	}
	if len(filter.Types) > 0 {
		conditions = append(conditions, "type IN ("+placeholders(len(filter.Types))+")")
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if !filter.Range.From.IsZero() {
		conditions = append(conditions, "transaction_date >= ?")
		args = append(args, domain.StartOfDay(filter.Range.From).Unix())
	}
	if !filter.Range.To.IsZero() {
		conditions = append(conditions, "transaction_date < ?")
		args = append(args, domain.StartOfDay(filter.Range.To).AddDate(0, 0, 1).Unix())
	}

	query := "SELECT " + transactionsColumns + " FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY transaction_date ASC, rowid ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SetRealizedGainLoss stores the realized gain/loss computed for a SELL
func (r *TransactionRepository) SetRealizedGainLoss(ctx context.Context, q database.Querier, id string, gain decimal.NullDecimal) error {
	result, err := q.ExecContext(ctx, "UPDATE transactions SET realized_gain_loss = ? WHERE id = ?", gain, id)
	if err != nil {
		return fmt.Errorf("failed to set realized gain/loss: %w", err)
	}
	return requireOneRow(result, "transaction", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		t          Transaction
		positionID sql.NullString
		txType     string
		date       int64
		shares     decimal.NullDecimal
		price      decimal.NullDecimal
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&positionID,
		&txType,
		&date,
		&shares,
		&price,
		&t.TotalAmount,
		&t.Fees,
		&t.RealizedGainLoss,
		&t.Reconciled,
		&t.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Transaction{}, err
	}

	t.PositionID = positionID.String
	t.Type = TransactionType(txType)
	t.Date = time.Unix(date, 0).UTC()
	t.Shares = shares.Decimal
	t.PricePerShare = price.Decimal
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return t, nil
}

// tradeDecimal stores share and price columns only for trades; other types
// keep them NULL.
func tradeDecimal(t *Transaction, d decimal.Decimal) decimal.NullDecimal {
	if !t.Type.IsTrade() && d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func requireOneRow(result sql.Result, entity, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NotFoundError(entity, id)
	}
	return nil
}
