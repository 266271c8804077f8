package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/rs/zerolog"
)

const accountsColumns = `id, user_id, name, account_type, tax_treatment, created_at`

// AccountRepository handles account persistence
type AccountRepository struct {
	log zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		log: log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, q database.Querier, a *Account) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, account_type, tax_treatment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.AccountType), string(a.TaxTreatment), a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account, or a NotFound error
func (r *AccountRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Account, error) {
	row := q.QueryRowContext(ctx, "SELECT "+accountsColumns+" FROM accounts WHERE id = ?", id)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &a, nil
}

// ListByUser returns a user's accounts ordered by name then id
func (r *AccountRepository) ListByUser(ctx context.Context, q database.Querier, userID string) ([]Account, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+accountsColumns+" FROM accounts WHERE user_id = ? ORDER BY name ASC, id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		a            Account
		accountType  string
		taxTreatment string
		createdAt    int64
	)

	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &accountType, &taxTreatment, &createdAt); err != nil {
		return Account{}, err
	}

	a.AccountType = AccountType(accountType)
	a.TaxTreatment = TaxTreatment(taxTreatment)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return a, nil
}
