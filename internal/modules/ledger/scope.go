package ledger

import (
	"context"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
)

// AuthorizeAccount loads an account and checks it belongs to the user.
func AuthorizeAccount(ctx context.Context, q database.Querier, accounts AccountStore, userID, accountID string) (*Account, error) {
	a, err := accounts.GetByID(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, domain.UnauthorizedError("account", accountID)
	}
	return a, nil
}

// ScopeAccounts resolves the accounts a user-scoped read covers. With no
// requested ids it returns all of the user's accounts; otherwise every
// requested account must belong to the user.
func ScopeAccounts(ctx context.Context, q database.Querier, accounts AccountStore, userID string, requested []string) ([]Account, error) {
	if len(requested) == 0 {
		return accounts.ListByUser(ctx, q, userID)
	}

	scoped := make([]Account, 0, len(requested))
	for _, id := range requested {
		a, err := AuthorizeAccount(ctx, q, accounts, userID, id)
		if err != nil {
			return nil, err
		}
		scoped = append(scoped, *a)
	}
	return scoped, nil
}

// AccountIDs returns the ids of accounts in order.
func AccountIDs(accounts []Account) []string {
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids
}
