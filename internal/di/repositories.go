// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/aristath/holdings/internal/modules/properties"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.AccountRepo = ledger.NewAccountRepository(log)
	container.PositionRepo = ledger.NewPositionRepository(log)
	container.TransactionRepo = ledger.NewTransactionRepository(log)
	container.PropertyRepo = properties.NewRepository(log)

	log.Debug().Msg("All repositories initialized")

	return nil
}
