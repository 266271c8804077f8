// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens ledger.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	ledgerDB, err := database.New(database.Config{
		Path:        cfg.LedgerPath(),
		Profile:     cfg.DBProfile,
		Name:        "ledger",
		Driver:      cfg.DBDriver,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	if err := ledgerDB.Migrate(); err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", ledgerDB.Name(), err)
	}

	log.Debug().
		Str("path", cfg.LedgerPath()).
		Str("driver", cfg.DBDriver).
		Str("profile", string(cfg.DBProfile)).
		Msg("Ledger database initialized and schema applied")

	return container, nil
}
