// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/aristath/holdings/internal/modules/properties"
	"github.com/aristath/holdings/internal/modules/reports"
	"github.com/rs/zerolog"
)

// InitializeServices creates the services on top of the repositories.
// The ledger and reports services share the ledger repositories so both see
// the same unit-of-work boundaries.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil {
		return fmt.Errorf("container must have an initialized database")
	}
	if container.AccountRepo == nil || container.PropertyRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	conn := container.LedgerDB.Conn()

	container.LedgerService = ledger.NewService(
		conn,
		container.AccountRepo,
		container.PositionRepo,
		container.TransactionRepo,
		cfg.OversellPolicy,
		log,
	)

	container.ReportsService = reports.NewService(
		conn,
		container.AccountRepo,
		container.PositionRepo,
		container.TransactionRepo,
		cfg.OversellPolicy,
		log,
	)

	container.PropertiesService = properties.NewService(conn, container.PropertyRepo, log)

	log.Debug().Str("oversell_policy", cfg.OversellPolicy.String()).Msg("All services initialized")

	return nil
}
