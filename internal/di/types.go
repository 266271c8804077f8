/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * handed to the command-line front end.
 */
package di

import (
	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/aristath/holdings/internal/modules/properties"
	"github.com/aristath/holdings/internal/modules/reports"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Database: a single ledger.db holding accounts, positions, transactions and properties
 * - Repositories: data access layer, each taking the Querier of the caller's unit of work
 * - Services: ledger mutations, report assembly and property financials
 */
type Container struct {
	// Database
	LedgerDB *database.DB // Accounts, positions, transaction log and property records

	// Repositories - Data access layer
	AccountRepo     *ledger.AccountRepository     // Accounts
	PositionRepo    *ledger.PositionRepository    // Positions (derived figures written by recompute only)
	TransactionRepo *ledger.TransactionRepository // Transaction log
	PropertyRepo    *properties.Repository        // Properties, leases, income and expense templates

	// Services - Business logic layer
	LedgerService     *ledger.Service     // Transaction writes, recompute, prices, TWR
	ReportsService    *reports.Service    // Allocation, income, activity, gain/loss and holdings reports
	PropertiesService *properties.Service // Property metrics, amortization and portfolio summary
}

// Close releases the container's database.
func (c *Container) Close() error {
	if c == nil || c.LedgerDB == nil {
		return nil
	}
	return c.LedgerDB.Close()
}
