package di

import (
	"testing"

	"github.com/aristath/holdings/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close()

	assert.NotNil(t, container.LedgerDB)
	assert.FileExists(t, cfg.LedgerPath())

	// Verify the schema is applied by querying a ledger table
	_, err = container.LedgerDB.Conn().Exec("SELECT COUNT(*) FROM transactions")
	assert.NoError(t, err)
}

func TestInitializeDatabases_CGODriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = database.DriverCGO

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	_, err = container.LedgerDB.Conn().Exec("SELECT COUNT(*) FROM positions")
	assert.NoError(t, err)
}

func TestInitializeServices_RequiresRepositories(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	err = InitializeServices(container, cfg, zerolog.Nop())
	assert.Error(t, err)

	assert.Error(t, InitializeRepositories(nil, zerolog.Nop()))
}
