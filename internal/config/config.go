// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/modules/ledger"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Directory holding ledger.db (always absolute)
	LogLevel          string
	LogPretty         bool
	DBProfile         database.DatabaseProfile
	DBDriver          string // database.DriverModernc or database.DriverCGO
	BusyTimeout       time.Duration
	OversellPolicy    ledger.OversellPolicy
	ReportingCurrency string // ISO 4217 code used when printing amounts
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("LEDGER_DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	policy, err := ledger.ParseOversellPolicy(getEnv("LEDGER_OVERSELL_POLICY", "reject"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_OVERSELL_POLICY: %w", err)
	}

	cfg := &Config{
		DataDir:           dataDir,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", true),
		DBProfile:         database.DatabaseProfile(getEnv("LEDGER_DB_PROFILE", string(database.ProfileLedger))),
		DBDriver:          getEnv("LEDGER_DB_DRIVER", database.DriverModernc),
		BusyTimeout:       time.Duration(getEnvAsInt("LEDGER_BUSY_TIMEOUT_MS", 5000)) * time.Millisecond,
		OversellPolicy:    policy,
		ReportingCurrency: strings.ToUpper(getEnv("LEDGER_REPORTING_CURRENCY", money.USD)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	switch c.DBProfile {
	case database.ProfileLedger, database.ProfileStandard:
	default:
		return fmt.Errorf("invalid LEDGER_DB_PROFILE %q (expected ledger or standard)", c.DBProfile)
	}

	switch c.DBDriver {
	case database.DriverModernc, database.DriverCGO:
	default:
		return fmt.Errorf("invalid LEDGER_DB_DRIVER %q (expected %s or %s)", c.DBDriver, database.DriverModernc, database.DriverCGO)
	}

	if c.BusyTimeout <= 0 {
		return fmt.Errorf("LEDGER_BUSY_TIMEOUT_MS must be positive")
	}

	if money.GetCurrency(c.ReportingCurrency) == nil {
		return fmt.Errorf("unknown LEDGER_REPORTING_CURRENCY %q", c.ReportingCurrency)
	}

	return nil
}

// LedgerPath is the path of the ledger database file.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
