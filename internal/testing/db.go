// Package testing provides testing utilities and helpers for the holdings project.
package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aristath/holdings/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a per-test temporary
// directory and applies the schema registered for name ("ledger").
// The database is closed automatically when the test finishes.
//
// A temporary file is used instead of :memory: so several connections (and
// therefore concurrent units of work) share one database.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("test_%s.db", name))

	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	return db
}

// NewMemoryDB creates an in-memory ledger database on the CGO driver.
// It is pinned to a single connection, so it suits repository tests that do
// not exercise concurrency.
func NewMemoryDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:   ":memory:",
		Name:   "ledger",
		Driver: database.DriverCGO,
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}
