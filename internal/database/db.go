// Package database provides the SQLite store behind the ledger: connection
// setup, schema migration and the unit-of-work helpers every ledger
// mutation runs through.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // Pure Go SQLite driver, registered as "sqlite"
)

//go:embed schemas/*.sql
var schemaFS embed.FS

// DatabaseProfile defines different configuration profiles for databases
type DatabaseProfile string

const (
	// ProfileLedger - Maximum safety for the transaction log
	ProfileLedger DatabaseProfile = "ledger"
	// ProfileStandard - Balanced configuration
	ProfileStandard DatabaseProfile = "standard"
)

// Driver names understood by Config.Driver.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite
	DriverCGO     = "sqlite3" // github.com/mattn/go-sqlite3
)

// DefaultBusyTimeout is how long a writer waits for the write lock.
const DefaultBusyTimeout = 5 * time.Second

// Querier is satisfied by *sql.DB and *sql.Tx. Repositories take one
// explicitly so the caller decides which unit of work a statement joins.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the database connection with production-grade configuration
type DB struct {
	conn    *sql.DB
	path    string
	profile DatabaseProfile
	name    string // Database name for logging
}

// Config holds database configuration
type Config struct {
	Path        string
	Profile     DatabaseProfile
	Name        string // Friendly name for logging and schema lookup (e.g. "ledger")
	Driver      string // DriverModernc (default) or DriverCGO
	BusyTimeout time.Duration
}

// New creates a new database connection.
//
// Every connection opens transactions with BEGIN IMMEDIATE so a writer holds
// the write lock from its first statement. Two recomputations of the same
// position therefore never interleave their read of the transaction list
// with each other's write.
func New(cfg Config) (*DB, error) {
	inMemory := cfg.Path == ":memory:" || strings.HasPrefix(cfg.Path, "file:")
	if !inMemory {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(cfg.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	configureConnectionPool(conn, inMemory)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{
		conn:    conn,
		path:    cfg.Path,
		profile: cfg.Profile,
		name:    cfg.Name,
	}, nil
}

// buildConnectionString creates the driver-specific DSN with profile PRAGMAs
func buildConnectionString(cfg Config) (string, error) {
	timeoutMS := cfg.BusyTimeout.Milliseconds()
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}

	switch cfg.Driver {
	case DriverModernc:
		connStr := cfg.Path + sep + "_txlock=immediate"
		connStr += fmt.Sprintf("&_pragma=busy_timeout(%d)", timeoutMS)
		connStr += "&_pragma=journal_mode(WAL)"
		if cfg.Profile == ProfileLedger {
			connStr += "&_pragma=synchronous(FULL)" // Fsync after every write
		} else {
			connStr += "&_pragma=synchronous(NORMAL)"
		}
		connStr += "&_pragma=foreign_keys(1)"
		return connStr, nil

	case DriverCGO:
		connStr := cfg.Path + sep + "_txlock=immediate"
		connStr += fmt.Sprintf("&_busy_timeout=%d", timeoutMS)
		connStr += "&_journal_mode=WAL"
		if cfg.Profile == ProfileLedger {
			connStr += "&_synchronous=FULL"
		} else {
			connStr += "&_synchronous=NORMAL"
		}
		connStr += "&_foreign_keys=on"
		return connStr, nil

	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

// configureConnectionPool sets up the connection pool. An in-memory database
// exists per connection, so it is pinned to a single one.
func configureConnectionPool(conn *sql.DB, inMemory bool) {
	if inMemory {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
		return
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Name returns the database name for logging
func (db *DB) Name() string {
	return db.name
}

// Profile returns the database profile
func (db *DB) Profile() DatabaseProfile {
	return db.profile
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate applies the embedded schema for this database's name.
// Schemas use CREATE ... IF NOT EXISTS, so migrating twice is harmless.
func (db *DB) Migrate() error {
	schemaFiles := map[string]string{
		"ledger": "schemas/ledger_schema.sql",
	}

	schemaFile, ok := schemaFiles[db.name]
	if !ok {
		return nil
	}

	content, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", schemaFile, err)
	}

	return WithTransaction(context.Background(), db.conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute schema %s for %s: %w", schemaFile, db.name, err)
		}
		return nil
	})
}

// WithTransaction executes fn within a database transaction.
// It handles begin, commit, rollback, panic recovery, and error wrapping.
// If fn returns an error or panics, nothing fn wrote is persisted.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// WithReadTransaction runs fn inside a read-only transaction so every query
// fn issues sees the same snapshot. Nothing is written; the transaction is
// always rolled back.
func WithReadTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// HealthCheck pings the database and runs an integrity check
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var integrityResult string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if integrityResult != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, integrityResult)
	}

	return nil
}

// WALCheckpoint forces a WAL checkpoint to prevent bloat
func (db *DB) WALCheckpoint(mode string) error {
	// Modes: PASSIVE, FULL, RESTART, TRUNCATE
	if mode == "" {
		mode = "TRUNCATE"
	}

	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)); err != nil {
		return fmt.Errorf("WAL checkpoint failed for %s: %w", db.name, err)
	}
	return nil
}
