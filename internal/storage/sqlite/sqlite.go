// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/ledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// guardSQL installs the commit-time split balance triggers.
//
//go:embed guard.sql
var guardSQL string

const dropGuardSQL = `
DROP TRIGGER IF EXISTS trg_expense_splits_balance_insert;
DROP TRIGGER IF EXISTS trg_expense_splits_balance_update;
DROP TRIGGER IF EXISTS trg_expense_splits_balance_delete;
DROP TRIGGER IF EXISTS trg_expenses_balance_insert;
DROP TRIGGER IF EXISTS trg_expenses_balance_update;
DROP TRIGGER IF EXISTS trg_expenses_balance_delete;
DELETE FROM split_imbalances;
`

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements storage.Queries on top of a connection or a transaction.
type queries struct {
	db dbtx

	// touched collects expense ids written inside a transaction.
	touched map[string]struct{}
}

func (q *queries) touch(expenseID string) {
	if q.touched != nil {
		q.touched[expenseID] = struct{}{}
	}
}

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	*queries
	db      *sql.DB
	profile storage.Profile
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories, runs migrations and installs or removes
// the balance guard according to the profile.
func New(dbPath string, profile storage.Profile) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyProfile(db, profile); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{
		queries: &queries{db: db},
		db:      db,
		profile: profile,
	}, nil
}

// DSN builds the connection string used by the store. Every connection gets
// foreign keys (the guard depends on them), a busy timeout, WAL mode and
// BEGIN IMMEDIATE transactions so writers serialize instead of failing on
// lock upgrades.
func DSN(dbPath string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")
	return "file:" + dbPath + "?" + params.Encode()
}

func applyProfile(db *sql.DB, profile storage.Profile) error {
	if profile.DeferredGuard {
		if _, err := db.Exec(guardSQL); err != nil {
			return fmt.Errorf("failed to install balance guard: %w", err)
		}
		return nil
	}
	if _, err := db.Exec(dropGuardSQL); err != nil {
		return fmt.Errorf("failed to remove balance guard: %w", err)
	}
	return nil
}

// Profile returns the schema profile the store was opened with.
func (s *SQLiteStore) Profile() storage.Profile {
	return s.profile
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
