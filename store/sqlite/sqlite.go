/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Durable keyed storage of transaction records. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLE:
  transactions: One row per logical sale event. Amounts are stored as
  decimal strings, never floats.

INDEXES:
  - idx_transactions_match:     (user_id, store_name, status) pending match
  - idx_transactions_partner:   (user_id, transaction_id) report match
  - idx_transactions_user_date: (user_id, sale_date DESC) listing

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within one process. UpdateMany runs
  inside a single SQL transaction, so the batch is all-or-nothing.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/shoppiness/affiliate-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		store_name TEXT NOT NULL,
		sale_amount TEXT NOT NULL,
		commission TEXT,
		status TEXT NOT NULL,
		transaction_id TEXT,
		sale_date TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	-- Pending-match lookup (hot path for callbacks)
	CREATE INDEX IF NOT EXISTS idx_transactions_match
		ON transactions(user_id, store_name, status);

	-- Partner-id lookup (report sync)
	CREATE INDEX IF NOT EXISTS idx_transactions_partner
		ON transactions(user_id, transaction_id)
		WHERE transaction_id IS NOT NULL;

	-- Listing and scans
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON transactions(user_id, sale_date DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Insert stores a new record, assigning its id and LastUpdated stamp.
func (s *Store) Insert(ctx context.Context, rec ledger.TransactionRecord) (ledger.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.LastUpdated = time.Now().UTC()

	query := `
		INSERT INTO transactions
		(id, user_id, store_id, store_name, sale_amount, commission, status,
		 transaction_id, sale_date, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.StoreID,
		rec.StoreName,
		rec.SaleAmount.String(),
		commissionValue(rec),
		string(rec.Status),
		nullString(rec.TransactionID),
		rec.SaleDate.UTC().Format(time.RFC3339),
		rec.LastUpdated.Format(time.RFC3339),
	)
	if err != nil {
		return ledger.TransactionRecord{}, fmt.Errorf("%w: insert: %v", ledger.ErrStorageUnavailable, err)
	}

	return rec, nil
}

// FindPending returns all pending records for (userID, storeName).
func (s *Store) FindPending(ctx context.Context, userID, storeName string) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectColumns + `
		WHERE user_id = ? AND store_name = ? AND status = ?
	`
	return s.queryRecords(ctx, query, userID, storeName, string(ledger.StatusPending))
}

// FindByTransaction returns all records for (userID, transactionID).
func (s *Store) FindByTransaction(ctx context.Context, userID, transactionID string) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectColumns + `
		WHERE user_id = ? AND transaction_id = ?
	`
	return s.queryRecords(ctx, query, userID, transactionID)
}

// UpdateMany applies the same patch to every listed record inside a
// single SQL transaction.
func (s *Store) UpdateMany(ctx context.Context, ids []string, patch ledger.Patch) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %v", ledger.ErrStorageUnavailable, err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, id := range ids {
		var res sql.Result
		if patch.HasCommission {
			res, err = sqlTx.ExecContext(ctx, `
				UPDATE transactions
				SET sale_amount = ?, commission = ?, status = ?, transaction_id = ?,
				    sale_date = ?, last_updated = ?
				WHERE id = ?`,
				patch.SaleAmount.String(), patchCommissionValue(patch),
				string(patch.Status), nullString(patch.TransactionID),
				patch.SaleDate.UTC().Format(time.RFC3339), now, id,
			)
		} else {
			res, err = sqlTx.ExecContext(ctx, `
				UPDATE transactions
				SET sale_amount = ?, status = ?, transaction_id = ?,
				    sale_date = ?, last_updated = ?
				WHERE id = ?`,
				patch.SaleAmount.String(),
				string(patch.Status), nullString(patch.TransactionID),
				patch.SaleDate.UTC().Format(time.RFC3339), now, id,
			)
		}
		if err != nil {
			return fmt.Errorf("%w: update %s: %v", ledger.ErrStorageUnavailable, id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: update %s", ledger.ErrNoSuchRecord, id)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		// An ambiguous commit may have applied part of the batch.
		return &ledger.PartialWriteError{IDs: ids, Err: err}
	}
	return nil
}

// ScanByUser calls fn for each of the user's records, one row at a time.
func (s *Store) ScanByUser(ctx context.Context, userID string, fn func(ledger.TransactionRecord) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectColumns + `
		WHERE user_id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("%w: scan: %v", ledger.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListByUser returns the user's records ordered by sale date descending.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectColumns + `
		WHERE user_id = ?
		ORDER BY sale_date DESC, last_updated DESC
	`
	return s.queryRecords(ctx, query, userID)
}

// =============================================================================
// ROW HELPERS
// =============================================================================

const selectColumns = `
	SELECT id, user_id, store_id, store_name, sale_amount, commission,
	       status, transaction_id, sale_date, last_updated
	FROM transactions
`

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]ledger.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ledger.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var records []ledger.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (ledger.TransactionRecord, error) {
	var (
		rec           ledger.TransactionRecord
		saleAmount    string
		commission    sql.NullString
		status        string
		transactionID sql.NullString
		saleDate      string
		lastUpdated   string
	)

	err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.StoreID, &rec.StoreName,
		&saleAmount, &commission, &status, &transactionID,
		&saleDate, &lastUpdated,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan transaction: %w", err)
	}

	rec.SaleAmount = parseDecimal(saleAmount)
	if commission.Valid {
		rec.Commission = parseDecimal(commission.String)
	}
	rec.Status = ledger.Status(status)
	rec.TransactionID = transactionID.String
	if rec.SaleDate, err = time.Parse(time.RFC3339, saleDate); err != nil {
		return rec, fmt.Errorf("failed to parse sale date of %s: %w", rec.ID, err)
	}
	if rec.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
		return rec, fmt.Errorf("failed to parse last updated of %s: %w", rec.ID, err)
	}

	return rec, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func commissionValue(rec ledger.TransactionRecord) any {
	// Commission only exists once a record is confirmed.
	if rec.Status != ledger.StatusConfirmed || rec.Commission.IsZero() {
		return nil
	}
	return rec.Commission.String()
}

func patchCommissionValue(patch ledger.Patch) any {
	// Same rule as commissionValue: a patch that demotes a record clears
	// the column rather than storing a zero.
	if patch.Status != ledger.StatusConfirmed || patch.Commission.IsZero() {
		return nil
	}
	return patch.Commission.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
