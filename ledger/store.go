/*
store.go - Persistence interface for the transaction ledger

PURPOSE:
  Defines the storage contract the engine and aggregator depend on.
  Implementations: store/sqlite (durable) and store/memory (tests).

CONTRACT NOTES:
  - Insert assigns a storage-generated id and stamps LastUpdated.
  - FindPending makes no ordering guarantee; callers must not assume one.
  - UpdateMany is all-or-nothing for the batch. Implementations that
    cannot guarantee atomicity must surface PartialWriteError; the patch
    is designed to be idempotent so redelivery converges either way.
  - ScanByUser visits every record for a user one at a time; a fresh call
    re-scans from the start.
*/
package ledger

import "context"

// Store is the durable keyed storage of transaction records.
type Store interface {
	// Insert stores a new record, assigning its id and LastUpdated.
	Insert(ctx context.Context, rec TransactionRecord) (TransactionRecord, error)

	// FindPending returns all records for (userID, storeName) with
	// status pending, in no particular order.
	FindPending(ctx context.Context, userID, storeName string) ([]TransactionRecord, error)

	// FindByTransaction returns all records for (userID, transactionID).
	FindByTransaction(ctx context.Context, userID, transactionID string) ([]TransactionRecord, error)

	// UpdateMany applies the same patch to every listed record,
	// all-or-nothing, stamping LastUpdated.
	UpdateMany(ctx context.Context, ids []string, patch Patch) error

	// ScanByUser calls fn for each of the user's records. Returning a
	// non-nil error from fn stops the scan and is returned unchanged.
	ScanByUser(ctx context.Context, userID string, fn func(TransactionRecord) error) error

	// ListByUser returns the user's records ordered by SaleDate descending.
	ListByUser(ctx context.Context, userID string) ([]TransactionRecord, error)
}
