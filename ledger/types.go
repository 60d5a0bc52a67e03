/*
Package ledger provides the core affiliate transaction ledger.

PURPOSE:
  This package contains the domain types and algorithms for reconciling
  partner sale callbacks into a durable per-user transaction ledger and
  for computing read aggregates over it.

KEY CONCEPTS IN THIS FILE (types.go):
  - TransactionRecord: One logical sale event as stored in the ledger
  - Status: The pending/confirmed/cancelled lifecycle
  - Event: A normalized partner callback or report row
  - Patch: The field set broadcast to matched pending records

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for currency, never float arithmetic
  2. Single writer: Only the reconciliation engine mutates records
  3. No deletes: Records only change status/amount/commission/date
  4. Terminal states: confirmed and cancelled records are never mutated;
     late callbacks create fresh records instead

SEE ALSO:
  - reconcile.go: Applies events to the ledger
  - aggregate.go: Read aggregates over the ledger
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Transaction lifecycle
// =============================================================================

// Status is the lifecycle state of a transaction record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a final state. Terminal records are never
// mutated; the pending-only match scope enforces this.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// =============================================================================
// TRANSACTION RECORD
// =============================================================================

// TransactionRecord is one logical sale event attributed to a user.
// ID is storage-generated; TransactionID is the partner-assigned external
// identifier and may be absent on the initiating callback.
type TransactionRecord struct {
	ID            string
	UserID        string
	StoreID       string
	StoreName     string
	SaleAmount    decimal.Decimal
	Commission    decimal.Decimal
	Status        Status
	TransactionID string
	SaleDate      time.Time
	LastUpdated   time.Time
}

// =============================================================================
// EVENT - Normalized partner input
// =============================================================================

// Event is a partner callback or report row, normalized for the engine.
// Commission is only meaningful when HasCommission is set; callback
// payloads never carry one, report rows always do.
type Event struct {
	TransactionID string
	SaleAmount    decimal.Decimal
	Commission    decimal.Decimal
	HasCommission bool
	Status        Status
	StoreName     string
	SaleDate      time.Time
	UserID        string
}

// Patch is the field set applied to every matched pending record.
// Commission is applied only when HasCommission is set.
type Patch struct {
	SaleAmount    decimal.Decimal
	Commission    decimal.Decimal
	HasCommission bool
	Status        Status
	TransactionID string
	SaleDate      time.Time
}
