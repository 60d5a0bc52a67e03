/*
reconcile.go - The transaction reconciliation engine

PURPOSE:
  Converges asynchronous, possibly duplicate, possibly out-of-order
  partner callbacks into a single authoritative record per logical
  transaction.

MATCH POLICY:
  The callback path matches on (userID, storeName, status=pending) and
  broadcasts the event's fields to EVERY match. The match key is coarse:
  the partner does not guarantee a stable transaction id across the
  lifecycle of one sale, so two genuinely-distinct pending sales at the
  same store collapse into one update. Known limitation, kept on purpose.

  Report rows always carry a transaction id, so the report path uses the
  tighter (userID, transactionID) match instead.

STATE MACHINE:
  pending -> confirmed
  pending -> cancelled
  Terminal records are never mutated: the pending-only match scope means
  a late callback for an already-terminal transaction creates a new
  pending->terminal record instead.

CONCURRENCY:
  There is no cross-request coordination here. Two concurrent callbacks
  for the same pending set can both read then both write; last writer
  wins on the shared fields. The store's own locking serializes writers
  within one process, and UpdateMany batches are atomic, which is as much
  as the partner's low-frequency, eventually-corrected feed needs.

SEE ALSO:
  - report.go: Bulk report reconciliation reusing Apply's semantics
  - store.go: The persistence contract
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine applies partner events to the ledger. It is the sole writer of
// transaction records.
type Engine struct {
	store Store
	log   *zap.Logger
}

// NewEngine creates a reconciliation engine on the given store.
func NewEngine(store Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// Outcome describes what Apply did with an event.
type Outcome struct {
	// Created is true when no pending match existed and a new record
	// was inserted.
	Created bool

	// Matched is the number of pending records the event was broadcast
	// to (zero when Created).
	Matched int

	// Record is the inserted record when Created.
	Record TransactionRecord
}

// Apply reconciles one partner event into the ledger.
//
// Validation failures are terminal: the partner's retry would repeat the
// same payload. Storage failures are retryable; the patch is idempotent
// so redelivery converges.
func (e *Engine) Apply(ctx context.Context, ev Event) (Outcome, error) {
	if err := validate(ev); err != nil {
		return Outcome{}, err
	}

	matches, err := e.store.FindPending(ctx, ev.UserID, ev.StoreName)
	if err != nil {
		return Outcome{}, fmt.Errorf("find pending for user %s: %w", ev.UserID, err)
	}

	if len(matches) == 0 {
		// Covers genuinely new sales and events whose initiating
		// callback was never matched.
		rec, err := e.store.Insert(ctx, newRecord(ev))
		if err != nil {
			return Outcome{}, fmt.Errorf("insert transaction: %w", err)
		}
		e.log.Info("transaction created",
			zap.String("user_id", ev.UserID),
			zap.String("store", ev.StoreName),
			zap.String("status", string(ev.Status)),
		)
		return Outcome{Created: true, Record: rec}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}

	if err := e.store.UpdateMany(ctx, ids, patchFrom(ev)); err != nil {
		return Outcome{}, fmt.Errorf("update %d transactions: %w", len(ids), err)
	}

	e.log.Info("transaction updated",
		zap.String("user_id", ev.UserID),
		zap.String("store", ev.StoreName),
		zap.String("status", string(ev.Status)),
		zap.Int("matched", len(ids)),
	)
	return Outcome{Matched: len(ids)}, nil
}

// =============================================================================
// VALIDATION AND MAPPING
// =============================================================================

func validate(ev Event) error {
	if ev.UserID == "" {
		return &MissingAttributionError{
			StoreName:     ev.StoreName,
			TransactionID: ev.TransactionID,
		}
	}
	if !ev.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, ev.Status)
	}
	if ev.SaleAmount.IsNegative() {
		return fmt.Errorf("%w: sale amount %s", ErrNegativeAmount, ev.SaleAmount)
	}
	if ev.HasCommission && ev.Commission.IsNegative() {
		return fmt.Errorf("%w: commission %s", ErrNegativeAmount, ev.Commission)
	}
	return nil
}

func newRecord(ev Event) TransactionRecord {
	rec := TransactionRecord{
		UserID: ev.UserID,
		// The callback has no separate store id; the name doubles as one.
		StoreID:       ev.StoreName,
		StoreName:     ev.StoreName,
		SaleAmount:    ev.SaleAmount,
		Status:        ev.Status,
		TransactionID: ev.TransactionID,
		SaleDate:      ev.SaleDate,
	}
	// Commission only exists on confirmed records.
	if ev.HasCommission && ev.Status == StatusConfirmed {
		rec.Commission = ev.Commission
	}
	return rec
}

func patchFrom(ev Event) Patch {
	p := Patch{
		SaleAmount:    ev.SaleAmount,
		Status:        ev.Status,
		TransactionID: ev.TransactionID,
		SaleDate:      ev.SaleDate,
	}
	if ev.Status == StatusConfirmed {
		if ev.HasCommission {
			p.Commission = ev.Commission
			p.HasCommission = true
		}
	} else {
		// A demotion must not leave a stale commission on the record.
		p.Commission = decimal.Zero
		p.HasCommission = true
	}
	return p
}
