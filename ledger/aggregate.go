/*
aggregate.go - Read aggregates over the transaction ledger

PURPOSE:
  Computes the two client-facing views: per-user totals and per-store
  summaries. Both are single-pass folds over ScanByUser, computed on
  demand with no caching; cost is linear in the user's record count.

SEE ALSO:
  - store.go: ScanByUser contract
  - api/handlers.go: Serves these views
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VIEW TYPES
// =============================================================================

// UserStats is the per-user aggregate over all of a user's records.
type UserStats struct {
	TotalTransactions int
	PendingAmount     decimal.Decimal
	ConfirmedAmount   decimal.Decimal
	CancelledAmount   decimal.Decimal
	TotalCommission   decimal.Decimal
}

// StoreStats is the fold restricted to a single store's records.
type StoreStats struct {
	TotalTransactions int
	PendingAmount     decimal.Decimal
	ConfirmedAmount   decimal.Decimal
	TotalCommission   decimal.Decimal
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes read views over the ledger. It never writes.
type Aggregator struct {
	store Store
}

// NewAggregator creates an aggregator on the given store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// UserStats folds all of a user's records into running totals.
// Commission is counted only on confirmed records; unset amounts are zero.
func (a *Aggregator) UserStats(ctx context.Context, userID string) (UserStats, error) {
	stats := UserStats{
		PendingAmount:   decimal.Zero,
		ConfirmedAmount: decimal.Zero,
		CancelledAmount: decimal.Zero,
		TotalCommission: decimal.Zero,
	}

	err := a.store.ScanByUser(ctx, userID, func(rec TransactionRecord) error {
		stats.TotalTransactions++
		switch rec.Status {
		case StatusPending:
			stats.PendingAmount = stats.PendingAmount.Add(rec.SaleAmount)
		case StatusConfirmed:
			stats.ConfirmedAmount = stats.ConfirmedAmount.Add(rec.SaleAmount)
			stats.TotalCommission = stats.TotalCommission.Add(rec.Commission)
		case StatusCancelled:
			stats.CancelledAmount = stats.CancelledAmount.Add(rec.SaleAmount)
		}
		return nil
	})
	if err != nil {
		return UserStats{}, err
	}
	return stats, nil
}

// StoreSummary folds a user's records grouped by store name. Stores with
// no records for the user are absent from the map, never zero-valued.
func (a *Aggregator) StoreSummary(ctx context.Context, userID string) (map[string]StoreStats, error) {
	summary := make(map[string]StoreStats)

	err := a.store.ScanByUser(ctx, userID, func(rec TransactionRecord) error {
		s, ok := summary[rec.StoreName]
		if !ok {
			s = StoreStats{
				PendingAmount:   decimal.Zero,
				ConfirmedAmount: decimal.Zero,
				TotalCommission: decimal.Zero,
			}
		}
		s.TotalTransactions++
		switch rec.Status {
		case StatusPending:
			s.PendingAmount = s.PendingAmount.Add(rec.SaleAmount)
		case StatusConfirmed:
			s.ConfirmedAmount = s.ConfirmedAmount.Add(rec.SaleAmount)
			s.TotalCommission = s.TotalCommission.Add(rec.Commission)
		}
		summary[rec.StoreName] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
