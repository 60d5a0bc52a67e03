/*
report.go - Bulk reconciliation against the partner's report feed

PURPOSE:
  Periodic reconciliation of the full partner report into the ledger.
  Report rows always carry a transaction id and a user commission, so
  the match key is the tighter (userID, transactionID) rather than the
  callback path's coarse (userID, storeName, pending).

IDEMPOTENCY:
  Re-running the same report converges: rows that already match update
  in place with the same values, rows that don't insert once and match
  on the next run.

SEE ALSO:
  - reconcile.go: Per-event semantics this job reuses
  - gateway/inrdeals.go: Fetches the report
*/
package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReportSummary describes what a report sync did.
type ReportSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SyncReport reconciles a batch of report rows into the ledger. Rows
// without attribution are skipped, not fatal; the partner includes sales
// referred by other publishers in the same report.
func (e *Engine) SyncReport(ctx context.Context, rows []Event) (ReportSummary, error) {
	var sum ReportSummary

	for _, row := range rows {
		if row.UserID == "" {
			sum.Skipped++
			continue
		}
		if err := validate(row); err != nil {
			e.log.Warn("report row rejected", zap.Error(err))
			sum.Skipped++
			continue
		}

		matches, err := e.store.FindByTransaction(ctx, row.UserID, row.TransactionID)
		if err != nil {
			return sum, fmt.Errorf("find transaction %s: %w", row.TransactionID, err)
		}

		if len(matches) == 0 {
			if _, err := e.store.Insert(ctx, newRecord(row)); err != nil {
				return sum, fmt.Errorf("insert report row %s: %w", row.TransactionID, err)
			}
			sum.Created++
			continue
		}

		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		if err := e.store.UpdateMany(ctx, ids, patchFrom(row)); err != nil {
			return sum, fmt.Errorf("update report row %s: %w", row.TransactionID, err)
		}
		sum.Updated++
	}

	e.log.Info("report sync finished",
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}
