package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoppiness/affiliate-engine/ledger"
	"github.com/shoppiness/affiliate-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(userID, storeName string, amount float64, status ledger.Status, saleDate time.Time) ledger.TransactionRecord {
	return ledger.TransactionRecord{
		UserID:     userID,
		StoreID:    storeName,
		StoreName:  storeName,
		SaleAmount: decimal.NewFromFloat(amount),
		Status:     status,
		SaleDate:   saleDate,
	}
}

var baseDate = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

// =============================================================================
// INSERT
// =============================================================================

func TestInsert_AssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Insert(ctx, record("user-1", "Amazon", 150.25, ledger.StatusPending, baseDate))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.LastUpdated.IsZero())

	fetched, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, rec.ID, fetched[0].ID)
	assert.True(t, fetched[0].SaleAmount.Equal(decimal.NewFromFloat(150.25)), "decimal survives the round trip")
	assert.Equal(t, baseDate, fetched[0].SaleDate)
}

func TestInsert_CommissionOnlyStoredWhenConfirmed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pending := record("user-1", "Amazon", 100, ledger.StatusPending, baseDate)
	pending.Commission = decimal.NewFromInt(10)
	_, err := store.Insert(ctx, pending)
	require.NoError(t, err)

	confirmed := record("user-1", "Flipkart", 200, ledger.StatusConfirmed, baseDate)
	confirmed.Commission = decimal.NewFromInt(20)
	_, err = store.Insert(ctx, confirmed)
	require.NoError(t, err)

	records, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, rec := range records {
		if rec.Status == ledger.StatusPending {
			assert.True(t, rec.Commission.IsZero())
		} else {
			assert.True(t, rec.Commission.Equal(decimal.NewFromInt(20)))
		}
	}
}

// =============================================================================
// FIND
// =============================================================================

func TestFindPending_FiltersByUserStoreStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Insert(ctx, record("user-1", "Amazon", 100, ledger.StatusPending, baseDate))
	store.Insert(ctx, record("user-1", "Amazon", 200, ledger.StatusPending, baseDate))
	store.Insert(ctx, record("user-1", "Amazon", 300, ledger.StatusConfirmed, baseDate))
	store.Insert(ctx, record("user-1", "Flipkart", 400, ledger.StatusPending, baseDate))
	store.Insert(ctx, record("user-2", "Amazon", 500, ledger.StatusPending, baseDate))

	matches, err := store.FindPending(ctx, "user-1", "Amazon")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, ledger.StatusPending, m.Status)
		assert.Equal(t, "Amazon", m.StoreName)
		assert.Equal(t, "user-1", m.UserID)
	}
}

func TestFindByTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := record("user-1", "Amazon", 100, ledger.StatusPending, baseDate)
	rec.TransactionID = "txn-9"
	store.Insert(ctx, rec)
	store.Insert(ctx, record("user-1", "Amazon", 200, ledger.StatusPending, baseDate))

	matches, err := store.FindByTransaction(ctx, "user-1", "txn-9")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "txn-9", matches[0].TransactionID)

	none, err := store.FindByTransaction(ctx, "user-2", "txn-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// UPDATE MANY
// =============================================================================

func TestUpdateMany_PatchesEveryListedRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r1, _ := store.Insert(ctx, record("user-1", "Amazon", 100, ledger.StatusPending, baseDate))
	r2, _ := store.Insert(ctx, record("user-1", "Amazon", 200, ledger.StatusPending, baseDate))
	other, _ := store.Insert(ctx, record("user-1", "Flipkart", 900, ledger.StatusPending, baseDate))

	newDate := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	patch := ledger.Patch{
		SaleAmount:    decimal.NewFromInt(250),
		Commission:    decimal.NewFromInt(12),
		HasCommission: true,
		Status:        ledger.StatusConfirmed,
		TransactionID: "txn-42",
		SaleDate:      newDate,
	}

	err := store.UpdateMany(ctx, []string{r1.ID, r2.ID}, patch)
	require.NoError(t, err)

	records, _ := store.ListByUser(ctx, "user-1")
	require.Len(t, records, 3)

	for _, rec := range records {
		switch rec.ID {
		case r1.ID, r2.ID:
			assert.True(t, rec.SaleAmount.Equal(decimal.NewFromInt(250)))
			assert.True(t, rec.Commission.Equal(decimal.NewFromInt(12)))
			assert.Equal(t, ledger.StatusConfirmed, rec.Status)
			assert.Equal(t, "txn-42", rec.TransactionID)
			assert.Equal(t, newDate, rec.SaleDate)
		case other.ID:
			assert.True(t, rec.SaleAmount.Equal(decimal.NewFromInt(900)), "unlisted record untouched")
			assert.Equal(t, ledger.StatusPending, rec.Status)
		}
	}
}

func TestUpdateMany_DemotionClearsCommission(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	confirmed := record("user-1", "Amazon", 100, ledger.StatusConfirmed, baseDate)
	confirmed.Commission = decimal.NewFromInt(8)
	rec, err := store.Insert(ctx, confirmed)
	require.NoError(t, err)

	patch := ledger.Patch{
		SaleAmount:    decimal.NewFromInt(100),
		Commission:    decimal.Zero,
		HasCommission: true,
		Status:        ledger.StatusPending,
		SaleDate:      baseDate,
	}
	require.NoError(t, store.UpdateMany(ctx, []string{rec.ID}, patch))

	records, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ledger.StatusPending, records[0].Status)
	assert.True(t, records[0].Commission.IsZero(), "commission column must be cleared")
}

func TestUpdateMany_UnknownIDFailsWholeBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r1, _ := store.Insert(ctx, record("user-1", "Amazon", 100, ledger.StatusPending, baseDate))

	patch := ledger.Patch{
		SaleAmount: decimal.NewFromInt(999),
		Status:     ledger.StatusConfirmed,
		SaleDate:   baseDate,
	}

	err := store.UpdateMany(ctx, []string{r1.ID, "no-such-id"}, patch)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNoSuchRecord)
	assert.False(t, ledger.IsRetryable(err), "redelivery cannot make the id exist")

	// All-or-nothing: the first record must not have been patched.
	records, _ := store.ListByUser(ctx, "user-1")
	require.Len(t, records, 1)
	assert.True(t, records[0].SaleAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, ledger.StatusPending, records[0].Status)
}

func TestUpdateMany_EmptyBatchIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.UpdateMany(context.Background(), nil, ledger.Patch{}))
}

// =============================================================================
// SCAN AND LIST
// =============================================================================

func TestScanByUser_VisitsEveryRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Insert(ctx, record("user-1", "Amazon", 100, ledger.StatusPending, baseDate))
	store.Insert(ctx, record("user-1", "Flipkart", 200, ledger.StatusConfirmed, baseDate))
	store.Insert(ctx, record("user-2", "Amazon", 300, ledger.StatusPending, baseDate))

	var seen int
	err := store.ScanByUser(ctx, "user-1", func(rec ledger.TransactionRecord) error {
		seen++
		assert.Equal(t, "user-1", rec.UserID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)

	// Restartable: a fresh call re-scans.
	seen = 0
	err = store.ScanByUser(ctx, "user-1", func(ledger.TransactionRecord) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestListByUser_OrderedBySaleDateDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		store.Insert(ctx, record("user-1", "Amazon", float64(100+i), ledger.StatusPending, d))
	}

	records, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, dates[1], records[0].SaleDate)
	assert.Equal(t, dates[2], records[1].SaleDate)
	assert.Equal(t, dates[0], records[2].SaleDate)
}
