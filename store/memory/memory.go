/*
Package memory provides an in-memory ledger.Store for tests.

PURPOSE:
  Drop-in fake for the SQLite store. Mutations are counted so tests can
  assert that failed validation never touches storage.

SEE ALSO:
  - ledger/store.go: Interface definition
  - store/sqlite: Durable implementation
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shoppiness/affiliate-engine/ledger"
)

// Store is an in-memory implementation of ledger.Store.
type Store struct {
	mu        sync.RWMutex
	records   map[string]ledger.TransactionRecord
	mutations int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]ledger.TransactionRecord)}
}

// Mutations returns the number of writes (inserts + batch updates) seen.
func (s *Store) Mutations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mutations
}

// Insert stores a new record, assigning its id and LastUpdated stamp.
func (s *Store) Insert(_ context.Context, rec ledger.TransactionRecord) (ledger.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.LastUpdated = time.Now().UTC()
	s.records[rec.ID] = rec
	s.mutations++
	return rec, nil
}

// FindPending returns all pending records for (userID, storeName).
func (s *Store) FindPending(_ context.Context, userID, storeName string) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.TransactionRecord
	for _, rec := range s.records {
		if rec.UserID == userID && rec.StoreName == storeName && rec.Status == ledger.StatusPending {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FindByTransaction returns all records for (userID, transactionID).
func (s *Store) FindByTransaction(_ context.Context, userID, transactionID string) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.TransactionRecord
	for _, rec := range s.records {
		if rec.UserID == userID && rec.TransactionID == transactionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// UpdateMany applies the same patch to every listed record.
func (s *Store) UpdateMany(_ context.Context, ids []string, patch ledger.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching anything (all-or-nothing).
	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			return fmt.Errorf("%w: update %s", ledger.ErrNoSuchRecord, id)
		}
	}

	now := time.Now().UTC()
	for _, id := range ids {
		rec := s.records[id]
		rec.SaleAmount = patch.SaleAmount
		rec.Status = patch.Status
		rec.TransactionID = patch.TransactionID
		rec.SaleDate = patch.SaleDate
		if patch.HasCommission {
			rec.Commission = patch.Commission
		}
		rec.LastUpdated = now
		s.records[id] = rec
	}
	s.mutations++
	return nil
}

// ScanByUser calls fn for each of the user's records.
func (s *Store) ScanByUser(_ context.Context, userID string, fn func(ledger.TransactionRecord) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.UserID != userID {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns the user's records ordered by SaleDate descending.
func (s *Store) ListByUser(_ context.Context, userID string) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.TransactionRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SaleDate.After(out[j].SaleDate)
	})
	return out, nil
}
