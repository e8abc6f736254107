// Package memory provides in-memory store implementations for tests and
// for running the watch tool without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-escrow-kit/internal/amount"
	"solana-escrow-kit/internal/escrow"
	"solana-escrow-kit/internal/storage"
)

// recordKey is the unique key of an observed transition.
type recordKey struct {
	address string
	slot    int64
}

// EscrowRecordStore is an in-memory implementation of
// storage.EscrowRecordStore.
type EscrowRecordStore struct {
	mu     sync.RWMutex
	data   map[recordKey]*escrow.Record
	nextID int64
}

// NewEscrowRecordStore creates a new in-memory escrow record store.
func NewEscrowRecordStore() *EscrowRecordStore {
	return &EscrowRecordStore{
		data:   make(map[recordKey]*escrow.Record),
		nextID: 1,
	}
}

// Compile-time interface check.
var _ storage.EscrowRecordStore = (*EscrowRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if (address, slot) exists.
func (s *EscrowRecordStore) Insert(_ context.Context, r *escrow.Record) error {
	if r == nil || r.Address == "" || int64(r.FeeBps) > amount.MaxBps {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{address: r.Address, slot: r.Slot}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation.
	recordCopy := *r
	recordCopy.ID = s.nextID
	s.nextID++
	s.data[key] = &recordCopy
	return nil
}

// GetByAddress retrieves all records for an escrow address, ordered by slot ASC.
func (s *EscrowRecordStore) GetByAddress(_ context.Context, address string) ([]*escrow.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*escrow.Record
	for _, r := range s.data {
		if r.Address == address {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Slot < result[j].Slot
	})

	return result, nil
}

// GetLatest retrieves the most recent record for an escrow address.
// Returns ErrNotFound if none exists.
func (s *EscrowRecordStore) GetLatest(_ context.Context, address string) (*escrow.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *escrow.Record
	for _, r := range s.data {
		if r.Address != address {
			continue
		}
		if latest == nil || r.Slot > latest.Slot {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	recordCopy := *latest
	return &recordCopy, nil
}

// GetByStatus retrieves all records carrying the given status, ordered by
// observed_at ASC.
func (s *EscrowRecordStore) GetByStatus(_ context.Context, status escrow.Status) ([]*escrow.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*escrow.Record
	for _, r := range s.data {
		if r.Status == status {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ObservedAt != result[j].ObservedAt {
			return result[i].ObservedAt < result[j].ObservedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}
