package storage

import (
	"context"

	"solana-escrow-kit/internal/escrow"
)

// EscrowRecordStore provides access to escrow_records storage. The store is
// append-only: each observed (address, slot) transition is written once and
// never updated.
type EscrowRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (address, slot)
	// exists.
	Insert(ctx context.Context, r *escrow.Record) error

	// GetByAddress retrieves all records for an escrow address, ordered by
	// slot ASC.
	GetByAddress(ctx context.Context, address string) ([]*escrow.Record, error)

	// GetLatest retrieves the most recent record for an escrow address.
	// Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, address string) (*escrow.Record, error)

	// GetByStatus retrieves all records carrying the given status, ordered
	// by observed_at ASC.
	GetByStatus(ctx context.Context, status escrow.Status) ([]*escrow.Record, error)
}
