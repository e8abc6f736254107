package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-escrow-kit/internal/amount"
	"solana-escrow-kit/internal/escrow"
	"solana-escrow-kit/internal/observability"
	"solana-escrow-kit/internal/storage"
)

// EscrowRecordStore implements storage.EscrowRecordStore using PostgreSQL.
type EscrowRecordStore struct {
	pool *Pool
}

// NewEscrowRecordStore creates a new EscrowRecordStore.
func NewEscrowRecordStore(pool *Pool) *EscrowRecordStore {
	return &EscrowRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EscrowRecordStore = (*EscrowRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if (address, slot) exists.
func (s *EscrowRecordStore) Insert(ctx context.Context, r *escrow.Record) error {
	// fee_bps is a SMALLINT; anything past the bps scale would wrap.
	if r == nil || r.Address == "" || int64(r.FeeBps) > amount.MaxBps {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO escrow_records (
			address, slot, status, amount, fee_bps, initializer, beneficiary, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.Address,
		r.Slot,
		r.Status.String(),
		r.Amount,
		int16(r.FeeBps),
		r.Initializer,
		r.Beneficiary,
		r.ObservedAt,
	)
	observability.RecordDBQuery("insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert escrow record: %w", err)
	}
	return nil
}

// GetByAddress retrieves all records for an escrow address, ordered by slot ASC.
func (s *EscrowRecordStore) GetByAddress(ctx context.Context, address string) ([]*escrow.Record, error) {
	query := `
		SELECT id, address, slot, status, amount, fee_bps, initializer, beneficiary, observed_at, created_at
		FROM escrow_records
		WHERE address = $1
		ORDER BY slot ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, address)
	observability.RecordDBQuery("get_by_address", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get records by address: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetLatest retrieves the most recent record for an escrow address.
// Returns ErrNotFound if none exists.
func (s *EscrowRecordStore) GetLatest(ctx context.Context, address string) (*escrow.Record, error) {
	query := `
		SELECT id, address, slot, status, amount, fee_bps, initializer, beneficiary, observed_at, created_at
		FROM escrow_records
		WHERE address = $1
		ORDER BY slot DESC
		LIMIT 1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, address)
	r, err := scanRecord(row)
	observability.RecordDBQuery("get_latest", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest record: %w", err)
	}
	return r, nil
}

// GetByStatus retrieves all records carrying the given status, ordered by
// observed_at ASC.
func (s *EscrowRecordStore) GetByStatus(ctx context.Context, status escrow.Status) ([]*escrow.Record, error) {
	query := `
		SELECT id, address, slot, status, amount, fee_bps, initializer, beneficiary, observed_at, created_at
		FROM escrow_records
		WHERE status = $1
		ORDER BY observed_at ASC, id ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, status.String())
	observability.RecordDBQuery("get_by_status", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get records by status: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// scanRecord scans a single row into an escrow.Record.
func scanRecord(row pgx.Row) (*escrow.Record, error) {
	var (
		r          escrow.Record
		statusText string
		feeBps     int16
	)
	err := row.Scan(
		&r.ID,
		&r.Address,
		&r.Slot,
		&statusText,
		&r.Amount,
		&feeBps,
		&r.Initializer,
		&r.Beneficiary,
		&r.ObservedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := escrow.StatusFromString(statusText)
	if err != nil {
		return nil, err
	}
	r.Status = status
	r.FeeBps = uint16(feeBps)
	return &r, nil
}

// scanRecords scans all rows into escrow.Records.
func scanRecords(rows pgx.Rows) ([]*escrow.Record, error) {
	var records []*escrow.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrow records: %w", err)
	}
	return records, nil
}
