package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// SwapRecordStore implements storage.SwapRecordStore using PostgreSQL.
type SwapRecordStore struct {
	pool *Pool
}

// NewSwapRecordStore creates a new SwapRecordStore.
func NewSwapRecordStore(pool *Pool) *SwapRecordStore {
	return &SwapRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)

const insertRecordQuery = `
	INSERT INTO swap_records (
		signature, wallet, ts, from_token, from_symbol, from_amount,
		to_token, to_symbol, to_amount, venue
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert adds a record. Returns ErrDuplicateKey if the signature exists.
func (s *SwapRecordStore) Insert(ctx context.Context, r *domain.SwapRecord) error {
	if r == nil || r.Signature == "" || r.Wallet == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertRecordQuery, recordArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SwapRecordStore) InsertBulk(ctx context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.Signature == "" || r.Wallet == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertRecordQuery, recordArgs(r)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert swap record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByWallet retrieves all records for a wallet, ordered by timestamp ASC.
func (s *SwapRecordStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.SwapRecord, error) {
	query := `
		SELECT signature, wallet, ts, from_token, from_symbol, from_amount::text,
		       to_token, to_symbol, to_amount::text, venue
		FROM swap_records
		WHERE wallet = $1
		ORDER BY ts ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get swap records by wallet: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByTimeRange retrieves records for a wallet within [start, end] (inclusive).
func (s *SwapRecordStore) GetByTimeRange(ctx context.Context, wallet string, start, end time.Time) ([]*domain.SwapRecord, error) {
	query := `
		SELECT signature, wallet, ts, from_token, from_symbol, from_amount::text,
		       to_token, to_symbol, to_amount::text, venue
		FROM swap_records
		WHERE wallet = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, start, end)
	if err != nil {
		return nil, fmt.Errorf("get swap records by time range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// recordArgs flattens a record into insert parameters. Decimals travel as
// text; Postgres casts them into the NUMERIC columns.
func recordArgs(r *domain.SwapRecord) []any {
	return []any{
		r.Signature,
		r.Wallet,
		r.Timestamp,
		r.FromToken,
		r.FromSymbol,
		r.FromAmount.String(),
		r.ToToken,
		r.ToSymbol,
		r.ToAmount.String(),
		r.Venue,
	}
}

// scanRecords scans multiple rows into a slice of SwapRecord.
func scanRecords(rows pgx.Rows) ([]*domain.SwapRecord, error) {
	var records []*domain.SwapRecord

	for rows.Next() {
		var r domain.SwapRecord
		var fromAmount, toAmount string

		err := rows.Scan(
			&r.Signature,
			&r.Wallet,
			&r.Timestamp,
			&r.FromToken,
			&r.FromSymbol,
			&fromAmount,
			&r.ToToken,
			&r.ToSymbol,
			&toAmount,
			&r.Venue,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap record row: %w", err)
		}

		if r.FromAmount, err = decimal.NewFromString(fromAmount); err != nil {
			return nil, fmt.Errorf("parse from_amount %q: %w", fromAmount, err)
		}
		if r.ToAmount, err = decimal.NewFromString(toAmount); err != nil {
			return nil, fmt.Errorf("parse to_amount %q: %w", toAmount, err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap record rows: %w", err)
	}

	return records, nil
}
