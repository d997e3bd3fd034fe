package storage

import (
	"context"
	"time"

	"solana-tax-engine/internal/domain"
)

// QuoteStore provides access to cached price quotes, keyed by (token, timestamp).
// Inserts are first-writer-wins: a conflicting write returns ErrDuplicateKey
// and callers are expected to ignore it.
type QuoteStore interface {
	// Insert adds a quote. Returns ErrDuplicateKey if (token, timestamp) exists.
	Insert(ctx context.Context, q *domain.CachedQuote) error

	// GetNearest retrieves the stored quote closest to ts within +/- tolerance.
	// Returns ErrNotFound when no quote falls inside the window.
	GetNearest(ctx context.Context, token string, ts time.Time, tolerance time.Duration) (*domain.CachedQuote, error)
}

// SwapRecordStore provides access to parsed swap records.
type SwapRecordStore interface {
	// Insert adds a record. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, r *domain.SwapRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.SwapRecord) error

	// GetByWallet retrieves all records for a wallet, ordered by timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.SwapRecord, error)

	// GetByTimeRange retrieves records for a wallet within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, wallet string, start, end time.Time) ([]*domain.SwapRecord, error)
}

// TaxResultStore archives per-record tax results by run.
type TaxResultStore interface {
	// InsertBulk adds all results of one run. Fails entire batch on duplicate (run_id, signature).
	InsertBulk(ctx context.Context, runID string, results []*domain.TransactionTaxResult) error

	// GetByRunID retrieves all results archived for a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TransactionTaxResult, error)
}
