package ingestion

import (
	"context"
	"time"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// RecordSource supplies one wallet's swap records for a reporting period.
type RecordSource interface {
	// Fetch returns records for the wallet within [start, end] (inclusive).
	// Records may be unordered and may repeat; the engine normalizes them.
	Fetch(ctx context.Context, wallet string, start, end time.Time) ([]*domain.SwapRecord, error)
}

// StoreSource reads swap records from a record store.
type StoreSource struct {
	store storage.SwapRecordStore
}

// NewStoreSource creates a source backed by store.
func NewStoreSource(store storage.SwapRecordStore) *StoreSource {
	return &StoreSource{store: store}
}

var _ RecordSource = (*StoreSource)(nil)

// Fetch returns the wallet's records within the period.
func (s *StoreSource) Fetch(ctx context.Context, wallet string, start, end time.Time) ([]*domain.SwapRecord, error) {
	return s.store.GetByTimeRange(ctx, wallet, start, end)
}
