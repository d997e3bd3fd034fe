package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// SwapRecordStore is an in-memory implementation of storage.SwapRecordStore.
type SwapRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SwapRecord // keyed by signature
}

// NewSwapRecordStore creates a new in-memory swap record store.
func NewSwapRecordStore() *SwapRecordStore {
	return &SwapRecordStore{
		data: make(map[string]*domain.SwapRecord),
	}
}

// Insert adds a record. Returns ErrDuplicateKey if the signature exists.
func (s *SwapRecordStore) Insert(_ context.Context, r *domain.SwapRecord) error {
	if r == nil || r.Signature == "" || r.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.Signature] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SwapRecordStore) InsertBulk(_ context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Signature == "" || r.Wallet == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.Signature] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		copy := *r
		s.data[r.Signature] = &copy
	}

	return nil
}

// GetByWallet retrieves all records for a wallet, ordered by timestamp ASC.
func (s *SwapRecordStore) GetByWallet(_ context.Context, wallet string) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.Wallet == wallet {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortRecords(result)
	return result, nil
}

// GetByTimeRange retrieves records for a wallet within [start, end] (inclusive).
func (s *SwapRecordStore) GetByTimeRange(_ context.Context, wallet string, start, end time.Time) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.Wallet == wallet && !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortRecords(result)
	return result, nil
}

func sortRecords(records []*domain.SwapRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].Signature < records[j].Signature
	})
}

var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)
