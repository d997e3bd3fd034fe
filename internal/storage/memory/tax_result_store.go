package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// TaxResultStore is an in-memory implementation of storage.TaxResultStore.
type TaxResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionTaxResult // keyed by (run_id, signature)
}

// NewTaxResultStore creates a new in-memory tax result store.
func NewTaxResultStore() *TaxResultStore {
	return &TaxResultStore{
		data: make(map[string]*domain.TransactionTaxResult),
	}
}

// resultKey generates a unique key for an archived result.
func resultKey(runID, signature string) string {
	return fmt.Sprintf("%s|%s", runID, signature)
}

// cloneResult copies a result including its tax map, so stored rows never
// alias caller state.
func cloneResult(r *domain.TransactionTaxResult) *domain.TransactionTaxResult {
	copy := *r
	if r.Tax != nil {
		copy.Tax = make(map[domain.TaxCategory]decimal.Decimal, len(r.Tax))
		for k, v := range r.Tax {
			copy.Tax[k] = v
		}
	}
	return &copy
}

// InsertBulk adds all results of one run. Fails entire batch on duplicate (run_id, signature).
func (s *TaxResultStore) InsertBulk(_ context.Context, runID string, results []*domain.TransactionTaxResult) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.Signature == "" {
			return storage.ErrInvalidInput
		}
		key := resultKey(runID, r.Signature)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range results {
		s.data[resultKey(runID, r.Signature)] = cloneResult(r)
	}

	return nil
}

// GetByRunID retrieves all results archived for a run, ordered by timestamp ASC.
func (s *TaxResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.TransactionTaxResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := runID + "|"
	var result []*domain.TransactionTaxResult
	for key, r := range s.data {
		if strings.HasPrefix(key, prefix) {
			result = append(result, cloneResult(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].Signature < result[j].Signature
	})

	return result, nil
}

var _ storage.TaxResultStore = (*TaxResultStore)(nil)
