package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// QuoteStore is an in-memory implementation of storage.QuoteStore.
type QuoteStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CachedQuote // keyed by (token, timestamp)
}

// NewQuoteStore creates a new in-memory quote store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{
		data: make(map[string]*domain.CachedQuote),
	}
}

// quoteKey generates a unique key for a quote.
func quoteKey(token string, ts time.Time) string {
	return fmt.Sprintf("%s|%d", token, ts.UnixMilli())
}

// Insert adds a quote. Returns ErrDuplicateKey if (token, timestamp) exists.
func (s *QuoteStore) Insert(_ context.Context, q *domain.CachedQuote) error {
	if q == nil || q.Token == "" || q.Timestamp.IsZero() {
		return storage.ErrInvalidInput
	}

	key := quoteKey(q.Token, q.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *q
	s.data[key] = &copy
	return nil
}

// GetNearest retrieves the stored quote closest to ts within +/- tolerance.
// Ties prefer the earlier quote so lookups stay deterministic.
func (s *QuoteStore) GetNearest(_ context.Context, token string, ts time.Time, tolerance time.Duration) (*domain.CachedQuote, error) {
	if token == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.CachedQuote
	var bestDist time.Duration
	for _, q := range s.data {
		if q.Token != token {
			continue
		}
		dist := ts.Sub(q.Timestamp)
		if dist < 0 {
			dist = -dist
		}
		if dist > tolerance {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && q.Timestamp.Before(best.Timestamp)) {
			best = q
			bestDist = dist
		}
	}

	if best == nil {
		return nil, storage.ErrNotFound
	}

	copy := *best
	return &copy, nil
}

var _ storage.QuoteStore = (*QuoteStore)(nil)
