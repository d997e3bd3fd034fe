package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// QuoteStore implements storage.QuoteStore using PostgreSQL.
type QuoteStore struct {
	pool *Pool
}

// NewQuoteStore creates a new QuoteStore.
func NewQuoteStore(pool *Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

// Compile-time interface check.
var _ storage.QuoteStore = (*QuoteStore)(nil)

// Insert adds a quote. Returns ErrDuplicateKey if (token, timestamp) exists.
func (s *QuoteStore) Insert(ctx context.Context, q *domain.CachedQuote) error {
	if q == nil || q.Token == "" || q.Timestamp.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO price_quotes (token, price_usd, quote_ts)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, q.Token, q.PriceUSD.String(), q.Timestamp)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// GetNearest retrieves the stored quote closest to ts within +/- tolerance.
func (s *QuoteStore) GetNearest(ctx context.Context, token string, ts time.Time, tolerance time.Duration) (*domain.CachedQuote, error) {
	if token == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT token, price_usd::text, quote_ts
		FROM price_quotes
		WHERE token = $1 AND quote_ts >= $2 AND quote_ts <= $3
		ORDER BY ABS(EXTRACT(EPOCH FROM (quote_ts - $4::timestamptz))) ASC, quote_ts ASC
		LIMIT 1
	`

	var q domain.CachedQuote
	var priceText string
	err := s.pool.QueryRow(ctx, query, token, ts.Add(-tolerance), ts.Add(tolerance), ts).
		Scan(&q.Token, &priceText, &q.Timestamp)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get nearest quote: %w", err)
	}

	q.PriceUSD, err = decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("parse quote price %q: %w", priceText, err)
	}
	return &q, nil
}
