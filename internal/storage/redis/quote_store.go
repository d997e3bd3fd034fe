package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// QuoteStore implements storage.QuoteStore on Redis. Each quote lives in a
// string key and a per-token sorted set indexes timestamps for window lookups.
type QuoteStore struct {
	client *Client
}

// NewQuoteStore creates a new Redis-backed quote store.
func NewQuoteStore(client *Client) *QuoteStore {
	return &QuoteStore{client: client}
}

// Compile-time interface check.
var _ storage.QuoteStore = (*QuoteStore)(nil)

func quoteKey(token string, millis int64) string {
	return fmt.Sprintf("quote:%s:%d", token, millis)
}

func indexKey(token string) string {
	return fmt.Sprintf("quote-index:%s", token)
}

// Insert adds a quote. Returns ErrDuplicateKey if (token, timestamp) exists.
// SetNX keeps the first writer's value when resolvers race on the same key.
func (s *QuoteStore) Insert(ctx context.Context, q *domain.CachedQuote) error {
	if q == nil || q.Token == "" || q.Timestamp.IsZero() {
		return storage.ErrInvalidInput
	}

	millis := q.Timestamp.UnixMilli()

	ok, err := s.client.SetNX(ctx, quoteKey(q.Token, millis), q.PriceUSD.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("set quote: %w", err)
	}
	if !ok {
		return storage.ErrDuplicateKey
	}

	// A crash between the two writes leaves the quote unindexed, which
	// reads as a cache miss.
	member := redis.Z{Score: float64(millis), Member: strconv.FormatInt(millis, 10)}
	if err := s.client.ZAdd(ctx, indexKey(q.Token), member).Err(); err != nil {
		return fmt.Errorf("index quote: %w", err)
	}

	return nil
}

// GetNearest retrieves the stored quote closest to ts within +/- tolerance.
// Ties prefer the earlier quote so lookups stay deterministic.
func (s *QuoteStore) GetNearest(ctx context.Context, token string, ts time.Time, tolerance time.Duration) (*domain.CachedQuote, error) {
	if token == "" {
		return nil, storage.ErrInvalidInput
	}

	target := ts.UnixMilli()
	lo := ts.Add(-tolerance).UnixMilli()
	hi := ts.Add(tolerance).UnixMilli()

	members, err := s.client.ZRangeByScore(ctx, indexKey(token), &redis.ZRangeBy{
		Min: strconv.FormatInt(lo, 10),
		Max: strconv.FormatInt(hi, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range quote index: %w", err)
	}

	// Members arrive in ascending score order, so on equal distance the
	// earlier timestamp is kept.
	var best int64
	found := false
	for _, m := range members {
		millis, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse index member %q: %w", m, err)
		}
		if !found || absMillis(millis-target) < absMillis(best-target) {
			best = millis
			found = true
		}
	}
	if !found {
		return nil, storage.ErrNotFound
	}

	raw, err := s.client.Get(ctx, quoteKey(token, best)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse quote price %q: %w", raw, err)
	}

	return &domain.CachedQuote{
		Token:     token,
		PriceUSD:  price,
		Timestamp: time.UnixMilli(best).UTC(),
	}, nil
}

func absMillis(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
