package pricing

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/observability"
	"solana-tax-engine/internal/storage"
)

// Resolver walks the quote waterfall for a token: cached quote, primary
// provider, secondary provider. A token no tier can price resolves to a
// nil-price quote rather than an error, so one dead token cannot abort a
// whole run.
type Resolver struct {
	cfg       domain.Config
	cache     storage.QuoteStore
	primary   Provider
	secondary Provider
	logger    *log.Logger
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Config    domain.Config
	Cache     storage.QuoteStore // optional, nil disables caching
	Primary   Provider           // optional, nil skips the tier
	Secondary Provider           // optional, nil skips the tier
	Logger    *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		cfg:       opts.Config,
		cache:     opts.Cache,
		primary:   opts.Primary,
		secondary: opts.Secondary,
		logger:    logger,
	}
}

// Resolve returns the best available USD price for token as of ts.
// Only major tokens touch the cache, on both the read and the write side.
func (r *Resolver) Resolve(ctx context.Context, token string, ts time.Time) domain.PriceQuote {
	if r.cache != nil && r.cfg.IsMajorToken(token) {
		cached, err := r.cache.GetNearest(ctx, token, ts, r.cfg.CacheTolerance)
		if err == nil {
			observability.RecordCacheHit()
			price := cached.PriceUSD
			return domain.PriceQuote{PriceUSD: &price, Source: domain.QuoteSourceCache, FromCache: true}
		}
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Printf("quote cache read for %s failed: %v", token, err)
		}
		observability.RecordCacheMiss()
	}

	if price, ok := r.fromProvider(ctx, r.primary, token); ok {
		r.cacheQuote(ctx, token, ts, price)
		return domain.PriceQuote{PriceUSD: &price, Source: domain.QuoteSourcePrimary}
	}

	if price, ok := r.fromProvider(ctx, r.secondary, token); ok {
		r.cacheQuote(ctx, token, ts, price)
		return domain.PriceQuote{PriceUSD: &price, Source: domain.QuoteSourceSecondary}
	}

	observability.RecordUnpricedToken()
	return domain.PriceQuote{Source: domain.QuoteSourceNone}
}

// ResolveBatch resolves a set of tokens as of ts. The input is deduplicated
// and resolved in fixed-size batches, concurrently within a batch with a
// pause between batches to bound provider load. The returned map contains
// an entry for every distinct non-empty token.
func (r *Resolver) ResolveBatch(ctx context.Context, tokens []string, ts time.Time) map[string]domain.PriceQuote {
	seen := make(map[string]struct{}, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}

	batchSize := r.cfg.PriceBatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	results := make(map[string]domain.PriceQuote, len(unique))
	var mu sync.Mutex

	for start := 0; start < len(unique); start += batchSize {
		end := start + batchSize
		if end > len(unique) {
			end = len(unique)
		}

		var wg sync.WaitGroup
		for _, token := range unique[start:end] {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()
				quote := r.Resolve(ctx, token, ts)
				mu.Lock()
				results[token] = quote
				mu.Unlock()
			}(token)
		}
		wg.Wait()

		if end < len(unique) && r.cfg.PriceBatchPause > 0 {
			select {
			case <-ctx.Done():
				// Skip the pause; provider calls fail fast on a cancelled
				// context and the remaining tokens resolve as unpriced.
			case <-time.After(r.cfg.PriceBatchPause):
			}
		}
	}

	return results
}

// fromProvider runs a single attempt against one provider. Errors demote
// to a miss so the waterfall keeps degrading; no retries.
func (r *Resolver) fromProvider(ctx context.Context, p Provider, token string) (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Decimal{}, false
	}
	price, err := p.TokenPriceUSD(ctx, token)
	observability.RecordProviderRequest(p.Name(), err)
	if err != nil {
		if !errors.Is(err, ErrNoPrice) {
			r.logger.Printf("price provider %s failed for %s: %v", p.Name(), token, err)
		}
		return decimal.Decimal{}, false
	}
	return price, true
}

// cacheQuote stores a freshly resolved quote for later lookups. Writes are
// best-effort: only major tokens are cached, and a duplicate key means
// another writer already holds that slot.
func (r *Resolver) cacheQuote(ctx context.Context, token string, ts time.Time, price decimal.Decimal) {
	if r.cache == nil || !r.cfg.IsMajorToken(token) {
		return
	}
	q := &domain.CachedQuote{Token: token, PriceUSD: price, Timestamp: ts}
	if err := r.cache.Insert(ctx, q); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.Printf("quote cache write for %s failed: %v", token, err)
	}
}
