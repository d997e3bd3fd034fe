// Package taxation implements the tax calculation core: swap records are
// normalized, priced through the resolution waterfall, classified under the
// base-token rules against a per-run FIFO ledger, and aggregated into a
// TaxSummary.
package taxation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/normalization"
)

// PriceResolver resolves USD prices for a set of tokens at one reference
// time, returning an entry for every distinct non-empty token.
type PriceResolver interface {
	ResolveBatch(ctx context.Context, tokens []string, ts time.Time) map[string]domain.PriceQuote
}

// FXSource supplies the USD to local-currency rate for a run. It never
// fails; implementations fall back to a configured constant.
type FXSource interface {
	Rate(ctx context.Context) decimal.Decimal
}

// Engine computes tax summaries for one wallet's swap records. It holds no
// run-to-run state: every CalculateTaxes call builds a fresh ledger, so the
// same input always produces the same summary.
type Engine struct {
	cfg      domain.Config
	resolver PriceResolver
	fx       FXSource
	logger   *log.Logger
	verbose  bool
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Config   domain.Config
	Resolver PriceResolver
	FX       FXSource
	Logger   *log.Logger
	Verbose  bool // log each record's classification
}

// NewEngine validates the configuration and assembles an engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Resolver == nil {
		return nil, errors.New("price resolver is required")
	}
	if opts.FX == nil {
		return nil, errors.New("fx source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		cfg:      opts.Config,
		resolver: opts.Resolver,
		fx:       opts.FX,
		logger:   logger,
		verbose:  opts.Verbose,
	}, nil
}

// CalculateTaxes classifies every record and returns the run summary.
//
// Input order does not matter: records are deduplicated by signature and
// sorted by timestamp before classification, because FIFO consumption
// depends on processing order. Invalid records fail the whole run. Missing
// prices do not; an unpriced leg is valued at zero and the record is still
// reported.
func (e *Engine) CalculateTaxes(ctx context.Context, records []*domain.SwapRecord) (*domain.TaxSummary, error) {
	records = normalization.DeduplicateRecords(records)
	if err := normalization.ValidateRecords(records); err != nil {
		return nil, fmt.Errorf("validate records: %w", err)
	}
	wallet, err := singleWallet(records)
	if err != nil {
		return nil, err
	}
	normalization.SortRecords(records)

	// Quotes are resolved once per token at run time rather than at each
	// record's historical timestamp; cached quotes within the tolerance
	// window absorb repeat lookups across runs.
	now := time.Now().UTC()
	prices := e.resolver.ResolveBatch(ctx, collectTokens(records), now)

	fxRate := e.fx.Rate(ctx)
	e.logger.Printf("Tax run: wallet=%s records=%d tokens=%d fx=%s %s/USD",
		wallet, len(records), len(prices), fxRate, e.cfg.LocalCurrency)

	classifier := NewClassifier(e.cfg, fxRate)
	agg := NewAggregator(wallet, e.cfg, fxRate)
	for _, rec := range records {
		res := classifier.Classify(rec, prices)
		if e.verbose {
			e.logger.Printf("  %s %s: %s %s -> %s %s value=%s gain=%s tax=%s",
				res.Timestamp.Format("2006-01-02 15:04:05"), res.Classification,
				res.FromAmount, res.FromSymbol, res.ToAmount, res.ToSymbol,
				res.ValueUSD, res.GainLossUSD, res.TotalTax)
		}
		agg.Add(res)
	}

	summary := agg.Summary()
	e.logger.Printf("Tax run complete: %d acquisitions, %d disposals, net gain/loss %s USD, total tax %s %s",
		summary.AcquisitionCount, summary.DisposalCount,
		summary.NetGainLossUSD, summary.TotalTax, summary.LocalCurrency)
	return &summary, nil
}

// singleWallet returns the wallet the records belong to. Records spanning
// more than one wallet are an ingestion defect and fail the run; mixing
// wallets in one ledger would corrupt every lot queue involved.
func singleWallet(records []*domain.SwapRecord) (string, error) {
	wallet := ""
	for _, rec := range records {
		if wallet == "" {
			wallet = rec.Wallet
			continue
		}
		if rec.Wallet != "" && rec.Wallet != wallet {
			return "", fmt.Errorf("records span multiple wallets: %s and %s", wallet, rec.Wallet)
		}
	}
	return wallet, nil
}

// collectTokens gathers both legs of every record. Duplicates are fine;
// the resolver deduplicates before batching.
func collectTokens(records []*domain.SwapRecord) []string {
	tokens := make([]string, 0, len(records)*2)
	for _, rec := range records {
		tokens = append(tokens, rec.FromToken, rec.ToToken)
	}
	return tokens
}
