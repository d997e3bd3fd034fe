// Package orchestrator provides end-to-end tax run orchestration.
// It coordinates: record loading → tax calculation → verification → archival
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/idhash"
	"solana-tax-engine/internal/ingestion"
	"solana-tax-engine/internal/observability"
	"solana-tax-engine/internal/storage"
	"solana-tax-engine/internal/verification"
)

// TaxEngine computes a tax summary for one wallet's records.
type TaxEngine interface {
	CalculateTaxes(ctx context.Context, records []*domain.SwapRecord) (*domain.TaxSummary, error)
}

// Orchestrator coordinates one wallet's tax run.
// Flow: load records → calculate taxes → verify summary → archive results
type Orchestrator struct {
	source      ingestion.RecordSource
	engine      TaxEngine
	resultStore storage.TaxResultStore

	wallet      string
	periodStart time.Time
	periodEnd   time.Time

	verbose bool
}

// Options for creating Orchestrator.
type Options struct {
	Source      ingestion.RecordSource
	Engine      TaxEngine
	ResultStore storage.TaxResultStore // optional; nil skips archival

	Wallet      string
	PeriodStart time.Time
	PeriodEnd   time.Time

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		source:      opts.Source,
		engine:      opts.Engine,
		resultStore: opts.ResultStore,
		wallet:      opts.Wallet,
		periodStart: opts.PeriodStart,
		periodEnd:   opts.PeriodEnd,
		verbose:     opts.Verbose,
	}
}

// RunResult contains results from one orchestrated run.
type RunResult struct {
	RunID            string
	RecordsProcessed int
	Summary          *domain.TaxSummary
	Archived         bool // false when the run was already archived or no store is configured
}

// Run executes the full tax run.
// Phases:
//  1. Load the wallet's records for the period
//  2. Calculate taxes
//  3. Verify the summary's internal invariants
//  4. Archive per-record results under the run ID
//
// A run that was archived before is recalculated and verified but not
// re-archived; the stored results are first-writer-wins like the quote
// cache.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if o.source == nil || o.engine == nil {
		return nil, errors.New("orchestrator requires a record source and an engine")
	}

	start := time.Now()
	result, err := o.run(ctx)
	if err != nil {
		observability.RecordRun("failed", time.Since(start).Seconds())
		return nil, err
	}
	observability.RecordRun("completed", time.Since(start).Seconds())
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load records
	o.log("Phase 1: Loading records for %s...", o.wallet)
	records, err := o.source.Fetch(ctx, o.wallet, o.periodStart, o.periodEnd)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load records) failed: %w", err)
	}
	result.RecordsProcessed = len(records)
	observability.RecordRecordsProcessed(len(records))
	o.log("  Found %d records", len(records))

	result.RunID = idhash.ComputeRunID(o.wallet, o.periodStart, o.periodEnd, signatures(records))

	// Phase 2: Tax calculation
	o.log("Phase 2: Calculating taxes...")
	summary, err := o.engine.CalculateTaxes(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (calculate taxes) failed: %w", err)
	}
	result.Summary = summary
	o.log("  Classified %d acquisitions, %d disposals", summary.AcquisitionCount, summary.DisposalCount)

	// Phase 3: Verification
	o.log("Phase 3: Verifying summary...")
	if divergences := verification.CheckSummary(summary); len(divergences) > 0 {
		for _, d := range divergences {
			o.log("  Divergence %s: expected %v, got %v", d.Field, d.Expected, d.Actual)
		}
		return nil, fmt.Errorf("phase 3 (verify) failed: summary has %d divergences, first is %s",
			len(divergences), divergences[0].Field)
	}
	o.log("  Summary consistent")

	// Phase 4: Archival
	if o.resultStore != nil && len(summary.Results) > 0 {
		o.log("Phase 4: Archiving %d results under run %s...", len(summary.Results), result.RunID)
		if err := o.archive(ctx, result.RunID, summary); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				o.log("  Run already archived")
			} else {
				return nil, fmt.Errorf("phase 4 (archive) failed: %w", err)
			}
		} else {
			result.Archived = true
		}
	} else {
		o.log("Phase 4: Skipping archival (no result store or no results)")
	}

	o.log("Run completed: %d records, total tax %s %s",
		result.RecordsProcessed, summary.TotalTax, summary.LocalCurrency)

	return result, nil
}

func (o *Orchestrator) archive(ctx context.Context, runID string, summary *domain.TaxSummary) error {
	results := make([]*domain.TransactionTaxResult, len(summary.Results))
	for i := range summary.Results {
		results[i] = &summary.Results[i]
	}
	return o.resultStore.InsertBulk(ctx, runID, results)
}

func signatures(records []*domain.SwapRecord) []string {
	sigs := make([]string, 0, len(records))
	for _, rec := range records {
		sigs = append(sigs, rec.Signature)
	}
	return sigs
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
