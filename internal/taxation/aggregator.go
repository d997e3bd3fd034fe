package taxation

import (
	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
)

// Aggregator accumulates per-record results into the run's summary.
// Losses are summed as positive magnitudes; the net figures are kept
// current on every Add so a summary can be taken at any point.
type Aggregator struct {
	summary domain.TaxSummary
}

// NewAggregator returns an aggregator with zeroed totals for one run.
func NewAggregator(wallet string, cfg domain.Config, fxRate decimal.Decimal) *Aggregator {
	return &Aggregator{
		summary: domain.TaxSummary{
			Wallet:        wallet,
			LocalCurrency: cfg.LocalCurrency,
			TaxByCategory: make(map[domain.TaxCategory]decimal.Decimal),
			FXRate:        fxRate,
		},
	}
}

// Add folds one result into the running totals and appends it to the
// summary's result list. Results arrive in processing order and keep it.
func (a *Aggregator) Add(res domain.TransactionTaxResult) {
	s := &a.summary
	s.RecordCount++

	switch res.Classification {
	case domain.ClassificationAcquisition:
		s.AcquisitionCount++
		s.AcquisitionValueUSD = s.AcquisitionValueUSD.Add(res.ValueUSD)
		s.AcquisitionValueLocal = s.AcquisitionValueLocal.Add(res.ValueLocal)
	case domain.ClassificationDisposal:
		s.DisposalCount++
		s.DisposalValueUSD = s.DisposalValueUSD.Add(res.ValueUSD)
		s.DisposalValueLocal = s.DisposalValueLocal.Add(res.ValueLocal)
	}

	if res.GainLossUSD.IsNegative() {
		s.TotalLossUSD = s.TotalLossUSD.Add(res.GainLossUSD.Neg())
		s.TotalLossLocal = s.TotalLossLocal.Add(res.GainLossLocal.Neg())
	} else {
		s.TotalGainUSD = s.TotalGainUSD.Add(res.GainLossUSD)
		s.TotalGainLocal = s.TotalGainLocal.Add(res.GainLossLocal)
	}
	s.NetGainLossUSD = s.TotalGainUSD.Sub(s.TotalLossUSD)
	s.NetGainLossLocal = s.TotalGainLocal.Sub(s.TotalLossLocal)

	for category, amount := range res.Tax {
		s.TaxByCategory[category] = s.TaxByCategory[category].Add(amount)
	}
	s.TotalTax = s.TotalTax.Add(res.TotalTax)

	s.Results = append(s.Results, res)
}

// Summary returns the accumulated run summary. The returned value shares
// its map and result slice with the aggregator, so callers take it once,
// after the last Add.
func (a *Aggregator) Summary() domain.TaxSummary {
	return a.summary
}
