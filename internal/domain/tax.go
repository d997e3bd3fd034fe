package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification of a swap under the base-token rules.
type Classification string

// Classification constants
const (
	ClassificationAcquisition Classification = "acquisition"
	ClassificationDisposal    Classification = "disposal"
)

// TaxCategory labels which side of a swap a tax amount was charged on.
type TaxCategory string

// Tax category constants
const (
	TaxCategoryBuy  TaxCategory = "buy"
	TaxCategorySell TaxCategory = "sell"
)

// TransactionTaxResult is the computed outcome for a single swap record.
// Immutable once produced; one per input record, in processing order.
type TransactionTaxResult struct {
	Signature      string         // source record signature
	Timestamp      time.Time      // source record timestamp
	Venue          string         // source record venue label
	Classification Classification // acquisition or disposal

	FromToken    string           // from-leg mint
	FromSymbol   string           // from-leg symbol
	FromAmount   decimal.Decimal  // from-leg amount
	FromPriceUSD *decimal.Decimal // resolved from-leg price, nil when unpriced
	ToToken      string           // to-leg mint
	ToSymbol     string           // to-leg symbol
	ToAmount     decimal.Decimal  // to-leg amount
	ToPriceUSD   *decimal.Decimal // resolved to-leg price, nil when unpriced

	ValueUSD   decimal.Decimal // transaction value in USD
	ValueLocal decimal.Decimal // transaction value in the local currency

	CostBasisUSD    decimal.Decimal // basis consumed from the ledger (disposals)
	CostBasisLocal  decimal.Decimal // same, in local currency
	GainLossUSD     decimal.Decimal // proceeds minus basis, negative for losses
	GainLossLocal   decimal.Decimal // same, in local currency
	AmountUnmatched decimal.Decimal // disposal amount not covered by tracked lots

	Tax      map[TaxCategory]decimal.Decimal // local-currency tax per category
	TotalTax decimal.Decimal                 // sum over all categories
}

// TaxSummary is the per-run output of the engine: run totals plus the
// ordered per-record results.
type TaxSummary struct {
	Wallet        string // wallet the records belong to
	LocalCurrency string // reporting currency code

	RecordCount      int // records processed
	AcquisitionCount int // records classified acquisition
	DisposalCount    int // records classified disposal

	AcquisitionValueUSD   decimal.Decimal // summed acquisition transaction value
	AcquisitionValueLocal decimal.Decimal
	DisposalValueUSD      decimal.Decimal // summed disposal transaction value
	DisposalValueLocal    decimal.Decimal

	TotalGainUSD     decimal.Decimal // gains summed as positive magnitudes
	TotalGainLocal   decimal.Decimal
	TotalLossUSD     decimal.Decimal // losses summed as positive magnitudes
	TotalLossLocal   decimal.Decimal
	NetGainLossUSD   decimal.Decimal // gains minus losses
	NetGainLossLocal decimal.Decimal

	TaxByCategory map[TaxCategory]decimal.Decimal // local-currency tax per category
	TotalTax      decimal.Decimal                 // grand total, local currency
	FXRate        decimal.Decimal                 // USD -> local rate used for the run

	Results []TransactionTaxResult // one per input record, timestamp order
}
