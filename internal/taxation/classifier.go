package taxation

import (
	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/ledger"
)

// Classifier applies the base-token rules to one run's records, in order,
// maintaining the run's FIFO lot ledger as it goes. It is not safe for
// concurrent use; each run constructs its own classifier.
type Classifier struct {
	cfg    domain.Config
	fxRate decimal.Decimal
	lots   *ledger.Ledger
}

// NewClassifier returns a classifier with an empty ledger. fxRate is the
// USD to local-currency rate used for every record of the run.
func NewClassifier(cfg domain.Config, fxRate decimal.Decimal) *Classifier {
	return &Classifier{
		cfg:    cfg,
		fxRate: fxRate,
		lots:   ledger.New(),
	}
}

// Classify computes the tax result for one record. Records must be fed in
// ascending timestamp order because lot consumption is order-dependent.
//
// A swap out of a base token acquires the other leg; a swap into a base
// token disposes of the other leg. A swap between two non-base tokens is a
// disposal of the from leg that immediately opens a lot for the to leg,
// using the disposal's proceeds as the new lot's basis, with no buy-side
// tax on that leg. A swap between two base tokens is taxed as a disposal.
func (c *Classifier) Classify(rec *domain.SwapRecord, prices map[string]domain.PriceQuote) domain.TransactionTaxResult {
	fromPrice := prices[rec.FromToken].PriceUSD
	toPrice := prices[rec.ToToken].PriceUSD

	if c.cfg.IsBaseToken(rec.FromToken) && !c.cfg.IsBaseToken(rec.ToToken) {
		return c.classifyAcquisition(rec, fromPrice, toPrice)
	}
	return c.classifyDisposal(rec, fromPrice, toPrice)
}

// classifyAcquisition opens a lot for the to leg. The lot's basis is what
// left the wallet (fromAmount x fromPrice); the taxed transaction value is
// what arrived (toAmount x toPrice).
func (c *Classifier) classifyAcquisition(rec *domain.SwapRecord, fromPrice, toPrice *decimal.Decimal) domain.TransactionTaxResult {
	valueUSD := legValue(rec.ToAmount, toPrice)
	valueLocal := valueUSD.Mul(c.fxRate)

	basisUSD := legValue(rec.FromAmount, fromPrice)
	basisLocal := basisUSD.Mul(c.fxRate)
	c.lots.RecordAcquisition(rec.ToToken, rec.ToAmount, basisUSD, basisLocal, rec.Timestamp)

	buyTax := valueLocal.Mul(c.cfg.BuyTaxRate)

	res := newResult(rec, domain.ClassificationAcquisition, fromPrice, toPrice)
	res.ValueUSD = valueUSD
	res.ValueLocal = valueLocal
	res.Tax[domain.TaxCategoryBuy] = buyTax
	res.TotalTax = buyTax
	return res
}

// classifyDisposal consumes the from leg from its lot queue and realizes
// the gain or loss against the proceeds (fromAmount x fromPrice). When the
// to leg is not a base token the proceeds are rolled into a new lot for it.
func (c *Classifier) classifyDisposal(rec *domain.SwapRecord, fromPrice, toPrice *decimal.Decimal) domain.TransactionTaxResult {
	valueUSD := legValue(rec.FromAmount, fromPrice)
	valueLocal := valueUSD.Mul(c.fxRate)

	basisUSD, basisLocal, unmatched := c.lots.Consume(rec.FromToken, rec.FromAmount)

	if !c.cfg.IsBaseToken(rec.ToToken) {
		c.lots.RecordAcquisition(rec.ToToken, rec.ToAmount, valueUSD, valueLocal, rec.Timestamp)
	}

	sellTax := valueLocal.Mul(c.cfg.SellTaxRate)

	res := newResult(rec, domain.ClassificationDisposal, fromPrice, toPrice)
	res.ValueUSD = valueUSD
	res.ValueLocal = valueLocal
	res.CostBasisUSD = basisUSD
	res.CostBasisLocal = basisLocal
	res.GainLossUSD = valueUSD.Sub(basisUSD)
	res.GainLossLocal = valueLocal.Sub(basisLocal)
	res.AmountUnmatched = unmatched
	res.Tax[domain.TaxCategorySell] = sellTax
	res.TotalTax = sellTax
	return res
}

// Lots returns the current queue for token, head first.
func (c *Classifier) Lots(token string) []ledger.Lot {
	return c.lots.Lots(token)
}

// newResult copies the record's identity and legs into a result shell with
// an empty tax map; the classification branches fill in the amounts.
func newResult(rec *domain.SwapRecord, class domain.Classification, fromPrice, toPrice *decimal.Decimal) domain.TransactionTaxResult {
	return domain.TransactionTaxResult{
		Signature:      rec.Signature,
		Timestamp:      rec.Timestamp,
		Venue:          rec.Venue,
		Classification: class,
		FromToken:      rec.FromToken,
		FromSymbol:     rec.FromSymbol,
		FromAmount:     rec.FromAmount,
		FromPriceUSD:   fromPrice,
		ToToken:        rec.ToToken,
		ToSymbol:       rec.ToSymbol,
		ToAmount:       rec.ToAmount,
		ToPriceUSD:     toPrice,
		Tax:            make(map[domain.TaxCategory]decimal.Decimal, 1),
	}
}

// legValue prices one leg in USD. An unpriced leg is valued at zero so the
// run completes with every record reported.
func legValue(amount decimal.Decimal, price *decimal.Decimal) decimal.Decimal {
	if price == nil {
		return decimal.Zero
	}
	return amount.Mul(*price)
}
