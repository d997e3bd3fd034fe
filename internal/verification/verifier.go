// Package verification checks computed tax summaries for internal
// consistency and compares summaries across runs. A summary that fails
// these checks indicates an aggregation defect, not bad input.
package verification

import (
	"fmt"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
)

// FieldDivergence represents a mismatch between expected and actual values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // expected value
	Actual   interface{} // actual value
}

// CheckSummary verifies a summary's internal invariants:
//   - record counts are consistent with the result list
//   - the grand tax total equals both the per-record sum and the
//     per-category sum
//   - gain and loss totals are non-negative and recompute from the results
//   - net gain/loss equals gains minus losses
//   - results are ordered by ascending timestamp
//
// It returns one divergence per violated invariant, empty when the summary
// is consistent.
func CheckSummary(s *domain.TaxSummary) []FieldDivergence {
	var divergences []FieldDivergence

	if s.RecordCount != len(s.Results) {
		divergences = append(divergences, FieldDivergence{
			Field:    "RecordCount",
			Expected: len(s.Results),
			Actual:   s.RecordCount,
		})
	}

	if s.AcquisitionCount+s.DisposalCount != s.RecordCount {
		divergences = append(divergences, FieldDivergence{
			Field:    "AcquisitionCount+DisposalCount",
			Expected: s.RecordCount,
			Actual:   s.AcquisitionCount + s.DisposalCount,
		})
	}

	recordTax := decimal.Zero
	gains := decimal.Zero
	losses := decimal.Zero
	for i, res := range s.Results {
		recordTax = recordTax.Add(res.TotalTax)
		if res.GainLossUSD.IsNegative() {
			losses = losses.Add(res.GainLossUSD.Neg())
		} else {
			gains = gains.Add(res.GainLossUSD)
		}

		categoryTax := decimal.Zero
		for _, amount := range res.Tax {
			categoryTax = categoryTax.Add(amount)
		}
		if !categoryTax.Equal(res.TotalTax) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Results[%d].TotalTax", i),
				Expected: categoryTax.String(),
				Actual:   res.TotalTax.String(),
			})
		}
		if i > 0 && res.Timestamp.Before(s.Results[i-1].Timestamp) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Results[%d].Timestamp", i),
				Expected: fmt.Sprintf(">= %s", s.Results[i-1].Timestamp),
				Actual:   res.Timestamp,
			})
		}
	}

	if !recordTax.Equal(s.TotalTax) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalTax",
			Expected: recordTax.String(),
			Actual:   s.TotalTax.String(),
		})
	}

	categoryTotal := decimal.Zero
	for _, amount := range s.TaxByCategory {
		categoryTotal = categoryTotal.Add(amount)
	}
	if !categoryTotal.Equal(s.TotalTax) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TaxByCategory",
			Expected: s.TotalTax.String(),
			Actual:   categoryTotal.String(),
		})
	}

	if s.TotalGainUSD.IsNegative() || s.TotalLossUSD.IsNegative() {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalGainUSD/TotalLossUSD",
			Expected: "non-negative magnitudes",
			Actual:   fmt.Sprintf("%s / %s", s.TotalGainUSD, s.TotalLossUSD),
		})
	}
	if !gains.Equal(s.TotalGainUSD) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalGainUSD",
			Expected: gains.String(),
			Actual:   s.TotalGainUSD.String(),
		})
	}
	if !losses.Equal(s.TotalLossUSD) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalLossUSD",
			Expected: losses.String(),
			Actual:   s.TotalLossUSD.String(),
		})
	}
	if !s.NetGainLossUSD.Equal(s.TotalGainUSD.Sub(s.TotalLossUSD)) {
		divergences = append(divergences, FieldDivergence{
			Field:    "NetGainLossUSD",
			Expected: s.TotalGainUSD.Sub(s.TotalLossUSD).String(),
			Actual:   s.NetGainLossUSD.String(),
		})
	}
	if !s.NetGainLossLocal.Equal(s.TotalGainLocal.Sub(s.TotalLossLocal)) {
		divergences = append(divergences, FieldDivergence{
			Field:    "NetGainLossLocal",
			Expected: s.TotalGainLocal.Sub(s.TotalLossLocal).String(),
			Actual:   s.NetGainLossLocal.String(),
		})
	}

	return divergences
}

// CompareSummaries compares two summaries of the same run and returns
// divergences. Used to confirm that repeated runs over the same input
// produce identical outcomes.
func CompareSummaries(expected, actual *domain.TaxSummary) []FieldDivergence {
	var divergences []FieldDivergence

	if expected.Wallet != actual.Wallet {
		divergences = append(divergences, FieldDivergence{
			Field:    "Wallet",
			Expected: expected.Wallet,
			Actual:   actual.Wallet,
		})
	}
	if expected.RecordCount != actual.RecordCount {
		divergences = append(divergences, FieldDivergence{
			Field:    "RecordCount",
			Expected: expected.RecordCount,
			Actual:   actual.RecordCount,
		})
	}
	if expected.AcquisitionCount != actual.AcquisitionCount {
		divergences = append(divergences, FieldDivergence{
			Field:    "AcquisitionCount",
			Expected: expected.AcquisitionCount,
			Actual:   actual.AcquisitionCount,
		})
	}
	if expected.DisposalCount != actual.DisposalCount {
		divergences = append(divergences, FieldDivergence{
			Field:    "DisposalCount",
			Expected: expected.DisposalCount,
			Actual:   actual.DisposalCount,
		})
	}

	divergences = append(divergences, compareDecimals("", []decimalField{
		{"AcquisitionValueUSD", expected.AcquisitionValueUSD, actual.AcquisitionValueUSD},
		{"AcquisitionValueLocal", expected.AcquisitionValueLocal, actual.AcquisitionValueLocal},
		{"DisposalValueUSD", expected.DisposalValueUSD, actual.DisposalValueUSD},
		{"DisposalValueLocal", expected.DisposalValueLocal, actual.DisposalValueLocal},
		{"TotalGainUSD", expected.TotalGainUSD, actual.TotalGainUSD},
		{"TotalGainLocal", expected.TotalGainLocal, actual.TotalGainLocal},
		{"TotalLossUSD", expected.TotalLossUSD, actual.TotalLossUSD},
		{"TotalLossLocal", expected.TotalLossLocal, actual.TotalLossLocal},
		{"NetGainLossUSD", expected.NetGainLossUSD, actual.NetGainLossUSD},
		{"NetGainLossLocal", expected.NetGainLossLocal, actual.NetGainLossLocal},
		{"TotalTax", expected.TotalTax, actual.TotalTax},
		{"FXRate", expected.FXRate, actual.FXRate},
	})...)

	if len(expected.Results) != len(actual.Results) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Results",
			Expected: len(expected.Results),
			Actual:   len(actual.Results),
		})
		return divergences
	}
	for i := range expected.Results {
		divergences = append(divergences, compareResults(i, &expected.Results[i], &actual.Results[i])...)
	}

	return divergences
}

// compareResults compares one per-record result pair.
func compareResults(i int, expected, actual *domain.TransactionTaxResult) []FieldDivergence {
	var divergences []FieldDivergence
	prefix := fmt.Sprintf("Results[%d].", i)

	if expected.Signature != actual.Signature {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + "Signature",
			Expected: expected.Signature,
			Actual:   actual.Signature,
		})
	}
	if expected.Classification != actual.Classification {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + "Classification",
			Expected: expected.Classification,
			Actual:   actual.Classification,
		})
	}
	if !decimalPtrEquals(expected.FromPriceUSD, actual.FromPriceUSD) {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + "FromPriceUSD",
			Expected: decimalPtrString(expected.FromPriceUSD),
			Actual:   decimalPtrString(actual.FromPriceUSD),
		})
	}
	if !decimalPtrEquals(expected.ToPriceUSD, actual.ToPriceUSD) {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + "ToPriceUSD",
			Expected: decimalPtrString(expected.ToPriceUSD),
			Actual:   decimalPtrString(actual.ToPriceUSD),
		})
	}

	divergences = append(divergences, compareDecimals(prefix, []decimalField{
		{"ValueUSD", expected.ValueUSD, actual.ValueUSD},
		{"ValueLocal", expected.ValueLocal, actual.ValueLocal},
		{"CostBasisUSD", expected.CostBasisUSD, actual.CostBasisUSD},
		{"CostBasisLocal", expected.CostBasisLocal, actual.CostBasisLocal},
		{"GainLossUSD", expected.GainLossUSD, actual.GainLossUSD},
		{"GainLossLocal", expected.GainLossLocal, actual.GainLossLocal},
		{"AmountUnmatched", expected.AmountUnmatched, actual.AmountUnmatched},
		{"TotalTax", expected.TotalTax, actual.TotalTax},
	})...)

	return divergences
}

type decimalField struct {
	name             string
	expected, actual decimal.Decimal
}

func compareDecimals(prefix string, fields []decimalField) []FieldDivergence {
	var divergences []FieldDivergence
	for _, f := range fields {
		if !f.expected.Equal(f.actual) {
			divergences = append(divergences, FieldDivergence{
				Field:    prefix + f.name,
				Expected: f.expected.String(),
				Actual:   f.actual.String(),
			})
		}
	}
	return divergences
}

// decimalPtrEquals compares two *decimal.Decimal values.
// Returns true if both are nil, or both are non-nil and equal.
func decimalPtrEquals(a, b *decimal.Decimal) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func decimalPtrString(d *decimal.Decimal) string {
	if d == nil {
		return "<nil>"
	}
	return d.String()
}
