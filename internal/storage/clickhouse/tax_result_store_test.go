package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

func makeTaxResult(signature string, ts time.Time) *domain.TransactionTaxResult {
	fromPrice := decimal.NewFromFloat(150.0)
	toPrice := decimal.NewFromFloat(1.0)
	return &domain.TransactionTaxResult{
		Signature:      signature,
		Timestamp:      ts,
		Venue:          "Raydium",
		Classification: domain.ClassificationDisposal,

		FromToken:    "TokenMintA",
		FromSymbol:   "TKA",
		FromAmount:   decimal.NewFromInt(8),
		FromPriceUSD: &fromPrice,
		ToToken:      "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		ToSymbol:     "USDC",
		ToAmount:     decimal.NewFromInt(1200),
		ToPriceUSD:   &toPrice,

		ValueUSD:   decimal.NewFromInt(1200),
		ValueLocal: decimal.NewFromInt(129600),

		CostBasisUSD:    decimal.NewFromInt(800),
		CostBasisLocal:  decimal.NewFromInt(86400),
		GainLossUSD:     decimal.NewFromInt(400),
		GainLossLocal:   decimal.NewFromInt(43200),
		AmountUnmatched: decimal.Zero,

		Tax: map[domain.TaxCategory]decimal.Decimal{
			domain.TaxCategorySell: decimal.NewFromInt(6480),
		},
		TotalTax: decimal.NewFromInt(6480),
	}
}

func TestTaxResultStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaxResultStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, "run-1", nil)
	assert.NoError(t, err)

	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	results := []*domain.TransactionTaxResult{makeTaxResult("sig-1", ts)}

	err = store.InsertBulk(ctx, "run-1", results)
	require.NoError(t, err)

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, "sig-1", r.Signature)
	assert.True(t, r.Timestamp.Equal(ts), "expected %s, got %s", ts, r.Timestamp)
	assert.Equal(t, "Raydium", r.Venue)
	assert.Equal(t, domain.ClassificationDisposal, r.Classification)
	assert.Equal(t, "TokenMintA", r.FromToken)
	assert.True(t, r.FromAmount.Equal(decimal.NewFromInt(8)), "expected 8, got %s", r.FromAmount)
	require.NotNil(t, r.FromPriceUSD)
	assert.True(t, r.FromPriceUSD.Equal(decimal.NewFromFloat(150.0)), "expected 150, got %s", r.FromPriceUSD)
	assert.True(t, r.ValueUSD.Equal(decimal.NewFromInt(1200)), "expected 1200, got %s", r.ValueUSD)
	assert.True(t, r.CostBasisUSD.Equal(decimal.NewFromInt(800)), "expected 800, got %s", r.CostBasisUSD)
	assert.True(t, r.GainLossUSD.Equal(decimal.NewFromInt(400)), "expected 400, got %s", r.GainLossUSD)
	assert.True(t, r.TotalTax.Equal(decimal.NewFromInt(6480)), "expected 6480, got %s", r.TotalTax)
	assert.True(t, r.Tax[domain.TaxCategorySell].Equal(decimal.NewFromInt(6480)))
}

func TestTaxResultStore_InsertBulk_NilPrices(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaxResultStore(conn)
	ctx := context.Background()

	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	r := makeTaxResult("sig-nil", ts)
	r.FromPriceUSD = nil
	r.ToPriceUSD = nil
	r.ValueUSD = decimal.Zero
	r.ValueLocal = decimal.Zero

	err := store.InsertBulk(ctx, "run-1", []*domain.TransactionTaxResult{r})
	require.NoError(t, err)

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].FromPriceUSD)
	assert.Nil(t, got[0].ToPriceUSD)
	assert.True(t, got[0].ValueUSD.IsZero())
}

func TestTaxResultStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaxResultStore(conn)
	ctx := context.Background()

	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	results := []*domain.TransactionTaxResult{makeTaxResult("sig-1", ts)}

	err := store.InsertBulk(ctx, "run-1", results)
	require.NoError(t, err)

	// Same signature under the same run is rejected
	err = store.InsertBulk(ctx, "run-1", results)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The same signature under a different run is a separate archive row
	err = store.InsertBulk(ctx, "run-2", results)
	assert.NoError(t, err)
}

func TestTaxResultStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaxResultStore(conn)
	ctx := context.Background()

	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	results := []*domain.TransactionTaxResult{
		makeTaxResult("sig-1", ts),
		makeTaxResult("sig-1", ts.Add(time.Minute)),
	}

	err := store.InsertBulk(ctx, "run-1", results)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTaxResultStore_InsertBulk_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaxResultStore(conn)
	ctx := context.Background()

	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, "", []*domain.TransactionTaxResult{makeTaxResult("sig-1", ts)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, "run-1", []*domain.TransactionTaxResult{makeTaxResult("", ts)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTaxResultStore_GetByRunID_Ordering(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaxResultStore(conn)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	var results []*domain.TransactionTaxResult
	// Insert out of timestamp order
	for i := 4; i >= 0; i-- {
		results = append(results, makeTaxResult(fmt.Sprintf("sig-%d", i), base.Add(time.Duration(i)*time.Hour)))
	}

	err := store.InsertBulk(ctx, "run-order", results)
	require.NoError(t, err)

	got, err := store.GetByRunID(ctx, "run-order")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("sig-%d", i), got[i].Signature)
	}

	// Unknown run returns empty
	empty, err := store.GetByRunID(ctx, "run-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
