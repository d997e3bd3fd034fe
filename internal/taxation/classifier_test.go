package taxation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCfg() domain.Config {
	cfg := domain.DefaultConfig()
	cfg.BaseTokens = map[string]bool{"BASE": true, "BASE2": true}
	cfg.MajorTokens = map[string]bool{"BASE": true}
	cfg.BuyTaxRate = dec("0.01")
	cfg.SellTaxRate = dec("0.15")
	return cfg
}

func swapRec(sig string, ts time.Time, fromToken, fromAmount, toToken, toAmount string) *domain.SwapRecord {
	return &domain.SwapRecord{
		Signature:  sig,
		Wallet:     "WalletAAA",
		Timestamp:  ts,
		FromToken:  fromToken,
		FromSymbol: fromToken,
		FromAmount: dec(fromAmount),
		ToToken:    toToken,
		ToSymbol:   toToken,
		ToAmount:   dec(toAmount),
		Venue:      "Raydium",
	}
}

func quotes(prices map[string]string) map[string]domain.PriceQuote {
	out := make(map[string]domain.PriceQuote, len(prices))
	for token, raw := range prices {
		p := dec(raw)
		out[token] = domain.PriceQuote{PriceUSD: &p, Source: domain.QuoteSourcePrimary}
	}
	return out
}

func TestClassifyAcquisition(t *testing.T) {
	c := NewClassifier(testCfg(), dec("2"))

	// 1000 BASE at $1 leaves the wallet, 10 TOK at $120 arrives. The lot
	// basis is what left (1000); the taxed value is what arrived (1200).
	res := c.Classify(
		swapRec("sig1", baseTime, "BASE", "1000", "TOK", "10"),
		quotes(map[string]string{"BASE": "1", "TOK": "120"}),
	)

	if res.Classification != domain.ClassificationAcquisition {
		t.Fatalf("expected acquisition, got %s", res.Classification)
	}
	if !res.ValueUSD.Equal(dec("1200")) {
		t.Errorf("expected value 1200 USD, got %s", res.ValueUSD)
	}
	if !res.ValueLocal.Equal(dec("2400")) {
		t.Errorf("expected value 2400 local, got %s", res.ValueLocal)
	}
	if !res.CostBasisUSD.IsZero() || !res.GainLossUSD.IsZero() {
		t.Errorf("acquisition must not realize basis or gain, got %s / %s", res.CostBasisUSD, res.GainLossUSD)
	}
	if got := res.Tax[domain.TaxCategoryBuy]; !got.Equal(dec("24")) {
		t.Errorf("expected buy tax 24, got %s", got)
	}
	if !res.TotalTax.Equal(dec("24")) {
		t.Errorf("expected total tax 24, got %s", res.TotalTax)
	}

	lots := c.Lots("TOK")
	if len(lots) != 1 {
		t.Fatalf("expected 1 lot for TOK, got %d", len(lots))
	}
	if !lots[0].Amount.Equal(dec("10")) || !lots[0].CostBasisUSD.Equal(dec("1000")) || !lots[0].CostBasisLocal.Equal(dec("2000")) {
		t.Errorf("lot: expected 10 units / 1000 USD / 2000 local, got %s / %s / %s",
			lots[0].Amount, lots[0].CostBasisUSD, lots[0].CostBasisLocal)
	}
}

// Worked example: two acquisitions at rising prices, then a disposal of 8
// units. Basis comes entirely from the first lot, gain is 400,000, and the
// sell tax applies to the full 1,200,000 proceeds.
func TestClassify_WorkedExample(t *testing.T) {
	cfg := testCfg()
	cfg.BuyTaxRate = decimal.Zero
	c := NewClassifier(cfg, dec("1"))

	c.Classify(
		swapRec("buy1", baseTime, "BASE", "1000000", "TOK", "10"),
		quotes(map[string]string{"BASE": "1", "TOK": "100000"}),
	)
	c.Classify(
		swapRec("buy2", baseTime.Add(time.Hour), "BASE", "600000", "TOK", "5"),
		quotes(map[string]string{"BASE": "1", "TOK": "120000"}),
	)
	res := c.Classify(
		swapRec("sell1", baseTime.Add(2*time.Hour), "TOK", "8", "BASE", "1200000"),
		quotes(map[string]string{"BASE": "1", "TOK": "150000"}),
	)

	if res.Classification != domain.ClassificationDisposal {
		t.Fatalf("expected disposal, got %s", res.Classification)
	}
	if !res.ValueUSD.Equal(dec("1200000")) {
		t.Errorf("expected proceeds 1200000, got %s", res.ValueUSD)
	}
	if !res.CostBasisUSD.Equal(dec("800000")) {
		t.Errorf("expected basis 800000, got %s", res.CostBasisUSD)
	}
	if !res.GainLossUSD.Equal(dec("400000")) {
		t.Errorf("expected gain 400000, got %s", res.GainLossUSD)
	}
	if !res.AmountUnmatched.IsZero() {
		t.Errorf("expected no unmatched amount, got %s", res.AmountUnmatched)
	}
	if got := res.Tax[domain.TaxCategorySell]; !got.Equal(dec("180000")) {
		t.Errorf("expected sell tax 180000, got %s", got)
	}

	lots := c.Lots("TOK")
	if len(lots) != 2 {
		t.Fatalf("expected 2 lots remaining, got %d", len(lots))
	}
	if !lots[0].Amount.Equal(dec("2")) || !lots[0].CostBasisUSD.Equal(dec("200000")) {
		t.Errorf("first lot: expected 2 units / 200000, got %s / %s", lots[0].Amount, lots[0].CostBasisUSD)
	}
	if !lots[1].Amount.Equal(dec("5")) || !lots[1].CostBasisUSD.Equal(dec("600000")) {
		t.Errorf("second lot: expected 5 units / 600000, got %s / %s", lots[1].Amount, lots[1].CostBasisUSD)
	}
}

func TestClassifyTokenToToken(t *testing.T) {
	c := NewClassifier(testCfg(), dec("2"))

	c.Classify(
		swapRec("buy1", baseTime, "BASE", "400", "AAA", "4"),
		quotes(map[string]string{"BASE": "1", "AAA": "100"}),
	)
	res := c.Classify(
		swapRec("swap1", baseTime.Add(time.Hour), "AAA", "4", "BBB", "20"),
		quotes(map[string]string{"AAA": "175", "BBB": "35"}),
	)

	if res.Classification != domain.ClassificationDisposal {
		t.Fatalf("expected disposal, got %s", res.Classification)
	}
	if !res.ValueUSD.Equal(dec("700")) {
		t.Errorf("expected proceeds 700, got %s", res.ValueUSD)
	}
	if !res.CostBasisUSD.Equal(dec("400")) {
		t.Errorf("expected basis 400, got %s", res.CostBasisUSD)
	}
	if !res.GainLossUSD.Equal(dec("300")) {
		t.Errorf("expected gain 300, got %s", res.GainLossUSD)
	}
	// Only the disposal side is taxed; the received leg carries no buy tax.
	if len(res.Tax) != 1 {
		t.Errorf("expected a single tax category, got %v", res.Tax)
	}
	if got := res.Tax[domain.TaxCategorySell]; !got.Equal(dec("210")) {
		t.Errorf("expected sell tax 210, got %s", got)
	}

	// The proceeds become the new lot's basis for the received token.
	lots := c.Lots("BBB")
	if len(lots) != 1 {
		t.Fatalf("expected 1 lot for BBB, got %d", len(lots))
	}
	if !lots[0].Amount.Equal(dec("20")) || !lots[0].CostBasisUSD.Equal(dec("700")) || !lots[0].CostBasisLocal.Equal(dec("1400")) {
		t.Errorf("new lot: expected 20 units / 700 USD / 1400 local, got %s / %s / %s",
			lots[0].Amount, lots[0].CostBasisUSD, lots[0].CostBasisLocal)
	}
	if remaining := c.Lots("AAA"); len(remaining) != 0 {
		t.Errorf("expected AAA queue empty, got %d lots", len(remaining))
	}
}

func TestClassifyBaseToBase(t *testing.T) {
	c := NewClassifier(testCfg(), dec("1"))

	// No lots are ever opened for base tokens, so the disposal is fully
	// unmatched: zero basis, the whole proceeds realized as gain.
	res := c.Classify(
		swapRec("sig1", baseTime, "BASE", "10", "BASE2", "10"),
		quotes(map[string]string{"BASE": "1", "BASE2": "1"}),
	)

	if res.Classification != domain.ClassificationDisposal {
		t.Fatalf("expected disposal, got %s", res.Classification)
	}
	if !res.CostBasisUSD.IsZero() {
		t.Errorf("expected zero basis, got %s", res.CostBasisUSD)
	}
	if !res.GainLossUSD.Equal(dec("10")) {
		t.Errorf("expected gain 10, got %s", res.GainLossUSD)
	}
	if !res.AmountUnmatched.Equal(dec("10")) {
		t.Errorf("expected 10 unmatched, got %s", res.AmountUnmatched)
	}
	if lots := c.Lots("BASE2"); len(lots) != 0 {
		t.Errorf("expected no lot for the base to leg, got %d", len(lots))
	}
}

func TestClassifyUnpricedDisposal(t *testing.T) {
	c := NewClassifier(testCfg(), dec("2"))

	c.Classify(
		swapRec("buy1", baseTime, "BASE", "500", "TOK", "5"),
		quotes(map[string]string{"BASE": "1", "TOK": "100"}),
	)
	// No source priced TOK this time: proceeds are zero, so the disposal
	// realizes the consumed basis as a loss instead of failing.
	res := c.Classify(
		swapRec("sell1", baseTime.Add(time.Hour), "TOK", "5", "BASE", "0"),
		quotes(map[string]string{"BASE": "1"}),
	)

	if res.FromPriceUSD != nil {
		t.Errorf("expected nil from price, got %s", res.FromPriceUSD)
	}
	if !res.ValueUSD.IsZero() {
		t.Errorf("expected zero proceeds, got %s", res.ValueUSD)
	}
	if !res.GainLossUSD.Equal(dec("-500")) {
		t.Errorf("expected loss -500, got %s", res.GainLossUSD)
	}
	if !res.GainLossLocal.Equal(dec("-1000")) {
		t.Errorf("expected local loss -1000, got %s", res.GainLossLocal)
	}
	if !res.TotalTax.IsZero() {
		t.Errorf("expected zero tax on zero proceeds, got %s", res.TotalTax)
	}
}

func TestClassifyUnmatchedDisposal(t *testing.T) {
	c := NewClassifier(testCfg(), dec("1"))

	c.Classify(
		swapRec("buy1", baseTime, "BASE", "200", "TOK", "2"),
		quotes(map[string]string{"BASE": "1", "TOK": "100"}),
	)
	res := c.Classify(
		swapRec("sell1", baseTime.Add(time.Hour), "TOK", "5", "BASE", "550"),
		quotes(map[string]string{"BASE": "1", "TOK": "110"}),
	)

	if !res.AmountUnmatched.Equal(dec("3")) {
		t.Errorf("expected 3 unmatched, got %s", res.AmountUnmatched)
	}
	if !res.CostBasisUSD.Equal(dec("200")) {
		t.Errorf("expected basis capped at 200, got %s", res.CostBasisUSD)
	}
	if !res.GainLossUSD.Equal(dec("350")) {
		t.Errorf("expected gain 350, got %s", res.GainLossUSD)
	}
}
