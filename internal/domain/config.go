package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known Solana mints used by the default configuration.
const (
	MintWSOL = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Config carries the jurisdiction and tuning parameters for one engine
// instance. Tests substitute alternative jurisdictions by constructing a
// Config directly instead of patching package state.
type Config struct {
	BaseTokens  map[string]bool // cash-equivalent mints; swaps into/out of these classify the other leg
	MajorTokens map[string]bool // mints eligible for quote caching

	BuyTaxRate    decimal.Decimal // rate applied to an acquisition's local-currency value
	SellTaxRate   decimal.Decimal // rate applied to a disposal's local-currency value
	LocalCurrency string          // ISO code of the reporting currency

	FallbackFXRate decimal.Decimal // USD -> local rate used when the FX service is unavailable

	CacheTolerance  time.Duration // half-width of the cache match window around a lookup timestamp
	PriceBatchSize  int           // tokens resolved concurrently per batch
	PriceBatchPause time.Duration // pause between price batches
}

// DefaultConfig returns the production defaults: SOL plus the major
// stablecoins as base tokens, the same set eligible for caching, and
// Serbian dinar reporting.
func DefaultConfig() Config {
	return Config{
		BaseTokens: map[string]bool{
			MintWSOL: true,
			MintUSDC: true,
			MintUSDT: true,
		},
		MajorTokens: map[string]bool{
			MintWSOL: true,
			MintUSDC: true,
			MintUSDT: true,
		},
		BuyTaxRate:      decimal.Zero,
		SellTaxRate:     decimal.RequireFromString("0.15"),
		LocalCurrency:   "RSD",
		FallbackFXRate:  decimal.RequireFromString("108.0"),
		CacheTolerance:  24 * time.Hour,
		PriceBatchSize:  5,
		PriceBatchPause: time.Second,
	}
}

// IsBaseToken reports whether mint is treated as cash-equivalent.
func (c Config) IsBaseToken(mint string) bool {
	return c.BaseTokens[mint]
}

// IsMajorToken reports whether mint is eligible for quote caching.
func (c Config) IsMajorToken(mint string) bool {
	return c.MajorTokens[mint]
}

// Validate checks the configuration before a run; the engine fails fast on
// a broken config rather than producing a summary from bad parameters.
func (c Config) Validate() error {
	if c.BuyTaxRate.IsNegative() {
		return fmt.Errorf("buy tax rate must not be negative, got %s", c.BuyTaxRate)
	}
	if c.SellTaxRate.IsNegative() {
		return fmt.Errorf("sell tax rate must not be negative, got %s", c.SellTaxRate)
	}
	if c.LocalCurrency == "" {
		return fmt.Errorf("local currency is required")
	}
	if !c.FallbackFXRate.IsPositive() {
		return fmt.Errorf("fallback FX rate must be positive, got %s", c.FallbackFXRate)
	}
	if c.CacheTolerance < 0 {
		return fmt.Errorf("cache tolerance must not be negative, got %s", c.CacheTolerance)
	}
	if c.PriceBatchSize < 1 {
		return fmt.Errorf("price batch size must be at least 1, got %d", c.PriceBatchSize)
	}
	if c.PriceBatchPause < 0 {
		return fmt.Errorf("price batch pause must not be negative, got %s", c.PriceBatchPause)
	}
	return nil
}
