package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
)

// fileConfig mirrors domain.Config in a form TOML can express. Rates and
// durations are strings so the file can say "0.15" and "24h" instead of
// floats and nanosecond counts.
type fileConfig struct {
	BaseTokens  []string `toml:"base_tokens"`
	MajorTokens []string `toml:"major_tokens"`

	BuyTaxRate    string `toml:"buy_tax_rate"`
	SellTaxRate   string `toml:"sell_tax_rate"`
	LocalCurrency string `toml:"local_currency"`

	FallbackFXRate string `toml:"fallback_fx_rate"`

	CacheTolerance  string `toml:"cache_tolerance"`
	PriceBatchSize  int    `toml:"price_batch_size"`
	PriceBatchPause string `toml:"price_batch_pause"`
}

// loadConfig overlays a TOML file on the default configuration. An empty
// path returns the defaults; keys absent from the file keep their default
// values.
func loadConfig(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}

	if len(fc.BaseTokens) > 0 {
		cfg.BaseTokens = mintSet(fc.BaseTokens)
	}
	if len(fc.MajorTokens) > 0 {
		cfg.MajorTokens = mintSet(fc.MajorTokens)
	}
	if fc.LocalCurrency != "" {
		cfg.LocalCurrency = fc.LocalCurrency
	}
	if fc.PriceBatchSize > 0 {
		cfg.PriceBatchSize = fc.PriceBatchSize
	}

	if err := overlayDecimal(&cfg.BuyTaxRate, fc.BuyTaxRate, "buy_tax_rate"); err != nil {
		return cfg, err
	}
	if err := overlayDecimal(&cfg.SellTaxRate, fc.SellTaxRate, "sell_tax_rate"); err != nil {
		return cfg, err
	}
	if err := overlayDecimal(&cfg.FallbackFXRate, fc.FallbackFXRate, "fallback_fx_rate"); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.CacheTolerance, fc.CacheTolerance, "cache_tolerance"); err != nil {
		return cfg, err
	}
	if err := overlayDuration(&cfg.PriceBatchPause, fc.PriceBatchPause, "price_batch_pause"); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func overlayDecimal(dst *decimal.Decimal, raw, key string) error {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func overlayDuration(dst *time.Duration, raw, key string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func mintSet(mints []string) map[string]bool {
	set := make(map[string]bool, len(mints))
	for _, m := range mints {
		set[m] = true
	}
	return set
}
