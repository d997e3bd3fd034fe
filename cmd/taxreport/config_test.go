package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tax.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	want := domain.DefaultConfig()
	if cfg.LocalCurrency != want.LocalCurrency {
		t.Errorf("LocalCurrency = %s, want %s", cfg.LocalCurrency, want.LocalCurrency)
	}
	if !cfg.SellTaxRate.Equal(want.SellTaxRate) {
		t.Errorf("SellTaxRate = %s, want %s", cfg.SellTaxRate, want.SellTaxRate)
	}
	if !cfg.IsBaseToken(domain.MintWSOL) {
		t.Error("default config should treat WSOL as a base token")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfigFile(t, `
base_tokens = ["MintA", "MintB"]
major_tokens = ["MintA"]
buy_tax_rate = "0.02"
sell_tax_rate = "0.10"
local_currency = "EUR"
fallback_fx_rate = "0.92"
cache_tolerance = "1h"
price_batch_size = 10
price_batch_pause = "250ms"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if !cfg.IsBaseToken("MintA") || !cfg.IsBaseToken("MintB") {
		t.Errorf("base tokens = %v, want MintA and MintB", cfg.BaseTokens)
	}
	if cfg.IsBaseToken(domain.MintWSOL) {
		t.Error("base_tokens should replace the default set, not extend it")
	}
	if !cfg.IsMajorToken("MintA") || cfg.IsMajorToken("MintB") {
		t.Errorf("major tokens = %v, want only MintA", cfg.MajorTokens)
	}
	if !cfg.BuyTaxRate.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("BuyTaxRate = %s, want 0.02", cfg.BuyTaxRate)
	}
	if !cfg.SellTaxRate.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("SellTaxRate = %s, want 0.10", cfg.SellTaxRate)
	}
	if cfg.LocalCurrency != "EUR" {
		t.Errorf("LocalCurrency = %s, want EUR", cfg.LocalCurrency)
	}
	if !cfg.FallbackFXRate.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("FallbackFXRate = %s, want 0.92", cfg.FallbackFXRate)
	}
	if cfg.CacheTolerance != time.Hour {
		t.Errorf("CacheTolerance = %s, want 1h", cfg.CacheTolerance)
	}
	if cfg.PriceBatchSize != 10 {
		t.Errorf("PriceBatchSize = %d, want 10", cfg.PriceBatchSize)
	}
	if cfg.PriceBatchPause != 250*time.Millisecond {
		t.Errorf("PriceBatchPause = %s, want 250ms", cfg.PriceBatchPause)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `local_currency = "CHF"`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	want := domain.DefaultConfig()
	if cfg.LocalCurrency != "CHF" {
		t.Errorf("LocalCurrency = %s, want CHF", cfg.LocalCurrency)
	}
	if !cfg.SellTaxRate.Equal(want.SellTaxRate) {
		t.Errorf("SellTaxRate = %s, want default %s", cfg.SellTaxRate, want.SellTaxRate)
	}
	if !cfg.IsBaseToken(domain.MintUSDC) {
		t.Error("default base tokens should survive a partial file")
	}
	if cfg.CacheTolerance != want.CacheTolerance {
		t.Errorf("CacheTolerance = %s, want default %s", cfg.CacheTolerance, want.CacheTolerance)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeConfigFile(t, `sel_tax_rate = "0.10"`)

	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for unknown key")
	} else if !strings.Contains(err.Error(), "sel_tax_rate") {
		t.Errorf("error should name the unknown key, got: %v", err)
	}
}

func TestLoadConfigBadDecimal(t *testing.T) {
	path := writeConfigFile(t, `buy_tax_rate = "not-a-number"`)

	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for unparseable rate")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfigFile(t, `cache_tolerance = "soon"`)

	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolvePeriodYear(t *testing.T) {
	start, end, err := resolvePeriod(2024, "", "")
	if err != nil {
		t.Fatalf("resolvePeriod: %v", err)
	}

	wantStart := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %s, want %s", start, wantStart)
	}
	if end.Year() != 2024 {
		t.Errorf("end %s should stay inside the year", end)
	}
	wantNext := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !end.Before(wantNext) || wantNext.Sub(end) > time.Second {
		t.Errorf("end = %s, want just before %s", end, wantNext)
	}
}

func TestResolvePeriodExplicit(t *testing.T) {
	start, end, err := resolvePeriod(0, "2024-03-01T00:00:00Z", "2024-06-30T23:59:59Z")
	if err != nil {
		t.Fatalf("resolvePeriod: %v", err)
	}
	if start.Month() != time.March || end.Month() != time.June {
		t.Errorf("period = %s to %s, want March to June", start, end)
	}
}

func TestResolvePeriodErrors(t *testing.T) {
	if _, _, err := resolvePeriod(0, "", ""); err == nil {
		t.Error("expected error when nothing is specified")
	}
	if _, _, err := resolvePeriod(0, "2024-03-01T00:00:00Z", ""); err == nil {
		t.Error("expected error when only one bound is set")
	}
	if _, _, err := resolvePeriod(0, "2024-06-30T00:00:00Z", "2024-03-01T00:00:00Z"); err == nil {
		t.Error("expected error when end precedes start")
	}
	if _, _, err := resolvePeriod(0, "yesterday", "2024-03-01T00:00:00Z"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}
