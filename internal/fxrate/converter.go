// Package fxrate supplies the USD to local-currency rate for a calculation
// run. One best-effort call per run; historical per-transaction rates are
// not attempted.
package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/observability"
)

// DefaultTimeout bounds the single rate request.
const DefaultTimeout = 10 * time.Second

const defaultEndpoint = "https://open.er-api.com/v6/latest/USD"

// Converter fetches the USD rate table and extracts one currency. Any
// failure falls back to the configured constant rate; Rate never returns
// an error.
type Converter struct {
	endpoint string
	client   *http.Client
	currency string
	fallback decimal.Decimal
	logger   *log.Logger
}

// ConverterOptions configures a Converter.
type ConverterOptions struct {
	Endpoint string       // optional, defaults to the public exchange-rate API
	Client   *http.Client // optional
	Currency string       // ISO code to extract from the rate table
	Fallback decimal.Decimal
	Logger   *log.Logger
}

// NewConverter creates a Converter.
func NewConverter(opts ConverterOptions) *Converter {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Converter{
		endpoint: endpoint,
		client:   client,
		currency: opts.Currency,
		fallback: opts.Fallback,
		logger:   logger,
	}
}

// Rate returns the USD to local-currency rate for the run.
func (c *Converter) Rate(ctx context.Context) decimal.Decimal {
	rate, err := c.fetch(ctx)
	if err != nil {
		c.logger.Printf("FX rate fetch failed, using fallback %s: %v", c.fallback, err)
		observability.RecordFXFallback()
		return c.fallback
	}
	return rate
}

func (c *Converter) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Decimal{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	if err := decoder.Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode: %w", err)
	}

	raw, ok := payload.Rates[c.currency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate for %s in response", c.currency)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rate %q: %w", raw.String(), err)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive rate %s for %s", rate, c.currency)
	}
	return rate, nil
}
