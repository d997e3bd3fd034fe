package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultDexScreenerEndpoint = "https://api.dexscreener.com/latest/dex/tokens"

// DexScreenerClient adapts the public DexScreener token API. DexScreener
// reports one quote per trading pair; the pair with the deepest liquidity
// carries the most reliable price.
type DexScreenerClient struct {
	endpoint string
	client   *http.Client
}

// NewDexScreenerClient creates a DexScreener client.
func NewDexScreenerClient(opts ...Option) *DexScreenerClient {
	o := defaultHTTPOptions(defaultDexScreenerEndpoint)
	for _, opt := range opts {
		opt(o)
	}
	return &DexScreenerClient{endpoint: o.endpoint, client: o.client}
}

// Compile-time interface check.
var _ Provider = (*DexScreenerClient)(nil)

// Name identifies the provider in logs and metrics.
func (c *DexScreenerClient) Name() string { return "dexscreener" }

// TokenPriceUSD fetches the USD price from the most liquid pair quoting the mint.
func (c *DexScreenerClient) TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.endpoint, token), nil)
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
		return decimal.Decimal{}, fmt.Errorf("dexscreener: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Pairs []struct {
			ChainID   string `json:"chainId"`
			PriceUSD  string `json:"priceUsd"`
			Liquidity struct {
				USD float64 `json:"usd"`
			} `json:"liquidity"`
		} `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("dexscreener: decode: %w", err)
	}

	best := -1
	for i := range payload.Pairs {
		if payload.Pairs[i].PriceUSD == "" {
			continue
		}
		if best < 0 || payload.Pairs[i].Liquidity.USD > payload.Pairs[best].Liquidity.USD {
			best = i
		}
	}
	if best < 0 {
		return decimal.Decimal{}, ErrNoPrice
	}

	price, err := decimal.NewFromString(payload.Pairs[best].PriceUSD)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("dexscreener: parse price %q: %w", payload.Pairs[best].PriceUSD, err)
	}
	return price, nil
}
