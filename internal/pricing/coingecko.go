package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/token_price/solana"

// CoinGeckoClient adapts the public CoinGecko token-price API, which quotes
// Solana tokens by mint address.
type CoinGeckoClient struct {
	endpoint string
	client   *http.Client
}

// NewCoinGeckoClient creates a CoinGecko client.
func NewCoinGeckoClient(opts ...Option) *CoinGeckoClient {
	o := defaultHTTPOptions(defaultCoinGeckoEndpoint)
	for _, opt := range opts {
		opt(o)
	}
	return &CoinGeckoClient{endpoint: o.endpoint, client: o.client}
}

// Compile-time interface check.
var _ Provider = (*CoinGeckoClient)(nil)

// Name identifies the provider in logs and metrics.
func (c *CoinGeckoClient) Name() string { return "coingecko" }

// TokenPriceUSD fetches the current USD price for a mint address.
func (c *CoinGeckoClient) TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	values := url.Values{}
	values.Set("contract_addresses", token)
	values.Set("vs_currencies", "usd")
	req.URL.RawQuery = values.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Decimal{}, fmt.Errorf("coingecko: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("coingecko: decode: %w", err)
	}

	entry, ok := payload[token]
	if !ok {
		// The API lowercases address keys in some responses.
		entry, ok = payload[strings.ToLower(token)]
	}
	if !ok {
		return decimal.Decimal{}, ErrNoPrice
	}

	raw, ok := entry["usd"]
	if !ok {
		return decimal.Decimal{}, ErrNoPrice
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("coingecko: parse price %q: %w", raw.String(), err)
	}
	return price, nil
}
