// Package pricing resolves USD token prices through a tiered waterfall:
// cached quotes, a primary market-data provider, and a secondary
// DEX-aggregator provider.
package pricing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 10 * time.Second

// ErrNoPrice signals that a provider answered but had no quote for the
// token. The waterfall degrades to the next tier.
var ErrNoPrice = errors.New("no price available")

// Provider resolves the current USD price of a token mint.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// TokenPriceUSD returns the current USD price for the mint.
	// Returns ErrNoPrice when the provider has no quote for it.
	TokenPriceUSD(ctx context.Context, token string) (decimal.Decimal, error)
}

// httpOptions are the transport knobs shared by the provider clients.
type httpOptions struct {
	endpoint string
	client   *http.Client
}

// Option configures a provider client.
type Option func(*httpOptions)

// WithEndpoint overrides the provider API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *httpOptions) {
		o.endpoint = endpoint
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *httpOptions) {
		o.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *httpOptions) {
		o.client = client
	}
}

func defaultHTTPOptions(endpoint string) *httpOptions {
	return &httpOptions{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
}
