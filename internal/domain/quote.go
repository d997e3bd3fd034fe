package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSource identifies which tier of the price waterfall produced a quote.
type QuoteSource string

// Quote source constants
const (
	QuoteSourceCache     QuoteSource = "cache"
	QuoteSourcePrimary   QuoteSource = "primary"
	QuoteSourceSecondary QuoteSource = "secondary"
	QuoteSourceNone      QuoteSource = "none"
)

// PriceQuote is the result of resolving one token at one reference time.
// A nil PriceUSD means no source could price the token; callers value that
// leg at zero instead of failing the run.
type PriceQuote struct {
	PriceUSD  *decimal.Decimal // USD price, nil when unpriced
	Source    QuoteSource      // waterfall tier that answered
	FromCache bool             // true when served from the quote store
}

// CachedQuote is one stored price point in the quote store.
// The store key is (Token, Timestamp); inserts are first-writer-wins.
type CachedQuote struct {
	Token     string          // token mint
	PriceUSD  decimal.Decimal // resolved USD price
	Timestamp time.Time       // reference time the quote was resolved for
}
