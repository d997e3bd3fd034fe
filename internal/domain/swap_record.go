package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapRecord represents one parsed token-swap transaction for a wallet.
// Produced by an ingestion collaborator; the engine never mutates it.
type SwapRecord struct {
	Signature  string          // Solana transaction signature, unique per record
	Wallet     string          // owning wallet address
	Timestamp  time.Time       // block time of the swap
	FromToken  string          // mint of the leg paid out of the wallet
	FromSymbol string          // display symbol of the from leg
	FromAmount decimal.Decimal // amount paid, >= 0
	ToToken    string          // mint of the leg received
	ToSymbol   string          // display symbol of the to leg
	ToAmount   decimal.Decimal // amount received, >= 0
	Venue      string          // free-text origin label (DEX name, aggregator)
}
