// Package ledger implements FIFO lot accounting: per-token queues of
// acquisition lots, consumed oldest-first with proportional splitting.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// fractionScale is the decimal precision used when splitting a lot.
const fractionScale = 16

// Lot is one acquired quantity of a token and its remaining cost basis.
// Lots are owned exclusively by the Ledger that created them.
type Lot struct {
	Token          string          // token mint
	Amount         decimal.Decimal // remaining amount, >= 0
	CostBasisUSD   decimal.Decimal // remaining basis in USD
	CostBasisLocal decimal.Decimal // remaining basis in local currency
	AcquiredAt     time.Time       // acquisition time, queue order key
}

// Ledger maintains per-token FIFO lot queues for a single calculation run.
// It is rebuilt from scratch every run and is not safe for concurrent use;
// a run's classification loop is its only caller.
type Ledger struct {
	queues map[string][]*Lot
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		queues: make(map[string][]*Lot),
	}
}

// RecordAcquisition appends a new lot at the tail of the token's queue.
// Queue order follows call order; callers feed records in ascending
// timestamp order so the queue stays ordered by AcquiredAt. A zero-amount
// lot is permitted and contributes nothing when later consumed.
func (l *Ledger) RecordAcquisition(token string, amount, costBasisUSD, costBasisLocal decimal.Decimal, acquiredAt time.Time) {
	l.queues[token] = append(l.queues[token], &Lot{
		Token:          token,
		Amount:         amount,
		CostBasisUSD:   costBasisUSD,
		CostBasisLocal: costBasisLocal,
		AcquiredAt:     acquiredAt,
	})
}

// Consume walks the token's queue from the head, consuming up to amount.
// A head lot smaller than the remaining request is consumed whole; a larger
// head lot is split, reducing its amount and both bases by the same fraction
// so the lot's average unit cost is unchanged. If the queue runs out first,
// the shortfall is returned as unmatched with the basis accumulated so far:
// disposing more than was ever acquired is a zero-basis gain, not an error.
func (l *Ledger) Consume(token string, amount decimal.Decimal) (basisUSD, basisLocal, unmatched decimal.Decimal) {
	basisUSD = decimal.Zero
	basisLocal = decimal.Zero
	remaining := amount

	queue := l.queues[token]
	for remaining.IsPositive() && len(queue) > 0 {
		head := queue[0]

		if head.Amount.LessThanOrEqual(remaining) {
			// Full consumption: take the lot's entire basis and drop it.
			basisUSD = basisUSD.Add(head.CostBasisUSD)
			basisLocal = basisLocal.Add(head.CostBasisLocal)
			remaining = remaining.Sub(head.Amount)
			queue = queue[1:]
			continue
		}

		// Partial consumption: split the head lot proportionally.
		fraction := remaining.DivRound(head.Amount, fractionScale)
		usedUSD := head.CostBasisUSD.Mul(fraction)
		usedLocal := head.CostBasisLocal.Mul(fraction)

		basisUSD = basisUSD.Add(usedUSD)
		basisLocal = basisLocal.Add(usedLocal)

		head.Amount = head.Amount.Sub(remaining)
		head.CostBasisUSD = head.CostBasisUSD.Sub(usedUSD)
		head.CostBasisLocal = head.CostBasisLocal.Sub(usedLocal)
		remaining = decimal.Zero
	}
	l.queues[token] = queue

	return basisUSD, basisLocal, remaining
}

// Lots returns a copy of the token's current queue, head first.
func (l *Ledger) Lots(token string) []Lot {
	queue := l.queues[token]
	lots := make([]Lot, 0, len(queue))
	for _, lot := range queue {
		lots = append(lots, *lot)
	}
	return lots
}

// RemainingAmount returns the total unconsumed amount across the token's lots.
func (l *Ledger) RemainingAmount(token string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.queues[token] {
		total = total.Add(lot.Amount)
	}
	return total
}
