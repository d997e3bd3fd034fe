package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
	"solana-tax-engine/internal/storage"
)

// TaxResultStore implements storage.TaxResultStore using ClickHouse.
// Results are an analytical archive; MergeTree does not enforce uniqueness,
// so duplicates are rejected with explicit existence checks before insert.
type TaxResultStore struct {
	conn *Conn
}

// NewTaxResultStore creates a new TaxResultStore.
func NewTaxResultStore(conn *Conn) *TaxResultStore {
	return &TaxResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TaxResultStore = (*TaxResultStore)(nil)

// InsertBulk adds all results of one run. Fails entire batch on duplicate (run_id, signature).
func (s *TaxResultStore) InsertBulk(ctx context.Context, runID string, results []*domain.TransactionTaxResult) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.Signature == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.Signature] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, r := range results {
		exists, err := s.exists(ctx, runID, r.Signature)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tax_results (
			run_id, signature, ts, venue, classification,
			from_token, from_symbol, from_amount, from_price_usd,
			to_token, to_symbol, to_amount, to_price_usd,
			value_usd, value_local, cost_basis_usd, cost_basis_local,
			gain_loss_usd, gain_loss_local, amount_unmatched,
			tax_buy, tax_sell, total_tax
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range results {
		err = batch.Append(
			runID, r.Signature, r.Timestamp, r.Venue, string(r.Classification),
			r.FromToken, r.FromSymbol, r.FromAmount, r.FromPriceUSD,
			r.ToToken, r.ToSymbol, r.ToAmount, r.ToPriceUSD,
			r.ValueUSD, r.ValueLocal, r.CostBasisUSD, r.CostBasisLocal,
			r.GainLossUSD, r.GainLossLocal, r.AmountUnmatched,
			r.Tax[domain.TaxCategoryBuy], r.Tax[domain.TaxCategorySell], r.TotalTax,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all results archived for a run, ordered by timestamp ASC.
func (s *TaxResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TransactionTaxResult, error) {
	query := `
		SELECT signature, ts, venue, classification,
		       from_token, from_symbol, from_amount, from_price_usd,
		       to_token, to_symbol, to_amount, to_price_usd,
		       value_usd, value_local, cost_basis_usd, cost_basis_local,
		       gain_loss_usd, gain_loss_local, amount_unmatched,
		       tax_buy, tax_sell, total_tax
		FROM tax_results
		WHERE run_id = ?
		ORDER BY ts ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanTaxResults(rows)
}

// exists checks if a result with the given key exists.
func (s *TaxResultStore) exists(ctx context.Context, runID, signature string) (bool, error) {
	query := `
		SELECT count(*) FROM tax_results
		WHERE run_id = ? AND signature = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, signature).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTaxResults scans multiple rows into a slice.
func scanTaxResults(rows chRows) ([]*domain.TransactionTaxResult, error) {
	var results []*domain.TransactionTaxResult

	for rows.Next() {
		var r domain.TransactionTaxResult
		var ts time.Time
		var classification string
		var taxBuy, taxSell decimal.Decimal

		err := rows.Scan(
			&r.Signature, &ts, &r.Venue, &classification,
			&r.FromToken, &r.FromSymbol, &r.FromAmount, &r.FromPriceUSD,
			&r.ToToken, &r.ToSymbol, &r.ToAmount, &r.ToPriceUSD,
			&r.ValueUSD, &r.ValueLocal, &r.CostBasisUSD, &r.CostBasisLocal,
			&r.GainLossUSD, &r.GainLossLocal, &r.AmountUnmatched,
			&taxBuy, &taxSell, &r.TotalTax,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tax result row: %w", err)
		}

		r.Timestamp = ts.UTC()
		r.Classification = domain.Classification(classification)
		// The charged category follows the classification; the other column
		// only exists so the schema stays flat.
		r.Tax = make(map[domain.TaxCategory]decimal.Decimal)
		if r.Classification == domain.ClassificationAcquisition {
			r.Tax[domain.TaxCategoryBuy] = taxBuy
		} else {
			r.Tax[domain.TaxCategorySell] = taxSell
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax result rows: %w", err)
	}

	return results, nil
}
