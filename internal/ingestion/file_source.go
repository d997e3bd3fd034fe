package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"solana-tax-engine/internal/domain"
)

// FileSource reads swap records from a JSON export file. The file holds an
// array of records, possibly spanning several wallets; Fetch selects the
// requested wallet and period. Amounts may be JSON numbers or strings.
type FileSource struct {
	path   string
	logger *log.Logger
}

// FileSourceOptions contains configuration for creating a FileSource.
type FileSourceOptions struct {
	Path   string
	Logger *log.Logger
}

// NewFileSource creates a source reading from the export at opts.Path.
func NewFileSource(opts FileSourceOptions) *FileSource {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &FileSource{
		path:   opts.Path,
		logger: logger,
	}
}

var _ RecordSource = (*FileSource)(nil)

// fileRecord mirrors one entry of the export format.
type fileRecord struct {
	Signature  string          `json:"signature"`
	Wallet     string          `json:"wallet"`
	Timestamp  time.Time       `json:"timestamp"`
	FromToken  string          `json:"fromToken"`
	FromSymbol string          `json:"fromSymbol"`
	FromAmount decimal.Decimal `json:"fromAmount"`
	ToToken    string          `json:"toToken"`
	ToSymbol   string          `json:"toSymbol"`
	ToAmount   decimal.Decimal `json:"toAmount"`
	Venue      string          `json:"venue"`
}

// Fetch decodes the export and returns the wallet's records within
// [start, end] (inclusive). A record with a malformed wallet or mint
// address fails the whole call; lot accounting downstream cannot recover
// from corrupted identifiers.
func (s *FileSource) Fetch(ctx context.Context, wallet string, start, end time.Time) ([]*domain.SwapRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	var entries []fileRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse records file %s: %w", s.path, err)
	}

	records := make([]*domain.SwapRecord, 0, len(entries))
	for i, entry := range entries {
		if entry.Wallet != wallet {
			continue
		}
		if entry.Timestamp.Before(start) || entry.Timestamp.After(end) {
			continue
		}
		if err := validateEntry(i, entry); err != nil {
			return nil, err
		}
		records = append(records, &domain.SwapRecord{
			Signature:  entry.Signature,
			Wallet:     entry.Wallet,
			Timestamp:  entry.Timestamp,
			FromToken:  entry.FromToken,
			FromSymbol: entry.FromSymbol,
			FromAmount: entry.FromAmount,
			ToToken:    entry.ToToken,
			ToSymbol:   entry.ToSymbol,
			ToAmount:   entry.ToAmount,
			Venue:      entry.Venue,
		})
	}

	s.logger.Printf("Loaded %d records for %s from %s (%d entries total)", len(records), wallet, s.path, len(entries))
	return records, nil
}

func validateEntry(i int, entry fileRecord) error {
	if err := ValidateWalletAddress(entry.Wallet); err != nil {
		return fmt.Errorf("entry %d (%s): wallet: %w", i, entry.Signature, err)
	}
	if err := ValidateMintAddress(entry.FromToken); err != nil {
		return fmt.Errorf("entry %d (%s): from token: %w", i, entry.Signature, err)
	}
	if err := ValidateMintAddress(entry.ToToken); err != nil {
		return fmt.Errorf("entry %d (%s): to token: %w", i, entry.Signature, err)
	}
	return nil
}
