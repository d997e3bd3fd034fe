// Package normalization prepares raw swap records for classification:
// deterministic ordering, duplicate removal, and input validation.
package normalization

import (
	"errors"
	"fmt"
	"sort"

	"solana-tax-engine/internal/domain"
)

// Validation errors. An invalid input fails the whole run; lot accounting
// cannot tolerate negative amounts or an ambiguous processing order.
var (
	ErrNilRecord          = errors.New("nil record")
	ErrMissingSignature   = errors.New("record has no signature")
	ErrDuplicateSignature = errors.New("duplicate record signature")
	ErrZeroTimestamp      = errors.New("record has zero timestamp")
	ErrMissingToken       = errors.New("record has no token mint")
	ErrNegativeAmount     = errors.New("record has negative amount")
)

// SortRecords orders records by (timestamp ASC, signature ASC).
// FIFO lot consumption is order-dependent, so this ordering is the one
// global invariant of a run.
func SortRecords(records []*domain.SwapRecord) {
	sort.Slice(records, func(i, j int) bool {
		return compareRecords(records[i], records[j]) < 0
	})
}

// compareRecords returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, signature ASC)
func compareRecords(a, b *domain.SwapRecord) int {
	if !a.Timestamp.Equal(b.Timestamp) {
		if a.Timestamp.Before(b.Timestamp) {
			return -1
		}
		return 1
	}
	if a.Signature != b.Signature {
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	return 0
}

// ValidateRecords checks every record against the engine's input
// invariants and fails fast on the first violation.
func ValidateRecords(records []*domain.SwapRecord) error {
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r == nil {
			return fmt.Errorf("record %d: %w", i, ErrNilRecord)
		}
		if r.Signature == "" {
			return fmt.Errorf("record %d: %w", i, ErrMissingSignature)
		}
		if _, dup := seen[r.Signature]; dup {
			return fmt.Errorf("record %d (%s): %w", i, r.Signature, ErrDuplicateSignature)
		}
		seen[r.Signature] = struct{}{}
		if r.Timestamp.IsZero() {
			return fmt.Errorf("record %d (%s): %w", i, r.Signature, ErrZeroTimestamp)
		}
		if r.FromToken == "" || r.ToToken == "" {
			return fmt.Errorf("record %d (%s): %w", i, r.Signature, ErrMissingToken)
		}
		if r.FromAmount.IsNegative() || r.ToAmount.IsNegative() {
			return fmt.Errorf("record %d (%s): %w", i, r.Signature, ErrNegativeAmount)
		}
	}
	return nil
}

// DeduplicateRecords drops records whose signature was already seen,
// keeping the first occurrence. Exports of overlapping periods produce
// such repeats. Records without a signature pass through untouched and
// are left for ValidateRecords to reject.
func DeduplicateRecords(records []*domain.SwapRecord) []*domain.SwapRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]*domain.SwapRecord, 0, len(records))
	for _, r := range records {
		if r == nil || r.Signature == "" {
			out = append(out, r)
			continue
		}
		if _, ok := seen[r.Signature]; ok {
			continue
		}
		seen[r.Signature] = struct{}{}
		out = append(out, r)
	}
	return out
}
