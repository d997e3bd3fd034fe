package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(wallet|period_start|period_end|sig1|sig2|...), with the
// signatures sorted so the ID does not depend on input order.
// Returns hex-encoded hash (64 characters).
func ComputeRunID(wallet string, start, end time.Time, signatures []string) string {
	sorted := make([]string, len(signatures))
	copy(sorted, signatures)
	sort.Strings(sorted)

	data := fmt.Sprintf("%s|%d|%d|%s",
		wallet,
		start.Unix(),
		end.Unix(),
		strings.Join(sorted, "|"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
