package ingestion

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrNotOnCurve marks a well-formed address whose bytes are not an ed25519
// public key. Program derived addresses fail this check.
var ErrNotOnCurve = errors.New("address is not an ed25519 public key")

// ValidateMintAddress checks that addr is a well-formed Solana account
// address: base58 text decoding to exactly 32 bytes. Mint accounts may be
// program derived, so no curve check applies.
func ValidateMintAddress(addr string) error {
	_, err := decodeAddress(addr)
	return err
}

// ValidateWalletAddress checks that addr is a wallet: a well-formed address
// whose bytes land on the ed25519 curve, as every keypair's public key does.
func ValidateWalletAddress(addr string) error {
	decoded, err := decodeAddress(addr)
	if err != nil {
		return err
	}
	if !isOnCurve(decoded) {
		return fmt.Errorf("%s: %w", addr, ErrNotOnCurve)
	}
	return nil
}

func decodeAddress(addr string) ([]byte, error) {
	if addr == "" {
		return nil, errors.New("empty address")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", addr, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("address %s is %d bytes, want 32", addr, len(decoded))
	}
	return decoded, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
