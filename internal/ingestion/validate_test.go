package ingestion

import (
	"errors"
	"strings"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// curveAddress returns a base58 address that is a real curve point.
func curveAddress() string {
	return base58.Encode(edwards25519.NewGeneratorPoint().Bytes())
}

func TestValidateWalletAddress(t *testing.T) {
	if err := ValidateWalletAddress(curveAddress()); err != nil {
		t.Errorf("expected a curve point to validate, got %v", err)
	}

	if err := ValidateWalletAddress(""); err == nil {
		t.Error("expected an error for an empty address")
	}
	if err := ValidateWalletAddress("not-base58-0OIl"); err == nil {
		t.Error("expected an error for invalid base58 text")
	}
	// 16 bytes instead of 32.
	short := base58.Encode(make([]byte, 16))
	if err := ValidateWalletAddress(short); err == nil {
		t.Error("expected an error for a short address")
	}
	if err := ValidateWalletAddress(short); err != nil && !strings.Contains(err.Error(), "16 bytes") {
		t.Errorf("expected the byte count in the error, got %v", err)
	}
}

func TestValidateWalletAddressOffCurve(t *testing.T) {
	// Find a 32-byte value that fails point decoding; walking the first
	// byte from a valid encoding is guaranteed to hit one.
	raw := edwards25519.NewGeneratorPoint().Bytes()
	offCurve := ""
	for b := 0; b < 256; b++ {
		candidate := append([]byte{byte(b)}, raw[1:]...)
		if !isOnCurve(candidate) {
			offCurve = base58.Encode(candidate)
			break
		}
	}
	if offCurve == "" {
		t.Skip("no off-curve variant found")
	}

	err := ValidateWalletAddress(offCurve)
	if !errors.Is(err, ErrNotOnCurve) {
		t.Errorf("expected ErrNotOnCurve, got %v", err)
	}
}

func TestValidateMintAddress(t *testing.T) {
	// The canonical WSOL and USDC mints are well-formed 32-byte addresses.
	if err := ValidateMintAddress("So11111111111111111111111111111111111111112"); err != nil {
		t.Errorf("expected the WSOL mint to validate, got %v", err)
	}
	if err := ValidateMintAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"); err != nil {
		t.Errorf("expected the USDC mint to validate, got %v", err)
	}

	if err := ValidateMintAddress(""); err == nil {
		t.Error("expected an error for an empty mint")
	}
	if err := ValidateMintAddress("tooshort"); err == nil {
		t.Error("expected an error for a short mint")
	}
}
