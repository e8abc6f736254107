package escrow

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address validation errors.
var (
	// ErrInvalidAddress is returned for input that does not decode to a
	// 32-byte Solana public key.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrExpectedOffCurve is returned when a program-derived address is
	// required but the key lies on the ed25519 curve.
	ErrExpectedOffCurve = errors.New("address is on the ed25519 curve, not a PDA")
)

// ValidateAddress checks that s is a well-formed base58 Solana address.
func ValidateAddress(s string) error {
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%w: decoded to %d bytes, want 32", ErrInvalidAddress, len(raw))
	}
	return nil
}

// IsOffCurve reports whether a 32-byte public key lies off the ed25519
// curve. Program-derived addresses are off-curve by construction; wallet
// keys are valid curve points.
func IsOffCurve(pubkey []byte) bool {
	if len(pubkey) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err != nil
}

// ValidatePDA checks that s is a well-formed address and off-curve.
func ValidatePDA(s string) error {
	if err := ValidateAddress(s); err != nil {
		return err
	}
	raw, _ := base58.Decode(s)
	if !IsOffCurve(raw) {
		return fmt.Errorf("%w: %s", ErrExpectedOffCurve, s)
	}
	return nil
}
