package escrow

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// SeedLen is the byte length of an escrow seed.
const SeedLen = 16

// PDA seed prefixes. These must match the on-chain program.
var (
	statePrefix = []byte("escrow")
	vaultPrefix = []byte("vault")
)

// NewSeed returns a fresh random escrow seed. Each escrow an initializer
// opens gets its own seed so state addresses never collide.
func NewSeed() [SeedLen]byte {
	return uuid.New()
}

// SeedFromString parses a canonical UUID string into an escrow seed.
func SeedFromString(s string) ([SeedLen]byte, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return [SeedLen]byte{}, fmt.Errorf("parse escrow seed: %w", err)
	}
	return u, nil
}

// SeedString renders a seed in its canonical UUID form.
func SeedString(seed [SeedLen]byte) string {
	return uuid.UUID(seed).String()
}

// StateAddress derives the escrow state PDA for an initializer and seed.
// Derivation is deterministic: the same inputs always yield the same
// address and bump.
func StateAddress(programID, initializer solana.PublicKey, seed [SeedLen]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{statePrefix, initializer.Bytes(), seed[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive escrow state address: %w", err)
	}
	return addr, bump, nil
}

// VaultAddress derives the token vault PDA owned by an escrow state account.
func VaultAddress(programID, state solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{vaultPrefix, state.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive escrow vault address: %w", err)
	}
	return addr, bump, nil
}

// DeriveAccounts derives both PDAs for an escrow in one call.
func DeriveAccounts(programID, initializer solana.PublicKey, seed [SeedLen]byte) (state, vault solana.PublicKey, stateBump, vaultBump uint8, err error) {
	state, stateBump, err = StateAddress(programID, initializer, seed)
	if err != nil {
		return
	}
	vault, vaultBump, err = VaultAddress(programID, state)
	return
}
