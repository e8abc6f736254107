// Package chain wraps the external Solana RPC client with the narrow
// read-only surface the escrow SDK needs. Everything here is a pass-through:
// no retries, no caching, no submission. Callers own those policies.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// Client wrapper errors.
var (
	// ErrAccountNotFound is returned when the requested account does not
	// exist on chain.
	ErrAccountNotFound = errors.New("account not found")

	// ErrWrongOwner is returned when an account exists but is not owned by
	// the expected program.
	ErrWrongOwner = errors.New("account not owned by expected program")
)

// Account is the decoded view of a Solana account.
type Account struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Data       []byte
	Executable bool
}

// Blockhash is a recent blockhash with its validity horizon.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// TokenBalance is an SPL token account balance in exact base units.
type TokenBalance struct {
	Amount   *big.Int
	Decimals int
}

// Client defines the read-only chain interface used by the SDK.
type Client interface {
	// GetAccountInfo retrieves an account. Returns ErrAccountNotFound if it
	// does not exist.
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*Account, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction building.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetBalance retrieves an account's lamport balance.
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)

	// GetTokenAccountBalance retrieves an SPL token account balance.
	GetTokenAccountBalance(ctx context.Context, address solana.PublicKey) (*TokenBalance, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for
	// an account of the given size.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}
