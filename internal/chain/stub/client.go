// Package stub provides an in-memory chain.Client for testing.
package stub

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"solana-escrow-kit/internal/chain"
)

// Client implements chain.Client backed by maps.
type Client struct {
	Accounts      map[solana.PublicKey]*chain.Account
	TokenBalances map[solana.PublicKey]*chain.TokenBalance
	Balances      map[solana.PublicKey]uint64
	Blockhash     chain.Blockhash
	RentExempt    uint64
}

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Accounts:      make(map[solana.PublicKey]*chain.Account),
		TokenBalances: make(map[solana.PublicKey]*chain.TokenBalance),
		Balances:      make(map[solana.PublicKey]uint64),
	}
}

// Compile-time interface check.
var _ chain.Client = (*Client)(nil)

// GetAccountInfo retrieves an account from the stub store.
func (c *Client) GetAccountInfo(_ context.Context, address solana.PublicKey) (*chain.Account, error) {
	acc, ok := c.Accounts[address]
	if !ok {
		return nil, chain.ErrAccountNotFound
	}
	return acc, nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *Client) GetLatestBlockhash(_ context.Context) (*chain.Blockhash, error) {
	bh := c.Blockhash
	return &bh, nil
}

// GetBalance retrieves a lamport balance from the stub store.
func (c *Client) GetBalance(_ context.Context, address solana.PublicKey) (uint64, error) {
	return c.Balances[address], nil
}

// GetTokenAccountBalance retrieves a token balance from the stub store.
func (c *Client) GetTokenAccountBalance(_ context.Context, address solana.PublicKey) (*chain.TokenBalance, error) {
	bal, ok := c.TokenBalances[address]
	if !ok {
		return nil, chain.ErrAccountNotFound
	}
	return bal, nil
}

// GetMinimumBalanceForRentExemption returns the configured minimum.
func (c *Client) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	return c.RentExempt, nil
}
