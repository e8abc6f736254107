package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-escrow-kit/internal/escrow"
)

// FetchEscrowState fetches and decodes an escrow state account, verifying
// the account is owned by the escrow program. Works with any Client
// implementation, stub included.
func FetchEscrowState(ctx context.Context, c Client, programID, address solana.PublicKey) (*escrow.State, error) {
	acc, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(programID) {
		return nil, fmt.Errorf("%w: owner %s", ErrWrongOwner, acc.Owner)
	}

	state, err := escrow.DecodeState(acc.Data)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// FetchVaultBalance returns the exact base-unit balance of an escrow vault.
func FetchVaultBalance(ctx context.Context, c Client, vault solana.PublicKey) (*TokenBalance, error) {
	return c.GetTokenAccountBalance(ctx, vault)
}
