package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solana-escrow-kit/internal/amount"
	"solana-escrow-kit/internal/observability"
)

// RPCClient implements Client on top of the solana-go RPC client.
type RPCClient struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

// ClientOption configures RPCClient.
type ClientOption func(*RPCClient)

// WithCommitment sets the commitment level for all reads.
func WithCommitment(c rpc.CommitmentType) ClientOption {
	return func(r *RPCClient) {
		r.commitment = c
	}
}

// WithRPC sets a pre-built solana-go client, for callers that configure
// their own transport.
func WithRPC(c *rpc.Client) ClientOption {
	return func(r *RPCClient) {
		r.rpc = c
	}
}

// NewRPCClient creates a read-only client against an RPC endpoint.
func NewRPCClient(endpoint string, opts ...ClientOption) *RPCClient {
	c := &RPCClient{
		rpc:        rpc.New(endpoint),
		commitment: rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*RPCClient)(nil)

// GetAccountInfo retrieves an account. Returns ErrAccountNotFound if it does
// not exist.
func (c *RPCClient) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*Account, error) {
	start := time.Now()
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	observability.RecordRPCCall("getAccountInfo", time.Since(start).Seconds(), err)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account info: %w", err)
	}
	if res == nil || res.Value == nil {
		return nil, ErrAccountNotFound
	}

	acc := &Account{
		Lamports:   res.Value.Lamports,
		Owner:      res.Value.Owner,
		Executable: res.Value.Executable,
	}
	if res.Value.Data != nil {
		acc.Data = res.Value.Data.GetBinary()
	}
	return acc, nil
}

// GetLatestBlockhash retrieves a recent blockhash for transaction building.
func (c *RPCClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	start := time.Now()
	res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	observability.RecordRPCCall("getLatestBlockhash", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	return &Blockhash{
		Hash:                 res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}

// GetBalance retrieves an account's lamport balance.
func (c *RPCClient) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	start := time.Now()
	res, err := c.rpc.GetBalance(ctx, address, c.commitment)
	observability.RecordRPCCall("getBalance", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return res.Value, nil
}

// GetTokenAccountBalance retrieves an SPL token account balance. The RPC
// reports the amount as a digit string; it is normalized to an exact big
// integer, never a float.
func (c *RPCClient) GetTokenAccountBalance(ctx context.Context, address solana.PublicKey) (*TokenBalance, error) {
	start := time.Now()
	res, err := c.rpc.GetTokenAccountBalance(ctx, address, c.commitment)
	observability.RecordRPCCall("getTokenAccountBalance", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get token account balance: %w", err)
	}
	if res.Value == nil {
		return nil, fmt.Errorf("get token account balance: empty result")
	}

	base, err := amount.Normalize(res.Value.Amount)
	if err != nil {
		return nil, fmt.Errorf("get token account balance: %w", err)
	}
	return &TokenBalance{
		Amount:   base,
		Decimals: int(res.Value.Decimals),
	}, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given size.
func (c *RPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	start := time.Now()
	min, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, c.commitment)
	observability.RecordRPCCall("getMinimumBalanceForRentExemption", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("get rent exemption minimum: %w", err)
	}
	return min, nil
}
