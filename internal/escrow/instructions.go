package escrow

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"solana-escrow-kit/internal/amount"
)

// Instruction discriminators, derived from the program's method names.
var (
	initializeDiscriminator = instructionDiscriminator("initialize")
	depositDiscriminator    = instructionDiscriminator("deposit")
	releaseDiscriminator    = instructionDiscriminator("release")
	refundDiscriminator     = instructionDiscriminator("refund")
	cancelDiscriminator     = instructionDiscriminator("cancel")
)

// Builder validation errors.
var (
	// ErrMissingAccount is returned when a required account is the zero key.
	ErrMissingAccount = errors.New("missing required account")

	// ErrAmountOutOfRange is returned when an amount does not fit the
	// program's u64 field.
	ErrAmountOutOfRange = errors.New("amount does not fit u64")

	// ErrZeroAmount is returned when an escrow would be opened or funded
	// with nothing in it.
	ErrZeroAmount = errors.New("amount must be positive")
)

// amountToU64 converts an exact base-unit amount to the u64 wire field.
func amountToU64(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() <= 0 {
		return 0, ErrZeroAmount
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, v)
	}
	return v.Uint64(), nil
}

// encodeArgs borsh-encodes args after the 8-byte instruction discriminator.
func encodeArgs(discriminator [8]byte, args any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	if args != nil {
		enc := bin.NewBorshEncoder(buf)
		if err := enc.Encode(args); err != nil {
			return nil, fmt.Errorf("encode instruction args: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func requireAccounts(keys ...solana.PublicKey) error {
	for _, k := range keys {
		if k.IsZero() {
			return ErrMissingAccount
		}
	}
	return nil
}

// InitializeParams describes a new escrow.
type InitializeParams struct {
	Initializer solana.PublicKey // transaction signer, pays rent
	Beneficiary solana.PublicKey // receives the payout on release
	Arbiter     solana.PublicKey // authorizes release or refund
	Mint        solana.PublicKey // settlement token mint
	Seed        [SeedLen]byte    // per-escrow uniqueness seed

	// Amount in base units of Mint. Exact; must fit u64.
	Amount *big.Int

	// FeeBps is the protocol fee in basis points, [0, 10000].
	FeeBps int64
}

type initializeArgs struct {
	Seed   [SeedLen]byte
	Amount uint64
	FeeBps uint16
}

// NewInitializeInstruction builds the instruction that creates the escrow
// state account and its token vault.
func NewInitializeInstruction(cfg Config, p InitializeParams) (solana.Instruction, error) {
	if err := requireAccounts(p.Initializer, p.Beneficiary, p.Arbiter, p.Mint); err != nil {
		return nil, err
	}
	amt, err := amountToU64(p.Amount)
	if err != nil {
		return nil, err
	}
	// Range-check the fee rate the same way the split math will.
	if _, err := amount.ApplyBps(p.Amount, p.FeeBps); err != nil {
		return nil, err
	}

	state, vault, _, _, err := DeriveAccounts(cfg.ProgramID, p.Initializer, p.Seed)
	if err != nil {
		return nil, err
	}

	data, err := encodeArgs(initializeDiscriminator, initializeArgs{
		Seed:   p.Seed,
		Amount: amt,
		FeeBps: uint16(p.FeeBps),
	})
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(p.Initializer).WRITE().SIGNER(),
		solana.Meta(state).WRITE(),
		solana.Meta(vault).WRITE(),
		solana.Meta(p.Beneficiary),
		solana.Meta(p.Arbiter),
		solana.Meta(p.Mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}

// DepositParams funds an open escrow from the initializer's token account.
type DepositParams struct {
	Initializer      solana.PublicKey
	InitializerToken solana.PublicKey // source SPL token account
	State            solana.PublicKey
	Vault            solana.PublicKey

	// Amount in base units; must equal the escrowed amount on chain.
	Amount *big.Int
}

type depositArgs struct {
	Amount uint64
}

// NewDepositInstruction builds the instruction that moves the escrowed
// amount into the vault.
func NewDepositInstruction(cfg Config, p DepositParams) (solana.Instruction, error) {
	if err := requireAccounts(p.Initializer, p.InitializerToken, p.State, p.Vault); err != nil {
		return nil, err
	}
	amt, err := amountToU64(p.Amount)
	if err != nil {
		return nil, err
	}

	data, err := encodeArgs(depositDiscriminator, depositArgs{Amount: amt})
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(p.Initializer).SIGNER(),
		solana.Meta(p.InitializerToken).WRITE(),
		solana.Meta(p.State).WRITE(),
		solana.Meta(p.Vault).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}

// ReleaseParams pays the beneficiary and routes the protocol fee.
type ReleaseParams struct {
	Arbiter          solana.PublicKey
	State            solana.PublicKey
	Vault            solana.PublicKey
	BeneficiaryToken solana.PublicKey // destination SPL token account
}

// ReleaseAmounts is the client-side view of how the vault balance splits on
// release. Fee plus payout equals the escrowed amount exactly.
type ReleaseAmounts struct {
	Fee    *big.Int
	Payout *big.Int
}

// NewReleaseInstruction builds the release instruction and returns the
// expected fee/payout split computed from the decoded escrow state. The
// split mirrors the on-chain math: the fee share floors, the payout absorbs
// the residue.
func NewReleaseInstruction(cfg Config, state *State, p ReleaseParams) (solana.Instruction, *ReleaseAmounts, error) {
	if state == nil {
		return nil, nil, fmt.Errorf("%w: escrow state", ErrMissingAccount)
	}
	if err := requireAccounts(p.Arbiter, p.State, p.Vault, p.BeneficiaryToken, cfg.FeeCollector); err != nil {
		return nil, nil, err
	}

	fee, payout, err := state.Split()
	if err != nil {
		return nil, nil, err
	}

	data, err := encodeArgs(releaseDiscriminator, nil)
	if err != nil {
		return nil, nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(p.Arbiter).SIGNER(),
		solana.Meta(p.State).WRITE(),
		solana.Meta(p.Vault).WRITE(),
		solana.Meta(p.BeneficiaryToken).WRITE(),
		solana.Meta(cfg.FeeCollector).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), &ReleaseAmounts{Fee: fee, Payout: payout}, nil
}

// RefundParams returns the vault balance to the initializer.
type RefundParams struct {
	Arbiter          solana.PublicKey
	State            solana.PublicKey
	Vault            solana.PublicKey
	InitializerToken solana.PublicKey
}

// NewRefundInstruction builds the instruction that refunds a funded escrow.
func NewRefundInstruction(cfg Config, p RefundParams) (solana.Instruction, error) {
	if err := requireAccounts(p.Arbiter, p.State, p.Vault, p.InitializerToken); err != nil {
		return nil, err
	}

	data, err := encodeArgs(refundDiscriminator, nil)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(p.Arbiter).SIGNER(),
		solana.Meta(p.State).WRITE(),
		solana.Meta(p.Vault).WRITE(),
		solana.Meta(p.InitializerToken).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}

// CancelParams closes an unfunded escrow.
type CancelParams struct {
	Initializer solana.PublicKey
	State       solana.PublicKey
	Vault       solana.PublicKey
}

// NewCancelInstruction builds the instruction that cancels a pending escrow
// before it is funded. Rent is returned to the initializer.
func NewCancelInstruction(cfg Config, p CancelParams) (solana.Instruction, error) {
	if err := requireAccounts(p.Initializer, p.State, p.Vault); err != nil {
		return nil, err
	}

	data, err := encodeArgs(cancelDiscriminator, nil)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(p.Initializer).WRITE().SIGNER(),
		solana.Meta(p.State).WRITE(),
		solana.Meta(p.Vault).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(cfg.ProgramID, metas, data), nil
}
