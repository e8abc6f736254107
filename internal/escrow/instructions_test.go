package escrow

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-escrow-kit/internal/amount"
)

var (
	testBeneficiary = solana.MustPublicKeyFromBase58("2fvQzD8kwsy4oFnYrFvD6p29sZeYFNi4s35XPcWfUStA")
	testArbiter     = solana.MustPublicKeyFromBase58("4pqvZ15PRGirCXtVfp68uYNNdp9u1AJmxfRaQnsLzBvg")
	testTokenAcctA  = solana.MustPublicKeyFromBase58("8MvdHr2fsTbo2Q75HaEvZ3HhjfcML1iTMsddD1yrXgSj")
)

func testInitializeParams() InitializeParams {
	return InitializeParams{
		Initializer: testInitializer,
		Beneficiary: testBeneficiary,
		Arbiter:     testArbiter,
		Mint:        MainnetUSDCMint,
		Seed:        [SeedLen]byte{9, 9, 9},
		Amount:      big.NewInt(1_500_000),
		FeeBps:      250,
	}
}

func TestNewInitializeInstruction(t *testing.T) {
	cfg := MainnetConfig()
	p := testInitializeParams()

	ins, err := NewInitializeInstruction(cfg, p)
	require.NoError(t, err)

	assert.Equal(t, cfg.ProgramID, ins.ProgramID())
	require.Len(t, ins.Accounts(), 9)

	// Initializer signs and pays.
	assert.True(t, ins.Accounts()[0].IsSigner)
	assert.True(t, ins.Accounts()[0].IsWritable)
	assert.Equal(t, p.Initializer, ins.Accounts()[0].PublicKey)

	// State and vault PDAs are writable, never signers.
	state, vault, _, _, err := DeriveAccounts(cfg.ProgramID, p.Initializer, p.Seed)
	require.NoError(t, err)
	assert.Equal(t, state, ins.Accounts()[1].PublicKey)
	assert.True(t, ins.Accounts()[1].IsWritable)
	assert.False(t, ins.Accounts()[1].IsSigner)
	assert.Equal(t, vault, ins.Accounts()[2].PublicKey)

	data, err := ins.Data()
	require.NoError(t, err)
	// discriminator(8) + seed(16) + amount u64(8) + fee bps u16(2)
	assert.Len(t, data, 34)
	assert.Equal(t, initializeDiscriminator[:], data[:8])
	assert.Equal(t, p.Seed[:], data[8:24])
}

func TestNewInitializeInstruction_Validation(t *testing.T) {
	cfg := MainnetConfig()

	t.Run("missing account", func(t *testing.T) {
		p := testInitializeParams()
		p.Beneficiary = solana.PublicKey{}
		_, err := NewInitializeInstruction(cfg, p)
		assert.ErrorIs(t, err, ErrMissingAccount)
	})

	t.Run("zero amount", func(t *testing.T) {
		p := testInitializeParams()
		p.Amount = big.NewInt(0)
		_, err := NewInitializeInstruction(cfg, p)
		assert.ErrorIs(t, err, ErrZeroAmount)
	})

	t.Run("nil amount", func(t *testing.T) {
		p := testInitializeParams()
		p.Amount = nil
		_, err := NewInitializeInstruction(cfg, p)
		assert.ErrorIs(t, err, ErrZeroAmount)
	})

	t.Run("amount beyond u64", func(t *testing.T) {
		p := testInitializeParams()
		p.Amount, _ = new(big.Int).SetString("18446744073709551616", 10) // 2^64
		_, err := NewInitializeInstruction(cfg, p)
		assert.ErrorIs(t, err, ErrAmountOutOfRange)
	})

	t.Run("fee bps out of range", func(t *testing.T) {
		p := testInitializeParams()
		p.FeeBps = 10001
		_, err := NewInitializeInstruction(cfg, p)
		assert.ErrorIs(t, err, amount.ErrInvalidBpsRange)
	})
}

func TestNewDepositInstruction(t *testing.T) {
	cfg := MainnetConfig()
	state, vault, _, _, err := DeriveAccounts(cfg.ProgramID, testInitializer, [SeedLen]byte{9, 9, 9})
	require.NoError(t, err)

	ins, err := NewDepositInstruction(cfg, DepositParams{
		Initializer:      testInitializer,
		InitializerToken: testTokenAcctA,
		State:            state,
		Vault:            vault,
		Amount:           big.NewInt(1_500_000),
	})
	require.NoError(t, err)

	require.Len(t, ins.Accounts(), 5)
	assert.True(t, ins.Accounts()[0].IsSigner)

	data, err := ins.Data()
	require.NoError(t, err)
	assert.Len(t, data, 16) // discriminator(8) + amount u64(8)
	assert.Equal(t, depositDiscriminator[:], data[:8])

	_, err = NewDepositInstruction(cfg, DepositParams{})
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestNewReleaseInstruction(t *testing.T) {
	cfg := MainnetConfig()
	st := testState()

	ins, amounts, err := NewReleaseInstruction(cfg, st, ReleaseParams{
		Arbiter:          testArbiter,
		State:            st.Vault, // placeholder addresses are fine for building
		Vault:            st.Vault,
		BeneficiaryToken: testTokenAcctA,
	})
	require.NoError(t, err)

	require.Len(t, ins.Accounts(), 6)
	assert.Equal(t, cfg.FeeCollector, ins.Accounts()[4].PublicKey)

	data, err := ins.Data()
	require.NoError(t, err)
	assert.Equal(t, releaseDiscriminator[:], data)

	// The advertised split conserves the escrowed amount.
	sum := new(big.Int).Add(amounts.Fee, amounts.Payout)
	assert.Zero(t, st.AmountBase().Cmp(sum))
	assert.Equal(t, "37500", amounts.Fee.String())

	_, _, err = NewReleaseInstruction(cfg, nil, ReleaseParams{})
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestNewRefundInstruction(t *testing.T) {
	cfg := MainnetConfig()

	ins, err := NewRefundInstruction(cfg, RefundParams{
		Arbiter:          testArbiter,
		State:            testTokenAcctA,
		Vault:            testTokenAcctA,
		InitializerToken: testTokenAcctA,
	})
	require.NoError(t, err)

	data, err := ins.Data()
	require.NoError(t, err)
	assert.Equal(t, refundDiscriminator[:], data)

	_, err = NewRefundInstruction(cfg, RefundParams{})
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestNewCancelInstruction(t *testing.T) {
	cfg := MainnetConfig()

	ins, err := NewCancelInstruction(cfg, CancelParams{
		Initializer: testInitializer,
		State:       testTokenAcctA,
		Vault:       testTokenAcctA,
	})
	require.NoError(t, err)

	data, err := ins.Data()
	require.NoError(t, err)
	assert.Equal(t, cancelDiscriminator[:], data)

	_, err = NewCancelInstruction(cfg, CancelParams{})
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestDiscriminators_Distinct(t *testing.T) {
	seen := map[[8]byte]string{
		initializeDiscriminator: "initialize",
		depositDiscriminator:    "deposit",
		releaseDiscriminator:    "release",
		refundDiscriminator:     "refund",
		cancelDiscriminator:     "cancel",
	}
	assert.Len(t, seen, 5)
}
