package escrow

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-escrow-kit/internal/amount"
)

func testState() *State {
	return &State{
		Initializer: solana.MustPublicKeyFromBase58("5z6khv4pRUxFqnFP7WM8pgg6ESYVTA8oJCUxSDto7WTE"),
		Beneficiary: solana.MustPublicKeyFromBase58("2fvQzD8kwsy4oFnYrFvD6p29sZeYFNi4s35XPcWfUStA"),
		Arbiter:     solana.MustPublicKeyFromBase58("4pqvZ15PRGirCXtVfp68uYNNdp9u1AJmxfRaQnsLzBvg"),
		Mint:        MainnetUSDCMint,
		Vault:       solana.MustPublicKeyFromBase58("8MvdHr2fsTbo2Q75HaEvZ3HhjfcML1iTMsddD1yrXgSj"),
		Seed:        [SeedLen]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		Amount:      1_500_000,
		FeeBps:      250,
		Status:      StatusFunded,
		Bump:        254,
		CreatedAt:   1_700_000_000,
	}
}

func TestStateEncodeDecode(t *testing.T) {
	in := testState()

	data, err := EncodeState(in)
	require.NoError(t, err)
	assert.Len(t, data, StateSize)

	out, err := DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeState_Errors(t *testing.T) {
	valid, err := EncodeState(testState())
	require.NoError(t, err)

	t.Run("too short for discriminator", func(t *testing.T) {
		_, err := DecodeState(valid[:4])
		assert.ErrorIs(t, err, ErrStateTooShort)
	})

	t.Run("wrong discriminator", func(t *testing.T) {
		data := append([]byte{}, valid...)
		data[0] ^= 0xff
		_, err := DecodeState(data)
		assert.ErrorIs(t, err, ErrNotEscrowAccount)
	})

	t.Run("truncated body", func(t *testing.T) {
		_, err := DecodeState(valid[:StateSize-1])
		assert.ErrorIs(t, err, ErrStateTooShort)
	})

	t.Run("unknown status", func(t *testing.T) {
		s := testState()
		s.Status = Status(9)
		data, err := EncodeState(s)
		require.NoError(t, err)
		_, err = DecodeState(data)
		assert.Error(t, err)
	})

	t.Run("fee bps above scale", func(t *testing.T) {
		s := testState()
		s.FeeBps = 10001
		data, err := EncodeState(s)
		require.NoError(t, err)
		_, err = DecodeState(data)
		assert.ErrorIs(t, err, amount.ErrInvalidBpsRange)
	})
}

func TestStateSplit(t *testing.T) {
	s := testState() // 1_500_000 at 250 bps

	fee, payout, err := s.Split()
	require.NoError(t, err)

	assert.Equal(t, "37500", fee.String())
	assert.Equal(t, "1462500", payout.String())

	sum := new(big.Int).Add(fee, payout)
	assert.Zero(t, s.AmountBase().Cmp(sum))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "PENDING", StatusPending.String())
	assert.Equal(t, "FUNDED", StatusFunded.String())
	assert.Equal(t, "RELEASED", StatusReleased.String())
	assert.Equal(t, "REFUNDED", StatusRefunded.String())
	assert.Equal(t, "CANCELLED", StatusCancelled.String())
	assert.Equal(t, "UNKNOWN(9)", Status(9).String())

	assert.True(t, StatusPending.IsValid())
	assert.False(t, Status(9).IsValid())

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusFunded.IsTerminal())
	assert.True(t, StatusReleased.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}
