package escrow

import (
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "valid usdc mint", address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
		{name: "valid program id", address: "2n3B2KDMNTr5UKaCSxNrWogsske8yV9CeTGJRnjL8gmT"},
		{name: "invalid base58 characters", address: "0OIl+/=", wantErr: true},
		{name: "too short", address: "abc", wantErr: true},
		{name: "empty", address: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsOffCurve(t *testing.T) {
	// The ed25519 generator is on-curve by definition.
	onCurve := edwards25519.NewGeneratorPoint().Bytes()
	assert.False(t, IsOffCurve(onCurve))

	// A derived PDA is off-curve by construction.
	pda, _, err := StateAddress(MainnetProgramID, testInitializer, [SeedLen]byte{42})
	require.NoError(t, err)
	assert.True(t, IsOffCurve(pda.Bytes()))

	// Wrong length is never a PDA.
	assert.False(t, IsOffCurve([]byte{1, 2, 3}))
}

func TestValidatePDA(t *testing.T) {
	pda, _, err := StateAddress(MainnetProgramID, testInitializer, [SeedLen]byte{42})
	require.NoError(t, err)
	assert.NoError(t, ValidatePDA(pda.String()))

	// An on-curve wallet key fails the PDA check.
	wallet := base58.Encode(edwards25519.NewGeneratorPoint().Bytes())
	assert.ErrorIs(t, ValidatePDA(wallet), ErrExpectedOffCurve)

	assert.ErrorIs(t, ValidatePDA("abc"), ErrInvalidAddress)
}
