package amount

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr error
	}{
		{name: "int", value: 42, want: "42"},
		{name: "int64", value: int64(1500000), want: "1500000"},
		{name: "uint64", value: uint64(18446744073709551615), want: "18446744073709551615"},
		{name: "big.Int", value: big.NewInt(7), want: "7"},
		{name: "digit string", value: "1000000", want: "1000000"},
		{name: "zero string", value: "0", want: "0"},
		{name: "float truncated toward zero", value: 1.9, want: "1"},
		{name: "integral float", value: 3.0, want: "3"},
		{name: "decimal point rejected", value: "1.5", wantErr: ErrInvalidAmountFormat},
		{name: "non-numeric string", value: "12a4", wantErr: ErrInvalidAmountFormat},
		{name: "empty string", value: "", wantErr: ErrInvalidAmountFormat},
		{name: "negative int", value: -1, wantErr: ErrInvalidAmountFormat},
		{name: "negative string", value: "-5", wantErr: ErrInvalidAmountFormat},
		{name: "unsupported type", value: []byte("10"), wantErr: ErrInvalidAmountFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalize_CopiesBigInt(t *testing.T) {
	in := big.NewInt(100)
	out, err := Normalize(in)
	require.NoError(t, err)

	out.Add(out, big.NewInt(1))
	assert.Equal(t, "100", in.String(), "input must not be mutated")
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		decimals int
		want     string
		wantErr  error
	}{
		{name: "whole number", text: "100", decimals: 6, want: "100000000"},
		{name: "simple fraction", text: "1.5", decimals: 6, want: "1500000"},
		{name: "full precision", text: "1.000001", decimals: 6, want: "1000001"},
		{name: "excess precision truncated", text: "1.9999999", decimals: 6, want: "1999999"},
		{name: "missing whole part", text: ".25", decimals: 6, want: "250000"},
		{name: "trailing point", text: "1.", decimals: 6, want: "1000000"},
		{name: "zero decimals", text: "7", decimals: 0, want: "7"},
		{name: "fraction dropped at zero decimals", text: "7.9", decimals: 0, want: "7"},
		{name: "two decimal points", text: "1.2.3", decimals: 6, wantErr: ErrInvalidAmountFormat},
		{name: "letters in whole part", text: "1a.5", decimals: 6, wantErr: ErrInvalidAmountFormat},
		{name: "letters in fraction", text: "1.5b", decimals: 6, wantErr: ErrInvalidAmountFormat},
		{name: "negative rejected", text: "-1.5", decimals: 6, wantErr: ErrInvalidAmountFormat},
		{name: "negative decimal count", text: "1", decimals: -1, wantErr: ErrInvalidAmountFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.text, tt.decimals)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDecimalStrict(t *testing.T) {
	got, err := ParseDecimalStrict("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", got.String())

	_, err = ParseDecimalStrict("1.9999999", 6)
	require.ErrorIs(t, err, ErrInvalidAmountFormat)
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		decimals int
		want     string
	}{
		{name: "whole value drops point", amount: 1000000, decimals: 6, want: "1"},
		{name: "trailing zeros stripped", amount: 1500000, decimals: 6, want: "1.5"},
		{name: "full precision kept", amount: 1000001, decimals: 6, want: "1.000001"},
		{name: "sub-unit value", amount: 25, decimals: 6, want: "0.000025"},
		{name: "zero", amount: 0, decimals: 6, want: "0"},
		{name: "zero decimals", amount: 123, decimals: 0, want: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDecimal(big.NewInt(tt.amount), tt.decimals))
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	// ParseDecimal(FormatDecimal(a, d), d) == a for non-negative a.
	amounts := []int64{0, 1, 9, 10, 999999, 1000000, 1000001, 1500000, 123456789012345}
	decimalCounts := []int{0, 1, 6, 9, 18}

	for _, d := range decimalCounts {
		for _, a := range amounts {
			in := big.NewInt(a)
			text := FormatDecimal(in, d)
			out, err := ParseDecimal(text, d)
			require.NoError(t, err, "decimals=%d amount=%d text=%q", d, a, text)
			assert.Zero(t, in.Cmp(out), "decimals=%d amount=%d text=%q", d, a, text)
		}
	}
}

func TestApplyBps(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		bps     int64
		want    string
		wantErr error
	}{
		{name: "250 bps of 1000", amount: 1000, bps: 250, want: "25"},
		{name: "zero bps", amount: 1000, bps: 0, want: "0"},
		{name: "full amount at 10000", amount: 1000, bps: 10000, want: "1000"},
		{name: "floor division", amount: 999, bps: 1, want: "0"},
		{name: "above range", amount: 1000, bps: 10001, wantErr: ErrInvalidBpsRange},
		{name: "negative", amount: 1000, bps: -1, wantErr: ErrInvalidBpsRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyBps(big.NewInt(tt.amount), tt.bps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestApplyBps_ExactOnLargeAmounts(t *testing.T) {
	// A value far beyond uint64 must not overflow or round.
	huge, ok := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	require.True(t, ok)

	got, err := ApplyBps(huge, 10000)
	require.NoError(t, err)
	assert.Zero(t, huge.Cmp(got))
}

func TestSplitByBps(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		bps           int64
		wantParty     string
		wantRemainder string
	}{
		{name: "clean split", total: 1000, bps: 250, wantParty: "25", wantRemainder: "975"},
		{name: "residue goes to remainder", total: 999, bps: 3333, wantParty: "332", wantRemainder: "667"},
		{name: "all to party", total: 500, bps: 10000, wantParty: "500", wantRemainder: "0"},
		{name: "all to remainder", total: 500, bps: 0, wantParty: "0", wantRemainder: "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			party, remainder, err := SplitByBps(big.NewInt(tt.total), tt.bps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantParty, party.String())
			assert.Equal(t, tt.wantRemainder, remainder.String())
		})
	}

	_, _, err := SplitByBps(big.NewInt(100), 10001)
	require.ErrorIs(t, err, ErrInvalidBpsRange)
}

func TestSplitByBps_Conservation(t *testing.T) {
	// party + remainder == total for every valid input.
	totals := []int64{0, 1, 3, 7, 99, 100, 999, 1000000, 982451653}
	bpsValues := []int64{0, 1, 7, 250, 333, 5000, 9999, 10000}

	for _, total := range totals {
		for _, bps := range bpsValues {
			in := big.NewInt(total)
			party, remainder, err := SplitByBps(in, bps)
			require.NoError(t, err)

			sum := new(big.Int).Add(party, remainder)
			assert.Zero(t, in.Cmp(sum), "total=%d bps=%d", total, bps)
			assert.GreaterOrEqual(t, party.Sign(), 0)
			assert.GreaterOrEqual(t, remainder.Sign(), 0)
		}
	}
}

func TestIsMultipleOf(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		step    int64
		want    bool
		wantErr error
	}{
		{name: "exact multiple", amount: 100, step: 25, want: true},
		{name: "not a multiple", amount: 100, step: 30, want: false},
		{name: "zero amount", amount: 0, step: 5, want: true},
		{name: "step of one", amount: 17, step: 1, want: true},
		{name: "zero step", amount: 100, step: 0, wantErr: ErrInvalidStep},
		{name: "negative step", amount: 100, step: -5, wantErr: ErrInvalidStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsMultipleOf(big.NewInt(tt.amount), big.NewInt(tt.step))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultHelpers(t *testing.T) {
	got, err := ParseDefault("12.34")
	require.NoError(t, err)
	assert.Equal(t, "12340000", got.String())

	assert.Equal(t, "12.34", FormatDefault(got))
}
