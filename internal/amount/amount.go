// Package amount provides exact fixed-point arithmetic over token base units.
//
// All values are non-negative big integers denominated in the smallest
// indivisible unit of a token. Nothing in this package touches floating
// point except the documented lossy Normalize entry point for float64.
package amount

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// DefaultDecimals is the decimal count of the reference token (USDC).
// Callers working with other mints must pass the mint's own decimal count.
const DefaultDecimals = 6

// Basis point bounds. MaxBps (10000) equals 100%.
const (
	MinBps int64 = 0
	MaxBps int64 = 10000
)

// Amount math errors.
var (
	// ErrInvalidAmountFormat is returned for malformed numeric or decimal input.
	ErrInvalidAmountFormat = errors.New("invalid amount format")

	// ErrInvalidBpsRange is returned when basis points fall outside [0, 10000].
	ErrInvalidBpsRange = errors.New("basis points out of range [0, 10000]")

	// ErrInvalidStep is returned for a non-positive step in a multiple-of check.
	ErrInvalidStep = errors.New("step must be positive")
)

var bpsDenominator = big.NewInt(MaxBps)

// Normalize converts an integer-valued input to a base-unit amount.
//
// Accepted kinds: int, int32, int64, uint32, uint64, *big.Int, float64, and
// strings containing only digits. A string with a decimal point is rejected;
// fractional input must go through ParseDecimal so the decimal count is
// explicit. float64 inputs are truncated toward zero, which loses any
// fractional part. Negative inputs are rejected: amounts are non-negative.
func Normalize(value any) (*big.Int, error) {
	switch v := value.(type) {
	case int:
		return normalizeInt64(int64(v))
	case int32:
		return normalizeInt64(int64(v))
	case int64:
		return normalizeInt64(v)
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil big.Int", ErrInvalidAmountFormat)
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmountFormat, v)
		}
		return new(big.Int).Set(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite number", ErrInvalidAmountFormat)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative amount %v", ErrInvalidAmountFormat, v)
		}
		// Truncation toward zero. Documented lossy behavior for
		// non-integral numbers.
		f := new(big.Float).SetFloat64(math.Trunc(v))
		n, _ := f.Int(nil)
		return n, nil
	case string:
		if strings.Contains(v, ".") {
			return nil, fmt.Errorf("%w: decimal point in %q, use ParseDecimal", ErrInvalidAmountFormat, v)
		}
		return parseDigits(v)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmountFormat, value)
	}
}

func normalizeInt64(v int64) (*big.Int, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: negative amount %d", ErrInvalidAmountFormat, v)
	}
	return big.NewInt(v), nil
}

// parseDigits parses a non-empty string of ASCII digits as a base-10 integer.
func parseDigits(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidAmountFormat)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("%w: non-digit character in %q", ErrInvalidAmountFormat, s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}
	return n, nil
}

// ParseDecimal converts a human-readable decimal string to base units at the
// given decimal count. The fractional part is right-padded with zeros or
// truncated to exactly decimals digits; excess precision is silently
// discarded (truncation, not rounding).
//
//	ParseDecimal("1.5", 6)  == 1_500_000
//	ParseDecimal("100", 6)  == 100_000_000
func ParseDecimal(text string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimal count %d", ErrInvalidAmountFormat, decimals)
	}

	whole, frac, err := splitDecimal(text, decimals)
	if err != nil {
		return nil, err
	}

	wholePart, err := parseDigits(whole)
	if err != nil {
		return nil, err
	}
	fracPart, err := parseDigits(frac)
	if err != nil {
		return nil, err
	}

	result := wholePart.Mul(wholePart, pow10(decimals))
	return result.Add(result, fracPart), nil
}

// ParseDecimalStrict behaves like ParseDecimal but rejects input carrying
// more fractional digits than the decimal count instead of truncating.
func ParseDecimalStrict(text string, decimals int) (*big.Int, error) {
	parts := strings.Split(text, ".")
	if len(parts) == 2 && len(parts[1]) > decimals {
		return nil, fmt.Errorf("%w: %q exceeds %d fractional digits", ErrInvalidAmountFormat, text, decimals)
	}
	return ParseDecimal(text, decimals)
}

// splitDecimal splits text on the decimal point and scales the fractional
// part to exactly decimals digits. Missing parts default to "0".
func splitDecimal(text string, decimals int) (whole, frac string, err error) {
	parts := strings.Split(text, ".")
	if len(parts) > 2 {
		return "", "", fmt.Errorf("%w: multiple decimal points in %q", ErrInvalidAmountFormat, text)
	}

	whole = parts[0]
	if whole == "" {
		whole = "0"
	}
	frac = "0"
	if len(parts) == 2 {
		frac = parts[1]
		if frac == "" {
			frac = "0"
		}
	}

	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}
	if frac == "" {
		frac = "0"
	}
	return whole, frac, nil
}

// FormatDecimal renders a base-unit amount as a decimal string at the given
// decimal count, stripping trailing zeros. The decimal point is omitted when
// the fractional part is empty after stripping.
//
//	FormatDecimal(1_000_000, 6) == "1"
//	FormatDecimal(1_500_000, 6) == "1.5"
func FormatDecimal(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	quo, rem := new(big.Int).QuoRem(amount, pow10(decimals), new(big.Int))

	frac := rem.String()
	if len(frac) < decimals {
		frac = strings.Repeat("0", decimals-len(frac)) + frac
	}
	frac = strings.TrimRight(frac, "0")

	if frac == "" {
		return quo.String()
	}
	return quo.String() + "." + frac
}

// ParseDefault is ParseDecimal at DefaultDecimals.
func ParseDefault(text string) (*big.Int, error) {
	return ParseDecimal(text, DefaultDecimals)
}

// FormatDefault is FormatDecimal at DefaultDecimals.
func FormatDefault(amount *big.Int) string {
	return FormatDecimal(amount, DefaultDecimals)
}

// ApplyBps computes floor(amount * bps / 10000) with exact integer
// arithmetic. Financial amounts never go through floating point.
func ApplyBps(amount *big.Int, bps int64) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: nil amount", ErrInvalidAmountFormat)
	}
	if bps < MinBps || bps > MaxBps {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBpsRange, bps)
	}
	result := new(big.Int).Mul(amount, big.NewInt(bps))
	return result.Quo(result, bpsDenominator), nil
}

// SplitByBps divides total into a party share of partyBps and the remainder.
// The remainder absorbs the floor-division residue, so
// party + remainder == total holds for every valid input.
func SplitByBps(total *big.Int, partyBps int64) (party, remainder *big.Int, err error) {
	party, err = ApplyBps(total, partyBps)
	if err != nil {
		return nil, nil, err
	}
	remainder = new(big.Int).Sub(total, party)
	return party, remainder, nil
}

// IsMultipleOf reports whether amount is an exact multiple of step.
func IsMultipleOf(amount, step *big.Int) (bool, error) {
	if amount == nil {
		return false, fmt.Errorf("%w: nil amount", ErrInvalidAmountFormat)
	}
	if step == nil || step.Sign() <= 0 {
		return false, fmt.Errorf("%w: got %s", ErrInvalidStep, step)
	}
	return new(big.Int).Mod(amount, step).Sign() == 0, nil
}

// pow10 returns 10^n as a fresh big.Int.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
