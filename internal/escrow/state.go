package escrow

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"solana-escrow-kit/internal/amount"
)

// Status is the escrow lifecycle state stored on chain.
type Status uint8

const (
	StatusPending Status = iota
	StatusFunded
	StatusReleased
	StatusRefunded
	StatusCancelled
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusFunded:
		return "FUNDED"
	case StatusReleased:
		return "RELEASED"
	case StatusRefunded:
		return "REFUNDED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	return s <= StatusCancelled
}

// StatusFromString parses the string form produced by Status.String.
func StatusFromString(text string) (Status, error) {
	for s := StatusPending; s <= StatusCancelled; s++ {
		if s.String() == text {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown escrow status %q", text)
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusReleased || s == StatusRefunded || s == StatusCancelled
}

// State decoding errors.
var (
	// ErrNotEscrowAccount is returned when account data does not carry the
	// escrow state discriminator.
	ErrNotEscrowAccount = errors.New("account is not an escrow state account")

	// ErrStateTooShort is returned when account data is truncated.
	ErrStateTooShort = errors.New("escrow state data too short")
)

// stateDiscriminator is the 8-byte account discriminator, derived the same
// way the on-chain program derives it.
var stateDiscriminator = accountDiscriminator("EscrowState")

// StateSize is the serialized size of State including the discriminator.
const StateSize = 8 + 32*5 + SeedLen + 8 + 2 + 1 + 1 + 8

// State mirrors the on-chain escrow account.
//
// Layout after the 8-byte discriminator, borsh-encoded:
// initializer(32) | beneficiary(32) | arbiter(32) | mint(32) | vault(32) |
// seed(16) | amount u64 | fee_bps u16 | status u8 | bump u8 | created_at i64
type State struct {
	Initializer solana.PublicKey
	Beneficiary solana.PublicKey
	Arbiter     solana.PublicKey
	Mint        solana.PublicKey
	Vault       solana.PublicKey
	Seed        [SeedLen]byte
	Amount      uint64
	FeeBps      uint16
	Status      Status
	Bump        uint8
	CreatedAt   int64
}

// DecodeState parses raw escrow account data.
func DecodeState(data []byte) (*State, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrStateTooShort, len(data))
	}
	if !bytes.Equal(data[:8], stateDiscriminator[:]) {
		return nil, ErrNotEscrowAccount
	}
	if len(data) < StateSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrStateTooShort, len(data), StateSize)
	}

	var s State
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode escrow state: %w", err)
	}
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("decode escrow state: unknown status %d", uint8(s.Status))
	}
	if int64(s.FeeBps) > amount.MaxBps {
		return nil, fmt.Errorf("decode escrow state: %w: %d", amount.ErrInvalidBpsRange, s.FeeBps)
	}
	return &s, nil
}

// EncodeState serializes state with the account discriminator. Used by tests
// and by tools that fabricate account fixtures.
func EncodeState(s *State) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(stateDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode escrow state: %w", err)
	}
	return buf.Bytes(), nil
}

// AmountBase returns the escrowed amount as an arbitrary-precision integer
// for exact arithmetic.
func (s *State) AmountBase() *big.Int {
	return new(big.Int).SetUint64(s.Amount)
}

// Split returns the fee and payout shares of the escrowed amount at the
// recorded fee rate. Fee plus payout always equals the escrowed amount.
func (s *State) Split() (fee, payout *big.Int, err error) {
	return amount.SplitByBps(s.AmountBase(), int64(s.FeeBps))
}

// accountDiscriminator derives the 8-byte discriminator for an account type.
func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// instructionDiscriminator derives the 8-byte discriminator for an
// instruction by name.
func instructionDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
