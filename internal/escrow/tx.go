package escrow

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// UnsignedTx carries a built transaction before any signature exists.
// Signing and submission stay with the caller's wallet and chain client;
// this package never holds a private key.
type UnsignedTx struct {
	Tx *solana.Transaction

	// FeePayer is the account that must sign first.
	FeePayer solana.PublicKey
}

// BuildUnsignedTx assembles instructions into a transaction against a recent
// blockhash. The result serializes with empty signature slots so an external
// wallet can sign it.
func BuildUnsignedTx(instructions []solana.Instruction, blockhash solana.Hash, feePayer solana.PublicKey) (*UnsignedTx, error) {
	if feePayer.IsZero() {
		return nil, fmt.Errorf("%w: fee payer", ErrMissingAccount)
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions")
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return &UnsignedTx{Tx: tx, FeePayer: feePayer}, nil
}

// MessageBase64 returns the base64 transaction message, the exact bytes a
// wallet signs.
func (u *UnsignedTx) MessageBase64() (string, error) {
	msg, err := u.Tx.Message.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal transaction message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(msg), nil
}

// Base64 returns the whole transaction in base64 with zeroed signatures,
// the format wallet adapters accept for offline signing.
func (u *UnsignedTx) Base64() (string, error) {
	s, err := u.Tx.ToBase64()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return s, nil
}
