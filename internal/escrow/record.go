package escrow

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Record is one observed escrow state transition, as captured by the
// account watcher. Corresponds to the escrow_records table.
type Record struct {
	ID          int64  // BIGSERIAL primary key
	Address     string // escrow state PDA, base58
	Slot        int64  // slot of the observed update
	Status      Status
	Amount      string // escrowed amount in base units, exact decimal string
	FeeBps      uint16
	Initializer string // base58
	Beneficiary string // base58
	ObservedAt  int64  // Unix timestamp in milliseconds
	CreatedAt   int64  // record creation timestamp (ms)
}

// NewRecord builds a Record from a decoded state update.
func NewRecord(address solana.PublicKey, slot int64, state *State) *Record {
	return &Record{
		Address:     address.String(),
		Slot:        slot,
		Status:      state.Status,
		Amount:      state.AmountBase().String(),
		FeeBps:      state.FeeBps,
		Initializer: state.Initializer.String(),
		Beneficiary: state.Beneficiary.String(),
		ObservedAt:  time.Now().UnixMilli(),
	}
}
