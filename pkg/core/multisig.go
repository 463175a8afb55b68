package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a snapshot of a proposed privileged call.
type Transaction struct {
	ID                uint64
	Target            Address
	Value             decimal.Decimal
	Payload           []byte
	Description       string
	Proposer          Address
	Executed          bool
	CreatedAt         time.Time
	ExecutedAt        time.Time
	Confirmations     []Address
	ConfirmationCount int
	Receipt           *Receipt
}

// PendingTransaction is what the reporting surface shows for a non-executed transaction.
type PendingTransaction struct {
	Transaction
	Required int
}

// Call is the opaque "perform call" instruction forwarded to the Ledger.
type Call struct {
	TransactionID uint64
	Target        Address
	Value         decimal.Decimal
	Payload       []byte
}

type Receipt struct {
	TxHash     string
	ExecutedAt time.Time
}

// Multisig describes the current authorization policy.
type Multisig struct {
	Address  Address
	Owners   []Address
	Required int
}
