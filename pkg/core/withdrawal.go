package core

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

type WithdrawalMode int

const (
	OnChainQuorum WithdrawalMode = iota + 1
	OffchainWithReceipts
)

func (m WithdrawalMode) String() string {
	switch m {
	case OnChainQuorum:
		return "onchain"
	case OffchainWithReceipts:
		return "offchain"
	default:
		return "unknown"
	}
}

func ParseWithdrawalMode(s string) (WithdrawalMode, error) {
	switch s {
	case "onchain":
		return OnChainQuorum, nil
	case "offchain":
		return OffchainWithReceipts, nil
	}
	return 0, errors.Wrapf(ErrInvalidMode, "%q", s)
}

// WithdrawalOperation is a disbursement record.
type WithdrawalOperation struct {
	OperationID uint64
	Token       string
	Amount      decimal.Decimal
	Recipient   Address
	Mode        WithdrawalMode
	Description string
	Proposer    Address
	CreatedAt   time.Time
}

// Check is a fiscal receipt attached to an off-chain withdrawal.
// Date is encoded as YYYYMMDDHHmm. FN, FD and FPD are registration numbers kept for audit.
type Check struct {
	ID          uint64
	OperationID uint64
	Date        uint64
	FN          uint64
	FD          uint64
	FPD         uint64
	CreatedAt   time.Time
}

// Time decodes Date. The boolean is false if Date is not a valid YYYYMMDDHHmm value.
func (c Check) Time() (time.Time, bool) {
	d := c.Date
	minute := int(d % 100)
	d /= 100
	hour := int(d % 100)
	d /= 100
	day := int(d % 100)
	d /= 100
	month := int(d % 100)
	year := int(d / 100)
	if year < 1970 || month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// WithdrawalRecord is a withdrawal as the Indexer saw it.
type WithdrawalRecord struct {
	OperationID     uint64
	Token           string
	Amount          decimal.Decimal
	Recipient       Address
	Offchain        bool
	TransactionHash string
	Description     string
}

// Donation is an Indexer row describing an incoming contribution to the fund.
type Donation struct {
	ID        string
	Account   Address
	Amount    decimal.Decimal
	Timestamp time.Time
}
