package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/reconcile"
)

type transactions interface {
	Propose(ctx context.Context, proposer, target core.Address, value decimal.Decimal, payload []byte, description string) (uint64, error)
	ProposeKind(ctx context.Context, proposer, target core.Address, value decimal.Decimal, p core.Proposal, description string) (uint64, error)
	Confirm(ctx context.Context, id uint64, owner core.Address) (core.Transaction, error)
	Revoke(ctx context.Context, id uint64, owner core.Address) (core.Transaction, error)
	Execute(ctx context.Context, id uint64) (core.Transaction, error)
	Get(id uint64) (core.Transaction, error)
	PendingTransactions() []core.PendingTransaction
	Multisig() core.Multisig
}

type withdrawals interface {
	RegisterWithdrawal(ctx context.Context, proposer core.Address, token string, amount decimal.Decimal, recipient core.Address, mode core.WithdrawalMode, description string) (uint64, error)
	AttachCheck(ctx context.Context, operationID, date, fn, fd, fpd uint64) (uint64, error)
	IsConfirmed(operationID uint64) (bool, error)
	Get(operationID uint64) (core.WithdrawalOperation, error)
	Operations() []core.WithdrawalOperation
	Checks(operationID uint64) ([]core.Check, error)
}

// reports is the reconciliation view backed by the Indexer.
type reports interface {
	Report() reconcile.Report
	Checks(ctx context.Context, operationID uint64) ([]core.Check, error)
	Donations(ctx context.Context) ([]reconcile.DonationPoint, error)
}

type fundLedger interface {
	Fund(ctx context.Context) (core.FundState, error)
	Donate(ctx context.Context, donor core.Address, amount decimal.Decimal) (core.Donation, error)
}
