package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/arnac-io/fundquorum/pkg/core"
)

// Ledger is the authoritative system that holds balances and executes approved calls.
type Ledger interface {
	Call(ctx context.Context, call core.Call) (core.Receipt, error)
	Fund(ctx context.Context) (core.FundState, error)
	Balance(ctx context.Context, addr core.Address) (decimal.Decimal, error)
}

var _ Ledger = (*Memory)(nil)
