package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/fundquorum/pkg/core"
)

var (
	ErrReverted          = errors.New("call reverted")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

const nativeDecimals = 18

// Memory is an in-process Ledger. It applies known proposal kinds to the fund
// state and moves native value from the fund to call targets.
type Memory struct {
	mu        sync.Mutex
	fund      core.FundState
	balances  map[core.Address]decimal.Decimal
	confirmed map[uint64]struct{}
	calls     []core.Call
	nonce     uint64
	failures  []error
	now       func() time.Time
}

func NewMemory(fund core.FundState) *Memory {
	return &Memory{
		fund:      fund,
		balances:  map[core.Address]decimal.Decimal{},
		confirmed: map[uint64]struct{}{},
		now:       time.Now,
	}
}

// FailNext makes the next len(errs) calls fail with the given errors in order.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// Call performs an approved call. State is only changed when the call succeeds.
func (m *Memory) Call(ctx context.Context, call core.Call) (core.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return core.Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return core.Receipt{}, err
	}
	fund := m.fund
	if call.Value.IsPositive() {
		if fund.NativeBalance.LessThan(call.Value) {
			return core.Receipt{}, errors.Wrapf(ErrInsufficientFunds, "value %v, balance %v", call.Value, fund.NativeBalance)
		}
		fund.NativeBalance = fund.NativeBalance.Sub(call.Value)
	}
	var confirmedOp uint64
	if call.Target == fund.Address {
		if p, err := core.DecodeProposal(call.Payload); err == nil {
			if err := apply(&fund, p); err != nil {
				return core.Receipt{}, err
			}
			if cw, ok := p.(*core.ConfirmWithdrawal); ok {
				confirmedOp = cw.OperationID
			}
		}
	}
	if call.Value.IsPositive() && call.Target != fund.Address {
		m.balances[call.Target] = m.balances[call.Target].Add(call.Value)
	}
	if confirmedOp != 0 {
		m.confirmed[confirmedOp] = struct{}{}
	}
	m.fund = fund
	m.nonce++
	m.calls = append(m.calls, core.Call{
		TransactionID: call.TransactionID,
		Target:        call.Target,
		Value:         call.Value,
		Payload:       slices.Clone(call.Payload),
	})
	return core.Receipt{
		TxHash:     receiptHash(m.nonce, call),
		ExecutedAt: m.now(),
	}, nil
}

func apply(fund *core.FundState, p core.Proposal) error {
	switch p := p.(type) {
	case *core.ConvertEthToProtectedAsset:
		// native * price / 10^oracleDecimals, rescaled to the protected asset decimals
		out := fund.NativeBalance.
			Mul(fund.OraclePrice).
			Shift(-fund.OracleDecimals).
			Shift(fund.ProtectedDecimals - nativeDecimals).
			Truncate(0)
		if out.LessThan(p.MinAmountOut) {
			return errors.Wrapf(ErrReverted, "conversion returns %v, want at least %v", out, p.MinAmountOut)
		}
		fund.ProtectedBalance = fund.ProtectedBalance.Add(out)
		fund.NativeBalance = decimal.Zero
	case *core.SetSafeAsset:
		fund.SafeAsset = p.Asset
		fund.SafeAssetOracle = p.Oracle
	case *core.SetDepegThreshold:
		fund.DepegThreshold = p.Threshold
	case *core.UpgradeTo:
		fund.Implementation = p.Implementation
	case *core.EvacuateIfDepegged:
		if fund.SafeAsset.IsZero() {
			return errors.Wrap(ErrReverted, "safe asset is not set")
		}
		if !fund.OraclePrice.LessThan(fund.DepegThreshold) {
			return errors.Wrapf(ErrReverted, "price %v is not below threshold %v", fund.OraclePrice, fund.DepegThreshold)
		}
		if fund.ProtectedBalance.LessThan(p.EvacuationMinReturn) {
			return errors.Wrapf(ErrReverted, "evacuation returns %v, want at least %v", fund.ProtectedBalance, p.EvacuationMinReturn)
		}
		fund.SafeBalance = fund.SafeBalance.Add(fund.ProtectedBalance)
		fund.ProtectedBalance = decimal.Zero
	}
	return nil
}

func receiptHash(nonce uint64, call core.Call) string {
	h := xxhash.New()
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], nonce)
	binary.BigEndian.PutUint64(b[8:], call.TransactionID)
	_, _ = h.Write(b[:])
	_, _ = h.WriteString(call.Target.String())
	_, _ = h.WriteString(call.Value.String())
	_, _ = h.Write(call.Payload)
	return fmt.Sprintf("0x%016x", h.Sum64())
}

// Donate credits amount, in the native coin's smallest unit, to the fund balance.
func (m *Memory) Donate(ctx context.Context, donor core.Address, amount decimal.Decimal) (core.Donation, error) {
	if err := ctx.Err(); err != nil {
		return core.Donation{}, err
	}
	if donor.IsZero() {
		return core.Donation{}, errors.Wrap(core.ErrInvalidDonor, "donor is empty")
	}
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(0)) {
		return core.Donation{}, errors.Wrapf(core.ErrInvalidAmount, "donation %v", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fund.NativeBalance = m.fund.NativeBalance.Add(amount)
	m.nonce++
	return core.Donation{
		ID:        receiptHash(m.nonce, core.Call{Target: donor, Value: amount}),
		Account:   donor,
		Amount:    amount,
		Timestamp: m.now(),
	}, nil
}

// Fund returns the current fund state.
func (m *Memory) Fund(ctx context.Context) (core.FundState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fund, nil
}

// Balance returns the native balance credited to addr by executed calls.
func (m *Memory) Balance(ctx context.Context, addr core.Address) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr == m.fund.Address {
		return m.fund.NativeBalance, nil
	}
	return m.balances[addr], nil
}

// WithdrawalConfirmed reports whether a confirmWithdrawal call for the operation succeeded.
func (m *Memory) WithdrawalConfirmed(operationID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.confirmed[operationID]
	return ok
}

// Calls returns the successful calls in execution order.
func (m *Memory) Calls() []core.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}
