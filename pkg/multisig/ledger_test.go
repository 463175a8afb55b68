package multisig

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
)

var (
	ownerA   = core.MustParseAddress("0x000000000000000000000000000000000000000a")
	ownerB   = core.MustParseAddress("0x000000000000000000000000000000000000000b")
	ownerC   = core.MustParseAddress("0x000000000000000000000000000000000000000c")
	outsider = core.MustParseAddress("0x00000000000000000000000000000000000000ff")
	fundAddr = core.MustParseAddress("0x1111111111111111111111111111111111111111")
	selfAddr = core.MustParseAddress("0x2222222222222222222222222222222222222222")
)

type mockExecutor struct {
	calls   atomic.Int32
	mu      sync.Mutex
	err     error
	release chan struct{}
}

func (m *mockExecutor) Call(ctx context.Context, call core.Call) (core.Receipt, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return core.Receipt{}, m.err
	}
	return core.Receipt{TxHash: "0xabc"}, nil
}

func (m *mockExecutor) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.EventName
}

func (p *recordingPublisher) Publish(e core.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.Name)
}

func newTestLedger(t *testing.T, required int, executor Executor, opts ...Option) *TransactionLedger {
	owners, err := core.NewOwnerSet([]core.Address{ownerA, ownerB, ownerC})
	require.Nil(t, err)
	l, err := New(zap.NewNop(), Config{Owners: owners, Required: required, Self: selfAddr, Fund: fundAddr}, executor, opts...)
	require.Nil(t, err)
	return l
}

func TestNew_InvalidConfig(t *testing.T) {
	owners, err := core.NewOwnerSet([]core.Address{ownerA, ownerB})
	require.Nil(t, err)
	tests := []struct {
		name     string
		required int
	}{
		{name: "zero", required: 0},
		{name: "more than owners", required: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(zap.NewNop(), Config{Owners: owners, Required: tt.required}, &mockExecutor{})
			require.ErrorIs(t, err, core.ErrInvalidThreshold)
		})
	}
}

func TestTransactionLedger_TwoOfThree(t *testing.T) {
	executor := &mockExecutor{}
	publisher := &recordingPublisher{}
	l := newTestLedger(t, 2, executor, WithPublisher(publisher))
	ctx := context.Background()

	id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, []byte{1, 2, 3}, "pay")
	require.Nil(t, err)
	require.Equal(t, uint64(1), id)

	tx, err := l.Confirm(ctx, id, ownerA)
	require.Nil(t, err)
	require.Equal(t, 1, tx.ConfirmationCount)
	require.False(t, tx.Executed)

	tx, err = l.Confirm(ctx, id, ownerB)
	require.Nil(t, err)
	require.Equal(t, 2, tx.ConfirmationCount)
	require.True(t, tx.Executed)
	require.NotNil(t, tx.Receipt)
	require.Equal(t, "0xabc", tx.Receipt.TxHash)

	_, err = l.Confirm(ctx, id, ownerC)
	require.ErrorIs(t, err, core.ErrAlreadyExecuted)

	_, err = l.Revoke(ctx, id, ownerA)
	require.ErrorIs(t, err, core.ErrAlreadyExecuted)

	require.Equal(t, int32(1), executor.calls.Load())
	require.Empty(t, l.ListPending())
	require.Equal(t, []core.EventName{
		core.EventTxProposed,
		core.EventTxConfirmed,
		core.EventTxConfirmed,
		core.EventTxExecuted,
	}, publisher.events)
}

func TestTransactionLedger_Propose(t *testing.T) {
	l := newTestLedger(t, 2, &mockExecutor{})
	tests := []struct {
		name     string
		proposer core.Address
		target   core.Address
		value    decimal.Decimal
		wantErr  error
	}{
		{name: "not owner", proposer: outsider, target: fundAddr, value: decimal.Zero, wantErr: core.ErrNotOwner},
		{name: "zero target", proposer: ownerA, target: core.ZeroAddress, value: decimal.Zero, wantErr: core.ErrInvalidTarget},
		{name: "negative value", proposer: ownerA, target: fundAddr, value: decimal.NewFromInt(-1), wantErr: core.ErrInvalidValue},
		{name: "fractional value", proposer: ownerA, target: fundAddr, value: decimal.RequireFromString("0.5"), wantErr: core.ErrInvalidValue},
		{name: "ok", proposer: ownerB, target: fundAddr, value: decimal.NewFromInt(100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Propose(context.Background(), tt.proposer, tt.target, tt.value, nil, "")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.Nil(t, err)
		})
	}
}

func TestTransactionLedger_Revoke(t *testing.T) {
	executor := &mockExecutor{}
	l := newTestLedger(t, 2, executor)
	ctx := context.Background()
	id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
	require.Nil(t, err)

	_, err = l.Revoke(ctx, id, ownerA)
	require.ErrorIs(t, err, core.ErrNotConfirmed)

	_, err = l.Confirm(ctx, id, ownerA)
	require.Nil(t, err)
	_, err = l.Confirm(ctx, id, ownerA)
	require.ErrorIs(t, err, core.ErrAlreadyConfirmed)

	tx, err := l.Revoke(ctx, id, ownerA)
	require.Nil(t, err)
	require.Equal(t, 0, tx.ConfirmationCount)

	tx, err = l.Confirm(ctx, id, ownerA)
	require.Nil(t, err)
	require.Equal(t, 1, tx.ConfirmationCount)
	confirmed, err := l.HasConfirmed(id, ownerA)
	require.Nil(t, err)
	require.True(t, confirmed)

	_, err = l.Revoke(ctx, 42, ownerA)
	require.ErrorIs(t, err, core.ErrUnknownTransaction)
	_, err = l.Revoke(ctx, id, outsider)
	require.ErrorIs(t, err, core.ErrNotOwner)
	require.Equal(t, int32(0), executor.calls.Load())
}

func TestTransactionLedger_ConcurrentConfirmExecutesOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		executor := &mockExecutor{}
		l := newTestLedger(t, 2, executor)
		ctx := context.Background()
		id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
		require.Nil(t, err)
		_, err = l.Confirm(ctx, id, ownerA)
		require.Nil(t, err)

		var wg sync.WaitGroup
		for _, owner := range []core.Address{ownerB, ownerC} {
			wg.Add(1)
			go func(owner core.Address) {
				defer wg.Done()
				_, _ = l.Confirm(ctx, id, owner)
			}(owner)
		}
		wg.Wait()

		tx, err := l.Get(id)
		require.Nil(t, err)
		require.True(t, tx.Executed)
		require.Equal(t, int32(1), executor.calls.Load())
	}
}

func TestTransactionLedger_RevokeWhileInFlight(t *testing.T) {
	executor := &mockExecutor{release: make(chan struct{})}
	l := newTestLedger(t, 1, executor)
	ctx := context.Background()
	id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
	require.Nil(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = l.Confirm(ctx, id, ownerA)
	}()
	require.Eventually(t, func() bool { return executor.calls.Load() == 1 }, time.Second, time.Millisecond)

	_, err = l.Revoke(ctx, id, ownerA)
	require.ErrorIs(t, err, core.ErrExecutionInProgress)
	_, err = l.Execute(ctx, id)
	require.ErrorIs(t, err, core.ErrExecutionInProgress)

	close(executor.release)
	<-done
	tx, err := l.Get(id)
	require.Nil(t, err)
	require.True(t, tx.Executed)
}

func TestTransactionLedger_FailedExecutionRetry(t *testing.T) {
	executor := &mockExecutor{}
	executor.setErr(errors.New("reverted"))
	publisher := &recordingPublisher{}
	l := newTestLedger(t, 2, executor, WithPublisher(publisher))
	ctx := context.Background()
	id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
	require.Nil(t, err)

	_, err = l.Confirm(ctx, id, ownerA)
	require.Nil(t, err)
	tx, err := l.Confirm(ctx, id, ownerB)
	require.ErrorIs(t, err, core.ErrLedgerCall)
	require.Equal(t, 2, tx.ConfirmationCount)
	require.False(t, tx.Executed)
	kind, ok := core.KindOf(err)
	require.True(t, ok)
	require.Equal(t, core.KindCollaborator, kind)
	require.Equal(t, []uint64{id}, l.ListPending())

	executor.setErr(nil)
	tx, err = l.Execute(ctx, id)
	require.Nil(t, err)
	require.True(t, tx.Executed)
	require.Equal(t, int32(2), executor.calls.Load())
	require.Contains(t, publisher.events, core.EventTxExecutionFailed)
}

func TestTransactionLedger_ExecuteQuorumNotMet(t *testing.T) {
	executor := &mockExecutor{}
	l := newTestLedger(t, 2, executor)
	ctx := context.Background()
	id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
	require.Nil(t, err)
	_, err = l.Confirm(ctx, id, ownerA)
	require.Nil(t, err)

	_, err = l.Execute(ctx, id)
	require.ErrorIs(t, err, core.ErrQuorumNotMet)
	_, err = l.Execute(ctx, 100)
	require.ErrorIs(t, err, core.ErrUnknownTransaction)
	require.Equal(t, int32(0), executor.calls.Load())
}

func TestTransactionLedger_ListPending(t *testing.T) {
	l := newTestLedger(t, 1, &mockExecutor{})
	ctx := context.Background()
	var ids []uint64
	for i := 0; i < 5; i++ {
		id, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
		require.Nil(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)
	_, err := l.Confirm(ctx, 3, ownerB)
	require.Nil(t, err)
	require.Equal(t, []uint64{1, 2, 4, 5}, l.ListPending())

	pending := l.PendingTransactions()
	require.Len(t, pending, 4)
	require.Equal(t, 1, pending[0].Required)
}

func TestTransactionLedger_ChangeRequirement(t *testing.T) {
	executor := &mockExecutor{}
	l := newTestLedger(t, 3, executor)
	ctx := context.Background()

	pendingID, err := l.Propose(ctx, ownerA, fundAddr, decimal.Zero, nil, "")
	require.Nil(t, err)
	_, err = l.Confirm(ctx, pendingID, ownerA)
	require.Nil(t, err)

	_, err = l.ProposeKind(ctx, ownerA, selfAddr, decimal.Zero, &core.ChangeRequirement{Required: 4}, "")
	require.ErrorIs(t, err, core.ErrInvalidThreshold)

	id, err := l.ProposeKind(ctx, ownerA, selfAddr, decimal.Zero, &core.ChangeRequirement{Required: 1}, "")
	require.Nil(t, err)
	for _, owner := range []core.Address{ownerA, ownerB, ownerC} {
		_, err = l.Confirm(ctx, id, owner)
		require.Nil(t, err)
	}
	require.Equal(t, 1, l.Authorizer().Required())
	require.Equal(t, 1, l.Multisig().Required)

	// lowering the threshold does not execute transactions on its own
	tx, err := l.Get(pendingID)
	require.Nil(t, err)
	require.False(t, tx.Executed)

	tx, err = l.Execute(ctx, pendingID)
	require.Nil(t, err)
	require.True(t, tx.Executed)
}

func TestTransactionLedger_RaiseRequirementBlocksPending(t *testing.T) {
	executor := &mockExecutor{}
	l := newTestLedger(t, 2, executor)
	ctx := context.Background()

	pendingID, err := l.Propose(ctx, ownerA, fundAddr, decimal.NewFromInt(5), nil, "")
	require.Nil(t, err)
	executor.setErr(errors.New("reverted"))
	_, err = l.Confirm(ctx, pendingID, ownerA)
	require.Nil(t, err)
	_, err = l.Confirm(ctx, pendingID, ownerB)
	require.ErrorIs(t, err, core.ErrLedgerCall)
	executor.setErr(nil)

	id, err := l.ProposeKind(ctx, ownerA, selfAddr, decimal.Zero, &core.ChangeRequirement{Required: 3}, "")
	require.Nil(t, err)
	_, err = l.Confirm(ctx, id, ownerA)
	require.Nil(t, err)
	tx, err := l.Confirm(ctx, id, ownerB)
	require.Nil(t, err)
	require.True(t, tx.Executed)
	require.Equal(t, 3, l.Authorizer().Required())

	// two confirmations were enough before, they are not anymore
	_, err = l.Execute(ctx, pendingID)
	require.ErrorIs(t, err, core.ErrQuorumNotMet)
	tx, err = l.Get(pendingID)
	require.Nil(t, err)
	require.False(t, tx.Executed)
	require.Equal(t, 2, tx.ConfirmationCount)

	tx, err = l.Confirm(ctx, pendingID, ownerC)
	require.Nil(t, err)
	require.True(t, tx.Executed)
}

func TestTransactionLedger_WithdrawalApproved(t *testing.T) {
	l := newTestLedger(t, 1, &mockExecutor{})
	ctx := context.Background()
	var observed []uint64
	l.Authorizer().OnExecuted(func(tx core.Transaction) {
		observed = append(observed, tx.ID)
	})

	id, err := l.ProposeKind(ctx, ownerA, fundAddr, decimal.Zero, &core.ConfirmWithdrawal{OperationID: 7}, "")
	require.Nil(t, err)
	require.False(t, l.WithdrawalApproved(7))
	_, err = l.Confirm(ctx, id, ownerC)
	require.Nil(t, err)
	require.True(t, l.WithdrawalApproved(7))
	require.False(t, l.WithdrawalApproved(8))
	require.Equal(t, []uint64{id}, observed)
}

func TestTransactionLedger_WithdrawalConfirmationTarget(t *testing.T) {
	executor := &mockExecutor{}
	l := newTestLedger(t, 1, executor)
	ctx := context.Background()

	_, err := l.ProposeKind(ctx, ownerA, outsider, decimal.Zero, &core.ConfirmWithdrawal{OperationID: 7}, "")
	require.ErrorIs(t, err, core.ErrInvalidTarget)
	require.Empty(t, l.ListPending())
	require.False(t, l.WithdrawalApproved(7))
	require.Equal(t, int32(0), executor.calls.Load())

	id, err := l.ProposeKind(ctx, ownerA, fundAddr, decimal.Zero, &core.ConfirmWithdrawal{OperationID: 7}, "")
	require.Nil(t, err)
	require.Equal(t, uint64(1), id)
}

func TestTransactionLedger_ProposalValidator(t *testing.T) {
	rejected := errors.New("rejected")
	l := newTestLedger(t, 1, &mockExecutor{}, WithProposalValidator(func(p core.Proposal) error {
		if p.Kind() == core.KindUpgradeTo {
			return rejected
		}
		return nil
	}))
	_, err := l.ProposeKind(context.Background(), ownerA, fundAddr, decimal.Zero, &core.UpgradeTo{Implementation: selfAddr}, "")
	require.ErrorIs(t, err, rejected)
	_, err = l.ProposeKind(context.Background(), ownerA, fundAddr, decimal.Zero, &core.SetDepegThreshold{Threshold: decimal.NewFromInt(5)}, "")
	require.Nil(t, err)
}
