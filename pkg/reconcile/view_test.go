package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type pendingStub struct {
	ids []uint64
	err error
}

func (p *pendingStub) UnconfirmedOperations(ctx context.Context) ([]uint64, error) {
	return p.ids, p.err
}

type historyStub struct {
	mu          sync.Mutex
	withdrawals []core.WithdrawalRecord
	err         error
	checksErr   error
	checkCalls  atomic.Int32
}

func (h *historyStub) Withdrawals(ctx context.Context) ([]core.WithdrawalRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.withdrawals, h.err
}

func (h *historyStub) Checks(ctx context.Context, operationID uint64) ([]core.Check, error) {
	h.checkCalls.Add(1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.checksErr != nil {
		return nil, h.checksErr
	}
	return []core.Check{{ID: 1, OperationID: operationID, Date: 202401011200}}, nil
}

func (h *historyStub) Donations(ctx context.Context) ([]core.Donation, error) {
	return nil, nil
}

func (h *historyStub) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func TestView_RefreshKeepsPriorReportOnError(t *testing.T) {
	history := &historyStub{withdrawals: records(7, 5, 3, 2, 1)}
	v := NewView(zap.NewNop(), &pendingStub{ids: []uint64{5, 7}}, history, 0)
	require.Equal(t, "0", v.Report().Percent)

	report, err := v.Refresh(context.Background())
	require.Nil(t, err)
	require.Equal(t, "40.0", report.Percent)
	require.False(t, report.Stale)

	history.setErr(errors.New("subgraph unavailable"))
	report, err = v.Refresh(context.Background())
	require.ErrorIs(t, err, core.ErrIndexerFetch)
	require.True(t, report.Stale)
	require.Equal(t, 5, report.Total)
	require.Equal(t, "40.0", report.Percent)
	require.Contains(t, report.Error, "subgraph unavailable")
	require.Equal(t, report, v.Report())

	history.setErr(nil)
	report, err = v.Refresh(context.Background())
	require.Nil(t, err)
	require.False(t, report.Stale)
	require.Empty(t, report.Error)
}

func TestView_ChecksCachedPerOperation(t *testing.T) {
	history := &historyStub{}
	v := NewView(zap.NewNop(), &pendingStub{}, history, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		checks, err := v.Checks(ctx, 5)
		require.Nil(t, err)
		require.Len(t, checks, 1)
	}
	require.Equal(t, int32(1), history.checkCalls.Load())

	_, err := v.Checks(ctx, 6)
	require.Nil(t, err)
	require.Equal(t, int32(2), history.checkCalls.Load())
}

func TestView_ChecksKeptForViewLifetime(t *testing.T) {
	history := &historyStub{}
	v := NewView(zap.NewNop(), &pendingStub{}, history, 0)
	ctx := context.Background()

	const operations = 12_000
	for id := uint64(1); id <= operations; id++ {
		_, err := v.Checks(ctx, id)
		require.Nil(t, err)
	}
	require.Equal(t, int32(operations), history.checkCalls.Load())

	checks, err := v.Checks(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, uint64(1), checks[0].OperationID)
	require.Equal(t, int32(operations), history.checkCalls.Load())
}

func TestView_ChecksErrorNotCached(t *testing.T) {
	history := &historyStub{checksErr: errors.New("timeout")}
	v := NewView(zap.NewNop(), &pendingStub{}, history, 0)
	ctx := context.Background()

	_, err := v.Checks(ctx, 5)
	require.ErrorIs(t, err, core.ErrIndexerFetch)

	history.mu.Lock()
	history.checksErr = nil
	history.mu.Unlock()
	checks, err := v.Checks(ctx, 5)
	require.Nil(t, err)
	require.Len(t, checks, 1)
	require.Equal(t, int32(2), history.checkCalls.Load())
}
