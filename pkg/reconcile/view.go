package reconcile

import (
	"context"
	"strconv"
	"sync"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arnac-io/fundquorum/pkg/cache"
	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/sentry"
)

// PendingSource is the authoritative live set of unconfirmed operations.
type PendingSource interface {
	UnconfirmedOperations(ctx context.Context) ([]uint64, error)
}

// HistorySource is the eventually consistent Indexer.
type HistorySource interface {
	Withdrawals(ctx context.Context) ([]core.WithdrawalRecord, error)
	Checks(ctx context.Context, operationID uint64) ([]core.Check, error)
	Donations(ctx context.Context) ([]core.Donation, error)
}

// View is a read-only reconciliation of the pending set with Indexer history.
type View struct {
	logger   *zap.Logger
	pending  PendingSource
	history  HistorySource
	interval time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	report Report

	checks      cache.Cache[uint64, []core.Check]
	checksGroup singleflight.Group
}

const defaultInterval = 30 * time.Second

func NewView(logger *zap.Logger, pending PendingSource, history HistorySource, interval time.Duration) *View {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &View{
		logger:   logger,
		pending:  pending,
		history:  history,
		interval: interval,
		now:      time.Now,
		report:   Report{Percent: "0"},
		checks:   cache.NewCache[uint64, []core.Check]("reconcile_checks"),
	}
}

// Refresh fetches both sources and replaces the report. If either fetch fails
// the previous report is kept and marked stale.
func (v *View) Refresh(ctx context.Context) (Report, error) {
	var (
		pending []uint64
		history []core.WithdrawalRecord
	)
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		pending, err = v.pending.UnconfirmedOperations(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		history, err = v.history.Withdrawals(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		refreshCounter.WithLabelValues("error").Inc()
		v.logger.Warn("reconciliation refresh failed", zap.Error(err))
		sentry.Send("reconciliation refresh failed", sentry.SentryInfoData{"error": err.Error()}, sentrygo.LevelWarning)
		v.mu.Lock()
		v.report.Stale = true
		v.report.Error = err.Error()
		report := v.report
		v.mu.Unlock()
		return report, core.CollaboratorError(core.ErrIndexerFetch, err)
	}
	report := Merge(pending, history)
	report.UpdatedAt = v.now()
	refreshCounter.WithLabelValues("ok").Inc()
	v.mu.Lock()
	v.report = report
	v.mu.Unlock()
	return report, nil
}

// Report returns the last computed report.
func (v *View) Report() Report {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.report
}

// Run refreshes the view every interval until ctx is done.
func (v *View) Run(ctx context.Context) {
	if _, err := v.Refresh(ctx); err != nil {
		v.logger.Debug("initial refresh", zap.Error(err))
	}
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := v.Refresh(ctx); err != nil {
				v.logger.Debug("refresh", zap.Error(err))
			}
		}
	}
}

// Checks fetches the checks attached to an operation once and serves them from
// cache afterwards. Failed fetches are not cached.
func (v *View) Checks(ctx context.Context, operationID uint64) ([]core.Check, error) {
	if checks, ok := v.checks.Get(operationID); ok {
		return checks, nil
	}
	res, err, _ := v.checksGroup.Do(strconv.FormatUint(operationID, 10), func() (interface{}, error) {
		if checks, ok := v.checks.Get(operationID); ok {
			return checks, nil
		}
		checks, err := v.history.Checks(ctx, operationID)
		if err != nil {
			return nil, err
		}
		v.checks.Set(operationID, checks)
		return checks, nil
	})
	if err != nil {
		return nil, core.CollaboratorError(core.ErrIndexerFetch, err)
	}
	return res.([]core.Check), nil
}

// Donations returns the cumulative donation series.
func (v *View) Donations(ctx context.Context) ([]DonationPoint, error) {
	donations, err := v.history.Donations(ctx)
	if err != nil {
		return nil, core.CollaboratorError(core.ErrIndexerFetch, err)
	}
	return CumulativeDonations(donations), nil
}
