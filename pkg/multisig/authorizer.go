package multisig

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/sentry"
)

// Outcome is the result of a single evaluation.
type Outcome int

const (
	OutcomeExecuted Outcome = iota + 1
	OutcomeQuorumNotMet
	OutcomeAlreadyExecuted
	// OutcomeInFlight means another evaluation is waiting for the Ledger.
	OutcomeInFlight
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeQuorumNotMet:
		return "quorum_not_met"
	case OutcomeAlreadyExecuted:
		return "already_executed"
	case OutcomeInFlight:
		return "in_flight"
	}
	return "unknown"
}

// QuorumAuthorizer decides when a transaction has enough confirmations
// and executes it against the Ledger exactly once.
type QuorumAuthorizer struct {
	logger   *zap.Logger
	ledger   *TransactionLedger
	executor Executor
	owners   core.OwnerSet
	required atomic.Int64

	mu        sync.RWMutex
	observers []func(tx core.Transaction)
}

func newQuorumAuthorizer(logger *zap.Logger, cfg Config, ledger *TransactionLedger, executor Executor) *QuorumAuthorizer {
	a := &QuorumAuthorizer{
		logger:   logger,
		ledger:   ledger,
		executor: executor,
		owners:   cfg.Owners,
	}
	a.required.Store(int64(cfg.Required))
	requiredGauge.Set(float64(cfg.Required))
	return a
}

// Required returns the current confirmation threshold.
func (a *QuorumAuthorizer) Required() int {
	return int(a.required.Load())
}

func (a *QuorumAuthorizer) Owners() []core.Address {
	return a.owners.Owners()
}

// OnExecuted registers fn to be called after every successful execution.
// fn runs synchronously and must not call back into the ledger's write path for the same transaction.
func (a *QuorumAuthorizer) OnExecuted(fn func(tx core.Transaction)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// Evaluate executes the transaction if its confirmations reach the threshold.
// The Ledger is called without holding the transaction lock, an in-flight marker
// keeps concurrent evaluations from calling it twice.
func (a *QuorumAuthorizer) Evaluate(ctx context.Context, id uint64) (Outcome, error) {
	rec, err := a.ledger.get(id)
	if err != nil {
		return 0, err
	}
	rec.mu.Lock()
	switch {
	case rec.tx.Executed:
		rec.mu.Unlock()
		return OutcomeAlreadyExecuted, nil
	case rec.inFlight:
		rec.mu.Unlock()
		return OutcomeInFlight, nil
	case rec.confirmations.Len() < a.Required():
		rec.mu.Unlock()
		return OutcomeQuorumNotMet, nil
	}
	rec.inFlight = true
	call := core.Call{
		TransactionID: id,
		Target:        rec.tx.Target,
		Value:         rec.tx.Value,
		Payload:       append([]byte(nil), rec.tx.Payload...),
	}
	rec.mu.Unlock()

	start := time.Now()
	receipt, callErr := a.executor.Call(ctx, call)

	rec.mu.Lock()
	rec.inFlight = false
	if callErr != nil {
		rec.mu.Unlock()
		executorTimeHistogramVec.WithLabelValues("error").Observe(time.Since(start).Seconds())
		eventsCounter.WithLabelValues("execute_failed").Inc()
		a.logger.Error("ledger call failed", zap.Uint64("tx", id), zap.Error(callErr))
		sentry.Send("ledger call failed", sentry.SentryInfoData{
			"tx":     id,
			"target": call.Target.String(),
			"error":  callErr.Error(),
		}, sentrygo.LevelError)
		a.ledger.publisher.Publish(core.Event{Name: core.EventTxExecutionFailed, TransactionID: id, Time: a.ledger.now()})
		return 0, core.CollaboratorError(core.ErrLedgerCall, errors.Wrapf(callErr, "tx %d", id))
	}
	if receipt.ExecutedAt.IsZero() {
		receipt.ExecutedAt = a.ledger.now()
	}
	rec.tx.Executed = true
	rec.tx.ExecutedAt = receipt.ExecutedAt
	rec.tx.Receipt = &receipt
	if rec.withdrawalID != 0 {
		a.ledger.approved.Store(rec.withdrawalID, id)
	}
	if rec.newRequired != 0 {
		a.required.Store(int64(rec.newRequired))
		requiredGauge.Set(float64(rec.newRequired))
	}
	tx := rec.snapshotLocked()
	newRequired := rec.newRequired
	rec.mu.Unlock()

	executorTimeHistogramVec.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	eventsCounter.WithLabelValues("execute").Inc()
	a.logger.Info("transaction executed",
		zap.Uint64("tx", id),
		zap.Int("confirmations", tx.ConfirmationCount),
		zap.String("receipt", receipt.TxHash))
	if newRequired != 0 {
		a.logger.Info("threshold changed", zap.Int("required", newRequired))
	}
	a.ledger.publisher.Publish(core.Event{Name: core.EventTxExecuted, TransactionID: id, Confirmations: tx.ConfirmationCount, Time: tx.ExecutedAt})

	a.mu.RLock()
	observers := a.observers
	a.mu.RUnlock()
	for _, fn := range observers {
		fn(tx)
	}
	return OutcomeExecuted, nil
}
