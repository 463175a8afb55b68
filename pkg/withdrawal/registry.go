package withdrawal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/puzpuzpuz/xsync/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/fundquorum/internal/g"
	"github.com/arnac-io/fundquorum/pkg/core"
)

// QuorumStatus reports whether a confirmWithdrawal transaction for an operation has executed.
type QuorumStatus interface {
	WithdrawalApproved(operationID uint64) bool
}

type operation struct {
	mu     sync.Mutex
	op     core.WithdrawalOperation
	checks []core.Check
	// counted is true once the operation has been moved to the confirmed counter.
	counted bool
}

// Registry keeps withdrawal operations and the checks attached to them.
type Registry struct {
	logger    *zap.Logger
	owners    core.OwnerSet
	quorum    QuorumStatus
	policy    CheckPolicy
	publisher core.Publisher
	now       func() time.Time

	operations  *xsync.MapOf[uint64, *operation]
	lastID      atomic.Uint64
	lastCheckID atomic.Uint64
	total       atomic.Int64
	unconfirmed atomic.Int64
}

type Options struct {
	policy    CheckPolicy
	publisher core.Publisher
	now       func() time.Time
}

type Option func(o *Options)

// WithCheckPolicy overrides the default policy which accepts any single check.
func WithCheckPolicy(p CheckPolicy) Option {
	return func(o *Options) {
		o.policy = p
	}
}

func WithPublisher(p core.Publisher) Option {
	return func(o *Options) {
		o.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.now = now
	}
}

func NewRegistry(logger *zap.Logger, owners core.OwnerSet, quorum QuorumStatus, opts ...Option) *Registry {
	o := &Options{
		policy:    MinChecks(1),
		publisher: core.NoopPublisher,
		now:       time.Now,
	}
	for i := range opts {
		opts[i](o)
	}
	return &Registry{
		logger:     logger,
		owners:     owners,
		quorum:     quorum,
		policy:     o.policy,
		publisher:  o.publisher,
		now:        o.now,
		operations: xsync.NewTypedMapOf[uint64, *operation](g.HashUint64),
	}
}

// RegisterWithdrawal records a new operation and returns its id.
func (r *Registry) RegisterWithdrawal(ctx context.Context, proposer core.Address, token string, amount decimal.Decimal, recipient core.Address, mode core.WithdrawalMode, description string) (uint64, error) {
	if !r.owners.Contains(proposer) {
		return 0, errors.Wrapf(core.ErrNotOwner, "proposer %v", proposer)
	}
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(0)) {
		return 0, errors.Wrapf(core.ErrInvalidAmount, "%v", amount)
	}
	if recipient.IsZero() {
		return 0, core.ErrInvalidRecipient
	}
	if mode != core.OnChainQuorum && mode != core.OffchainWithReceipts {
		return 0, errors.Wrapf(core.ErrInvalidMode, "%d", mode)
	}
	id := r.lastID.Add(1)
	op := &operation{
		op: core.WithdrawalOperation{
			OperationID: id,
			Token:       token,
			Amount:      amount,
			Recipient:   recipient,
			Mode:        mode,
			Description: description,
			Proposer:    proposer,
			CreatedAt:   r.now(),
		},
	}
	op.mu.Lock()
	r.operations.Store(id, op)
	r.total.Add(1)
	r.unconfirmed.Add(1)
	// a confirmation may have executed before the operation was known
	if mode == core.OnChainQuorum && r.quorum != nil && r.quorum.WithdrawalApproved(id) {
		r.markConfirmedLocked(op)
	}
	op.mu.Unlock()
	r.updateGauge()

	r.logger.Info("withdrawal registered",
		zap.Uint64("operation", id),
		zap.String("token", token),
		zap.String("amount", amount.String()),
		zap.String("recipient", recipient.String()),
		zap.Stringer("mode", mode))
	r.publisher.Publish(core.Event{Name: core.EventWithdrawalCreated, OperationID: id, Owner: proposer, Time: r.now()})
	return id, nil
}

// AttachCheck appends a fiscal receipt to an off-chain operation and returns the check id.
// fn, fd and fpd are stored as given.
func (r *Registry) AttachCheck(ctx context.Context, operationID, date, fn, fd, fpd uint64) (uint64, error) {
	op, err := r.get(operationID)
	if err != nil {
		return 0, err
	}
	op.mu.Lock()
	if op.op.Mode != core.OffchainWithReceipts {
		op.mu.Unlock()
		return 0, errors.Wrapf(core.ErrWrongMode, "operation %d is %v", operationID, op.op.Mode)
	}
	check := core.Check{
		ID:          r.lastCheckID.Add(1),
		OperationID: operationID,
		Date:        date,
		FN:          fn,
		FD:          fd,
		FPD:         fpd,
		CreatedAt:   r.now(),
	}
	op.checks = append(op.checks, check)
	confirmedNow := !op.counted && r.policy.Satisfied(op.checks)
	if confirmedNow {
		r.markConfirmedLocked(op)
	}
	op.mu.Unlock()

	checksCounter.Inc()
	r.logger.Info("check attached",
		zap.Uint64("operation", operationID),
		zap.Uint64("check", check.ID),
		zap.Uint64("date", date))
	r.publisher.Publish(core.Event{Name: core.EventCheckAttached, OperationID: operationID, Time: check.CreatedAt})
	if confirmedNow {
		r.updateGauge()
		r.publisher.Publish(core.Event{Name: core.EventWithdrawalConfirmed, OperationID: operationID, Time: check.CreatedAt})
	}
	return check.ID, nil
}

// IsConfirmed is computed from the current state on every call.
func (r *Registry) IsConfirmed(operationID uint64) (bool, error) {
	op, err := r.get(operationID)
	if err != nil {
		return false, err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	return r.confirmedLocked(op), nil
}

func (r *Registry) confirmedLocked(op *operation) bool {
	switch op.op.Mode {
	case core.OnChainQuorum:
		return op.counted || (r.quorum != nil && r.quorum.WithdrawalApproved(op.op.OperationID))
	case core.OffchainWithReceipts:
		return r.policy.Satisfied(op.checks)
	}
	return false
}

func (r *Registry) markConfirmedLocked(op *operation) {
	op.counted = true
	r.unconfirmed.Add(-1)
}

// ObserveExecution moves an on-chain operation to confirmed once its
// confirmWithdrawal transaction has executed.
func (r *Registry) ObserveExecution(tx core.Transaction) {
	p, err := core.DecodeProposal(tx.Payload)
	if err != nil || p.Kind() != core.KindConfirmWithdrawal {
		return
	}
	operationID := p.(*core.ConfirmWithdrawal).OperationID
	op, err := r.get(operationID)
	if err != nil {
		r.logger.Warn("confirmation executed for unknown withdrawal", zap.Uint64("operation", operationID), zap.Uint64("tx", tx.ID))
		return
	}
	op.mu.Lock()
	if op.counted || op.op.Mode != core.OnChainQuorum {
		op.mu.Unlock()
		return
	}
	r.markConfirmedLocked(op)
	op.mu.Unlock()
	r.updateGauge()

	r.logger.Info("withdrawal confirmed", zap.Uint64("operation", operationID), zap.Uint64("tx", tx.ID))
	r.publisher.Publish(core.Event{Name: core.EventWithdrawalConfirmed, OperationID: operationID, TransactionID: tx.ID, Time: r.now()})
}

// ValidateConfirmation rejects confirmWithdrawal proposals for operations that
// are unknown or not confirmed through the quorum. Other proposals pass.
func (r *Registry) ValidateConfirmation(p core.Proposal) error {
	if p.Kind() != core.KindConfirmWithdrawal {
		return nil
	}
	operationID := p.(*core.ConfirmWithdrawal).OperationID
	op, err := r.get(operationID)
	if err != nil {
		return err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.op.Mode != core.OnChainQuorum {
		return errors.Wrapf(core.ErrWrongMode, "operation %d is %v", operationID, op.op.Mode)
	}
	return nil
}

// UnconfirmedCount is O(1).
func (r *Registry) UnconfirmedCount() int {
	return int(r.unconfirmed.Load())
}

// TotalCount is O(1).
func (r *Registry) TotalCount() int {
	return int(r.total.Load())
}

// UnconfirmedOperations returns ids of operations that are not confirmed yet, descending.
func (r *Registry) UnconfirmedOperations(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	r.operations.Range(func(id uint64, op *operation) bool {
		op.mu.Lock()
		confirmed := r.confirmedLocked(op)
		op.mu.Unlock()
		if !confirmed {
			ids = append(ids, id)
		}
		return true
	})
	slices.Sort(ids)
	slices.Reverse(ids)
	return ids, nil
}

func (r *Registry) Get(operationID uint64) (core.WithdrawalOperation, error) {
	op, err := r.get(operationID)
	if err != nil {
		return core.WithdrawalOperation{}, err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.op, nil
}

// Operations returns all operations ordered by id descending.
func (r *Registry) Operations() []core.WithdrawalOperation {
	var res []core.WithdrawalOperation
	r.operations.Range(func(id uint64, op *operation) bool {
		op.mu.Lock()
		res = append(res, op.op)
		op.mu.Unlock()
		return true
	})
	slices.SortFunc(res, func(a, b core.WithdrawalOperation) int {
		switch {
		case a.OperationID > b.OperationID:
			return -1
		case a.OperationID < b.OperationID:
			return 1
		}
		return 0
	})
	return res
}

// Checks returns a copy of the checks attached to the operation.
func (r *Registry) Checks(operationID uint64) ([]core.Check, error) {
	op, err := r.get(operationID)
	if err != nil {
		return nil, err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	return slices.Clone(op.checks), nil
}

func (r *Registry) get(operationID uint64) (*operation, error) {
	op, ok := r.operations.Load(operationID)
	if !ok {
		return nil, errors.Wrapf(core.ErrUnknownOperation, "operation %d", operationID)
	}
	return op, nil
}

func (r *Registry) updateGauge() {
	unconfirmed := r.unconfirmed.Load()
	operationsGauge.WithLabelValues("unconfirmed").Set(float64(unconfirmed))
	operationsGauge.WithLabelValues("confirmed").Set(float64(r.total.Load() - unconfirmed))
}
