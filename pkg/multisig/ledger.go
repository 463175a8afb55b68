package multisig

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

// Executor forwards approved calls to the Ledger.
type Executor interface {
	Call(ctx context.Context, call core.Call) (core.Receipt, error)
}

// ProposalValidator is consulted for every proposal whose payload decodes into a known kind.
type ProposalValidator func(p core.Proposal) error

// record holds one transaction. Every field is guarded by mu.
type record struct {
	mu            sync.Mutex
	tx            core.Transaction
	confirmations *ConfirmationSet
	// inFlight is set while the authorizer waits for the Ledger to answer.
	inFlight bool
	// withdrawalID is the operation confirmed by this transaction, 0 if none.
	withdrawalID uint64
	// newRequired is the threshold set by a changeRequirement aimed at the multisig itself.
	newRequired int
}

func (r *record) snapshotLocked() core.Transaction {
	tx := r.tx
	tx.Payload = slices.Clone(r.tx.Payload)
	tx.Confirmations = r.confirmations.Owners()
	tx.ConfirmationCount = r.confirmations.Len()
	if r.tx.Receipt != nil {
		tx.Receipt = g.Pointer(*r.tx.Receipt)
	}
	return tx
}

// TransactionLedger owns proposed transactions and their confirmations.
// Operations on different transactions never contend with each other.
type TransactionLedger struct {
	logger     *zap.Logger
	owners     core.OwnerSet
	self       core.Address
	fund       core.Address
	records    *xsync.MapOf[uint64, *record]
	lastID     atomic.Uint64
	authorizer *QuorumAuthorizer
	// approved maps a withdrawal operation to the executed transaction that confirmed it.
	approved  *xsync.MapOf[uint64, uint64]
	publisher core.Publisher
	validator ProposalValidator
	now       func() time.Time
}

type Options struct {
	publisher core.Publisher
	validator ProposalValidator
	now       func() time.Time
}

type Option func(o *Options)

// WithPublisher configures a destination for engine events.
func WithPublisher(p core.Publisher) Option {
	return func(o *Options) {
		o.publisher = p
	}
}

func WithProposalValidator(v ProposalValidator) Option {
	return func(o *Options) {
		o.validator = v
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.now = now
	}
}

// New creates a TransactionLedger together with its QuorumAuthorizer.
func New(logger *zap.Logger, cfg Config, executor Executor, opts ...Option) (*TransactionLedger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Options{
		publisher: core.NoopPublisher,
		now:       time.Now,
	}
	for i := range opts {
		opts[i](o)
	}
	l := &TransactionLedger{
		logger:    logger,
		owners:    cfg.Owners,
		self:      cfg.Self,
		fund:      cfg.Fund,
		records:   xsync.NewTypedMapOf[uint64, *record](g.HashUint64),
		approved:  xsync.NewTypedMapOf[uint64, uint64](g.HashUint64),
		publisher: o.publisher,
		validator: o.validator,
		now:       o.now,
	}
	l.authorizer = newQuorumAuthorizer(logger, cfg, l, executor)
	return l, nil
}

func (l *TransactionLedger) Authorizer() *QuorumAuthorizer {
	return l.authorizer
}

// Propose records a new transaction and returns its id. Ids start at 1 and are never reused.
func (l *TransactionLedger) Propose(ctx context.Context, proposer, target core.Address, value decimal.Decimal, payload []byte, description string) (uint64, error) {
	if !l.owners.Contains(proposer) {
		return 0, errors.Wrapf(core.ErrNotOwner, "proposer %v", proposer)
	}
	if target.IsZero() {
		return 0, core.ErrInvalidTarget
	}
	if value.IsNegative() || !value.Equal(value.Truncate(0)) {
		return 0, errors.Wrapf(core.ErrInvalidValue, "%v", value)
	}
	rec := &record{
		tx: core.Transaction{
			Target:      target,
			Value:       value,
			Payload:     slices.Clone(payload),
			Description: description,
			Proposer:    proposer,
			CreatedAt:   l.now(),
		},
		confirmations: NewConfirmationSet(),
	}
	// opaque payloads are accepted as is
	if p, err := core.DecodeProposal(payload); err == nil {
		if err := l.inspect(rec, target, p); err != nil {
			return 0, err
		}
	}
	id := l.lastID.Add(1)
	rec.tx.ID = id
	l.records.Store(id, rec)

	eventsCounter.WithLabelValues("propose").Inc()
	l.logger.Info("transaction proposed",
		zap.Uint64("tx", id),
		zap.String("proposer", proposer.String()),
		zap.String("target", target.String()),
		zap.String("value", value.String()))
	l.publisher.Publish(core.Event{Name: core.EventTxProposed, TransactionID: id, Owner: proposer, Time: l.now()})
	return id, nil
}

// ProposeKind encodes p and proposes it as a call to target.
func (l *TransactionLedger) ProposeKind(ctx context.Context, proposer, target core.Address, value decimal.Decimal, p core.Proposal, description string) (uint64, error) {
	payload, err := core.EncodeProposal(p)
	if err != nil {
		return 0, err
	}
	return l.Propose(ctx, proposer, target, value, payload, description)
}

func (l *TransactionLedger) inspect(rec *record, target core.Address, p core.Proposal) error {
	switch p.Kind() {
	case core.KindConfirmWithdrawal:
		if !l.fund.IsZero() && target != l.fund {
			return errors.Wrapf(core.ErrInvalidTarget, "confirmWithdrawal must target the fund %v, got %v", l.fund, target)
		}
		rec.withdrawalID = p.(*core.ConfirmWithdrawal).OperationID
	case core.KindChangeRequirement:
		required := p.(*core.ChangeRequirement).Required
		if required < 1 || required > l.owners.Len() {
			return errors.Wrapf(core.ErrInvalidThreshold, "required %d with %d owners", required, l.owners.Len())
		}
		if !l.self.IsZero() && target == l.self {
			rec.newRequired = required
		}
	}
	if l.validator != nil {
		return l.validator(p)
	}
	return nil
}

// Confirm adds owner's confirmation and lets the authorizer decide on execution.
// A repeated confirmation is rejected with ErrAlreadyConfirmed.
// If the resulting execute call fails, the confirmation stays and the error is returned.
func (l *TransactionLedger) Confirm(ctx context.Context, id uint64, owner core.Address) (core.Transaction, error) {
	if !l.owners.Contains(owner) {
		return core.Transaction{}, errors.Wrapf(core.ErrNotOwner, "owner %v", owner)
	}
	rec, err := l.get(id)
	if err != nil {
		return core.Transaction{}, err
	}
	rec.mu.Lock()
	if rec.tx.Executed {
		rec.mu.Unlock()
		return core.Transaction{}, errors.Wrapf(core.ErrAlreadyExecuted, "tx %d", id)
	}
	if !rec.confirmations.Add(owner) {
		rec.mu.Unlock()
		return core.Transaction{}, errors.Wrapf(core.ErrAlreadyConfirmed, "tx %d", id)
	}
	count := rec.confirmations.Len()
	rec.mu.Unlock()

	eventsCounter.WithLabelValues("confirm").Inc()
	l.logger.Info("transaction confirmed",
		zap.Uint64("tx", id),
		zap.String("owner", owner.String()),
		zap.Int("confirmations", count))
	l.publisher.Publish(core.Event{Name: core.EventTxConfirmed, TransactionID: id, Owner: owner, Confirmations: count, Time: l.now()})

	_, evalErr := l.authorizer.Evaluate(ctx, id)
	tx, err := l.Get(id)
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, evalErr
}

// Revoke removes owner's confirmation. It never undoes an execution.
func (l *TransactionLedger) Revoke(ctx context.Context, id uint64, owner core.Address) (core.Transaction, error) {
	if !l.owners.Contains(owner) {
		return core.Transaction{}, errors.Wrapf(core.ErrNotOwner, "owner %v", owner)
	}
	rec, err := l.get(id)
	if err != nil {
		return core.Transaction{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.tx.Executed {
		return core.Transaction{}, errors.Wrapf(core.ErrAlreadyExecuted, "tx %d", id)
	}
	if rec.inFlight {
		return core.Transaction{}, errors.Wrapf(core.ErrExecutionInProgress, "tx %d", id)
	}
	if !rec.confirmations.Remove(owner) {
		return core.Transaction{}, errors.Wrapf(core.ErrNotConfirmed, "tx %d", id)
	}
	eventsCounter.WithLabelValues("revoke").Inc()
	l.logger.Info("confirmation revoked",
		zap.Uint64("tx", id),
		zap.String("owner", owner.String()),
		zap.Int("confirmations", rec.confirmations.Len()))
	l.publisher.Publish(core.Event{Name: core.EventTxRevoked, TransactionID: id, Owner: owner, Confirmations: rec.confirmations.Len(), Time: l.now()})
	return rec.snapshotLocked(), nil
}

// Execute asks the authorizer to execute id now. It is the retry path after a failed
// Ledger call and fails with ErrQuorumNotMet if the transaction lacks confirmations.
func (l *TransactionLedger) Execute(ctx context.Context, id uint64) (core.Transaction, error) {
	outcome, err := l.authorizer.Evaluate(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	switch outcome {
	case OutcomeQuorumNotMet:
		return core.Transaction{}, errors.Wrapf(core.ErrQuorumNotMet, "tx %d", id)
	case OutcomeAlreadyExecuted:
		return core.Transaction{}, errors.Wrapf(core.ErrAlreadyExecuted, "tx %d", id)
	case OutcomeInFlight:
		return core.Transaction{}, errors.Wrapf(core.ErrExecutionInProgress, "tx %d", id)
	}
	return l.Get(id)
}

func (l *TransactionLedger) Get(id uint64) (core.Transaction, error) {
	rec, err := l.get(id)
	if err != nil {
		return core.Transaction{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshotLocked(), nil
}

func (l *TransactionLedger) HasConfirmed(id uint64, owner core.Address) (bool, error) {
	rec, err := l.get(id)
	if err != nil {
		return false, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.confirmations.Has(owner), nil
}

// ListPending returns ids of non-executed transactions in proposal order.
func (l *TransactionLedger) ListPending() []uint64 {
	var ids []uint64
	l.records.Range(func(id uint64, rec *record) bool {
		rec.mu.Lock()
		executed := rec.tx.Executed
		rec.mu.Unlock()
		if !executed {
			ids = append(ids, id)
		}
		return true
	})
	slices.Sort(ids)
	return ids
}

// PendingTransactions returns snapshots of non-executed transactions with the current threshold.
func (l *TransactionLedger) PendingTransactions() []core.PendingTransaction {
	required := l.authorizer.Required()
	ids := l.ListPending()
	res := make([]core.PendingTransaction, 0, len(ids))
	for _, id := range ids {
		tx, err := l.Get(id)
		if err != nil || tx.Executed {
			continue
		}
		res = append(res, core.PendingTransaction{Transaction: tx, Required: required})
	}
	return res
}

// WithdrawalApproved reports whether an executed confirmWithdrawal transaction
// references the operation.
func (l *TransactionLedger) WithdrawalApproved(operationID uint64) bool {
	_, ok := l.approved.Load(operationID)
	return ok
}

func (l *TransactionLedger) Multisig() core.Multisig {
	return core.Multisig{
		Address:  l.self,
		Owners:   l.owners.Owners(),
		Required: l.authorizer.Required(),
	}
}

func (l *TransactionLedger) get(id uint64) (*record, error) {
	rec, ok := l.records.Load(id)
	if !ok {
		return nil, errors.Wrapf(core.ErrUnknownTransaction, "tx %d", id)
	}
	return rec, nil
}
