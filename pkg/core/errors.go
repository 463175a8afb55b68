package core

import "github.com/go-faster/errors"

// ErrorKind classifies engine errors for callers deciding whether to fix input,
// re-read state or retry against a collaborator.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindStateConflict
	KindNotFound
	KindForbidden
	KindCollaborator
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindCollaborator:
		return "collaborator"
	default:
		return "unknown"
	}
}

// Error is a sentinel carrying its kind. Compare with errors.Is.
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

var (
	ErrInvalidTarget    = newError(KindValidation, "invalid target")
	ErrInvalidValue     = newError(KindValidation, "invalid value")
	ErrInvalidAmount    = newError(KindValidation, "invalid amount")
	ErrInvalidRecipient = newError(KindValidation, "invalid recipient")
	ErrInvalidDonor     = newError(KindValidation, "invalid donor")
	ErrInvalidMode      = newError(KindValidation, "invalid withdrawal mode")
	ErrInvalidOwner     = newError(KindValidation, "invalid owner")
	ErrInvalidThreshold = newError(KindValidation, "invalid threshold")
	ErrWrongMode        = newError(KindValidation, "wrong withdrawal mode")
	ErrUnknownProposal  = newError(KindValidation, "unknown proposal kind")

	ErrAlreadyExecuted     = newError(KindStateConflict, "transaction already executed")
	ErrAlreadyConfirmed    = newError(KindStateConflict, "transaction already confirmed by owner")
	ErrNotConfirmed        = newError(KindStateConflict, "transaction not confirmed by owner")
	ErrQuorumNotMet        = newError(KindStateConflict, "quorum not met")
	ErrExecutionInProgress = newError(KindStateConflict, "execution in progress")

	ErrUnknownTransaction = newError(KindNotFound, "unknown transaction")
	ErrUnknownOperation   = newError(KindNotFound, "unknown withdrawal operation")

	ErrNotOwner = newError(KindForbidden, "not an owner")

	ErrLedgerCall   = newError(KindCollaborator, "ledger call failed")
	ErrIndexerFetch = newError(KindCollaborator, "indexer fetch failed")
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// CollaboratorError wraps a Ledger or Indexer failure so that both the sentinel and
// the cause stay visible to errors.Is.
func CollaboratorError(sentinel *Error, cause error) error {
	return &collaboratorError{sentinel: sentinel, cause: cause}
}

type collaboratorError struct {
	sentinel *Error
	cause    error
}

func (e *collaboratorError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *collaboratorError) Unwrap() []error {
	return []error{e.sentinel, e.cause}
}
