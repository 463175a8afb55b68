package core

import "time"

// EventName specifies engine notifications delivered to streaming subscribers.
type EventName string

const (
	EventTxProposed          EventName = "tx_proposed"
	EventTxConfirmed         EventName = "tx_confirmed"
	EventTxRevoked           EventName = "tx_revoked"
	EventTxExecuted          EventName = "tx_executed"
	EventTxExecutionFailed   EventName = "tx_execution_failed"
	EventWithdrawalCreated   EventName = "withdrawal_registered"
	EventCheckAttached       EventName = "check_attached"
	EventWithdrawalConfirmed EventName = "withdrawal_confirmed"
)

func (n EventName) String() string {
	return string(n)
}

type Event struct {
	Name          EventName `json:"name"`
	TransactionID uint64    `json:"transaction_id,omitempty"`
	OperationID   uint64    `json:"operation_id,omitempty"`
	Owner         Address   `json:"owner,omitempty"`
	Confirmations int       `json:"confirmations,omitempty"`
	Time          time.Time `json:"time"`
}

// Publisher receives engine events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// NoopPublisher drops all events.
var NoopPublisher Publisher = noopPublisher{}
