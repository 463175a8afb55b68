package sources

import (
	"context"

	"github.com/arnac-io/fundquorum/pkg/core"
)

// SubscribeToEventsOptions filters engine events. Empty fields match everything.
type SubscribeToEventsOptions struct {
	Names        []core.EventName
	Transactions []uint64
	Operations   []uint64
}

// DeliveryFn describes a callback that will be triggered once a new event happens.
type DeliveryFn func(eventData []byte)

// CancelFn has to be called to unsubscribe.
type CancelFn func()

// EventSource provides a method to subscribe to engine notifications.
type EventSource interface {
	SubscribeToEvents(ctx context.Context, deliveryFn DeliveryFn, opts SubscribeToEventsOptions) CancelFn
}
