package sources

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/fundquorum/pkg/core"
)

type subscriberID int64

type subscriber struct {
	deliveryFn DeliveryFn
	options    SubscribeToEventsOptions
}

func (s subscriber) match(e core.Event) bool {
	if len(s.options.Names) > 0 && !slices.Contains(s.options.Names, e.Name) {
		return false
	}
	if len(s.options.Transactions) > 0 && !slices.Contains(s.options.Transactions, e.TransactionID) {
		return false
	}
	if len(s.options.Operations) > 0 && !slices.Contains(s.options.Operations, e.OperationID) {
		return false
	}
	return true
}

// EventDispatcher implements the fan-out pattern reading engine events from a single channel
// and delivering them to multiple subscribers.
type EventDispatcher struct {
	logger *zap.Logger
	ch     chan core.Event

	mu          sync.RWMutex
	subscribers map[subscriberID]subscriber
	currentID   subscriberID
}

var _ core.Publisher = (*EventDispatcher)(nil)
var _ EventSource = (*EventDispatcher)(nil)

func NewEventDispatcher(logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		logger:      logger,
		ch:          make(chan core.Event, 1000),
		subscribers: map[subscriberID]subscriber{},
		currentID:   1,
	}
}

// Publish queues an event for dispatching. It never blocks: when the queue is full the event is dropped.
func (disp *EventDispatcher) Publish(e core.Event) {
	select {
	case disp.ch <- e:
	default:
		disp.logger.Warn("event queue is full, dropping event", zap.String("event", e.Name.String()))
	}
}

// Run runs a dispatching loop in a dedicated goroutine.
func (disp *EventDispatcher) Run(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-disp.ch:
				disp.logger.Debug("handling event",
					zap.String("event", e.Name.String()),
					zap.Uint64("tx", e.TransactionID),
					zap.Uint64("operation", e.OperationID))
				disp.dispatch(e)
			}
		}
	}()
}

func (disp *EventDispatcher) dispatch(e core.Event) {
	eventData, err := json.Marshal(e)
	if err != nil {
		disp.logger.Error("json.Marshal() failed", zap.Error(err))
		return
	}
	disp.mu.RLock()
	defer disp.mu.RUnlock()

	for _, s := range disp.subscribers {
		if s.match(e) {
			s.deliveryFn(eventData)
		}
	}
}

func (disp *EventDispatcher) SubscribeToEvents(ctx context.Context, fn DeliveryFn, options SubscribeToEventsOptions) CancelFn {
	disp.mu.Lock()
	defer disp.mu.Unlock()

	id := disp.currentID
	disp.currentID += 1
	disp.subscribers[id] = subscriber{deliveryFn: fn, options: options}
	return func() { disp.unsubscribe(id) }
}

func (disp *EventDispatcher) unsubscribe(id subscriberID) {
	disp.mu.Lock()
	defer disp.mu.Unlock()
	delete(disp.subscribers, id)
}
