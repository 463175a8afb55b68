package sources

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
)

func Test_subscriber_match(t *testing.T) {
	tests := []struct {
		name    string
		options SubscribeToEventsOptions
		event   core.Event
		want    bool
	}{
		{
			name:  "no filters",
			event: core.Event{Name: core.EventTxProposed, TransactionID: 1},
			want:  true,
		},
		{
			name:    "name match",
			options: SubscribeToEventsOptions{Names: []core.EventName{core.EventTxExecuted}},
			event:   core.Event{Name: core.EventTxExecuted, TransactionID: 1},
			want:    true,
		},
		{
			name:    "name mismatch",
			options: SubscribeToEventsOptions{Names: []core.EventName{core.EventTxExecuted}},
			event:   core.Event{Name: core.EventTxConfirmed, TransactionID: 1},
			want:    false,
		},
		{
			name:    "transaction mismatch",
			options: SubscribeToEventsOptions{Transactions: []uint64{2, 3}},
			event:   core.Event{Name: core.EventTxConfirmed, TransactionID: 1},
			want:    false,
		},
		{
			name:    "operation match",
			options: SubscribeToEventsOptions{Operations: []uint64{7}},
			event:   core.Event{Name: core.EventCheckAttached, OperationID: 7},
			want:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := subscriber{options: tt.options}
			require.Equal(t, tt.want, s.match(tt.event))
		})
	}
}

func TestEventDispatcher(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	disp := NewEventDispatcher(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	disp.Run(ctx)

	var mu sync.Mutex
	var all, executed []core.Event
	cancelAll := disp.SubscribeToEvents(ctx, func(data []byte) {
		var e core.Event
		require.Nil(t, json.Unmarshal(data, &e))
		mu.Lock()
		all = append(all, e)
		mu.Unlock()
	}, SubscribeToEventsOptions{})
	cancelExecuted := disp.SubscribeToEvents(ctx, func(data []byte) {
		var e core.Event
		require.Nil(t, json.Unmarshal(data, &e))
		mu.Lock()
		executed = append(executed, e)
		mu.Unlock()
	}, SubscribeToEventsOptions{Names: []core.EventName{core.EventTxExecuted}})

	disp.Publish(core.Event{Name: core.EventTxConfirmed, TransactionID: 1})
	disp.Publish(core.Event{Name: core.EventTxExecuted, TransactionID: 1})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(all) == 2 && len(executed) == 1
	}, time.Second, 5*time.Millisecond)

	cancelAll()
	cancelExecuted()
	disp.mu.RLock()
	defer disp.mu.RUnlock()
	require.Equal(t, 0, len(disp.subscribers))
}
