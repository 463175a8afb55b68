package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
)

type mockEventSource struct {
	OnSubscribeToEvents func(ctx context.Context, deliveryFn sources.DeliveryFn, opts sources.SubscribeToEventsOptions) sources.CancelFn
}

func (m *mockEventSource) SubscribeToEvents(ctx context.Context, deliveryFn sources.DeliveryFn, opts sources.SubscribeToEventsOptions) sources.CancelFn {
	return m.OnSubscribeToEvents(ctx, deliveryFn, opts)
}

var _ sources.EventSource = &mockEventSource{}

func TestHandler_SubscribeDeliverUnsubscribe(t *testing.T) {
	var subscribed atomic.Bool   // to make "go test -race" happy
	var unsubscribed atomic.Bool // to make "go test -race" happy
	var options atomic.Value
	source := &mockEventSource{
		OnSubscribeToEvents: func(ctx context.Context, deliveryFn sources.DeliveryFn, opts sources.SubscribeToEventsOptions) sources.CancelFn {
			subscribed.Store(true)
			options.Store(opts)
			data, _ := json.Marshal(core.Event{Name: core.EventTxExecuted, TransactionID: 4})
			go deliveryFn(data)
			return func() {
				unsubscribed.Store(true)
			}
		},
	}
	logger, _ := zap.NewDevelopment()
	server := httptest.NewServer(Handler(logger, source))
	defer server.Close()

	url := strings.Replace(server.URL, "http", "ws", -1)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.Nil(t, err)

	err = conn.WriteJSON(JsonRPCRequest{
		ID:      1,
		JSONRPC: "2.0",
		Method:  "subscribe_events",
		Params:  []string{"events=tx_executed", "transactions=4"},
	})
	require.Nil(t, err)

	var gotResult, gotEvent bool
	for !(gotResult && gotEvent) {
		require.Nil(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var response JsonRPCResponse
		require.Nil(t, conn.ReadJSON(&response))
		switch response.Method {
		case "subscribe_events":
			require.Equal(t, uint64(1), response.ID)
			require.Equal(t, `"success! you have subscribed to events"`, string(response.Result))
			gotResult = true
		case "engine_event":
			var e core.Event
			require.Nil(t, json.Unmarshal(response.Params, &e))
			require.Equal(t, core.EventTxExecuted, e.Name)
			require.Equal(t, uint64(4), e.TransactionID)
			gotEvent = true
		}
	}
	require.True(t, subscribed.Load())
	require.Equal(t, sources.SubscribeToEventsOptions{
		Names:        []core.EventName{core.EventTxExecuted},
		Transactions: []uint64{4},
	}, options.Load())

	require.Nil(t, conn.Close())
	require.Eventually(t, unsubscribed.Load, 3*time.Second, 10*time.Millisecond)
}

func Test_eventParamsToOptions(t *testing.T) {
	tests := []struct {
		name    string
		params  []string
		want    *sources.SubscribeToEventsOptions
		wantErr bool
	}{
		{
			name:   "no params",
			params: nil,
			want:   &sources.SubscribeToEventsOptions{},
		},
		{
			name:   "operations",
			params: []string{"operations=5,7"},
			want:   &sources.SubscribeToEventsOptions{Operations: []uint64{5, 7}},
		},
		{
			name:    "unknown filter",
			params:  []string{"accounts=1"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			params:  []string{"events"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eventParamsToOptions(tt.params)
			if tt.wantErr {
				require.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
