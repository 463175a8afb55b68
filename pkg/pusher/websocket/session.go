package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/pusher/events"
	"github.com/arnac-io/fundquorum/pkg/pusher/metrics"
	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
	"github.com/arnac-io/fundquorum/pkg/pusher/sse"
	"github.com/arnac-io/fundquorum/pkg/pusher/utils"
)

// session is a light-weight implementation of JSON-RPC protocol over an HTTP connection from a client.
type session struct {
	logger       *zap.Logger
	conn         *websocket.Conn
	source       sources.EventSource
	eventCh      chan event
	subscription sources.CancelFn
	pingInterval time.Duration
}

type event struct {
	Name   events.Name
	Method string
	Params []byte
}

func newSession(logger *zap.Logger, source sources.EventSource, conn *websocket.Conn) *session {
	return &session{
		logger:       logger,
		eventCh:      make(chan event, 1000),
		conn:         conn,
		source:       source,
		pingInterval: 5 * time.Second,
	}
}

func (s *session) cancel() {
	if s.subscription != nil {
		s.subscription()
		s.subscription = nil
	}
}

func (s *session) Run(ctx context.Context) chan JsonRPCRequest {
	requestCh := make(chan JsonRPCRequest)
	go func() {
		defer s.cancel()

		for {
			var err error
			select {
			case <-ctx.Done():
				return
			case e := <-s.eventCh:
				response := JsonRPCResponse{
					JSONRPC: "2.0",
					Method:  e.Method,
					Params:  e.Params,
				}
				metrics.WebsocketEventSent(e.Name, utils.ClientNameFromContext(ctx))
				err = s.conn.WriteJSON(response)
			case request := <-requestCh:
				var response string
				switch request.Method {
				case "subscribe_events":
					response = s.subscribeToEvents(ctx, request.Params)
				case "unsubscribe_events":
					response = s.unsubscribeFromEvents()
				default:
					response = fmt.Sprintf("unknown method '%v'", request.Method)
				}
				err = s.writeResponse(response, request)
			case <-time.After(s.pingInterval):
				metrics.WebsocketEventSent(events.PingEvent, utils.ClientNameFromContext(ctx))
				err = s.conn.WriteMessage(websocket.PingMessage, []byte{})
			}
			if err != nil {
				s.logger.Error("websocket session failed", zap.Error(err))
				return
			}
		}
	}()
	return requestCh
}

func (s *session) sendEvent(e event) {
	select {
	case s.eventCh <- e:
	default:
		metrics.EventDropped("websocket")
		s.logger.Warn("event channel is full, dropping event",
			zap.String("event", string(e.Name)))
	}
}

// eventParamsToOptions accepts params like "events=tx_executed,tx_confirmed", "transactions=1,2" and "operations=7".
func eventParamsToOptions(params []string) (*sources.SubscribeToEventsOptions, error) {
	var eventsStr, transactionsStr, operationsStr string
	for _, param := range params {
		parts := strings.Split(param, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("failed to process '%v': invalid format", param)
		}
		switch strings.ToLower(parts[0]) {
		case "events":
			eventsStr = parts[1]
		case "transactions":
			transactionsStr = parts[1]
		case "operations":
			operationsStr = parts[1]
		default:
			return nil, fmt.Errorf("failed to process '%v': unknown filter", param)
		}
	}
	return sse.ParseQuery(eventsStr, transactionsStr, operationsStr)
}

func (s *session) subscribeToEvents(ctx context.Context, params []string) string {
	if s.subscription != nil {
		return "you are already subscribed to events"
	}
	options, err := eventParamsToOptions(params)
	if err != nil {
		return err.Error()
	}
	s.subscription = s.source.SubscribeToEvents(ctx, func(eventData []byte) {
		s.sendEvent(event{Name: events.FromData(eventData), Method: "engine_event", Params: eventData})
	}, *options)
	return "success! you have subscribed to events"
}

func (s *session) unsubscribeFromEvents() string {
	if s.subscription == nil {
		return "you are not subscribed to events"
	}
	s.cancel()
	return "success! you have unsubscribed from events"
}

func jsonRPCResponseMessage(message string, id uint64, jsonrpc, method string) (JsonRPCResponse, error) {
	mes, err := json.Marshal(message)
	if err != nil {
		return JsonRPCResponse{}, err
	}
	resp := JsonRPCResponse{
		ID:      id,
		JSONRPC: jsonrpc,
		Method:  method,
		Result:  mes,
	}
	return resp, nil
}

func (s *session) writeResponse(message string, request JsonRPCRequest) error {
	resp, err := jsonRPCResponseMessage(message, request.ID, request.JSONRPC, request.Method)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(resp)
}
