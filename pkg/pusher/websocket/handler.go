package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/pusher/metrics"
	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
)

var (
	upgrader websocket.Upgrader // use default options
)

type JsonRPCRequest struct {
	ID      uint64   `json:"id,omitempty"`
	JSONRPC string   `json:"jsonrpc,omitempty"`
	Method  string   `json:"method,omitempty"`
	Params  []string `json:"params,omitempty"`
}

type JsonRPCResponse struct {
	ID      uint64          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func Handler(logger *zap.Logger, source sources.EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("failed to upgrade HTTP connection to websocket protocol",
				zap.Error(err),
				zap.String("remoteAddr", r.RemoteAddr))
			return
		}
		defer conn.Close()
		metrics.OpenWebsocketConnection()
		defer metrics.CloseWebsocketConnection()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		session := newSession(logger, source, conn)
		requestCh := session.Run(ctx)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Debug("websocket read failed", zap.Error(err))
				}
				return
			}
			var request JsonRPCRequest
			if err = json.Unmarshal(msg, &request); err != nil {
				logger.Error("request unmarshalling error", zap.Error(err))
				return
			}
			select {
			case requestCh <- request:
			case <-ctx.Done():
				return
			}
		}
	}
}
