package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arnac-io/fundquorum/pkg/pusher/metrics"
	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
)

// session represents an HTTP connection from a client and
// implements a loop to stream events from a channel to http.ResponseWriter.
type session struct {
	eventCh      chan Event
	cancel       sources.CancelFn
	pingInterval time.Duration
}

func newSession() *session {
	return &session{
		eventCh:      make(chan Event, 100),
		pingInterval: 5 * time.Second,
	}
}

// SendEvent never blocks the dispatcher, a slow client loses events instead.
func (s *session) SendEvent(event Event) {
	select {
	case s.eventCh <- event:
	default:
		metrics.EventDropped("sse")
	}
}

func (s *session) SetCancelFn(cancel sources.CancelFn) {
	s.cancel = cancel
}

func (s *session) StreamEvents(ctx context.Context, writer http.ResponseWriter) error {
	defer func() {
		if s.cancel != nil {
			s.cancel()
		}
	}()

	flusher := writer.(http.Flusher)
	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case msg, open := <-s.eventCh:
			if !open {
				return nil
			}
			_, err = fmt.Fprintf(writer, "event: %v\nid: %v\ndata: %v\n\n", msg.Name, msg.EventID, string(msg.Data))
		case <-time.After(s.pingInterval):
			_, err = fmt.Fprintf(writer, "event: heartbeat\n\n")
		}
		if err != nil {
			// closing a connection
			return err
		}
		flusher.Flush()
	}
}
