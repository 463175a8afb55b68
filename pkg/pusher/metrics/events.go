package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arnac-io/fundquorum/pkg/pusher/events"
)

var (
	eventsQuantity = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streaming_api_events",
		},
		[]string{
			"type",
			"event",
			"client",
		},
	)

	droppedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streaming_api_dropped_events",
			Help: "Events dropped because a subscriber queue was full.",
		},
		[]string{"type"},
	)
)

func SseEventSent(event events.Name, client string) {
	eventsQuantity.With(map[string]string{"type": "sse", "event": event.String(), "client": client}).Inc()
}

func WebsocketEventSent(event events.Name, client string) {
	eventsQuantity.With(map[string]string{"type": "websocket", "event": event.String(), "client": client}).Inc()
}

func EventDropped(connectionType string) {
	droppedEvents.With(map[string]string{"type": connectionType}).Inc()
}
