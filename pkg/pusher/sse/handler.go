package sse

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arnac-io/fundquorum/pkg/core"
	"github.com/arnac-io/fundquorum/pkg/pusher/errors"
	"github.com/arnac-io/fundquorum/pkg/pusher/events"
	"github.com/arnac-io/fundquorum/pkg/pusher/metrics"
	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
	"github.com/arnac-io/fundquorum/pkg/pusher/utils"
)

// Handler handles http methods for sse.
type Handler struct {
	source         sources.EventSource
	currentEventID int64
}

var filtersPerRequestHistogramVec = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sse_filters_per_request",
		Buckets: []float64{1, 2, 3, 4, 5, 10, 20, 50, 100},
	},
	[]string{"filter"},
)

type handlerFunc func(session *session, request *http.Request) error

func NewHandler(source sources.EventSource) *Handler {
	return &Handler{
		source:         source,
		currentEventID: time.Now().UnixNano(),
	}
}

func parseIDs(str string) ([]uint64, error) {
	if len(str) == 0 {
		return nil, nil
	}
	parts := strings.Split(str, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id '%v'", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseQuery reads the "events", "transactions" and "operations" query parameters.
func ParseQuery(eventsStr, transactionsStr, operationsStr string) (*sources.SubscribeToEventsOptions, error) {
	var names []core.EventName
	if len(eventsStr) > 0 && strings.ToUpper(eventsStr) != "ALL" {
		for _, n := range strings.Split(eventsStr, ",") {
			names = append(names, core.EventName(strings.TrimSpace(n)))
		}
	}
	transactions, err := parseIDs(transactionsStr)
	if err != nil {
		return nil, err
	}
	operations, err := parseIDs(operationsStr)
	if err != nil {
		return nil, err
	}
	return &sources.SubscribeToEventsOptions{
		Names:        names,
		Transactions: transactions,
		Operations:   operations,
	}, nil
}

func (h *Handler) SubscribeToEvents(session *session, request *http.Request) error {
	if h.source == nil {
		return errors.BadRequest("event source is not configured")
	}
	query := request.URL.Query()
	options, err := ParseQuery(query.Get("events"), query.Get("transactions"), query.Get("operations"))
	if err != nil {
		return errors.BadRequest(fmt.Sprintf("failed to parse query parameters: %v", err))
	}
	if len(options.Transactions) > 0 {
		filtersPerRequestHistogramVec.WithLabelValues("transactions").Observe(float64(len(options.Transactions)))
	}
	if len(options.Operations) > 0 {
		filtersPerRequestHistogramVec.WithLabelValues("operations").Observe(float64(len(options.Operations)))
	}
	client := utils.ClientNameFromContext(request.Context())
	cancelFn := h.source.SubscribeToEvents(request.Context(), func(data []byte) {
		event := Event{
			Name:    events.FromData(data),
			EventID: h.nextID(),
			Data:    data,
		}
		metrics.SseEventSent(event.Name, client)
		session.SendEvent(event)
	}, *options)
	session.SetCancelFn(cancelFn)
	return nil
}

// Events is the http handler for the engine event stream.
func (h *Handler) Events() http.HandlerFunc {
	return Stream(h.SubscribeToEvents)
}

func (h *Handler) nextID() int64 {
	return atomic.AddInt64(&h.currentEventID, 1)
}
