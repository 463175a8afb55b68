package sse

import (
	"net/http"

	"github.com/arnac-io/fundquorum/pkg/pusher/errors"
	"github.com/arnac-io/fundquorum/pkg/pusher/metrics"
)

func writeError(writer http.ResponseWriter, err error) {
	if errors.IsHTTPError(err) {
		httpErr := err.(errors.HTTPError)
		writer.WriteHeader(httpErr.Code)
		writer.Write([]byte(httpErr.Message))
		return
	}
	writer.WriteHeader(http.StatusInternalServerError)
	writer.Write([]byte(err.Error()))
}

// Stream turns handler into an http.HandlerFunc serving a text/event-stream.
func Stream(handler handlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		_, ok := writer.(http.Flusher)
		if !ok {
			writeError(writer, errors.InternalServerError("streaming unsupported"))
			return
		}

		session := newSession()
		if err := handler(session, request); err != nil {
			writeError(writer, err)
			return
		}

		writer.Header().Set("Content-Type", "text/event-stream")
		writer.Header().Set("Cache-Control", "no-cache")
		writer.Header().Set("Connection", "keep-alive")

		metrics.OpenSseConnection()
		defer metrics.CloseSseConnection()

		// the response is already committed, errors only end the stream
		_ = session.StreamEvents(request.Context(), writer)
	}
}
