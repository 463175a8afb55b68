package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/arnac-io/fundquorum/pkg/core"
)

var ErrRateLimit = errors.New("rate limit")

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// badRequestError is a malformed request that never reached the engine.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

func badRequestf(format string, args ...any) error {
	return &badRequestError{err: errors.Errorf(format, args...)}
}

func statusCode(err error) int {
	var br *badRequestError
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimit) {
		return http.StatusTooManyRequests
	}
	kind, ok := core.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindStateConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindCollaborator:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorJSON{Error: err.Error()}
	if kind, ok := core.KindOf(err); ok {
		resp.Kind = kind.String()
	}
	writeJSON(w, resp, statusCode(err))
}
