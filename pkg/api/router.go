package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// HandlerFunc returns a payload that is encoded as JSON, or an error that is
// mapped to a status code by writeError.
type HandlerFunc func(ctx context.Context, r *http.Request) (any, error)

type httpMiddleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...httpMiddleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// created marks a payload that should be sent with 201.
type created struct {
	payload any
}

type router struct {
	hr  *httprouter.Router
	mws []httpMiddleware
}

func newRouter(mws ...httpMiddleware) *router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, errorJSON{Error: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, errorJSON{Error: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}
	return &router{hr: hr, mws: mws}
}

func (r *router) GET(path string, h HandlerFunc) {
	r.endpoint(http.MethodGet, path, h)
}

func (r *router) POST(path string, h HandlerFunc) {
	r.endpoint(http.MethodPost, path, h)
}

// Handle registers a raw handler, used for streaming endpoints.
func (r *router) Handle(method, path string, h http.Handler) {
	r.hr.Handler(method, path, chain(h, r.mws...))
}

func (r *router) endpoint(method, path string, h HandlerFunc) {
	r.Handle(method, path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(req.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		code := http.StatusOK
		if c, ok := resp.(created); ok {
			code = http.StatusCreated
			resp = c.payload
		}
		writeJSON(w, resp, code)
	}))
}

func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

func param(ctx context.Context, name string) string {
	return httprouter.ParamsFromContext(ctx).ByName(name)
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
