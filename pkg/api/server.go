package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/pusher/sources"
	"github.com/arnac-io/fundquorum/pkg/pusher/sse"
	"github.com/arnac-io/fundquorum/pkg/pusher/websocket"
)

type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
}

type ServerOptions struct {
	httpMiddleware []httpMiddleware
	eventSource    sources.EventSource
	corsOrigins    []string
	limits         Limits
}

type ServerOption func(options *ServerOptions)

func WithHttpMiddleware(m ...httpMiddleware) ServerOption {
	return func(options *ServerOptions) {
		options.httpMiddleware = m
	}
}

func WithEventSource(source sources.EventSource) ServerOption {
	return func(options *ServerOptions) {
		options.eventSource = source
	}
}

func WithCorsOrigins(origins []string) ServerOption {
	return func(options *ServerOptions) {
		options.corsOrigins = origins
	}
}

func WithServerLimits(limits Limits) ServerOption {
	return func(options *ServerOptions) {
		options.limits = limits
	}
}

// NewHTTPHandler assembles routes, middleware and CORS around handler.
func NewHTTPHandler(log *zap.Logger, handler *Handler, opts ...ServerOption) http.Handler {
	options := &ServerOptions{}
	for _, o := range opts {
		o(options)
	}
	middleware := []httpMiddleware{
		recoverMiddleware(log),
		correlationIDMiddleware,
		loggingMiddleware(log),
		metricsMiddleware,
		ownerMiddleware,
	}
	if options.limits.RateLimit > 0 {
		middleware = append(middleware, rateLimitMiddleware(options.limits.RateLimit))
	}
	middleware = append(middleware, options.httpMiddleware...)

	r := newRouter(middleware...)
	handler.register(r)
	if options.eventSource != nil {
		sseHandler := sse.NewHandler(options.eventSource)
		r.Handle(http.MethodGet, "/v1/events/sse", sseHandler.Events())
		r.Handle(http.MethodGet, "/v1/events/ws", websocket.Handler(log, options.eventSource))
	}

	origins := options.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{HeaderCorrelationID},
	}).Handler(r)
}

func NewServer(log *zap.Logger, handler *Handler, address string, opts ...ServerOption) *Server {
	return &Server{
		logger: log,
		httpServer: &http.Server{
			Addr:              address,
			Handler:           NewHTTPHandler(log, handler, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Run() {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		s.logger.Info("fundquorum api quit")
		return
	}
	s.logger.Fatal("ListedAndServe() failed", zap.Error(err))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
