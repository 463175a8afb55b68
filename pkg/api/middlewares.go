package api

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Narasimha1997/ratelimiter"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/arnac-io/fundquorum/pkg/pusher/utils"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderOwner         = "X-Owner"
)

// statusRecorder remembers the response code for logging. It keeps http.Flusher
// and http.Hijacker reachable for the streaming handlers behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func operation(r *http.Request) string {
	if path := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); path != "" {
		return path
	}
	return r.URL.Path
}

func loggingMiddleware(logger *zap.Logger) httpMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logger.With(
				zap.String("operation", r.Method+" "+operation(r)),
				zap.String("path", r.URL.Path),
				zap.String("cid", w.Header().Get(HeaderCorrelationID)),
			)
			logger.Info("Handling request")
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.Error("Fail", zap.Int("status", rec.status))
			case rec.status >= http.StatusBadRequest:
				logger.Info("Fail", zap.Int("status", rec.status))
			default:
				logger.Info("Success")
			}
		})
	}
}

var httpResponseTimeMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 10},
}, []string{"operation"})

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := prometheus.NewTimer(httpResponseTimeMetric.WithLabelValues(r.Method + " " + operation(r)))
		defer t.ObserveDuration()
		next.ServeHTTP(w, r)
	})
}

func recoverMiddleware(logger *zap.Logger) httpMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
					writeJSON(w, errorJSON{Error: "internal server error"}, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeCID(v string) string {
	v = strings.TrimSpace(v)
	if strings.ContainsAny(v, "\r\n") {
		return ""
	}
	if len(v) > 128 {
		v = v[:128]
	}
	return v
}

// correlationIDMiddleware echoes X-Correlation-ID or generates one.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := normalizeCID(r.Header.Get(HeaderCorrelationID))
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, cid)
		next.ServeHTTP(w, r)
	})
}

// ownerMiddleware stores the X-Owner header as the client name, so streaming
// sessions and logs can tell owners apart.
func ownerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if owner := strings.TrimSpace(r.Header.Get(HeaderOwner)); owner != "" {
			r = r.WithContext(utils.WithClientName(r.Context(), owner))
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies one process-wide window of limit requests per second.
func rateLimitMiddleware(limit int) httpMiddleware {
	limiter := ratelimiter.NewDefaultLimiter(uint64(limit), time.Second)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ok, err := limiter.ShouldAllow(1); err != nil || !ok {
				writeError(w, ErrRateLimit)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
