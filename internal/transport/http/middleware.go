package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/hashlink/internal/metrics"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDContextKey contextKey = "request_id"

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is the outermost
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestID reuses the caller's X-Request-ID or assigns a new one
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// LoggingMiddleware logs requests and responses
type LoggingMiddleware struct {
	logger  *slog.Logger
	verbose bool
}

// NewLoggingMiddleware creates a new logging middleware. In verbose mode
// request bodies and error response bodies are logged as well.
func NewLoggingMiddleware(logger *slog.Logger, verbose bool) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger:  logger,
		verbose: verbose,
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture response details
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.body != nil {
		lrw.body.Write(b)
	}
	return lrw.ResponseWriter.Write(b)
}

// Middleware returns the HTTP logging middleware function
func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		if l.verbose && r.Method == http.MethodPost && r.Body != nil {
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
			if err != nil {
				l.logger.DebugContext(ctx, "failed to read request body", "error", err)
			} else {
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				if len(bodyBytes) > 0 {
					l.logger.DebugContext(ctx, "http request body",
						"request_id", GetRequestID(ctx),
						"body", string(bodyBytes),
					)
				}
			}
		}

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		if l.verbose {
			lrw.body = &bytes.Buffer{}
		}

		next.ServeHTTP(lrw, r)

		l.logger.InfoContext(ctx, "http request",
			"request_id", GetRequestID(ctx),
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)

		if lrw.body != nil && lrw.body.Len() > 0 && lrw.statusCode >= 400 {
			l.logger.DebugContext(ctx, "http error response body",
				"request_id", GetRequestID(ctx),
				"body", lrw.body.String(),
			)
		}
	})
}

// Recovery turns a handler panic into the generic 500 response
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.ErrorContext(r.Context(), "panic recovered",
						"request_id", GetRequestID(r.Context()),
						"error", err,
						"stack", string(debug.Stack()),
					)
					writeError(w, http.StatusInternalServerError, msgUnexpected)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the request context
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Instrument records request latency by matched route. It must wrap the mux
// directly so the pattern set by the mux is visible afterwards.
func Instrument(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(r.Method, route, sr.statusCode, time.Since(start))
		})
	}
}
