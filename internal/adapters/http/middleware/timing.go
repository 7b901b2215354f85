package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"coachdesk/internal/adapters/metrics"
)

// DefaultSlowRequest is the threshold used when none is configured.
const DefaultSlowRequest = 200 * time.Millisecond

// unmatchedRoute labels requests no route claimed, keeping metric cardinality bounded.
const unmatchedRoute = "unmatched"

// requestIDCounter is an atomic counter for request IDs.
var requestIDCounter uint64

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

type routeKey struct{}

// routeLabel is filled in by the matched handler; middleware wrapping the mux sees a
// shallow copy of the request and cannot read r.Pattern itself.
type routeLabel struct {
	pattern string
}

// SetRoute records the matched mux pattern for the request's timing entry.
func SetRoute(ctx context.Context, pattern string) {
	if l, ok := ctx.Value(routeKey{}).(*routeLabel); ok {
		l.pattern = pattern
	}
}

// Timing returns middleware that logs request duration and records it in collector.
// Normal requests log at DEBUG; requests at or above slow log at WARN.
// A nil collector records nothing; slow <= 0 uses DefaultSlowRequest.
func Timing(collector *metrics.Collector, slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)
			label := &routeLabel{pattern: unmatchedRoute}
			r = r.WithContext(context.WithValue(r.Context(), routeKey{}, label))

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			defer func() {
				elapsed := time.Since(start)
				level := slog.LevelDebug
				msg := "request"
				if elapsed >= slow {
					level, msg = slog.LevelWarn, "slow_request"
				}
				slog.Log(r.Context(), level, msg,
					"request_id", reqID,
					"method", r.Method,
					"path", r.URL.Path,
					"route", label.pattern,
					"status", sw.status,
					"duration_ms", float64(elapsed.Microseconds())/1000.0,
				)

				collector.Record(metrics.Entry{
					Kind:       metrics.KindRequest,
					Path:       label.pattern,
					Method:     r.Method,
					StatusCode: sw.status,
					Duration:   elapsed,
				})

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
