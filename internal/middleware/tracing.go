package middleware

import (
	"net/http"

	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// TraceHeader carries the request trace ID in both directions.
const TraceHeader = "X-Trace-ID"

// TracingMiddleware tags requests with a trace ID but does not log them.
// main mounts it in front of /metrics.
type TracingMiddleware struct{}

func NewTracingMiddleware() *TracingMiddleware {
	return &TracingMiddleware{}
}

func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, withTrace(w, r))
	})
}

// withTrace reuses the caller's X-Trace-ID or mints one, echoes it on the
// response and stores it in the request context.
func withTrace(w http.ResponseWriter, r *http.Request) *http.Request {
	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = logging.NewTraceID()
	}
	w.Header().Set(TraceHeader, traceID)
	return r.WithContext(logging.WithTraceID(r.Context(), traceID))
}
