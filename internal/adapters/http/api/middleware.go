package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/proctor/pkg/metrics"
)

var errNoHijack = errors.New("response writer does not support hijacking")

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
// Upgraded websocket requests are counted but their lifetime is not
// recorded as request latency.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		code := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		if !wrapped.hijacked {
			metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Milliseconds()))
		}

		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordHTTPError(endpoint, errorType(wrapped.statusCode), severity(wrapped.statusCode))
		}
	}
}

// errorType mirrors the codes writeFailure puts in error bodies.
func errorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "session_stopped"
	case http.StatusTooManyRequests:
		return "too_many_sessions"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "client_error"
}

func severity(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "high"
	case status == http.StatusTooManyRequests:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errNoHijack
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.hijacked = true
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
