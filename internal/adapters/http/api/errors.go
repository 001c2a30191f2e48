package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/proctor/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("http serve failed")
	ErrBadRequest = errors.New("bad request")
)

// wrapKind tags err with the operation and an API error kind.
func wrapKind(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidLimit), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrSessionStopped):
		return http.StatusConflict, "session_stopped"
	case errors.Is(err, service.ErrTooManySessions):
		return http.StatusTooManyRequests, "too_many_sessions"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

var (
	errNegativeFrameHeight = errors.New("frame_height must not be negative")
	errInvalidLimit        = errors.New("limit must be a positive integer")
	errMissingTickID       = errors.New("missing tick_id")
)
