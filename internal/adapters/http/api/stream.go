package api

import (
	"errors"
	"net/http"

	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/adapters/ws"
	"github.com/okian/proctor/pkg/logger"
)

// StreamDependencies upgrades a request into a live event subscription.
type StreamDependencies interface {
	Stream(w http.ResponseWriter, r *http.Request, id string) error
}

// StreamHandler serves the websocket event stream.
type StreamHandler struct {
	deps StreamDependencies
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /sessions/{id}/stream. Lookup failures happen
// before the upgrade and get a JSON error; later failures are only logged
// because the connection has been hijacked.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Stream(w, r, r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrSessionStopped), errors.Is(err, service.ErrNotStarted):
		writeFailure(w, err)
	case errors.Is(err, ws.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		logger.Get().Named("api").Warn(r.Context(), "stream ended with error",
			logger.String("session_id", r.PathValue("id")), logger.Error(err))
	}
}
