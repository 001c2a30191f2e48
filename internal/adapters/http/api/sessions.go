package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/proctor/internal/domain/types"
)

const defaultListLimit = 20

// SessionDependencies defines the session lifecycle operations.
type SessionDependencies interface {
	StartSession(ctx context.Context, candidate string, frameHeight float64) (types.Summary, error)
	StopSession(ctx context.Context, id string) (types.Summary, error)
	Session(ctx context.Context, id string) (types.Summary, error)
	ListSessions(ctx context.Context, limit int) ([]types.Summary, error)
}

// SessionsHandler handles session lifecycle requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// startRequest mirrors the OpenAPI schema for POST /sessions.
type startRequest struct {
	Candidate   string  `json:"candidate"`
	FrameHeight float64 `json:"frame_height"`
}

type listResponse struct {
	Sessions []types.Summary `json:"sessions"`
	Count    int             `json:"count"`
}

// HandleStart handles POST /sessions.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req startRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeFailure(w, wrapKind(op, ErrBadRequest, err))
		return
	}
	if req.FrameHeight < 0 {
		writeFailure(w, wrapKind(op, ErrBadRequest, errNegativeFrameHeight))
		return
	}
	sum, err := h.deps.StartSession(r.Context(), strings.TrimSpace(req.Candidate), req.FrameHeight)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+sum.SessionID)
	writeJSON(w, http.StatusCreated, sum)
}

// HandleList handles GET /sessions?limit=N.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeFailure(w, wrapKind(op, ErrBadRequest, errInvalidLimit))
			return
		}
		limit = n
	}
	list, err := h.deps.ListSessions(r.Context(), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Sessions: list, Count: len(list)})
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleStop handles POST /sessions/{id}/stop.
func (h *SessionsHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.StopSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
