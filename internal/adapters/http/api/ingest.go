package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/domain/dedupe"
)

// IngestDependencies defines how detector results enter a session.
type IngestDependencies interface {
	dedupe.Deduper
	PushFaces(ctx context.Context, id string, frameHeight float64, faces []detect.FaceWire) (service.PushResult, error)
	PushObjects(ctx context.Context, id string, objects []detect.ObjectWire) (service.PushResult, error)
}

// IngestHandler accepts detector results pushed by the capture client.
type IngestHandler struct {
	deps IngestDependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// facesRequest mirrors the OpenAPI schema for POST /sessions/{id}/faces.
type facesRequest struct {
	TickID      string            `json:"tick_id"`
	FrameHeight float64           `json:"frame_height"`
	Faces       []detect.FaceWire `json:"faces"`
}

// objectsRequest mirrors the OpenAPI schema for POST /sessions/{id}/objects.
type objectsRequest struct {
	TickID  string              `json:"tick_id"`
	Objects []detect.ObjectWire `json:"objects"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Skipped   int    `json:"skipped,omitempty"`
	Dropped   bool   `json:"dropped,omitempty"`
}

// HandleFaces handles POST /sessions/{id}/faces.
func (h *IngestHandler) HandleFaces(w http.ResponseWriter, r *http.Request) {
	const op = "api.push_faces"
	var req facesRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeFailure(w, wrapKind(op, ErrBadRequest, err))
		return
	}
	if req.FrameHeight < 0 {
		writeFailure(w, wrapKind(op, ErrBadRequest, errNegativeFrameHeight))
		return
	}
	h.ingest(w, r, op, req.TickID, func(ctx context.Context, id string) (service.PushResult, error) {
		return h.deps.PushFaces(ctx, id, req.FrameHeight, req.Faces)
	})
}

// HandleObjects handles POST /sessions/{id}/objects.
func (h *IngestHandler) HandleObjects(w http.ResponseWriter, r *http.Request) {
	const op = "api.push_objects"
	var req objectsRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeFailure(w, wrapKind(op, ErrBadRequest, err))
		return
	}
	h.ingest(w, r, op, req.TickID, func(ctx context.Context, id string) (service.PushResult, error) {
		return h.deps.PushObjects(ctx, id, req.Objects)
	})
}

func (h *IngestHandler) ingest(w http.ResponseWriter, r *http.Request, op, tickID string,
	push func(ctx context.Context, id string) (service.PushResult, error),
) {
	tickID = strings.TrimSpace(tickID)
	if tickID == "" {
		writeFailure(w, wrapKind(op, ErrBadRequest, errMissingTickID))
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")
	key := id + "/" + tickID

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(ctx, key) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	res, err := push(ctx, id)
	if err != nil {
		// Rollback the "seen" status so the client can retry
		h.deps.Unrecord(ctx, key)
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Skipped: res.Skipped, Dropped: res.Dropped})
}
