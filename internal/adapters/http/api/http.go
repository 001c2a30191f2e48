// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/domain/dedupe"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	StartSession(ctx context.Context, candidate string, frameHeight float64) (types.Summary, error)
	StopSession(ctx context.Context, id string) (types.Summary, error)
	Session(ctx context.Context, id string) (types.Summary, error)
	ListSessions(ctx context.Context, limit int) ([]types.Summary, error)

	PushFaces(ctx context.Context, id string, frameHeight float64, faces []detect.FaceWire) (service.PushResult, error)
	PushObjects(ctx context.Context, id string, objects []detect.ObjectWire) (service.PushResult, error)

	Events(ctx context.Context, id string) ([]model.Event, error)
	Report(ctx context.Context, id string) (types.Report, error)

	Stream(w http.ResponseWriter, r *http.Request, id string) error
}

// Server wires HTTP routes for the proctoring API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	ingestHandler   *IngestHandler
	exportHandler   *ExportHandler
	streamHandler   *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps),
		ingestHandler:   NewIngestHandler(deps),
		exportHandler:   NewExportHandler(deps),
		streamHandler:   NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleStart, "sessions_start"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions_list"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "sessions_get"))
	mux.HandleFunc("POST /sessions/{id}/stop", MetricsMiddleware(s.sessionsHandler.HandleStop, "sessions_stop"))

	mux.HandleFunc("POST /sessions/{id}/faces", MetricsMiddleware(s.ingestHandler.HandleFaces, "faces"))
	mux.HandleFunc("POST /sessions/{id}/objects", MetricsMiddleware(s.ingestHandler.HandleObjects, "objects"))

	mux.HandleFunc("GET /sessions/{id}/events", MetricsMiddleware(s.exportHandler.HandleEvents, "events"))
	mux.HandleFunc("GET /sessions/{id}/events.csv", MetricsMiddleware(s.exportHandler.HandleCSV, "events_csv"))
	mux.HandleFunc("GET /sessions/{id}/report", MetricsMiddleware(s.exportHandler.HandleReport, "report"))

	mux.HandleFunc("GET /sessions/{id}/stream", MetricsMiddleware(s.streamHandler.HandleStream, "stream"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decodeBody decodes a JSON request body into v. An empty body is allowed
// when optional is true.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
