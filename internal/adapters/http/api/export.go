package api

import (
	"context"
	"net/http"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/types"
	"github.com/okian/proctor/internal/export"
)

// ExportDependencies defines the read operations behind the downloads.
type ExportDependencies interface {
	Events(ctx context.Context, id string) ([]model.Event, error)
	Report(ctx context.Context, id string) (types.Report, error)
}

// ExportHandler serves event logs and reports.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

type eventsResponse struct {
	SessionID string        `json:"session_id"`
	Events    []model.Event `json:"events"`
	Count     int           `json:"count"`
}

// HandleEvents handles GET /sessions/{id}/events.
func (h *ExportHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := h.deps.Events(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{SessionID: id, Events: events, Count: len(events)})
}

// HandleCSV handles GET /sessions/{id}/events.csv.
func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := h.deps.Events(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`_events.csv"`)
	w.WriteHeader(http.StatusOK)
	_ = export.WriteCSV(w, events)
}

// HandleReport handles GET /sessions/{id}/report.
func (h *ExportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	report, err := h.deps.Report(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+id+`_report.json"`)
	}
	w.WriteHeader(http.StatusOK)
	_ = export.WriteReport(w, report)
}
