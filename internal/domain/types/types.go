// Package types contains read-only views of sessions shared across layers.
package types

import (
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// DefaultCandidate names sessions started without a candidate.
const DefaultCandidate = "Unknown"

// Summary describes a live or archived session.
type Summary struct {
	SessionID      string         `json:"session_id"`
	Candidate      string         `json:"candidate"`
	StartedAt      time.Time      `json:"started_at"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	DurationSec    int            `json:"duration_sec"`
	Active         bool           `json:"active"`
	Metrics        model.Counters `json:"metrics"`
	IntegrityScore int            `json:"integrity_score"`
	EventCount     int            `json:"event_count"`
}

// Report is the downloadable proctoring report.
type Report struct {
	Candidate      string         `json:"candidate"`
	SessionID      string         `json:"sessionId"`
	StartedAt      time.Time      `json:"startedAt"`
	DurationSec    int            `json:"durationSec"`
	Metrics        model.Counters `json:"metrics"`
	IntegrityScore int            `json:"integrityScore"`
	Events         []model.Event  `json:"events"`
}

// Summary derives the summary of an archived report.
func (r Report) Summary(endedAt time.Time) Summary {
	return Summary{
		SessionID:      r.SessionID,
		Candidate:      r.Candidate,
		StartedAt:      r.StartedAt,
		EndedAt:        &endedAt,
		DurationSec:    r.DurationSec,
		Metrics:        r.Metrics,
		IntegrityScore: r.IntegrityScore,
		EventCount:     len(r.Events),
	}
}
