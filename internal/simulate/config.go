// Package simulate drives a running proctor server through a scripted
// session and checks the resulting report.
package simulate

import (
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// Defaults mirror the server's default cadences and thresholds.
const (
	DefaultBaseURL           = "http://localhost:9080"
	DefaultCandidate         = "Simulated Candidate"
	DefaultFaceInterval      = 100 * time.Millisecond
	DefaultObjectInterval    = 500 * time.Millisecond
	DefaultLookAwayThreshold = 5 * time.Second
	DefaultNoFaceThreshold   = 10 * time.Second
	DefaultFocusDuration     = 2 * time.Second
	DefaultTimeout           = 10 * time.Second
	DefaultFrameHeight       = 480
)

// Config holds configuration for a simulated session.
type Config struct {
	BaseURL           string        // Base URL of the service
	Candidate         string        // Candidate name sent at session start
	FaceInterval      time.Duration // Cadence of face pushes; must match the server's Δt
	ObjectInterval    time.Duration // Cadence of object pushes
	LookAwayThreshold time.Duration // Server look-away threshold
	NoFaceThreshold   time.Duration // Server no-face threshold
	FocusDuration     time.Duration // Length of the opening focused phase
	Timeout           time.Duration // HTTP request timeout
	OutputFile        string        // Where the final report is written; empty skips it
	Verbose           bool          // Log every push
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Candidate:         DefaultCandidate,
		FaceInterval:      DefaultFaceInterval,
		ObjectInterval:    DefaultObjectInterval,
		LookAwayThreshold: DefaultLookAwayThreshold,
		NoFaceThreshold:   DefaultNoFaceThreshold,
		FocusDuration:     DefaultFocusDuration,
		Timeout:           DefaultTimeout,
	}
}

// Stats holds run statistics.
type Stats struct {
	SessionID    string
	FacePushes   int
	ObjectPushes int
	Duplicates   int
	Dropped      int
	Failed       int
	Expected     model.Counters
	Observed     model.Counters
	Score        int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}

// Ack is the body returned by the ingest endpoints.
type Ack struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Skipped   int    `json:"skipped"`
	Dropped   bool   `json:"dropped"`
}
