// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Durations are configured in milliseconds and exposed through helpers.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, tees logs into a rotating file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// FaceIntervalMS is the fast cadence and the Δt credited per face tick.
	FaceIntervalMS int `koanf:"face_interval_ms"`

	// ObjectIntervalMS is the slow cadence between object detector calls.
	ObjectIntervalMS int `koanf:"object_interval_ms"`

	// DetectorTimeoutMS bounds a single detector call.
	DetectorTimeoutMS int `koanf:"detector_timeout_ms"`

	LookAwayThresholdMS int `koanf:"look_away_threshold_ms"`
	NoFaceThresholdMS   int `koanf:"no_face_threshold_ms"`

	// YawMinRatio and YawMaxRatio bound the eye-to-nose distance ratio of a focused face.
	YawMinRatio float64 `koanf:"yaw_min_ratio"`
	YawMaxRatio float64 `koanf:"yaw_max_ratio"`

	// PitchThreshold is the normalized nose offset above which the face counts as away.
	PitchThreshold float64 `koanf:"pitch_threshold"`

	// ObjectConfidenceFloor rejects object detections scoring below it.
	ObjectConfidenceFloor float64 `koanf:"object_confidence_floor"`

	// DefaultFrameHeight is used when neither the session nor the tick supplies one.
	DefaultFrameHeight float64 `koanf:"default_frame_height"`

	// MailboxSize bounds pending detector results per session and source.
	MailboxSize int `koanf:"mailbox_size"`

	// DedupeSize sets the size of the tick id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// EventQueueSize bounds the in-memory dispatch queue.
	EventQueueSize int `koanf:"queue_size"`

	// DispatchWorkers sets the number of sink workers. One keeps sinks in order.
	DispatchWorkers int `koanf:"dispatch_workers"`

	// MaxSessions caps concurrently active sessions.
	MaxSessions int `koanf:"max_sessions"`

	// MaxListLimit caps GET /sessions?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// ArchiveDir receives <sid>_report.json and <sid>_events.csv at session stop.
	ArchiveDir string `koanf:"archive_dir"`

	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		FaceIntervalMS:        100,
		ObjectIntervalMS:      500,
		DetectorTimeoutMS:     2000,
		LookAwayThresholdMS:   5000,
		NoFaceThresholdMS:     10000,
		YawMinRatio:           0.75,
		YawMaxRatio:           1.33,
		PitchThreshold:        0.06,
		ObjectConfidenceFloor: 0.6,
		DefaultFrameHeight:    720,
		MailboxSize:           8,
		DedupeSize:            50_000,
		EventQueueSize:        10_000,
		DispatchWorkers:       1,
		MaxSessions:           100,
		MaxListLimit:          100,
		KafkaTopic:            "proctor.events",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FaceIntervalMS <= 0 || c.ObjectIntervalMS <= 0:
		return fmt.Errorf("%w: detector intervals must be positive", ErrInvalidConfig)
	case c.DetectorTimeoutMS <= 0:
		return fmt.Errorf("%w: detector_timeout_ms must be positive", ErrInvalidConfig)
	case c.LookAwayThresholdMS <= 0 || c.NoFaceThresholdMS <= 0:
		return fmt.Errorf("%w: thresholds must be positive", ErrInvalidConfig)
	case c.YawMinRatio <= 0 || c.YawMinRatio >= c.YawMaxRatio:
		return fmt.Errorf("%w: yaw ratio range [%v, %v] is empty", ErrInvalidConfig, c.YawMinRatio, c.YawMaxRatio)
	case c.PitchThreshold <= 0:
		return fmt.Errorf("%w: pitch_threshold must be positive", ErrInvalidConfig)
	case c.ObjectConfidenceFloor < 0 || c.ObjectConfidenceFloor > 1:
		return fmt.Errorf("%w: object_confidence_floor must be within [0,1]", ErrInvalidConfig)
	case c.DefaultFrameHeight <= 0:
		return fmt.Errorf("%w: default_frame_height must be positive", ErrInvalidConfig)
	case c.MailboxSize <= 0 || c.EventQueueSize <= 0 || c.DispatchWorkers <= 0:
		return fmt.Errorf("%w: mailbox, queue and worker sizes must be positive", ErrInvalidConfig)
	case c.MaxSessions <= 0 || c.MaxListLimit <= 0:
		return fmt.Errorf("%w: session limits must be positive", ErrInvalidConfig)
	case len(c.KafkaBrokers) > 0 && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required with kafka_brokers", ErrInvalidConfig)
	}
	return nil
}

// FaceInterval returns the fast cadence.
func (c *Config) FaceInterval() time.Duration { return ms(c.FaceIntervalMS) }

// ObjectInterval returns the slow cadence.
func (c *Config) ObjectInterval() time.Duration { return ms(c.ObjectIntervalMS) }

// DetectorTimeout returns the per-tick detector bound.
func (c *Config) DetectorTimeout() time.Duration { return ms(c.DetectorTimeoutMS) }

// LookAwayThreshold returns the sustained look-away duration.
func (c *Config) LookAwayThreshold() time.Duration { return ms(c.LookAwayThresholdMS) }

// NoFaceThreshold returns the sustained absence duration.
func (c *Config) NoFaceThreshold() time.Duration { return ms(c.NoFaceThresholdMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
