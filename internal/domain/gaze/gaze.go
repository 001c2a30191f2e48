// Package gaze derives presence, multiplicity and a coarse look-away signal
// from one tick of face detector output.
package gaze

import (
	"math"

	"github.com/okian/proctor/internal/domain/model"
)

const (
	// DefaultYawMin and DefaultYawMax bound the eye-to-nose distance ratio of a frontal face.
	DefaultYawMin = 0.75
	DefaultYawMax = 1.33
	// DefaultPitch is the normalized vertical nose offset above which the head counts as tilted.
	DefaultPitch = 0.06

	ratioEpsilon = 1e-6
	minLandmarks = 3
)

// Signal is the tri-state look-away reading of a tick.
type Signal int8

const (
	// SignalNone means the tick carries no usable gaze data.
	SignalNone Signal = iota
	SignalFocused
	SignalAway
)

func (s Signal) String() string {
	switch s {
	case SignalFocused:
		return "focused"
	case SignalAway:
		return "away"
	default:
		return "none"
	}
}

// Result is the classification of one face tick.
type Result struct {
	Absent   bool
	Multiple bool
	Away     Signal
	// Ratio and Pitch are populated when Away is not SignalNone.
	Ratio float64
	Pitch float64
}

// Classifier is a stateless gaze heuristic.
type Classifier struct {
	yawMin float64
	yawMax float64
	pitch  float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithYawRange sets the focused ratio interval.
func WithYawRange(lo, hi float64) Option {
	return func(c *Classifier) {
		c.yawMin = lo
		c.yawMax = hi
	}
}

// WithPitchThreshold sets the pitch threshold.
func WithPitchThreshold(p float64) Option {
	return func(c *Classifier) { c.pitch = p }
}

// NewClassifier creates a Classifier with default thresholds.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{yawMin: DefaultYawMin, yawMax: DefaultYawMax, pitch: DefaultPitch}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify inspects the first record only. Extra faces contribute to
// Multiple but never to the away signal.
func (c *Classifier) Classify(records []model.FaceRecord, frameHeight float64) Result {
	res := Result{
		Absent:   len(records) == 0,
		Multiple: len(records) >= 2,
	}
	if res.Absent || frameHeight <= 0 {
		return res
	}
	lm := records[0].Landmarks
	if len(lm) < minLandmarks {
		return res
	}

	right, left, nose := lm[model.LandmarkRightEye], lm[model.LandmarkLeftEye], lm[model.LandmarkNose]
	dLeft := math.Hypot(nose.X-left.X, nose.Y-left.Y)
	dRight := math.Hypot(nose.X-right.X, nose.Y-right.Y)
	res.Ratio = dLeft / (dRight + ratioEpsilon)

	eyeMidY := (left.Y + right.Y) / 2
	res.Pitch = math.Abs(nose.Y-eyeMidY) / frameHeight

	yawAway := res.Ratio < c.yawMin || res.Ratio > c.yawMax
	pitchAway := res.Pitch > c.pitch
	if yawAway || pitchAway {
		res.Away = SignalAway
	} else {
		res.Away = SignalFocused
	}
	return res
}
