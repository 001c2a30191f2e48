// Package aggregator turns per-tick gaze classifications into de-bounced
// events using fixed-step accumulators.
package aggregator

import (
	"time"

	"github.com/okian/proctor/internal/domain/gaze"
	"github.com/okian/proctor/internal/domain/model"
)

// Defaults match the fast detector cadence and the event names.
const (
	DefaultTick              = 100 * time.Millisecond
	DefaultLookAwayThreshold = 5 * time.Second
	DefaultNoFaceThreshold   = 10 * time.Second
)

// Aggregator holds the temporal state of one session. It is not safe for
// concurrent use; the owning session serializes ticks.
type Aggregator struct {
	tick   time.Duration
	away   Episode
	noFace Episode
	multi  Edge
}

// Option configures an Aggregator.
type Option func(*settings)

type settings struct {
	tick     time.Duration
	lookAway time.Duration
	noFace   time.Duration
}

// WithTick sets the Δt credited per tick. It should equal the face cadence.
func WithTick(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithLookAwayThreshold sets the sustained look-away duration.
func WithLookAwayThreshold(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.lookAway = d
		}
	}
}

// WithNoFaceThreshold sets the sustained absence duration.
func WithNoFaceThreshold(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.noFace = d
		}
	}
}

// New creates an Aggregator in its zero state.
func New(opts ...Option) *Aggregator {
	s := settings{tick: DefaultTick, lookAway: DefaultLookAwayThreshold, noFace: DefaultNoFaceThreshold}
	for _, opt := range opts {
		opt(&s)
	}
	return &Aggregator{
		tick:   s.tick,
		away:   NewEpisode(s.lookAway, false),
		noFace: NewEpisode(s.noFace, true),
	}
}

// Tick returns the Δt credited per observation.
func (a *Aggregator) Tick() time.Duration { return a.tick }

// Observe applies one tick and returns the events to record, in order.
func (a *Aggregator) Observe(r gaze.Result) []model.EventType {
	var out []model.EventType

	if r.Absent {
		a.away.Reset()
		a.multi.Set(false)
		if a.noFace.Advance(a.tick) {
			out = append(out, model.EventNoFace)
		}
		return out
	}

	// Any visible face ends an absence, whatever its landmarks.
	a.noFace.Reset()
	if a.multi.Set(r.Multiple) {
		out = append(out, model.EventMultipleFaces)
	}

	switch r.Away {
	case gaze.SignalAway:
		if a.away.Advance(a.tick) {
			out = append(out, model.EventLookingAway)
		}
	case gaze.SignalFocused:
		a.away.Reset()
	case gaze.SignalNone:
		// Insufficient landmarks: the away episode is left untouched.
	}
	return out
}

// Reset returns the aggregator to its zero state.
func (a *Aggregator) Reset() {
	a.away.Reset()
	a.noFace.Reset()
	a.multi = Edge{}
}

// State is a read-only snapshot of the accumulators.
type State struct {
	AwayAccumulated   time.Duration `json:"away_accumulated"`
	AwayPhase         string        `json:"away_phase"`
	NoFaceAccumulated time.Duration `json:"no_face_accumulated"`
	MultipleFaces     bool          `json:"multiple_faces"`
}

// State returns the current snapshot.
func (a *Aggregator) State() State {
	return State{
		AwayAccumulated:   a.away.Accumulated(),
		AwayPhase:         a.away.Phase().String(),
		NoFaceAccumulated: a.noFace.Accumulated(),
		MultipleFaces:     a.multi.High(),
	}
}
