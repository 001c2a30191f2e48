package aggregator

import "time"

// Phase is the lifecycle state of an Episode.
type Phase int8

const (
	// PhaseQuiescent: nothing accumulated.
	PhaseQuiescent Phase = iota
	// PhaseAccumulating: the condition holds but has not crossed the threshold.
	PhaseAccumulating
	// PhaseFired: the event for this episode has been emitted.
	PhaseFired
)

func (p Phase) String() string {
	switch p {
	case PhaseAccumulating:
		return "accumulating"
	case PhaseFired:
		return "fired"
	default:
		return "quiescent"
	}
}

// Episode accumulates time while a condition holds and fires once the
// accumulated time strictly exceeds its threshold.
//
// With rearm set, firing resets the accumulator so a continuing condition
// fires again after another full threshold. Without it, the episode stays
// fired until Reset.
type Episode struct {
	threshold   time.Duration
	rearm       bool
	accumulated time.Duration
	phase       Phase
}

// NewEpisode creates a quiescent Episode.
func NewEpisode(threshold time.Duration, rearm bool) Episode {
	return Episode{threshold: threshold, rearm: rearm}
}

// Advance credits dt and reports whether the episode fired on this call.
func (e *Episode) Advance(dt time.Duration) bool {
	e.accumulated += dt
	if e.phase == PhaseQuiescent {
		e.phase = PhaseAccumulating
	}
	if e.phase == PhaseFired || e.accumulated <= e.threshold {
		return false
	}
	if e.rearm {
		e.Reset()
	} else {
		e.phase = PhaseFired
	}
	return true
}

// Reset ends the episode.
func (e *Episode) Reset() {
	e.accumulated = 0
	e.phase = PhaseQuiescent
}

// Accumulated returns the time credited to the current episode.
func (e *Episode) Accumulated() time.Duration { return e.accumulated }

// Phase returns the current phase.
func (e *Episode) Phase() Phase { return e.phase }

// Edge is a rising-edge latch: Set(true) reports true only when the
// previous value was false.
type Edge struct {
	high bool
}

// Set records v and reports a rising edge.
func (l *Edge) Set(v bool) bool {
	rising := v && !l.high
	l.high = v
	return rising
}

// High reports the latched value.
func (l *Edge) High() bool { return l.high }
