// Package scoring computes the integrity score from event counters.
package scoring

import (
	"github.com/okian/proctor/internal/domain/model"
)

// Score bounds.
const (
	MaxScore = 100
	MinScore = 0
)

// Penalty is the deduction for one event type. A zero Cap leaves the total
// deduction of the type unbounded.
type Penalty struct {
	PerEvent int
	Cap      int
}

func (p Penalty) deduction(count int) int {
	if count <= 0 {
		return 0
	}
	d := p.PerEvent * count
	if p.Cap > 0 && d > p.Cap {
		return p.Cap
	}
	return d
}

// Rules maps each event type to its penalty.
type Rules map[model.EventType]Penalty

// DefaultRules returns the reference penalty table.
func DefaultRules() Rules {
	return Rules{
		model.EventLookingAway:   {PerEvent: 5, Cap: 30},
		model.EventNoFace:        {PerEvent: 10, Cap: 40},
		model.EventMultipleFaces: {PerEvent: 10, Cap: 30},
		model.EventPhone:         {PerEvent: 15},
		model.EventBookOrNotes:   {PerEvent: 10},
		model.EventExtraDevice:   {PerEvent: 10},
	}
}

// Option adjusts a rule set.
type Option func(Rules)

// WithPenalty overrides the penalty of one event type.
func WithPenalty(t model.EventType, p Penalty) Option {
	return func(r Rules) { r[t] = p }
}

// NewRules builds DefaultRules with overrides applied.
func NewRules(opts ...Option) Rules {
	r := DefaultRules()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compute returns the score for c, clamped to [MinScore, MaxScore].
func (r Rules) Compute(c model.Counters) int {
	score := MaxScore
	for _, t := range model.EventTypes() {
		score -= r[t].deduction(c.Get(t))
	}
	return clamp(score)
}

// Breakdown returns the deduction applied per event type.
func (r Rules) Breakdown(c model.Counters) map[model.EventType]int {
	out := make(map[model.EventType]int, len(r))
	for _, t := range model.EventTypes() {
		out[t] = r[t].deduction(c.Get(t))
	}
	return out
}

var defaults = DefaultRules()

// Score computes c with the default rules.
func Score(c model.Counters) int {
	return defaults.Compute(c)
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
