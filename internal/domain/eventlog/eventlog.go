// Package eventlog keeps the append-only event history of a session together
// with its counters and score.
package eventlog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/scoring"
)

// ErrUnknownEventType is returned when recording a type outside the enumeration.
var ErrUnknownEventType = errors.New("unknown event type")

// Log is safe for concurrent use. Events, counters and score change together
// under one lock.
type Log struct {
	mu       sync.RWMutex
	clock    clock.Clock
	rules    scoring.Rules
	events   []model.Event
	counters model.Counters
	score    int
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the timestamp source.
func WithClock(c clock.Clock) Option {
	return func(l *Log) { l.clock = c }
}

// WithRules sets the scoring rules.
func WithRules(r scoring.Rules) Option {
	return func(l *Log) { l.rules = r }
}

// New creates an empty Log with a perfect score.
func New(opts ...Option) *Log {
	l := &Log{
		clock: clock.New(),
		rules: scoring.DefaultRules(),
		score: scoring.MaxScore,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an event stamped with the current time.
func (l *Log) Record(t model.EventType, d model.Details) (model.Event, error) {
	if !t.Valid() {
		return model.Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := model.Event{
		Seq:       len(l.events) + 1,
		Timestamp: l.clock.Now().UTC(),
		Type:      t,
		Details:   d,
	}
	l.events = append(l.events, e)
	l.counters.Inc(t)
	l.score = l.rules.Compute(l.counters)
	return e, nil
}

// Events returns a copy of the log in insertion order.
func (l *Log) Events() []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Counters returns the current counters.
func (l *Log) Counters() model.Counters {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters
}

// Score returns the current integrity score.
func (l *Log) Score() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.score
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Snapshot is a consistent view of the log.
type Snapshot struct {
	Events   []model.Event
	Counters model.Counters
	Score    int
}

// Snapshot returns events, counters and score read under one lock.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := make([]model.Event, len(l.events))
	copy(events, l.events)
	return Snapshot{Events: events, Counters: l.counters, Score: l.score}
}

// Replay derives counters from events alone. Unknown types are skipped.
func Replay(events []model.Event) model.Counters {
	var c model.Counters
	for _, e := range events {
		c.Inc(e.Type)
	}
	return c
}
