// Package session wires classification, aggregation and the event log into
// the monitoring engine of one candidate session.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/proctor/internal/domain/aggregator"
	"github.com/okian/proctor/internal/domain/eventlog"
	"github.com/okian/proctor/internal/domain/gaze"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/policy"
	"github.com/okian/proctor/internal/domain/scoring"
	"github.com/okian/proctor/internal/domain/types"
)

// DefaultFrameHeight is used when no frame height is known.
const DefaultFrameHeight = 720

// Outcome describes what one tick did.
type Outcome struct {
	Events  []model.Event
	Skipped int
	// Signal is the gaze reading of a face tick; SignalNone for object ticks.
	Signal gaze.Signal
	Absent bool
	// Counters and Score are read after the tick's last event was recorded.
	Counters model.Counters
	Score    int
}

// Session is safe for concurrent use. Face and object ticks are serialized
// so every event is recorded with its counters and score in one step.
type Session struct {
	id          string
	candidate   string
	clock       clock.Clock
	startedAt   time.Time
	frameHeight float64

	gaze   *gaze.Classifier
	policy *policy.Classifier
	agg    *aggregator.Aggregator
	log    *eventlog.Log

	mu      sync.Mutex
	stopped bool
	endedAt time.Time
}

// Option configures a Session.
type Option func(*settings)

type settings struct {
	clock       clock.Clock
	frameHeight float64
	gaze        *gaze.Classifier
	policy      *policy.Classifier
	aggOpts     []aggregator.Option
	rules       scoring.Rules
}

// WithClock sets the clock used for start time and event timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithFrameHeight sets the default frame height for pitch normalization.
func WithFrameHeight(h float64) Option {
	return func(s *settings) {
		if h > 0 {
			s.frameHeight = h
		}
	}
}

// WithGazeClassifier replaces the default gaze heuristic.
func WithGazeClassifier(c *gaze.Classifier) Option {
	return func(s *settings) { s.gaze = c }
}

// WithPolicyClassifier replaces the default object policy.
func WithPolicyClassifier(c *policy.Classifier) Option {
	return func(s *settings) { s.policy = c }
}

// WithAggregatorOptions configures the session's aggregator.
func WithAggregatorOptions(opts ...aggregator.Option) Option {
	return func(s *settings) { s.aggOpts = append(s.aggOpts, opts...) }
}

// WithScoringRules sets the penalty table.
func WithScoringRules(r scoring.Rules) Option {
	return func(s *settings) { s.rules = r }
}

// New starts a session with zero counters and an empty log.
func New(id, candidate string, opts ...Option) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	s := settings{
		clock:       clock.New(),
		frameHeight: DefaultFrameHeight,
		rules:       scoring.DefaultRules(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.gaze == nil {
		s.gaze = gaze.NewClassifier()
	}
	if s.policy == nil {
		s.policy = policy.NewClassifier()
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		candidate = types.DefaultCandidate
	}

	return &Session{
		id:          id,
		candidate:   candidate,
		clock:       s.clock,
		startedAt:   s.clock.Now().UTC(),
		frameHeight: s.frameHeight,
		gaze:        s.gaze,
		policy:      s.policy,
		agg:         aggregator.New(s.aggOpts...),
		log:         eventlog.New(eventlog.WithClock(s.clock), eventlog.WithRules(s.rules)),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Candidate returns the candidate name.
func (s *Session) Candidate() string { return s.candidate }

// ObserveFaces applies one fast-cadence tick.
func (s *Session) ObserveFaces(ctx context.Context, tick model.FaceTick) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	records, skipped := model.ValidFaces(tick.Records)
	height := tick.FrameHeight
	if height <= 0 {
		height = s.frameHeight
	}
	res := s.gaze.Classify(records, height)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Outcome{}, ErrStopped
	}

	out := Outcome{Skipped: skipped, Signal: res.Away, Absent: res.Absent}
	if tick.Unreadable(len(records), skipped) {
		// Faces were reported but none could be read: neither absence nor
		// presence is known, so the accumulators are left as they are.
		out.Signal, out.Absent = gaze.SignalNone, false
		out.Counters, out.Score = s.log.Counters(), s.log.Score()
		return out, nil
	}
	for _, t := range s.agg.Observe(res) {
		e, err := s.log.Record(t, model.Details{})
		if err != nil {
			return out, err
		}
		out.Events = append(out.Events, e)
	}
	out.Counters, out.Score = s.log.Counters(), s.log.Score()
	return out, nil
}

// ObserveObjects applies one slow-cadence tick. Every qualifying record
// produces its own event.
func (s *Session) ObserveObjects(ctx context.Context, tick model.ObjectTick) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	records, skipped := model.ValidObjects(tick.Records)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Outcome{}, ErrStopped
	}

	out := Outcome{Skipped: skipped}
	for _, r := range records {
		cat, ok := s.policy.Classify(r)
		if !ok {
			continue
		}
		d := model.Details{Score: r.Score}
		if cat == policy.CategoryExtraDevice {
			// Phones and books are named by their event type already.
			d.Label = r.Class
		}
		e, err := s.log.Record(cat.EventType(), d)
		if err != nil {
			return out, err
		}
		out.Events = append(out.Events, e)
	}
	out.Counters, out.Score = s.log.Counters(), s.log.Score()
	return out, nil
}

// Stop ends the session. It reports false if the session was already stopped.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	s.endedAt = s.clock.Now().UTC()
	return true
}

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Events returns the log in insertion order.
func (s *Session) Events() []model.Event { return s.log.Events() }

// Counters returns the current counters.
func (s *Session) Counters() model.Counters { return s.log.Counters() }

// Score returns the current integrity score.
func (s *Session) Score() int { return s.log.Score() }

// AggregatorState returns the accumulator snapshot.
func (s *Session) AggregatorState() aggregator.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.State()
}

// Summary returns the session summary.
func (s *Session) Summary() types.Summary {
	s.mu.Lock()
	stopped, endedAt := s.stopped, s.endedAt
	snap := s.log.Snapshot()
	s.mu.Unlock()

	sum := types.Summary{
		SessionID:      s.id,
		Candidate:      s.candidate,
		StartedAt:      s.startedAt,
		Active:         !stopped,
		Metrics:        snap.Counters,
		IntegrityScore: snap.Score,
		EventCount:     len(snap.Events),
	}
	end := s.clock.Now().UTC()
	if stopped {
		end = endedAt
		sum.EndedAt = &endedAt
	}
	sum.DurationSec = durationSec(s.startedAt, end)
	return sum
}

// Report returns the downloadable report.
func (s *Session) Report() types.Report {
	s.mu.Lock()
	end := s.clock.Now().UTC()
	if s.stopped {
		end = s.endedAt
	}
	snap := s.log.Snapshot()
	s.mu.Unlock()

	return types.Report{
		Candidate:      s.candidate,
		SessionID:      s.id,
		StartedAt:      s.startedAt,
		DurationSec:    durationSec(s.startedAt, end),
		Metrics:        snap.Counters,
		IntegrityScore: snap.Score,
		Events:         snap.Events,
	}
}

func durationSec(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / time.Second)
}
