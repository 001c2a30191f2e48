// Package scheduler runs independent periodic tasks, each on its own cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

// DefaultTickTimeout bounds a single task run.
const DefaultTickTimeout = 2 * time.Second

// Tick identifies one run of a task.
type Tick struct {
	Seq      uint64
	At       time.Time
	Interval time.Duration
}

// TaskFunc does the work of one tick.
type TaskFunc func(ctx context.Context, t Tick) error

// Task is a named loop. The next tick starts Interval after the previous
// one completed.
type Task struct {
	Name     string
	Interval time.Duration
	Run      TaskFunc
}

// Scheduler owns a set of tasks and runs them until cancelled.
type Scheduler struct {
	clock   clock.Clock
	timeout time.Duration
	log     logger.Logger

	mu      sync.Mutex
	tasks   []Task
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving the cadences and tick timeouts.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithTickTimeout bounds each task run.
func WithTickTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{clock: clock.New(), timeout: DefaultTickTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("scheduler")
	}
	return s
}

// Add registers a task. Tasks cannot be added after Run.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" || t.Interval <= 0 || t.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTask, t.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// Run blocks until ctx is cancelled or every task halted. Cancellation is
// observed between ticks; a tick in flight runs to completion or timeout.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return ErrNoTasks
	}
	s.running = true
	tasks := append([]Task(nil), s.tasks...)
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error { return s.loop(gctx, t) })
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) error {
	var seq uint64
	for {
		if ctx.Err() != nil {
			return nil
		}
		seq++
		if halt := s.runTick(ctx, t, Tick{Seq: seq, At: s.clock.Now(), Interval: t.Interval}); halt {
			s.log.Debug(ctx, "task halted", logger.String("task", t.Name), logger.Int64("ticks", int64(seq)))
			return nil
		}

		timer := s.clock.Timer(t.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, t Task, tick Tick) bool {
	// The run is detached from ctx so stopping never interrupts a detector
	// call mid-flight; only the tick timeout does.
	tctx, cancel := s.clock.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := s.clock.Now()
	err := t.Run(tctx, tick)
	elapsed := float64(s.clock.Since(start).Microseconds()) / 1000

	switch {
	case err == nil:
		metrics.RecordTaskRun(t.Name, "ok", elapsed)
	case errors.Is(err, ErrHalt):
		metrics.RecordTaskRun(t.Name, "ok", elapsed)
		return true
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordTaskRun(t.Name, "timeout", elapsed)
		s.log.Warn(ctx, "task run timed out",
			logger.String("task", t.Name), logger.Int64("seq", int64(tick.Seq)), logger.Error(err))
	default:
		metrics.RecordTaskRun(t.Name, "error", elapsed)
		s.log.Error(ctx, "task run failed",
			logger.String("task", t.Name), logger.Int64("seq", int64(tick.Seq)), logger.Error(err))
	}
	return false
}
