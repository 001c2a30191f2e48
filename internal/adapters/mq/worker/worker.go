// Package worker delivers queued session events to the registered sinks.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const (
	defaultSinkTimeout  = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.SessionEvent

// Sink receives every emitted event.
type Sink interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker drains the queue until it is closed.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker fans each event out to all sinks.
type InMemoryWorker struct {
	queue       Queue
	sinks       []Sink
	name        string
	sinkTimeout time.Duration

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, sinks []Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		sinks:       sinks,
		name:        "worker",
		sinkTimeout: defaultSinkTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes events until the queue is closed and drained or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.deliver(ctx, e); err != nil {
				w.logger.Error(ctx, "event delivery failed",
					logger.String("session_id", e.SessionID),
					logger.Int("seq", e.Event.Seq),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown waits for Run to return. Close the queue first so Run can drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker %s shutdown: %w", w.name, ctx.Err())
	}
}

// deliver publishes e to every sink. One failing sink does not skip the others.
func (w *InMemoryWorker) deliver(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var errs error
	for _, s := range w.sinks {
		sctx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		err := s.Publish(sctx, e)
		cancel()
		if err != nil {
			metrics.RecordSinkPublish(s.Name(), "error")
			errs = multierr.Append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		metrics.RecordSinkPublish(s.Name(), "ok")
	}
	if errs != nil {
		metrics.RecordWorkerError()
	}
	return errs
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing the sinks.
func NewPool(workerCount int, queue Queue, sinks []Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, sinks, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs error
	for _, w := range p.workers {
		errs = multierr.Append(errs, w.Shutdown(shutdownCtx))
	}
	metrics.UpdateWorkerActiveCount(0)
	return errs
}
