// Package queue buffers session events between the detection loops and the
// sink workers so a slow sink never stalls a tick.
package queue

import (
	"context"
	"sync"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/metrics"
)

const defaultCapacity = 10_000

// Event is the payload flowing through the queue.
type Event = model.SessionEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue reports false if the event was dropped.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Event

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds an event without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		metrics.RecordQueueEnqueueError()
		return false
	}
	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel of events. Each call starts its own forwarder,
// so several workers can consume concurrently.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for e := range q.events {
			select {
			case out <- e:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.events)
}

func (q *InMemoryQueue) observe() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting events. Queued events are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
