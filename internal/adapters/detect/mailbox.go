package detect

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/metrics"
)

// Source yields one detector result per call, or ErrNoResult.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// FaceSource and ObjectSource are the two detector inputs of a session.
type (
	FaceSource   = Source[model.FaceTick]
	ObjectSource = Source[model.ObjectTick]
)

// Mailbox is a bounded FIFO of pushed detector results. When full, the
// oldest pending result is dropped.
type Mailbox[T any] struct {
	name     string
	capacity int
	clock    clock.Clock

	mu     sync.Mutex
	items  []entry[T]
	closed bool
}

type entry[T any] struct {
	v  T
	at time.Time
}

// MailboxOption configures a Mailbox.
type MailboxOption func(*mailboxConfig)

type mailboxConfig struct {
	clock clock.Clock
}

// WithMailboxClock sets the clock used to time pending results.
func WithMailboxClock(c clock.Clock) MailboxOption {
	return func(cfg *mailboxConfig) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// NewMailbox creates a mailbox. name labels the drop and latency metrics.
func NewMailbox[T any](name string, capacity int, opts ...MailboxOption) *Mailbox[T] {
	if capacity <= 0 {
		capacity = 1
	}
	cfg := mailboxConfig{clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Mailbox[T]{name: name, capacity: capacity, clock: cfg.clock, items: make([]entry[T], 0, capacity)}
}

// Push stores v. It reports whether an older result was dropped.
func (m *Mailbox[T]) Push(v T) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	dropped := false
	if len(m.items) == m.capacity {
		m.items[0] = entry[T]{}
		m.items = m.items[1:]
		dropped = true
		metrics.RecordMailboxDropped(m.name)
	}
	m.items = append(m.items, entry[T]{v: v, at: m.clock.Now()})
	return dropped, nil
}

// Next pops the oldest result without waiting.
func (m *Mailbox[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		if m.closed {
			return zero, ErrClosed
		}
		return zero, ErrNoResult
	}
	e := m.items[0]
	m.items[0] = entry[T]{}
	m.items = m.items[1:]
	metrics.RecordDetectorLatency(m.name, float64(m.clock.Since(e.at).Microseconds())/1000)
	return e.v, nil
}

// Len returns the number of pending results.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close rejects further pushes. Pending results can still be drained.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
