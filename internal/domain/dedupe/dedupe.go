// Package dedupe tracks detector tick ids so a retried push is applied once.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize bounds the number of remembered ids.
const DefaultMaxSize = 50_000

// Deduper records seen tick ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a push that failed after being recorded can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type slot struct {
	id   string
	used bool
}

// ringDeduper remembers the most recent maxSize ids and evicts the oldest
// first. With maxSize <= 0 it never evicts.
type ringDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]int // id -> ring index, -1 when unbounded
	ring    []slot
	next    int
}

// NewInMemoryDeduper creates a deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	if old := d.ring[d.next]; old.used {
		delete(d.seen, old.id)
	}
	d.ring[d.next] = slot{id: id, used: true}
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if idx >= 0 {
		d.ring[idx] = slot{}
	}
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
