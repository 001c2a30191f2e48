package queue

import (
	"context"
	"testing"

	"github.com/okian/proctor/internal/domain/model"
)

func sessionEvent(sid string, seq int) Event {
	return Event{SessionID: sid, Event: model.Event{Seq: seq, Type: model.EventPhone}, Score: 85}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if !q.Enqueue(ctx, sessionEvent("sid_a", 1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.SessionID != "sid_a" || got.Event.Seq != 1 {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if !q.Enqueue(ctx, sessionEvent("sid_a", i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if q.Enqueue(ctx, sessionEvent("sid_a", 3)) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestInMemoryQueue_OrderPreserved(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		q.Enqueue(ctx, sessionEvent("sid_a", i))
	}
	ch := q.Dequeue(ctx)
	for i := 1; i <= 5; i++ {
		if e := <-ch; e.Event.Seq != i {
			t.Fatalf("expected seq %d, got %d", i, e.Event.Seq)
		}
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, sessionEvent("sid_a", 1))
	q.Enqueue(ctx, sessionEvent("sid_a", 2))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Fatal("expected queue to be closed")
	}
	if q.Enqueue(ctx, sessionEvent("sid_a", 3)) {
		t.Error("expected enqueue on closed queue to fail")
	}

	var got []int
	for e := range q.Dequeue(ctx) {
		got = append(got, e.Event.Seq)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected queued events to drain, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, sessionEvent("sid_a", 1)) {
		t.Error("expected enqueue with cancelled context to fail")
	}

	if q.Len(context.Background()) != 0 {
		t.Error("expected nothing queued")
	}
}
