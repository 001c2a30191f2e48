package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/proctor/internal/adapters/mq/queue"
	worker "github.com/okian/proctor/internal/adapters/mq/worker"
	model "github.com/okian/proctor/internal/domain/model"
	logging "github.com/okian/proctor/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

type mockQueue struct {
	eventChan chan queue.Event
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan queue.Event, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Event { return mq.eventChan }

func (mq *mockQueue) Close() error {
	close(mq.eventChan)
	return nil
}

type mockSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []worker.Event
}

func (s *mockSink) Name() string { return s.name }

func (s *mockSink) Publish(_ context.Context, e worker.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *mockSink) received() []worker.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]worker.Event(nil), s.events...)
}

func event(sid string, seq int) queue.Event {
	return queue.Event{SessionID: sid, Event: model.Event{Seq: seq, Type: model.EventMultipleFaces}, Score: 90}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with two sinks", t, func() {
		q := newMockQueue()
		ws := &mockSink{name: "ws"}
		kafka := &mockSink{name: "kafka"}
		w := worker.NewInMemoryWorker(q, []worker.Sink{ws, kafka}, worker.WithName("test-worker"))

		convey.Convey("When events are queued and the queue is closed", func() {
			q.eventChan <- event("sid_a", 1)
			q.eventChan <- event("sid_a", 2)
			_ = q.Close()

			w.Run(context.Background())

			convey.Convey("Then every sink receives every event in order", func() {
				for _, s := range []*mockSink{ws, kafka} {
					got := s.received()
					convey.So(got, convey.ShouldHaveLength, 2)
					convey.So(got[0].Event.Seq, convey.ShouldEqual, 1)
					convey.So(got[1].Event.Seq, convey.ShouldEqual, 2)
				}
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When one sink fails", func() {
			ws.err = errors.New("client gone")
			q.eventChan <- event("sid_b", 1)
			_ = q.Close()

			w.Run(context.Background())

			convey.Convey("Then the other sink still receives the event", func() {
				convey.So(ws.received(), convey.ShouldHaveLength, 1)
				convey.So(kafka.received(), convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then Shutdown returns once Run exits", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When Shutdown times out", func() {
			go w.Run(context.Background())
			defer func() { _ = q.Close() }()

			sctx, scancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer scancel()
			convey.So(errors.Is(w.Shutdown(sctx), context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		sink := &mockSink{name: "memory"}
		p := worker.NewPool(3, q, []worker.Sink{sink})
		convey.So(p.Size(), convey.ShouldEqual, 3)

		p.Start(context.Background())
		for i := 1; i <= 20; i++ {
			convey.So(q.Enqueue(context.Background(), event("sid_c", i)), convey.ShouldBeTrue)
		}

		convey.Convey("Shutdown drains every queued event", func() {
			convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(sink.received(), convey.ShouldHaveLength, 20)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		p := worker.NewPool(0, newMockQueue(), nil)
		convey.So(p.Size(), convey.ShouldEqual, 1)
	})
}
