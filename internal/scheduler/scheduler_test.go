package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctor/internal/scheduler"
	"github.com/okian/proctor/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// advance moves the mock forward in steps until cond holds.
func advance(mock *clock.Mock, step time.Duration, cond func() bool) bool {
	for i := 0; i < 5000; i++ {
		if cond() {
			return true
		}
		mock.Add(step)
		time.Sleep(100 * time.Microsecond)
	}
	return cond()
}

func TestAdd(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		s := scheduler.New()
		noop := func(context.Context, scheduler.Tick) error { return nil }

		Convey("Incomplete tasks are rejected", func() {
			So(errors.Is(s.Add(scheduler.Task{Interval: time.Second, Run: noop}), scheduler.ErrInvalidTask), ShouldBeTrue)
			So(errors.Is(s.Add(scheduler.Task{Name: "faces", Run: noop}), scheduler.ErrInvalidTask), ShouldBeTrue)
			So(errors.Is(s.Add(scheduler.Task{Name: "faces", Interval: time.Second}), scheduler.ErrInvalidTask), ShouldBeTrue)
		})

		Convey("Running without tasks fails", func() {
			So(s.Run(context.Background()), ShouldEqual, scheduler.ErrNoTasks)
		})
	})
}

func TestCadences(t *testing.T) {
	Convey("Given a fast and a slow task on a mock clock", t, func() {
		mock := clock.NewMock()
		s := scheduler.New(scheduler.WithClock(mock))

		var faces, objects atomic.Int64
		var mu sync.Mutex
		var faceTicks []scheduler.Tick

		So(s.Add(scheduler.Task{Name: "faces", Interval: 100 * time.Millisecond, Run: func(_ context.Context, tk scheduler.Tick) error {
			mu.Lock()
			faceTicks = append(faceTicks, tk)
			mu.Unlock()
			faces.Add(1)
			return nil
		}}), ShouldBeNil)
		So(s.Add(scheduler.Task{Name: "objects", Interval: 500 * time.Millisecond, Run: func(context.Context, scheduler.Tick) error {
			objects.Add(1)
			return nil
		}}), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		ok := advance(mock, 100*time.Millisecond, func() bool { return faces.Load() >= 20 && objects.Load() >= 3 })
		cancel()

		Convey("Both loops tick independently", func() {
			So(ok, ShouldBeTrue)
			So(<-done, ShouldBeNil)
		})

		Convey("Each tick carries its sequence and interval", func() {
			So(<-done, ShouldBeNil)
			mu.Lock()
			defer mu.Unlock()
			for i, tk := range faceTicks {
				So(tk.Seq, ShouldEqual, uint64(i+1))
				So(tk.Interval, ShouldEqual, 100*time.Millisecond)
			}
		})

		Convey("Tasks cannot be added while running", func() {
			err := s.Add(scheduler.Task{Name: "late", Interval: time.Second, Run: func(context.Context, scheduler.Tick) error { return nil }})
			So(err, ShouldEqual, scheduler.ErrRunning)
			So(<-done, ShouldBeNil)
		})
	})
}

func TestCancellationBetweenTicks(t *testing.T) {
	Convey("Given a tick blocked in a detector call", t, func() {
		s := scheduler.New(scheduler.WithTickTimeout(5 * time.Second))

		entered := make(chan struct{})
		release := make(chan struct{})
		var tickErr atomic.Value

		So(s.Add(scheduler.Task{Name: "faces", Interval: time.Hour, Run: func(ctx context.Context, _ scheduler.Tick) error {
			close(entered)
			<-release
			tickErr.Store(ctx.Err() == nil)
			return nil
		}}), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		<-entered
		cancel()

		Convey("Run waits for the tick and the tick context stays live", func() {
			returnedEarly := false
			select {
			case <-done:
				returnedEarly = true
			case <-time.After(50 * time.Millisecond):
			}
			close(release)
			So(returnedEarly, ShouldBeFalse)
			if !returnedEarly {
				So(<-done, ShouldBeNil)
			}
			So(tickErr.Load(), ShouldEqual, true)
		})
	})
}

func TestTickTimeout(t *testing.T) {
	Convey("Given a detector that never answers", t, func() {
		s := scheduler.New(scheduler.WithTickTimeout(20 * time.Millisecond))

		errs := make(chan error, 8)
		So(s.Add(scheduler.Task{Name: "objects", Interval: 10 * time.Millisecond, Run: func(ctx context.Context, _ scheduler.Tick) error {
			<-ctx.Done()
			select {
			case errs <- ctx.Err():
			default:
			}
			return ctx.Err()
		}}), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		Convey("Each tick is cut off and the loop keeps going", func() {
			So(errors.Is(<-errs, context.DeadlineExceeded), ShouldBeTrue)
			So(errors.Is(<-errs, context.DeadlineExceeded), ShouldBeTrue)
			cancel()
			So(<-done, ShouldBeNil)
		})
	})
}

func TestHaltAndErrors(t *testing.T) {
	Convey("Given a task that fails twice then halts", t, func() {
		mock := clock.NewMock()
		s := scheduler.New(scheduler.WithClock(mock))

		var runs atomic.Int64
		So(s.Add(scheduler.Task{Name: "faces", Interval: 100 * time.Millisecond, Run: func(context.Context, scheduler.Tick) error {
			switch runs.Add(1) {
			case 1, 2:
				return errors.New("detector unavailable")
			default:
				return scheduler.ErrHalt
			}
		}}), ShouldBeNil)

		done := make(chan error, 1)
		go func() { done <- s.Run(context.Background()) }()

		Convey("Errors are absorbed and the halt ends Run", func() {
			ok := advance(mock, 100*time.Millisecond, func() bool { return runs.Load() >= 3 })
			So(ok, ShouldBeTrue)
			So(<-done, ShouldBeNil)
			So(runs.Load(), ShouldEqual, 3)
		})
	})
}
