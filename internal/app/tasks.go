package service

import (
	"context"
	"errors"

	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/session"
	"github.com/okian/proctor/internal/scheduler"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

// faceTask is the fast-cadence task of one session.
func (s *Service) faceTask(l *liveSession) scheduler.TaskFunc {
	return func(ctx context.Context, _ scheduler.Tick) error {
		tick, err := l.faces.Next(ctx)
		if err != nil {
			return s.noResult(sourceFaces, err)
		}
		out, err := l.sess.ObserveFaces(ctx, tick)
		return s.publish(ctx, l, sourceFaces, out, err)
	}
}

// objectTask is the slow-cadence task of one session.
func (s *Service) objectTask(l *liveSession) scheduler.TaskFunc {
	return func(ctx context.Context, _ scheduler.Tick) error {
		tick, err := l.objects.Next(ctx)
		if err != nil {
			return s.noResult(sourceObjects, err)
		}
		out, err := l.sess.ObserveObjects(ctx, tick)
		return s.publish(ctx, l, sourceObjects, out, err)
	}
}

// noResult maps a mailbox error to the task outcome. An empty mailbox is a
// no-op tick; a closed one ends the task.
func (s *Service) noResult(source string, err error) error {
	switch {
	case errors.Is(err, detect.ErrNoResult):
		metrics.RecordTick(source, "no_result")
		return nil
	case errors.Is(err, detect.ErrClosed):
		return scheduler.ErrHalt
	default:
		metrics.RecordTick(source, "error")
		return err
	}
}

// publish records tick metrics and hands the emitted events to the sinks.
func (s *Service) publish(ctx context.Context, l *liveSession, source string, out session.Outcome, err error) error { //nolint:gocritic // hugeParam: read-only
	if errors.Is(err, session.ErrStopped) {
		return scheduler.ErrHalt
	}
	if err != nil {
		metrics.RecordTick(source, "error")
		return err
	}
	metrics.RecordTick(source, "ok")
	if out.Skipped > 0 {
		metrics.RecordRecordsSkipped(source, out.Skipped)
	}

	for _, e := range out.Events {
		metrics.RecordEventEmitted(string(e.Type))
		s.logger.Debug(ctx, "event emitted",
			logger.String("session_id", l.sess.ID()),
			logger.String("type", string(e.Type)),
			logger.Int("seq", e.Seq),
		)
		se := model.SessionEvent{
			SessionID: l.sess.ID(),
			Event:     e,
			Counters:  out.Counters,
			Score:     out.Score,
		}
		if !s.eventQueue.Enqueue(ctx, se) {
			s.logger.Warn(ctx, "event queue full, sinks will miss event",
				logger.String("session_id", se.SessionID),
				logger.Int("seq", e.Seq),
			)
		}
	}
	return nil
}
