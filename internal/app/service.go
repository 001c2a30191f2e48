// Package service provides the session service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/adapters/kafka"
	eventqueue "github.com/okian/proctor/internal/adapters/mq/queue"
	workerpool "github.com/okian/proctor/internal/adapters/mq/worker"
	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/adapters/ws"
	"github.com/okian/proctor/internal/config"
	"github.com/okian/proctor/internal/domain/aggregator"
	"github.com/okian/proctor/internal/domain/dedupe"
	"github.com/okian/proctor/internal/domain/gaze"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/policy"
	"github.com/okian/proctor/internal/domain/session"
	"github.com/okian/proctor/internal/domain/types"
	"github.com/okian/proctor/internal/scheduler"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const (
	sourceFaces   = "faces"
	sourceObjects = "objects"
)

// PushResult describes what happened to one pushed detector result.
type PushResult struct {
	// Skipped counts malformed records dropped while decoding.
	Skipped int
	// Dropped is true when an older pending result was evicted.
	Dropped bool
}

// liveSession is a running session with its detector inputs and scheduler.
type liveSession struct {
	sess    *session.Session
	faces   *detect.Mailbox[model.FaceTick]
	objects *detect.Mailbox[model.ObjectTick]
	cancel  context.CancelFunc
	done    chan struct{}
}

// Service implements the API dependencies for proctoring sessions.
type Service struct {
	mu sync.RWMutex

	cfg   config.Config
	clock clock.Clock

	// Core components
	sessions   map[string]*liveSession
	archive    repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	hub        *ws.Hub
	publisher  *kafka.Publisher
	extraSinks []workerpool.Sink

	// State
	started bool
	baseCtx context.Context //nolint:containedctx // parent of every session scheduler
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:      *config.New(),
		clock:    clock.New(),
		sessions: make(map[string]*liveSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the dispatch pipeline and restores the archive.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting proctoring service...")

	if s.archive == nil {
		s.archive = repository.NewMemoryStore(repository.WithArchiveDir(s.cfg.ArchiveDir))
	}
	if r, ok := s.archive.(interface {
		Restore(ctx context.Context) (int, error)
	}); ok {
		n, err := r.Restore(ctx)
		if err != nil {
			s.logger.Warn(ctx, "archive restored with errors", logger.Error(err))
		}
		if n > 0 {
			s.logger.Info(ctx, "archive restored", logger.Int("sessions", n))
		}
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.EventQueueSize))
	s.hub = ws.NewHub()

	sinks := []workerpool.Sink{s.hub}
	if len(s.cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewPublisher(s.cfg.KafkaBrokers, s.cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka sink: %w", err)
		}
		s.publisher = p
		sinks = append(sinks, p)
		s.logger.Info(ctx, "kafka sink enabled", logger.String("topic", s.cfg.KafkaTopic))
	}
	sinks = append(sinks, s.extraSinks...)

	// Sessions and workers outlive the start context; Stop ends them.
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	s.workerPool = workerpool.NewPool(s.cfg.DispatchWorkers, s.eventQueue, sinks)
	s.workerPool.Start(s.baseCtx)

	s.started = true
	s.logger.Info(ctx, "proctoring service started",
		logger.Int("workers", s.cfg.DispatchWorkers),
		logger.Int("queueSize", s.cfg.EventQueueSize),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.Int("sinks", len(sinks)),
	)
	return nil
}

// Stop stops every live session, drains the dispatch queue and closes the sinks.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping proctoring service...", logger.Int("liveSessions", len(ids)))

	var errs error
	for _, id := range ids {
		if _, err := s.StopSession(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = multierr.Append(errs, fmt.Errorf("stop session %s: %w", id, err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errs = multierr.Append(errs, s.workerPool.Shutdown(ctx))
	errs = multierr.Append(errs, s.hub.Close())
	if s.publisher != nil {
		errs = multierr.Append(errs, s.publisher.Close())
	}
	s.cancel()

	s.started = false
	s.logger.Info(context.Background(), "proctoring service stopped")
	return errs
}

// StartSession creates a session and starts its face and object tasks.
// frameHeight <= 0 uses the configured default.
func (s *Service) StartSession(ctx context.Context, candidate string, frameHeight float64) (types.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return types.Summary{}, ErrNotStarted
	}
	if len(s.sessions) >= s.cfg.MaxSessions {
		return types.Summary{}, ErrTooManySessions
	}
	if frameHeight <= 0 {
		frameHeight = s.cfg.DefaultFrameHeight
	}

	id := "sid_" + uuid.NewString()
	sess, err := session.New(id, candidate,
		session.WithClock(s.clock),
		session.WithFrameHeight(frameHeight),
		session.WithGazeClassifier(gaze.NewClassifier(
			gaze.WithYawRange(s.cfg.YawMinRatio, s.cfg.YawMaxRatio),
			gaze.WithPitchThreshold(s.cfg.PitchThreshold),
		)),
		session.WithPolicyClassifier(policy.NewClassifier(
			policy.WithConfidenceFloor(s.cfg.ObjectConfidenceFloor),
		)),
		session.WithAggregatorOptions(
			aggregator.WithTick(s.cfg.FaceInterval()),
			aggregator.WithLookAwayThreshold(s.cfg.LookAwayThreshold()),
			aggregator.WithNoFaceThreshold(s.cfg.NoFaceThreshold()),
		),
	)
	if err != nil {
		return types.Summary{}, err
	}

	l := &liveSession{
		sess:    sess,
		faces:   detect.NewMailbox[model.FaceTick](sourceFaces, s.cfg.MailboxSize, detect.WithMailboxClock(s.clock)),
		objects: detect.NewMailbox[model.ObjectTick](sourceObjects, s.cfg.MailboxSize, detect.WithMailboxClock(s.clock)),
		done:    make(chan struct{}),
	}

	sched := scheduler.New(
		scheduler.WithClock(s.clock),
		scheduler.WithTickTimeout(s.cfg.DetectorTimeout()),
		scheduler.WithLogger(s.logger.Named("scheduler")),
	)
	if err := multierr.Combine(
		sched.Add(scheduler.Task{Name: sourceFaces, Interval: s.cfg.FaceInterval(), Run: s.faceTask(l)}),
		sched.Add(scheduler.Task{Name: sourceObjects, Interval: s.cfg.ObjectInterval(), Run: s.objectTask(l)}),
	); err != nil {
		return types.Summary{}, err
	}

	var sctx context.Context
	sctx, l.cancel = context.WithCancel(s.baseCtx)
	go func() {
		defer close(l.done)
		if err := sched.Run(sctx); err != nil {
			s.logger.Error(sctx, "session scheduler exited", logger.String("session_id", id), logger.Error(err))
		}
	}()

	s.sessions[id] = l
	metrics.RecordSessionStarted()
	metrics.UpdateSessionsActive(len(s.sessions))
	s.logger.Info(ctx, "session started",
		logger.String("session_id", id),
		logger.String("candidate", sess.Candidate()),
		logger.Float64("frameHeight", frameHeight),
	)
	return sess.Summary(), nil
}

// StopSession stops the scheduler, applies results still pending in the
// mailboxes, then freezes and archives the session. Stopping an archived
// session returns its summary again.
func (s *Service) StopSession(ctx context.Context, id string) (types.Summary, error) {
	s.mu.Lock()
	l, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		metrics.UpdateSessionsActive(len(s.sessions))
	}
	s.mu.Unlock()

	if !ok {
		e, err := s.archived(ctx, id)
		if err != nil {
			return types.Summary{}, err
		}
		return e.Summary(), nil
	}

	l.faces.Close()
	l.objects.Close()
	l.cancel()
	select {
	case <-l.done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "session scheduler did not stop in time", logger.String("session_id", id))
	}

	drained := s.drain(ctx, l)
	l.sess.Stop()

	sum := l.sess.Summary()
	entry := repository.Entry{Report: l.sess.Report()}
	if sum.EndedAt != nil {
		entry.EndedAt = *sum.EndedAt
	}
	if err := s.archive.Save(ctx, entry); err != nil {
		s.logger.Error(ctx, "archive session failed", logger.String("session_id", id), logger.Error(err))
		return sum, fmt.Errorf("archive session %s: %w", id, err)
	}

	metrics.RecordSessionStopped(sum.IntegrityScore)
	s.logger.Info(ctx, "session stopped",
		logger.String("session_id", id),
		logger.Int("score", sum.IntegrityScore),
		logger.Int("events", sum.EventCount),
		logger.Int("drained", drained),
	)
	return sum, nil
}

// drain applies the results left in the closed mailboxes, faces first.
func (s *Service) drain(ctx context.Context, l *liveSession) int {
	ctx = context.WithoutCancel(ctx)
	n := 0
	for _, run := range []scheduler.TaskFunc{s.faceTask(l), s.objectTask(l)} {
		for {
			err := run(ctx, scheduler.Tick{})
			if errors.Is(err, scheduler.ErrHalt) {
				break
			}
			n++
		}
	}
	return n
}

// PushFaces queues one face detector result for the session's next fast tick.
func (s *Service) PushFaces(ctx context.Context, id string, frameHeight float64, faces []detect.FaceWire) (PushResult, error) {
	l, err := s.lookupLive(ctx, id)
	if err != nil {
		return PushResult{}, err
	}
	records, skipped := detect.DecodeFaces(faces)
	dropped, err := l.faces.Push(model.FaceTick{Records: records, FrameHeight: frameHeight, Skipped: skipped})
	if err != nil {
		return PushResult{}, s.pushErr(err)
	}
	metrics.RecordRecordsSkipped(sourceFaces, skipped)
	return PushResult{Skipped: skipped, Dropped: dropped}, nil
}

// PushObjects queues one object detector result for the session's next slow tick.
func (s *Service) PushObjects(ctx context.Context, id string, objects []detect.ObjectWire) (PushResult, error) {
	l, err := s.lookupLive(ctx, id)
	if err != nil {
		return PushResult{}, err
	}
	records, skipped := detect.DecodeObjects(objects)
	dropped, err := l.objects.Push(model.ObjectTick{Records: records})
	if err != nil {
		return PushResult{}, s.pushErr(err)
	}
	metrics.RecordRecordsSkipped(sourceObjects, skipped)
	return PushResult{Skipped: skipped, Dropped: dropped}, nil
}

func (s *Service) pushErr(err error) error {
	if errors.Is(err, detect.ErrClosed) {
		return ErrSessionStopped
	}
	return err
}

// Session returns the summary of a live or archived session.
func (s *Service) Session(ctx context.Context, id string) (types.Summary, error) {
	if l, err := s.lookupLive(ctx, id); err == nil {
		return l.sess.Summary(), nil
	}
	e, err := s.archived(ctx, id)
	if err != nil {
		return types.Summary{}, err
	}
	return e.Summary(), nil
}

// Events returns the event log of a live or archived session.
func (s *Service) Events(ctx context.Context, id string) ([]model.Event, error) {
	if l, err := s.lookupLive(ctx, id); err == nil {
		return l.sess.Events(), nil
	}
	e, err := s.archived(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Report.Events, nil
}

// Report returns the report of a live or archived session.
func (s *Service) Report(ctx context.Context, id string) (types.Report, error) {
	if l, err := s.lookupLive(ctx, id); err == nil {
		return l.sess.Report(), nil
	}
	e, err := s.archived(ctx, id)
	if err != nil {
		return types.Report{}, err
	}
	return e.Report, nil
}

// ListSessions returns archived summaries, lowest integrity score first.
// Limits above the configured maximum are clamped.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]types.Summary, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	entries, err := s.archive.List(ctx, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidLimit) {
			return nil, ErrInvalidLimit
		}
		return nil, err
	}
	out := make([]types.Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Summary())
	}
	return out, nil
}

// ActiveSessions returns the summaries of live sessions.
func (s *Service) ActiveSessions(_ context.Context) []types.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Summary, 0, len(s.sessions))
	for _, l := range s.sessions {
		out = append(out, l.sess.Summary())
	}
	return out
}

// Stream subscribes the websocket request to a live session's events and
// blocks until the client disconnects.
func (s *Service) Stream(w http.ResponseWriter, r *http.Request, id string) error {
	if _, err := s.lookupLive(r.Context(), id); err != nil {
		return err
	}
	return s.hub.Serve(w, r, id)
}

// SeenAndRecord atomically checks if a tick id was seen and records it if not.
// Before Start nothing is recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordTickDuplicate()
	}
	return seen
}

// Unrecord removes a tick id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":          s.started,
		"workerCount":      s.cfg.DispatchWorkers,
		"queueSize":        s.cfg.EventQueueSize,
		"dedupeSize":       s.cfg.DedupeSize,
		"maxSessions":      s.cfg.MaxSessions,
		"faceIntervalMs":   s.cfg.FaceIntervalMS,
		"objectIntervalMs": s.cfg.ObjectIntervalMS,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["activeSessions"] = len(s.sessions)
		stats["archivedSessions"] = s.archive.Count(ctx)
		stats["streamClients"] = s.hub.ClientCount()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["kafkaEnabled"] = s.publisher != nil

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateSessionsActive(len(s.sessions))
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// lookupLive returns a running session. A stopped session yields ErrSessionStopped.
func (s *Service) lookupLive(ctx context.Context, id string) (*liveSession, error) {
	s.mu.RLock()
	l, ok := s.sessions[id]
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}
	if ok {
		return l, nil
	}
	if _, err := s.archived(ctx, id); err == nil {
		return nil, ErrSessionStopped
	}
	return nil, ErrNotFound
}

func (s *Service) archived(ctx context.Context, id string) (repository.Entry, error) {
	if err := s.ensureStarted(); err != nil {
		return repository.Entry{}, err
	}
	e, err := s.archive.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Entry{}, ErrNotFound
	}
	return e, err
}
