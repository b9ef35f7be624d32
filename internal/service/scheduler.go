package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqrlplanner/timetable-sync/internal/models"
	"github.com/sqrlplanner/timetable-sync/pkg/jobs"
)

// RunLock serializes sync runs across worker processes.
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// SessionScoped is implemented by sources that can be pinned to an explicit
// session code for a single run.
type SessionScoped interface {
	WithSession(code string) Source
}

// ReportArchiver persists a completed run report as an artifact.
type ReportArchiver interface {
	Archive(report *models.SyncReport) (string, error)
}

// SchedulerConfig tunes the sync scheduler.
type SchedulerConfig struct {
	// Interval between scheduled runs; zero disables the cadence and leaves
	// only on-demand triggers.
	Interval time.Duration
	LockTTL  time.Duration
	Archiver ReportArchiver
	Logger   *zap.Logger
}

// Scheduler triggers sync runs on a fixed cadence or on demand. All runs
// funnel through a single-worker job queue, so a run that is still going
// when the next trigger fires is never overlapped by it.
type Scheduler struct {
	store    SyncStore
	sources  []Source
	lock     RunLock
	lockTTL  time.Duration
	archiver ReportArchiver

	interval time.Duration
	queue    *jobs.Queue
	logger   *zap.Logger

	mu          sync.RWMutex
	lastReports map[string]*models.SyncReport

	cancel context.CancelFunc
	done   chan struct{}
}

type runPayload struct {
	session string
}

// NewScheduler constructs a Scheduler over the given sources.
func NewScheduler(store SyncStore, sources []Source, lock RunLock, cfg SchedulerConfig) *Scheduler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Scheduler{
		store:       store,
		sources:     sources,
		lock:        lock,
		lockTTL:     cfg.LockTTL,
		archiver:    cfg.Archiver,
		interval:    cfg.Interval,
		logger:      cfg.Logger,
		lastReports: make(map[string]*models.SyncReport),
		done:        make(chan struct{}),
	}

	s.queue = jobs.NewQueue("sync", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: 1,
		Logger:     cfg.Logger,
	})
	return s
}

// Start begins the queue worker and, when an interval is configured, the
// cadence loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)

	if s.interval <= 0 {
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Trigger(""); err != nil {
					s.logger.Sugar().Errorw("failed to enqueue scheduled sync", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the cadence loop and drains the queue worker. Stopping a
// scheduler that was never started is a no-op.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.queue.Stop()
}

// Trigger enqueues an on-demand run, optionally pinned to a session code,
// and returns the job id.
func (s *Scheduler) Trigger(session string) (string, error) {
	id := uuid.NewString()
	err := s.queue.Enqueue(jobs.Job{
		ID:      id,
		Type:    "sync",
		Payload: runPayload{session: session},
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// LastReport returns the most recent report for the named source.
func (s *Scheduler) LastReport(name string) *models.SyncReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReports[name]
}

func (s *Scheduler) handle(ctx context.Context, job jobs.Job) error {
	payload, _ := job.Payload.(runPayload)
	return s.runAll(ctx, payload.session)
}

// runAll executes every source once under the cross-process run lock. A
// run already in progress elsewhere is skipped, not queued behind.
func (s *Scheduler) runAll(ctx context.Context, session string) error {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, s.lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			s.logger.Sugar().Warnw("sync run skipped, lock held by another worker")
			return nil
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Sugar().Errorw("failed to release run lock", "error", err)
			}
		}()
	}

	for _, source := range s.sources {
		run := source
		if session != "" {
			if scoped, ok := source.(SessionScoped); ok {
				run = scoped.WithSession(session)
			}
		}

		start := time.Now()
		report, err := run.Sync(ctx, s.store)
		if err != nil {
			s.logger.Sugar().Errorw("source sync failed",
				"source", source.Name(), "elapsed", time.Since(start), "error", err)
			continue
		}

		s.mu.Lock()
		s.lastReports[source.Name()] = report
		s.mu.Unlock()

		if s.archiver != nil {
			if name, err := s.archiver.Archive(report); err != nil {
				s.logger.Sugar().Warnw("failed to archive run report", "source", source.Name(), "error", err)
			} else {
				s.logger.Sugar().Infow("archived run report", "source", source.Name(), "artifact", name)
			}
		}

		s.logger.Sugar().Infow("source sync succeeded",
			"source", source.Name(),
			"run_id", report.RunID,
			"courses_synced", report.CoursesSynced,
			"course_failures", len(report.CourseFailures),
			"elapsed", time.Since(start),
		)
	}
	return nil
}
