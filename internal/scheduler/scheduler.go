// Package scheduler runs periodic background jobs such as fanout redelivery.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedline/internal/observability"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// JobTimeout bounds a single job run.
const JobTimeout = 5 * time.Minute

// Scheduler wraps cron with named jobs and structured logging.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	jobs     map[string]cron.EntryID
	timezone *time.Location
}

// New creates a scheduler evaluating schedules in timezone. Overlapping
// runs of the same job are skipped.
func New(timezone string) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
	}, nil
}

// AddJob registers job under name. schedule accepts standard cron
// expressions and descriptors such as "@every 1m".
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		_ = s.RunNow(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()

	observability.GlobalLogger.Info("scheduled job added",
		slog.String("job", name),
		slog.String("schedule", schedule),
	)
	return nil
}

// RemoveJob unschedules name if present.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}
}

// Jobs returns the names of scheduled jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// RunNow executes job immediately in the caller's goroutine.
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), JobTimeout)
	defer cancel()
	ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())

	fields := map[string]interface{}{"job": name}
	observability.LogAsyncOperationStart(ctx, "scheduled_job", fields)
	start := time.Now()

	if err := job(ctx); err != nil {
		observability.LogAsyncOperationError(ctx, "scheduled_job", err, fields)
		return err
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()
	observability.LogAsyncOperationEnd(ctx, "scheduled_job", fields)
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
