package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/callisto/pkg/session"
)

// Scheduler drives recurring cleanup runs and the expired-session sweep
// from a cron expression.
type Scheduler struct {
	runner   *Runner
	sessions *session.Manager
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a cleanup scheduler. sessions may be nil when only
// record cleanup is wanted.
func NewScheduler(runner *Runner, sessions *session.Manager, schedule string) *Scheduler {
	return &Scheduler{
		runner:   runner,
		sessions: sessions,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "cleanup.scheduler"),
	}
}

// Start begins scheduled cleanup. An empty schedule disables it.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "*/30 * * * *" - Every 30 minutes
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("cleanup schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runCycle(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("cleanup scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// runCycle sweeps expired sessions, then runs record cleanup across all
// auto-cleanup policies.
func (s *Scheduler) runCycle(ctx context.Context) {
	if s.sessions != nil {
		removed, err := s.sessions.CleanupExpired(ctx)
		if err != nil {
			s.logger.Error("scheduled session sweep failed", "error", err)
		} else if removed > 0 {
			s.logger.Info("scheduled session sweep completed", "removed", removed)
		}
	}

	task, err := s.runner.Run(ctx, "")
	if err != nil {
		if errors.Is(err, ErrCleanupInProgress) {
			s.logger.Warn("skipping scheduled cleanup, previous run still in flight")
			return
		}
		s.logger.Error("scheduled cleanup failed", "error", err)
		return
	}
	purged := task.RecordsDeleted + task.RecordsArchived
	if purged > 0 || len(task.Errors) > 0 {
		s.logger.Info("scheduled cleanup completed",
			"task_id", task.TaskID,
			"status", task.Status,
			"deleted", task.RecordsDeleted,
			"archived", task.RecordsArchived,
			"errors", len(task.Errors),
		)
	} else {
		s.logger.Debug("scheduled cleanup completed, nothing to purge")
	}
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("cleanup scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled cleanup time, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
