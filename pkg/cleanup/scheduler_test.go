package cleanup

import (
	"context"
	"testing"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/retention"
	"mercator-hq/callisto/pkg/storage"
)

func newTestScheduler(t *testing.T, schedule string) *Scheduler {
	t.Helper()
	backend := storage.NewMemoryBackend()
	trail := audit.NewTrail(backend)
	catalog := retention.NewCatalog(backend, trail)
	runner := NewRunner(catalog, backend, backend, trail, nil, RunnerConfig{BatchSize: 10})
	return NewScheduler(runner, nil, schedule)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(t, "0 3 * * *")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("scheduler not running after Start")
	}
	if s.NextRun() == nil {
		t.Error("no next run scheduled")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}

func TestScheduler_EmptySchedule(t *testing.T) {
	s := newTestScheduler(t, "")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler running with empty schedule")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := newTestScheduler(t, "not a cron expression")
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
