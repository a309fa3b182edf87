package cleanup

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/retention"
	"mercator-hq/callisto/pkg/storage"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// ErrCleanupInProgress indicates a run is already in flight.
var ErrCleanupInProgress = errors.New("cleanup already in progress")

// RunnerConfig holds cleanup execution settings.
type RunnerConfig struct {
	// BatchSize is the number of records per batch. Must be positive.
	BatchSize int

	// Parallel enables concurrent batch processing.
	Parallel bool

	// MaxConcurrentBatches bounds parallelism when Parallel is set.
	MaxConcurrentBatches int

	// Timeout bounds a whole run. Zero disables the bound.
	Timeout time.Duration

	// ArchivePath is the directory archived records are exported to.
	// Empty disables the file export; records are still flagged archived.
	ArchivePath string
}

// Runner executes cleanup runs against the retention catalog.
type Runner struct {
	catalog *retention.Catalog
	records storage.RetentionStore
	tasks   storage.TaskStore
	trail   *audit.Trail
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     RunnerConfig

	running atomic.Bool

	// now is swappable in tests.
	now func() time.Time
}

// NewRunner creates a cleanup runner. metrics may be nil.
func NewRunner(catalog *retention.Catalog, records storage.RetentionStore, tasks storage.TaskStore, trail *audit.Trail, m *metrics.Metrics, cfg RunnerConfig) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxConcurrentBatches <= 0 {
		cfg.MaxConcurrentBatches = 4
	}
	return &Runner{
		catalog: catalog,
		records: records,
		tasks:   tasks,
		trail:   trail,
		metrics: m,
		logger:  slog.Default().With("component", "cleanup"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// runState accumulates outcomes across batches.
type runState struct {
	mu        sync.Mutex
	deleted   int
	archived  int
	reclaimed int64
	errs      []string

	// processed guards against purging a record twice when it appears
	// both as an expired record and as a child of one.
	processed map[string]bool
}

func (s *runState) alreadyProcessed(dataID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[dataID] {
		return true
	}
	s.processed[dataID] = true
	return false
}

func (s *runState) recordOutcome(archived bool, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if archived {
		s.archived++
	} else {
		s.deleted++
	}
	s.reclaimed += bytes
}

func (s *runState) recordError(dataID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, fmt.Sprintf("record %s: %v", dataID, err))
}

// Run executes one cleanup pass. policyID restricts the pass to a single
// policy; empty covers every auto-cleanup policy. Returns the completed
// task record. Only one run may be in flight.
func (r *Runner) Run(ctx context.Context, policyID string) (*storage.CleanupTask, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrCleanupInProgress
	}
	defer r.running.Store(false)

	task := &storage.CleanupTask{
		TaskID:      uuid.NewString(),
		PolicyID:    policyID,
		Status:      storage.TaskScheduled,
		ScheduledAt: r.now(),
	}
	if err := r.tasks.PutTask(ctx, task); err != nil {
		return nil, fmt.Errorf("persisting task: %w", err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	task.Status = storage.TaskRunning
	task.StartedAt = r.now()
	if err := r.tasks.PutTask(ctx, task); err != nil {
		return nil, fmt.Errorf("persisting task: %w", err)
	}
	start := time.Now()

	expired, err := r.discover(runCtx, policyID)
	if err != nil {
		task.Status = storage.TaskAborted
		task.Errors = []string{err.Error()}
		task.CompletedAt = r.now()
		if perr := r.tasks.PutTask(ctx, task); perr != nil {
			r.logger.Error("failed to persist aborted task", "task_id", task.TaskID, "error", perr)
		}
		return task, err
	}

	state := &runState{processed: make(map[string]bool)}
	batches := partition(expired, r.cfg.BatchSize)

	if r.cfg.Parallel && len(batches) > 1 {
		r.runParallel(runCtx, batches, state)
	} else {
		for _, batch := range batches {
			if runCtx.Err() != nil {
				break
			}
			r.runBatch(runCtx, batch, state)
		}
	}

	elapsed := time.Since(start)
	task.CompletedAt = r.now()
	task.DurationMs = elapsed.Milliseconds()
	task.RecordsDeleted = state.deleted
	task.RecordsArchived = state.archived
	task.ReclaimedBytes = state.reclaimed
	task.Errors = state.errs

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		task.Status = storage.TaskTimedOut
		task.Warnings = append(task.Warnings, fmt.Sprintf("run exceeded %s, %d records left unprocessed", r.cfg.Timeout, remaining(expired, state)))
	case runCtx.Err() != nil:
		task.Status = storage.TaskAborted
		task.Warnings = append(task.Warnings, fmt.Sprintf("run cancelled, %d records left unprocessed", remaining(expired, state)))
	default:
		task.Status = storage.TaskCompleted
	}

	if err := r.tasks.PutTask(ctx, task); err != nil {
		return task, fmt.Errorf("persisting task result: %w", err)
	}

	r.trail.Record(ctx, audit.Event{
		Action:  audit.ActionCleanupCompleted,
		Actor:   "system",
		Subject: task.TaskID,
		Detail: fmt.Sprintf("status=%s deleted=%d archived=%d failed=%d reclaimed=%d",
			task.Status, task.RecordsDeleted, task.RecordsArchived, len(task.Errors), task.ReclaimedBytes),
	})
	if r.metrics != nil {
		r.metrics.RecordCleanupRun(task.Status, elapsed.Seconds())
		r.metrics.RecordCleanupRecords("deleted", task.RecordsDeleted)
		r.metrics.RecordCleanupRecords("archived", task.RecordsArchived)
		r.metrics.RecordCleanupRecords("failed", len(task.Errors))
	}
	r.logger.Info("cleanup run finished",
		"task_id", task.TaskID,
		"status", task.Status,
		"deleted", task.RecordsDeleted,
		"archived", task.RecordsArchived,
		"errors", len(task.Errors),
		"duration", elapsed,
	)
	return task, nil
}

// discover lists records due for cleanup, restricted to auto-cleanup
// policies when no explicit policy is given.
func (r *Runner) discover(ctx context.Context, policyID string) ([]*storage.RetentionRecord, error) {
	if policyID != "" {
		if _, err := r.catalog.Policy(ctx, policyID); err != nil {
			return nil, err
		}
		return r.catalog.FindExpired(ctx, policyID, "")
	}

	policies, err := r.catalog.Policies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	var out []*storage.RetentionRecord
	for _, p := range policies {
		if !p.AutoCleanup {
			continue
		}
		recs, err := r.catalog.FindExpired(ctx, p.PolicyID, "")
		if err != nil {
			return nil, fmt.Errorf("querying policy %s: %w", p.PolicyID, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func partition(recs []*storage.RetentionRecord, size int) [][]*storage.RetentionRecord {
	var batches [][]*storage.RetentionRecord
	for len(recs) > size {
		batches = append(batches, recs[:size])
		recs = recs[size:]
	}
	if len(recs) > 0 {
		batches = append(batches, recs)
	}
	return batches
}

// remaining counts discovered candidates that were never attempted. The
// processed set also holds children purged recursively, so it cannot be
// compared to the candidate list by length alone.
func remaining(expired []*storage.RetentionRecord, state *runState) int {
	state.mu.Lock()
	defer state.mu.Unlock()
	n := 0
	for _, rec := range expired {
		if !state.processed[rec.DataID] {
			n++
		}
	}
	return n
}

func (r *Runner) runParallel(ctx context.Context, batches [][]*storage.RetentionRecord, state *runState) {
	sem := make(chan struct{}, r.cfg.MaxConcurrentBatches)
	var wg sync.WaitGroup
	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(batch []*storage.RetentionRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			r.runBatch(ctx, batch, state)
		}(batch)
	}
	wg.Wait()
}

// runBatch purges one batch. A record failure is isolated to that record.
func (r *Runner) runBatch(ctx context.Context, batch []*storage.RetentionRecord, state *runState) {
	for _, rec := range batch {
		if ctx.Err() != nil {
			return
		}
		if state.alreadyProcessed(rec.DataID) {
			continue
		}
		if err := r.purge(ctx, rec, state); err != nil {
			state.recordError(rec.DataID, err)
		}
	}
}

// purge removes one record, children first.
func (r *Runner) purge(ctx context.Context, rec *storage.RetentionRecord, state *runState) error {
	children, err := r.catalog.Children(ctx, rec.DataID)
	if err != nil {
		return fmt.Errorf("listing children: %w", err)
	}
	for _, child := range children {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if state.alreadyProcessed(child.DataID) {
			continue
		}
		if err := r.purge(ctx, child, state); err != nil {
			return fmt.Errorf("child %s: %w", child.DataID, err)
		}
	}

	policy, err := r.catalog.Policy(ctx, rec.PolicyID)
	if err != nil {
		return err
	}

	// Secure deletion wins when a policy requests both behaviors: content
	// that must be irrecoverable is never exported to an archive.
	if policy.SecureDelete {
		if err := r.secureDelete(ctx, rec); err != nil {
			return err
		}
	} else if policy.ArchiveBeforeDelete {
		if err := r.archive(rec); err != nil {
			return fmt.Errorf("archiving: %w", err)
		}
		if err := r.records.MarkRecordArchived(ctx, rec.DataID); err != nil {
			return fmt.Errorf("flagging archived: %w", err)
		}
		state.recordOutcome(true, 0)
		return nil
	}

	if _, err := r.records.DeleteRecord(ctx, rec.DataID); err != nil {
		return fmt.Errorf("deleting: %w", err)
	}
	state.recordOutcome(false, rec.SizeBytes)
	return nil
}

// secureDelete overwrites the record's content hash with data derived from
// a fresh random pattern before the row is removed.
func (r *Runner) secureDelete(ctx context.Context, rec *storage.RetentionRecord) error {
	pattern := make([]byte, 32)
	if _, err := rand.Read(pattern); err != nil {
		return fmt.Errorf("generating wipe pattern: %w", err)
	}
	sum := sha256.Sum256(pattern)

	wiped := *rec
	wiped.ContentHash = hex.EncodeToString(sum[:])
	if err := r.records.PutRecord(ctx, &wiped); err != nil {
		return fmt.Errorf("overwriting record: %w", err)
	}
	return nil
}

// archivedRecord is the exported archive document.
type archivedRecord struct {
	DataID       string    `json:"dataId"`
	DataType     string    `json:"dataType"`
	ContentHash  string    `json:"contentHash"`
	PolicyID     string    `json:"policyId"`
	SizeBytes    int64     `json:"sizeBytes"`
	RegisteredAt time.Time `json:"registeredAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ArchivedAt   time.Time `json:"archivedAt"`
}

func (r *Runner) archive(rec *storage.RetentionRecord) error {
	if r.cfg.ArchivePath == "" {
		return nil
	}
	if err := os.MkdirAll(r.cfg.ArchivePath, 0o750); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	doc := archivedRecord{
		DataID:       rec.DataID,
		DataType:     rec.DataType,
		ContentHash:  rec.ContentHash,
		PolicyID:     rec.PolicyID,
		SizeBytes:    rec.SizeBytes,
		RegisteredAt: rec.RegisteredAt,
		ExpiresAt:    rec.ExpiresAt,
		ArchivedAt:   r.now(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding archive document: %w", err)
	}
	path := filepath.Join(r.cfg.ArchivePath, rec.DataID+".json")
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing archive file: %w", err)
	}
	return nil
}

// VerifyReport is the result of checking a finished run.
type VerifyReport struct {
	TaskID         string
	Status         string
	IsComplete     bool
	RemainingCount int64
}

// Verify checks whether a finished run's policy scope still holds expired
// records. Completeness is about the data, not the task: an aborted run
// whose remainder a later pass purged verifies complete.
func (r *Runner) Verify(ctx context.Context, taskID string) (*VerifyReport, error) {
	task, err := r.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("loading task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("task %q not found", taskID)
	}

	cutoff := r.now()
	count, err := r.records.CountRecords(ctx, &storage.RecordQuery{
		PolicyID:      task.PolicyID,
		ExpiresBefore: &cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("counting remaining records: %w", err)
	}
	return &VerifyReport{
		TaskID:         task.TaskID,
		Status:         task.Status,
		IsComplete:     count == 0,
		RemainingCount: count,
	}, nil
}

// Task returns a persisted task by ID, or nil when unknown.
func (r *Runner) Task(ctx context.Context, taskID string) (*storage.CleanupTask, error) {
	return r.tasks.GetTask(ctx, taskID)
}
