package storage

import (
	"context"
	"time"
)

// Session is the persisted expiration metadata for a single session.
// Security level and classification are stored as their string names; the
// session package owns parsing and policy lookups.
type Session struct {
	// SessionID is the opaque unique session identifier.
	SessionID string

	// OwnerID is the user that created the session.
	OwnerID string

	// SecurityLevel is the policy tier name ("standard", "enhanced", "maximum").
	SecurityLevel string

	// Classification is the data sensitivity tier name
	// ("public", "internal", "confidential", "restricted").
	Classification string

	// CreatedAt is when the session was admitted.
	CreatedAt time.Time

	// ExpiresAt is the nominal expiration time.
	ExpiresAt time.Time

	// LastAccessedAt is updated on every lifecycle operation.
	LastAccessedAt time.Time

	// ExtensionCount is how many extensions have been granted.
	ExtensionCount int

	// MaxExtensions is the extension ceiling for the security level,
	// captured at creation time.
	MaxExtensions int

	// GracePeriodEndsAt is set only while a grace period is active.
	GracePeriodEndsAt *time.Time
}

// QuotaUsage is the persisted per-user, per-period admission counter.
type QuotaUsage struct {
	// UserID identifies the user.
	UserID string

	// PeriodKey is the day bucket in the reference timezone ("2006-01-02").
	PeriodKey string

	// UsedCount is the number of admissions consumed in the period.
	UsedCount int

	// LastUpdated is when the counter was last incremented.
	LastUpdated time.Time

	// CreatedAt is when the row was implicitly created.
	CreatedAt time.Time
}

// RetentionPolicy is a named rule set mapping a data type to a retention
// duration and cleanup behavior.
type RetentionPolicy struct {
	// PolicyID is the unique policy identifier.
	PolicyID string

	// DataType is the governed artifact type this policy applies to.
	DataType string

	// RetentionPeriod is how long records are retained after registration.
	// Must be positive.
	RetentionPeriod time.Duration

	// AutoCleanup marks the policy as eligible for scheduled cleanup
	// passes. Policies with AutoCleanup false are only cleaned by explicit
	// operator runs.
	AutoCleanup bool

	// SecureDelete requires the secure-wipe path during purge.
	SecureDelete bool

	// ArchiveBeforeDelete requires records to be archived before removal.
	ArchiveBeforeDelete bool

	// NotificationThreshold is how long before expiry a record is reported
	// as expiring soon.
	NotificationThreshold time.Duration
}

// RetentionRecord maps a governed artifact to its retention policy.
type RetentionRecord struct {
	// DataID is the unique artifact identifier.
	DataID string

	// DataType is the artifact type ("analysis_result", "risk_assessment", ...).
	DataType string

	// ContentHash is the 64-hex-character hash of the governed content.
	ContentHash string

	// PolicyID references the governing retention policy.
	PolicyID string

	// ParentID optionally references a parent artifact. Child records are
	// purged before their parent.
	ParentID string

	// SecurityLevel is the security level name of the owning session.
	SecurityLevel string

	// SizeBytes is the estimated stored size of the artifact, used for
	// reclaimed-space reporting.
	SizeBytes int64

	// RegisteredAt is when the record was registered.
	RegisteredAt time.Time

	// ExpiresAt is RegisteredAt + policy retention period.
	ExpiresAt time.Time

	// Archived marks records that were exported to the archive during
	// cleanup instead of being securely wiped. Archived records are
	// excluded from expiry queries.
	Archived bool
}

// Cleanup task status values.
const (
	TaskScheduled = "scheduled"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskAborted   = "aborted"
	TaskTimedOut  = "timed_out"
)

// CleanupTask is the persisted state and report of a cleanup run.
// A task has at most one in-flight execution at a time.
type CleanupTask struct {
	// TaskID is the unique task identifier.
	TaskID string

	// PolicyID restricts the run to a single policy; empty means all
	// auto-cleanup policies.
	PolicyID string

	// Status is one of the Task* constants.
	Status string

	ScheduledAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	// RecordsDeleted and RecordsArchived are the per-record success counts.
	RecordsDeleted  int
	RecordsArchived int

	// ReclaimedBytes is the estimated space reclaimed.
	ReclaimedBytes int64

	// Errors holds one entry per failed record or batch.
	Errors []string

	// Warnings holds non-fatal conditions (timeout, abort).
	Warnings []string

	// DurationMs is the wall-clock duration of the run.
	DurationMs int64
}

// AuditEntry is a single append-only audit trail entry.
type AuditEntry struct {
	// ID is the unique entry identifier.
	ID string

	// Time is when the entry was recorded.
	Time time.Time

	// Action is the audited action name (e.g., "SESSION_CREATED").
	Action string

	// Actor is the user or component that triggered the action.
	Actor string

	// Subject is the entity the action applies to (session ID, task ID).
	Subject string

	// Detail is a short human-readable description. Never raw content.
	Detail string

	// PatternHash is the hex hash of the secure-wipe overwrite pattern,
	// present only on wipe entries.
	PatternHash string
}

// RecordQuery filters retention record queries.
type RecordQuery struct {
	// PolicyID filters by policy; empty matches all.
	PolicyID string

	// DataType filters by data type; empty matches all.
	DataType string

	// ParentID filters by parent artifact; empty matches all.
	ParentID string

	// ExpiresBefore matches records with ExpiresAt <= the given time.
	ExpiresBefore *time.Time

	// ExpiresAfter matches records with ExpiresAt > the given time.
	ExpiresAfter *time.Time

	// IncludeArchived includes archived records in results.
	IncludeArchived bool
}

// SessionStore persists session expiration metadata.
type SessionStore interface {
	// PutSession inserts or replaces a session.
	PutSession(ctx context.Context, s *Session) error

	// GetSession returns the session or nil if not found.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// DeleteSession removes a session. Returns false if it did not exist.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// ListSessions returns all sessions.
	ListSessions(ctx context.Context) ([]*Session, error)
}

// QuotaStore persists per-user, per-period admission counters.
type QuotaStore interface {
	// IncrementIfBelow atomically increments the counter for
	// (userID, periodKey) by amount if usedCount + amount <= limit.
	// The row is implicitly created with usedCount = 0 on first use.
	// Returns the resulting used count and whether the increment applied.
	IncrementIfBelow(ctx context.Context, userID, periodKey string, amount, limit int) (used int, ok bool, err error)

	// GetQuota returns the usage row or nil if none exists.
	GetQuota(ctx context.Context, userID, periodKey string) (*QuotaUsage, error)
}

// RetentionStore persists retention policies and records.
type RetentionStore interface {
	// PutPolicy inserts or replaces a retention policy.
	PutPolicy(ctx context.Context, p *RetentionPolicy) error

	// GetPolicy returns the policy or nil if not found.
	GetPolicy(ctx context.Context, policyID string) (*RetentionPolicy, error)

	// ListPolicies returns all policies.
	ListPolicies(ctx context.Context) ([]*RetentionPolicy, error)

	// PutRecord inserts or replaces a retention record.
	PutRecord(ctx context.Context, r *RetentionRecord) error

	// GetRecord returns the record or nil if not found.
	GetRecord(ctx context.Context, dataID string) (*RetentionRecord, error)

	// QueryRecords returns records matching the query.
	QueryRecords(ctx context.Context, q *RecordQuery) ([]*RetentionRecord, error)

	// CountRecords returns the number of records matching the query.
	CountRecords(ctx context.Context, q *RecordQuery) (int64, error)

	// DeleteRecord removes a record. Returns false if it did not exist.
	DeleteRecord(ctx context.Context, dataID string) (bool, error)

	// MarkRecordArchived flags a record as archived.
	MarkRecordArchived(ctx context.Context, dataID string) error
}

// TaskStore persists cleanup tasks and their reports.
type TaskStore interface {
	// PutTask inserts or replaces a cleanup task.
	PutTask(ctx context.Context, t *CleanupTask) error

	// GetTask returns the task or nil if not found.
	GetTask(ctx context.Context, taskID string) (*CleanupTask, error)
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	// AppendAudit appends an audit entry.
	AppendAudit(ctx context.Context, e *AuditEntry) error

	// ListAudit returns the most recent entries, newest first, up to limit.
	ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error)
}

// Backend is the aggregate storage interface the engine is wired against.
// Implementations must be safe for concurrent use.
type Backend interface {
	SessionStore
	QuotaStore
	RetentionStore
	TaskStore
	AuditStore

	// Close releases any resources held by the backend.
	Close() error
}
