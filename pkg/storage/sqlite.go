package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite for persistence.
// This backend provides durable storage and is suitable for single-instance
// deployments where state must survive restarts.
//
// SQLiteBackend uses a write-ahead log (WAL) for better concurrent
// performance and periodic checkpointing to balance write performance with
// durability.
type SQLiteBackend struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	// prepared statements for the hot quota path
	quotaInsertStmt *sql.Stmt
	quotaIncrStmt   *sql.Stmt
	quotaSelectStmt *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// NewSQLiteBackend creates a new SQLite storage backend with default settings.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{Path: path})
}

// NewSQLiteBackendWithConfig creates a new SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:                 db,
		dbPath:             cfg.Path,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go backend.checkpointLoop()

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return err
}

// prepareStatements prepares the quota statements for reuse.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.quotaInsertStmt, err = s.db.Prepare(`
		INSERT INTO quota_usage (user_id, period_key, used_count, last_updated, created_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT (user_id, period_key) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare quota insert: %w", err)
	}

	s.quotaIncrStmt, err = s.db.Prepare(`
		UPDATE quota_usage
		SET used_count = used_count + ?, last_updated = ?
		WHERE user_id = ? AND period_key = ? AND used_count + ? <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare quota increment: %w", err)
	}

	s.quotaSelectStmt, err = s.db.Prepare(`
		SELECT used_count, last_updated, created_at
		FROM quota_usage
		WHERE user_id = ? AND period_key = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare quota select: %w", err)
	}

	return nil
}

// PutSession inserts or replaces a session.
func (s *SQLiteBackend) PutSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if sess.SessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	var grace any
	if sess.GracePeriodEndsAt != nil {
		grace = sess.GracePeriodEndsAt.UnixNano()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, owner_id, security_level, classification,
			created_at, expires_at, last_accessed_at, extension_count, max_extensions,
			grace_period_ends_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			security_level = excluded.security_level,
			classification = excluded.classification,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			last_accessed_at = excluded.last_accessed_at,
			extension_count = excluded.extension_count,
			max_extensions = excluded.max_extensions,
			grace_period_ends_at = excluded.grace_period_ends_at
	`,
		sess.SessionID, sess.OwnerID, sess.SecurityLevel, sess.Classification,
		sess.CreatedAt.UnixNano(), sess.ExpiresAt.UnixNano(), sess.LastAccessedAt.UnixNano(),
		sess.ExtensionCount, sess.MaxExtensions, grace,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession returns the session or nil if not found.
func (s *SQLiteBackend) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, owner_id, security_level, classification, created_at,
			expires_at, last_accessed_at, extension_count, max_extensions, grace_period_ends_at
		FROM sessions WHERE session_id = ?
	`, sessionID)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// DeleteSession removes a session. Returns false if it did not exist.
func (s *SQLiteBackend) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListSessions returns all sessions.
func (s *SQLiteBackend) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, owner_id, security_level, classification, created_at,
			expires_at, last_accessed_at, extension_count, max_extensions, grace_period_ends_at
		FROM sessions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// IncrementIfBelow atomically increments the quota counter if the result
// stays within the limit. The condition and the increment are evaluated in a
// single UPDATE, so concurrent reservations against the same row cannot both
// pass once the limit is reached.
func (s *SQLiteBackend) IncrementIfBelow(ctx context.Context, userID, periodKey string, amount, limit int) (int, bool, error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("amount must be positive")
	}

	now := time.Now().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, s.quotaInsertStmt).ExecContext(ctx, userID, periodKey, now, now); err != nil {
		return 0, false, fmt.Errorf("failed to ensure quota row: %w", err)
	}

	result, err := tx.StmtContext(ctx, s.quotaIncrStmt).ExecContext(ctx, amount, now, userID, periodKey, amount, limit)
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment quota: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	var used int
	var lastUpdated, createdAt int64
	if err := tx.StmtContext(ctx, s.quotaSelectStmt).QueryRowContext(ctx, userID, periodKey).Scan(&used, &lastUpdated, &createdAt); err != nil {
		return 0, false, fmt.Errorf("failed to read quota: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit quota update: %w", err)
	}

	return used, affected > 0, nil
}

// GetQuota returns the usage row or nil if none exists.
func (s *SQLiteBackend) GetQuota(ctx context.Context, userID, periodKey string) (*QuotaUsage, error) {
	var used int
	var lastUpdated, createdAt int64

	err := s.quotaSelectStmt.QueryRowContext(ctx, userID, periodKey).Scan(&used, &lastUpdated, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quota: %w", err)
	}

	return &QuotaUsage{
		UserID:      userID,
		PeriodKey:   periodKey,
		UsedCount:   used,
		LastUpdated: time.Unix(0, lastUpdated),
		CreatedAt:   time.Unix(0, createdAt),
	}, nil
}

// PutPolicy inserts or replaces a retention policy.
func (s *SQLiteBackend) PutPolicy(ctx context.Context, p *RetentionPolicy) error {
	if p == nil {
		return fmt.Errorf("policy cannot be nil")
	}
	if p.PolicyID == "" {
		return fmt.Errorf("policy id cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retention_policies (policy_id, data_type, retention_period,
			auto_cleanup, secure_delete, archive_before_delete, notification_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (policy_id) DO UPDATE SET
			data_type = excluded.data_type,
			retention_period = excluded.retention_period,
			auto_cleanup = excluded.auto_cleanup,
			secure_delete = excluded.secure_delete,
			archive_before_delete = excluded.archive_before_delete,
			notification_threshold = excluded.notification_threshold
	`,
		p.PolicyID, p.DataType, int64(p.RetentionPeriod),
		boolToInt(p.AutoCleanup), boolToInt(p.SecureDelete),
		boolToInt(p.ArchiveBeforeDelete), int64(p.NotificationThreshold),
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// GetPolicy returns the policy or nil if not found.
func (s *SQLiteBackend) GetPolicy(ctx context.Context, policyID string) (*RetentionPolicy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT policy_id, data_type, retention_period, auto_cleanup, secure_delete,
			archive_before_delete, notification_threshold
		FROM retention_policies WHERE policy_id = ?
	`, policyID)

	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return p, nil
}

// ListPolicies returns all policies sorted by ID.
func (s *SQLiteBackend) ListPolicies(ctx context.Context) ([]*RetentionPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT policy_id, data_type, retention_period, auto_cleanup, secure_delete,
			archive_before_delete, notification_threshold
		FROM retention_policies ORDER BY policy_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*RetentionPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policies: %w", err)
	}
	return policies, nil
}

// PutRecord inserts or replaces a retention record.
func (s *SQLiteBackend) PutRecord(ctx context.Context, r *RetentionRecord) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if r.DataID == "" {
		return fmt.Errorf("data id cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retention_records (data_id, data_type, content_hash, policy_id,
			parent_id, security_level, size_bytes, registered_at, expires_at, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (data_id) DO UPDATE SET
			data_type = excluded.data_type,
			content_hash = excluded.content_hash,
			policy_id = excluded.policy_id,
			parent_id = excluded.parent_id,
			security_level = excluded.security_level,
			size_bytes = excluded.size_bytes,
			registered_at = excluded.registered_at,
			expires_at = excluded.expires_at,
			archived = excluded.archived
	`,
		r.DataID, r.DataType, r.ContentHash, r.PolicyID, r.ParentID, r.SecurityLevel,
		r.SizeBytes, r.RegisteredAt.UnixNano(), r.ExpiresAt.UnixNano(), boolToInt(r.Archived),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// GetRecord returns the record or nil if not found.
func (s *SQLiteBackend) GetRecord(ctx context.Context, dataID string) (*RetentionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data_id, data_type, content_hash, policy_id, parent_id, security_level,
			size_bytes, registered_at, expires_at, archived
		FROM retention_records WHERE data_id = ?
	`, dataID)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return r, nil
}

// QueryRecords returns records matching the query, oldest expiry first.
func (s *SQLiteBackend) QueryRecords(ctx context.Context, q *RecordQuery) ([]*RetentionRecord, error) {
	where, args := buildRecordWhere(q)

	rows, err := s.db.QueryContext(ctx, `
		SELECT data_id, data_type, content_hash, policy_id, parent_id, security_level,
			size_bytes, registered_at, expires_at, archived
		FROM retention_records `+where+` ORDER BY expires_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*RetentionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// CountRecords returns the number of records matching the query.
func (s *SQLiteBackend) CountRecords(ctx context.Context, q *RecordQuery) (int64, error) {
	where, args := buildRecordWhere(q)

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM retention_records `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// DeleteRecord removes a record. Returns false if it did not exist.
func (s *SQLiteBackend) DeleteRecord(ctx context.Context, dataID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM retention_records WHERE data_id = ?`, dataID)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkRecordArchived flags a record as archived.
func (s *SQLiteBackend) MarkRecordArchived(ctx context.Context, dataID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE retention_records SET archived = 1 WHERE data_id = ?`, dataID)
	if err != nil {
		return fmt.Errorf("failed to mark record archived: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %q not found", dataID)
	}
	return nil
}

// PutTask inserts or replaces a cleanup task.
func (s *SQLiteBackend) PutTask(ctx context.Context, t *CleanupTask) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.TaskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}

	errsJSON, err := json.Marshal(emptyIfNil(t.Errors))
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}
	warnsJSON, err := json.Marshal(emptyIfNil(t.Warnings))
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cleanup_tasks (task_id, policy_id, status, scheduled_at, started_at,
			completed_at, records_deleted, records_archived, reclaimed_bytes, errors,
			warnings, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			policy_id = excluded.policy_id,
			status = excluded.status,
			scheduled_at = excluded.scheduled_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			records_deleted = excluded.records_deleted,
			records_archived = excluded.records_archived,
			reclaimed_bytes = excluded.reclaimed_bytes,
			errors = excluded.errors,
			warnings = excluded.warnings,
			duration_ms = excluded.duration_ms
	`,
		t.TaskID, t.PolicyID, t.Status, t.ScheduledAt.UnixNano(), timeToNano(t.StartedAt),
		timeToNano(t.CompletedAt), t.RecordsDeleted, t.RecordsArchived, t.ReclaimedBytes,
		string(errsJSON), string(warnsJSON), t.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask returns the task or nil if not found.
func (s *SQLiteBackend) GetTask(ctx context.Context, taskID string) (*CleanupTask, error) {
	var (
		t                    CleanupTask
		scheduled, started   int64
		completed            int64
		errsJSON, warnsJSON  string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT task_id, policy_id, status, scheduled_at, started_at, completed_at,
			records_deleted, records_archived, reclaimed_bytes, errors, warnings, duration_ms
		FROM cleanup_tasks WHERE task_id = ?
	`, taskID).Scan(
		&t.TaskID, &t.PolicyID, &t.Status, &scheduled, &started, &completed,
		&t.RecordsDeleted, &t.RecordsArchived, &t.ReclaimedBytes, &errsJSON, &warnsJSON,
		&t.DurationMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	t.ScheduledAt = time.Unix(0, scheduled)
	t.StartedAt = nanoToTime(started)
	t.CompletedAt = nanoToTime(completed)

	if err := json.Unmarshal([]byte(errsJSON), &t.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warnsJSON), &t.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}

	return &t, nil
}

// AppendAudit appends an audit entry.
func (s *SQLiteBackend) AppendAudit(ctx context.Context, e *AuditEntry) error {
	if e == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, time, action, actor, subject, detail, pattern_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Time.UnixNano(), e.Action, e.Actor, e.Subject, e.Detail, e.PatternHash)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent entries, newest first, up to limit.
func (s *SQLiteBackend) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, time, action, actor, subject, detail, pattern_hash
		FROM audit_log ORDER BY time DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Action, &e.Actor, &e.Subject, &e.Detail, &e.PatternHash); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Time = time.Unix(0, ts)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// Close releases any resources held by the backend.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.quotaInsertStmt != nil {
			s.quotaInsertStmt.Close()
		}
		if s.quotaIncrStmt != nil {
			s.quotaIncrStmt.Close()
		}
		if s.quotaSelectStmt != nil {
			s.quotaSelectStmt.Close()
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*Session, error) {
	var (
		sess                          Session
		createdAt, expiresAt, lastAcc int64
		grace                         sql.NullInt64
	)

	err := sc.Scan(&sess.SessionID, &sess.OwnerID, &sess.SecurityLevel, &sess.Classification,
		&createdAt, &expiresAt, &lastAcc, &sess.ExtensionCount, &sess.MaxExtensions, &grace)
	if err != nil {
		return nil, err
	}

	sess.CreatedAt = time.Unix(0, createdAt)
	sess.ExpiresAt = time.Unix(0, expiresAt)
	sess.LastAccessedAt = time.Unix(0, lastAcc)
	if grace.Valid {
		end := time.Unix(0, grace.Int64)
		sess.GracePeriodEndsAt = &end
	}
	return &sess, nil
}

func scanPolicy(sc scanner) (*RetentionPolicy, error) {
	var (
		p                             RetentionPolicy
		retention, threshold          int64
		auto, secure, archive         int
	)

	err := sc.Scan(&p.PolicyID, &p.DataType, &retention, &auto, &secure, &archive, &threshold)
	if err != nil {
		return nil, err
	}

	p.RetentionPeriod = time.Duration(retention)
	p.NotificationThreshold = time.Duration(threshold)
	p.AutoCleanup = auto != 0
	p.SecureDelete = secure != 0
	p.ArchiveBeforeDelete = archive != 0
	return &p, nil
}

func scanRecord(sc scanner) (*RetentionRecord, error) {
	var (
		r                      RetentionRecord
		registered, expires    int64
		archived               int
	)

	err := sc.Scan(&r.DataID, &r.DataType, &r.ContentHash, &r.PolicyID, &r.ParentID,
		&r.SecurityLevel, &r.SizeBytes, &registered, &expires, &archived)
	if err != nil {
		return nil, err
	}

	r.RegisteredAt = time.Unix(0, registered)
	r.ExpiresAt = time.Unix(0, expires)
	r.Archived = archived != 0
	return &r, nil
}

// buildRecordWhere builds the WHERE clause for a RecordQuery.
func buildRecordWhere(q *RecordQuery) (string, []any) {
	if q == nil {
		q = &RecordQuery{}
	}

	var clauses []string
	var args []any

	if !q.IncludeArchived {
		clauses = append(clauses, "archived = 0")
	}
	if q.PolicyID != "" {
		clauses = append(clauses, "policy_id = ?")
		args = append(args, q.PolicyID)
	}
	if q.DataType != "" {
		clauses = append(clauses, "data_type = ?")
		args = append(args, q.DataType)
	}
	if q.ParentID != "" {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, q.ParentID)
	}
	if q.ExpiresBefore != nil {
		clauses = append(clauses, "expires_at <= ?")
		args = append(args, q.ExpiresBefore.UnixNano())
	}
	if q.ExpiresAfter != nil {
		clauses = append(clauses, "expires_at > ?")
		args = append(args, q.ExpiresAfter.UnixNano())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nanoToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
