package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the Callisto database schema.
// All timestamps are stored as unix nanoseconds.
const Schema = `
-- Session expiration metadata
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    security_level TEXT NOT NULL,
    classification TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    last_accessed_at INTEGER NOT NULL,
    extension_count INTEGER NOT NULL DEFAULT 0,
    max_extensions INTEGER NOT NULL,
    grace_period_ends_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);

-- Per-user, per-day admission counters
CREATE TABLE IF NOT EXISTS quota_usage (
    user_id TEXT NOT NULL,
    period_key TEXT NOT NULL,
    used_count INTEGER NOT NULL DEFAULT 0,
    last_updated INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, period_key)
);

-- Retention policies
CREATE TABLE IF NOT EXISTS retention_policies (
    policy_id TEXT PRIMARY KEY,
    data_type TEXT NOT NULL,
    retention_period INTEGER NOT NULL,
    auto_cleanup INTEGER NOT NULL DEFAULT 0,
    secure_delete INTEGER NOT NULL DEFAULT 0,
    archive_before_delete INTEGER NOT NULL DEFAULT 0,
    notification_threshold INTEGER NOT NULL DEFAULT 0
);

-- Retention records
CREATE TABLE IF NOT EXISTS retention_records (
    data_id TEXT PRIMARY KEY,
    data_type TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    policy_id TEXT NOT NULL REFERENCES retention_policies(policy_id),
    parent_id TEXT NOT NULL DEFAULT '',
    security_level TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    registered_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    archived INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_records_expires_at ON retention_records(expires_at);
CREATE INDEX IF NOT EXISTS idx_records_policy ON retention_records(policy_id);
CREATE INDEX IF NOT EXISTS idx_records_parent ON retention_records(parent_id);

-- Cleanup tasks and reports
CREATE TABLE IF NOT EXISTS cleanup_tasks (
    task_id TEXT PRIMARY KEY,
    policy_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    scheduled_at INTEGER NOT NULL,
    started_at INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER NOT NULL DEFAULT 0,
    records_deleted INTEGER NOT NULL DEFAULT 0,
    records_archived INTEGER NOT NULL DEFAULT 0,
    reclaimed_bytes INTEGER NOT NULL DEFAULT 0,
    errors TEXT NOT NULL DEFAULT '[]',
    warnings TEXT NOT NULL DEFAULT '[]',
    duration_ms INTEGER NOT NULL DEFAULT 0
);

-- Audit trail
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    time INTEGER NOT NULL,
    action TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    subject TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    pattern_hash TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_log(time);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`
