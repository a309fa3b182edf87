package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory maps.
// All data is lost when the process exits.
//
// MemoryBackend is thread-safe. A single mutex guards every map, which also
// makes IncrementIfBelow a genuinely atomic check-and-increment: no two
// concurrent reservations for the same key can both observe the pre-increment
// count.
type MemoryBackend struct {
	mu sync.RWMutex

	sessions map[string]*Session
	quotas   map[string]*QuotaUsage
	policies map[string]*RetentionPolicy
	records  map[string]*RetentionRecord
	tasks    map[string]*CleanupTask
	audit    []*AuditEntry
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]*Session),
		quotas:   make(map[string]*QuotaUsage),
		policies: make(map[string]*RetentionPolicy),
		records:  make(map[string]*RetentionRecord),
		tasks:    make(map[string]*CleanupTask),
	}
}

// quotaKey builds the composite map key for a quota row.
func quotaKey(userID, periodKey string) string {
	return userID + ":" + periodKey
}

// PutSession inserts or replaces a session.
func (m *MemoryBackend) PutSession(ctx context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if s.SessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = cloneSession(s)
	return nil
}

// GetSession returns the session or nil if not found.
func (m *MemoryBackend) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

// DeleteSession removes a session. Returns false if it did not exist.
func (m *MemoryBackend) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(m.sessions, sessionID)
	return true, nil
}

// ListSessions returns all sessions.
func (m *MemoryBackend) ListSessions(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSession(s))
	}
	return out, nil
}

// IncrementIfBelow atomically increments the quota counter if the result
// stays within the limit. The row is created on first use.
func (m *MemoryBackend) IncrementIfBelow(ctx context.Context, userID, periodKey string, amount, limit int) (int, bool, error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("amount must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := quotaKey(userID, periodKey)
	q, ok := m.quotas[key]
	if !ok {
		now := time.Now()
		q = &QuotaUsage{
			UserID:      userID,
			PeriodKey:   periodKey,
			UsedCount:   0,
			LastUpdated: now,
			CreatedAt:   now,
		}
		m.quotas[key] = q
	}

	if q.UsedCount+amount > limit {
		return q.UsedCount, false, nil
	}

	q.UsedCount += amount
	q.LastUpdated = time.Now()
	return q.UsedCount, true, nil
}

// GetQuota returns the usage row or nil if none exists.
func (m *MemoryBackend) GetQuota(ctx context.Context, userID, periodKey string) (*QuotaUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quotas[quotaKey(userID, periodKey)]
	if !ok {
		return nil, nil
	}
	clone := *q
	return &clone, nil
}

// PutPolicy inserts or replaces a retention policy.
func (m *MemoryBackend) PutPolicy(ctx context.Context, p *RetentionPolicy) error {
	if p == nil {
		return fmt.Errorf("policy cannot be nil")
	}
	if p.PolicyID == "" {
		return fmt.Errorf("policy id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.policies[p.PolicyID] = &clone
	return nil
}

// GetPolicy returns the policy or nil if not found.
func (m *MemoryBackend) GetPolicy(ctx context.Context, policyID string) (*RetentionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[policyID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

// ListPolicies returns all policies sorted by ID.
func (m *MemoryBackend) ListPolicies(ctx context.Context) ([]*RetentionPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*RetentionPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out, nil
}

// PutRecord inserts or replaces a retention record.
func (m *MemoryBackend) PutRecord(ctx context.Context, r *RetentionRecord) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if r.DataID == "" {
		return fmt.Errorf("data id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *r
	m.records[r.DataID] = &clone
	return nil
}

// GetRecord returns the record or nil if not found.
func (m *MemoryBackend) GetRecord(ctx context.Context, dataID string) (*RetentionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[dataID]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

// QueryRecords returns records matching the query, oldest expiry first.
func (m *MemoryBackend) QueryRecords(ctx context.Context, q *RecordQuery) ([]*RetentionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*RetentionRecord
	for _, r := range m.records {
		if matchRecord(r, q) {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

// CountRecords returns the number of records matching the query.
func (m *MemoryBackend) CountRecords(ctx context.Context, q *RecordQuery) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, r := range m.records {
		if matchRecord(r, q) {
			count++
		}
	}
	return count, nil
}

// DeleteRecord removes a record. Returns false if it did not exist.
func (m *MemoryBackend) DeleteRecord(ctx context.Context, dataID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[dataID]; !ok {
		return false, nil
	}
	delete(m.records, dataID)
	return true, nil
}

// MarkRecordArchived flags a record as archived.
func (m *MemoryBackend) MarkRecordArchived(ctx context.Context, dataID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[dataID]
	if !ok {
		return fmt.Errorf("record %q not found", dataID)
	}
	r.Archived = true
	return nil
}

// PutTask inserts or replaces a cleanup task.
func (m *MemoryBackend) PutTask(ctx context.Context, t *CleanupTask) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.TaskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.TaskID] = cloneTask(t)
	return nil
}

// GetTask returns the task or nil if not found.
func (m *MemoryBackend) GetTask(ctx context.Context, taskID string) (*CleanupTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return cloneTask(t), nil
}

// AppendAudit appends an audit entry.
func (m *MemoryBackend) AppendAudit(ctx context.Context, e *AuditEntry) error {
	if e == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.audit = append(m.audit, &clone)
	return nil
}

// ListAudit returns the most recent entries, newest first, up to limit.
func (m *MemoryBackend) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.audit) {
		limit = len(m.audit)
	}

	out := make([]*AuditEntry, 0, limit)
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *m.audit[i]
		out = append(out, &clone)
	}
	return out, nil
}

// Close releases resources. For the memory backend it is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

// matchRecord evaluates a RecordQuery against a record.
func matchRecord(r *RetentionRecord, q *RecordQuery) bool {
	if q == nil {
		q = &RecordQuery{}
	}
	if r.Archived && !q.IncludeArchived {
		return false
	}
	if q.PolicyID != "" && r.PolicyID != q.PolicyID {
		return false
	}
	if q.DataType != "" && r.DataType != q.DataType {
		return false
	}
	if q.ParentID != "" && r.ParentID != q.ParentID {
		return false
	}
	if q.ExpiresBefore != nil && r.ExpiresAt.After(*q.ExpiresBefore) {
		return false
	}
	if q.ExpiresAfter != nil && !r.ExpiresAt.After(*q.ExpiresAfter) {
		return false
	}
	return true
}

func cloneSession(s *Session) *Session {
	clone := *s
	if s.GracePeriodEndsAt != nil {
		end := *s.GracePeriodEndsAt
		clone.GracePeriodEndsAt = &end
	}
	return &clone
}

func cloneTask(t *CleanupTask) *CleanupTask {
	clone := *t
	clone.Errors = append([]string(nil), t.Errors...)
	clone.Warnings = append([]string(nil), t.Warnings...)
	return &clone
}
