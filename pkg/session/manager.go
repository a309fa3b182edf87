package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/storage"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// Warning lead time before nominal expiry surfaced in status responses.
const warningLead = 15 * time.Minute

// Manager owns the session lifecycle. All transitions for a given session
// are serialized through a per-session lock, so concurrent extends and
// expiries observe a single linear history.
type Manager struct {
	store   storage.SessionStore
	trail   *audit.Trail
	metrics *metrics.Metrics
	logger  *slog.Logger

	// now is swappable in tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a lifecycle manager. metrics may be nil.
func NewManager(store storage.SessionStore, trail *audit.Trail, m *metrics.Metrics) *Manager {
	return &Manager{
		store:   store,
		trail:   trail,
		metrics: m,
		logger:  slog.Default().With("component", "session"),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing operations on one session.
func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

func (m *Manager) dropLock(sessionID string) {
	m.mu.Lock()
	delete(m.locks, sessionID)
	m.mu.Unlock()
}

// CreateParams are the inputs for admitting a new session.
type CreateParams struct {
	OwnerID        string
	SecurityLevel  SecurityLevel
	Classification DataClassification

	// RequestedHours <= 0 selects the level's default expiration.
	RequestedHours int
}

// Create admits a new session and persists its expiration metadata.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*storage.Session, error) {
	now := m.now()
	bounds := LevelBounds(p.SecurityLevel)

	s := &storage.Session{
		SessionID:      uuid.NewString(),
		OwnerID:        p.OwnerID,
		SecurityLevel:  string(p.SecurityLevel),
		Classification: string(p.Classification),
		CreatedAt:      now,
		ExpiresAt:      ComputeExpiration(now, p.SecurityLevel, p.Classification, p.RequestedHours),
		LastAccessedAt: now,
		MaxExtensions:  bounds.MaxExtensions,
	}

	if err := m.store.PutSession(ctx, s); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	m.trail.Record(ctx, audit.Event{
		Action:  audit.ActionSessionCreated,
		Actor:   p.OwnerID,
		Subject: s.SessionID,
		Detail:  fmt.Sprintf("level=%s class=%s expires=%s", p.SecurityLevel, p.Classification, s.ExpiresAt.UTC().Format(time.RFC3339)),
	})
	if m.metrics != nil {
		m.metrics.RecordTransition("created")
	}
	m.logger.Info("session created",
		"session_id", s.SessionID,
		"owner", p.OwnerID,
		"level", p.SecurityLevel,
		"expires_at", s.ExpiresAt,
	)
	return s, nil
}

// effectiveExpiry is the nominal expiry or, when a grace period is active,
// its end.
func effectiveExpiry(s *storage.Session) time.Time {
	if s.GracePeriodEndsAt != nil && s.GracePeriodEndsAt.After(s.ExpiresAt) {
		return *s.GracePeriodEndsAt
	}
	return s.ExpiresAt
}

// IsExpired reports whether the session is past its effective expiry.
// Unknown sessions are expired: absence of metadata never grants access.
func (m *Manager) IsExpired(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return true, fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		return true, nil
	}
	return !m.now().Before(effectiveExpiry(s)), nil
}

// IsInGrace reports whether the session is inside an active grace window.
func (m *Manager) IsInGrace(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil || s == nil {
		return false, err
	}
	now := m.now()
	return s.GracePeriodEndsAt != nil &&
		!now.Before(s.ExpiresAt) &&
		now.Before(*s.GracePeriodEndsAt), nil
}

// Extend grants one extension. additionalHours <= 0 selects the level's
// standard grant. Returns false with a nil error when the extension ceiling
// is reached or the session is already past its effective expiry. The new
// expiry never exceeds the creation-time ceiling.
func (m *Manager) Extend(ctx context.Context, sessionID, callerID string, additionalHours int) (bool, error) {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		return false, ErrSessionNotFound
	}
	if s.OwnerID != callerID {
		return false, fmt.Errorf("%w: session %s", ErrUnauthorized, sessionID)
	}

	now := m.now()
	if !now.Before(effectiveExpiry(s)) {
		return false, nil
	}
	if s.ExtensionCount >= s.MaxExtensions {
		return false, nil
	}

	level := SecurityLevel(s.SecurityLevel)
	grant := LevelBounds(level).ExtensionGrant
	if additionalHours > 0 {
		grant = time.Duration(additionalHours) * time.Hour
	}
	newExpiry := now.Add(grant)
	if ceiling := MaxAllowedExpiration(s.CreatedAt, level); newExpiry.After(ceiling) {
		newExpiry = ceiling
	}

	s.ExpiresAt = newExpiry
	s.ExtensionCount++
	s.LastAccessedAt = now
	s.GracePeriodEndsAt = nil

	if err := m.store.PutSession(ctx, s); err != nil {
		return false, fmt.Errorf("persisting extension: %w", err)
	}

	m.trail.Record(ctx, audit.Event{
		Action:  audit.ActionSessionExtended,
		Actor:   callerID,
		Subject: sessionID,
		Detail:  fmt.Sprintf("reason=USER_REQUESTED count=%d/%d expires=%s", s.ExtensionCount, s.MaxExtensions, s.ExpiresAt.UTC().Format(time.RFC3339)),
	})
	if m.metrics != nil {
		m.metrics.RecordTransition("extended")
	}
	return true, nil
}

// StartGrace opens the grace window for a session that has passed its
// nominal expiry. Returns false when the session is unknown, not yet
// expired, or already in grace.
func (m *Manager) StartGrace(ctx context.Context, sessionID string) (bool, error) {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}
	if s == nil || s.GracePeriodEndsAt != nil {
		return false, nil
	}

	now := m.now()
	if now.Before(s.ExpiresAt) {
		return false, nil
	}

	end := s.ExpiresAt.Add(GracePeriodDuration(SecurityLevel(s.SecurityLevel)))
	if !now.Before(end) {
		return false, nil
	}
	s.GracePeriodEndsAt = &end
	s.LastAccessedAt = now

	if err := m.store.PutSession(ctx, s); err != nil {
		return false, fmt.Errorf("persisting grace period: %w", err)
	}

	m.trail.Record(ctx, audit.Event{
		Action:  audit.ActionGraceStarted,
		Actor:   "system",
		Subject: sessionID,
		Detail:  fmt.Sprintf("ends=%s", end.UTC().Format(time.RFC3339)),
	})
	if m.metrics != nil {
		m.metrics.RecordTransition("grace_started")
	}
	return true, nil
}

// ExpireNow securely wipes and removes a session. Idempotent: the first
// call for a live session returns true, every later call returns false.
func (m *Manager) ExpireNow(ctx context.Context, sessionID, reason string) (bool, error) {
	l := m.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		return false, nil
	}

	owner := s.OwnerID
	patternHash, err := secureWipe(s)
	if err != nil {
		return false, err
	}
	// Overwrite the stored row before removing it, so the last persisted
	// state carries only scrambled fields.
	if err := m.store.PutSession(ctx, s); err != nil {
		return false, fmt.Errorf("overwriting session: %w", err)
	}
	if _, err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	m.dropLock(sessionID)

	m.trail.Record(ctx, audit.Event{
		Action:      audit.ActionSessionWiped,
		Actor:       "system",
		Subject:     sessionID,
		Detail:      fmt.Sprintf("reason=%s owner=%s", reason, owner),
		PatternHash: patternHash,
	})
	if m.metrics != nil {
		m.metrics.RecordTransition("wiped")
	}
	m.logger.Info("session wiped", "session_id", sessionID)
	return true, nil
}

// CleanupExpired sweeps every session past its effective expiry, opening
// grace windows where applicable and wiping sessions whose grace has ended.
// Returns the number of sessions removed.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	sessions, err := m.store.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	removed := 0
	for _, s := range sessions {
		now := m.now()
		if now.Before(s.ExpiresAt) {
			continue
		}
		if s.GracePeriodEndsAt == nil {
			started, err := m.StartGrace(ctx, s.SessionID)
			if err != nil {
				return removed, err
			}
			if started {
				continue
			}
		} else if now.Before(*s.GracePeriodEndsAt) {
			continue
		}
		ok, err := m.ExpireNow(ctx, s.SessionID, "GRACE_ENDED")
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	if m.metrics != nil {
		if removed > 0 {
			m.metrics.RecordExpiredSessions(removed)
		}
		m.metrics.SetActiveSessions(len(sessions) - removed)
	}
	if removed > 0 {
		m.logger.Info("expired session sweep", "removed", removed)
	}
	return removed, nil
}

// Status is the user-facing view of a session's lifecycle state.
type Status struct {
	Exists        bool
	Expired       bool
	InGrace       bool
	TimeRemaining time.Duration
	CanExtend     bool
	ExpiresAt     time.Time

	// WarningTime is when expiry warnings should begin.
	WarningTime time.Time
}

// GetStatus reports lifecycle state. Unknown sessions report Exists false
// and Expired true.
func (m *Manager) GetStatus(ctx context.Context, sessionID string) (*Status, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		return &Status{Expired: true}, nil
	}

	now := m.now()
	expiry := effectiveExpiry(s)
	remaining := expiry.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	expired := !now.Before(expiry)
	inGrace := s.GracePeriodEndsAt != nil && !now.Before(s.ExpiresAt) && now.Before(*s.GracePeriodEndsAt)

	return &Status{
		Exists:        true,
		Expired:       expired,
		InGrace:       inGrace,
		TimeRemaining: remaining,
		CanExtend:     !expired && s.ExtensionCount < s.MaxExtensions,
		ExpiresAt:     s.ExpiresAt,
		WarningTime:   s.ExpiresAt.Add(-warningLead),
	}, nil
}
