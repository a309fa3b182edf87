package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/storage"
)

// Audited action names.
const (
	ActionSessionCreated   = "SESSION_CREATED"
	ActionSessionExtended  = "SESSION_EXTENDED"
	ActionGraceStarted     = "GRACE_STARTED"
	ActionSessionWiped     = "SESSION_WIPED"
	ActionQuotaDenied      = "QUOTA_DENIED"
	ActionCleanupCompleted = "CLEANUP_COMPLETED"
	ActionRecordRegistered = "RECORD_REGISTERED"
)

// Trail is the append-only audit recorder. Entries are persisted through the
// audit store and mirrored to the structured log.
type Trail struct {
	store  storage.AuditStore
	logger *slog.Logger
}

// NewTrail creates a new audit trail backed by the given store.
func NewTrail(store storage.AuditStore) *Trail {
	return &Trail{
		store:  store,
		logger: slog.Default().With("component", "audit"),
	}
}

// Event describes a single auditable action.
type Event struct {
	// Action is one of the Action* constants.
	Action string

	// Actor is the user or component that triggered the action.
	Actor string

	// Subject is the entity the action applies to.
	Subject string

	// Detail is a short human-readable description. Never raw content.
	Detail string

	// PatternHash is set only for secure-wipe events.
	PatternHash string
}

// Record persists an audit entry. Failures are logged but never propagate:
// an unavailable audit store must not block a lifecycle transition that has
// already happened.
func (t *Trail) Record(ctx context.Context, ev Event) {
	entry := &storage.AuditEntry{
		ID:          uuid.NewString(),
		Time:        time.Now(),
		Action:      ev.Action,
		Actor:       ev.Actor,
		Subject:     ev.Subject,
		Detail:      ev.Detail,
		PatternHash: ev.PatternHash,
	}

	if err := t.store.AppendAudit(ctx, entry); err != nil {
		t.logger.Error("failed to persist audit entry",
			"action", ev.Action,
			"subject", ev.Subject,
			"error", err,
		)
	}

	t.logger.Info("audit",
		"action", ev.Action,
		"actor", ev.Actor,
		"subject", ev.Subject,
		"detail", ev.Detail,
	)
}

// Recent returns the most recent audit entries, newest first.
func (t *Trail) Recent(ctx context.Context, limit int) ([]*storage.AuditEntry, error) {
	return t.store.ListAudit(ctx, limit)
}
