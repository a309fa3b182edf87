package audit

import (
	"context"
	"testing"

	"mercator-hq/callisto/pkg/storage"
)

// TestTrail_Record verifies entries are persisted with IDs and timestamps.
func TestTrail_Record(t *testing.T) {
	backend := storage.NewMemoryBackend()
	defer backend.Close()
	trail := NewTrail(backend)
	ctx := context.Background()

	trail.Record(ctx, Event{
		Action:  ActionSessionCreated,
		Actor:   "user-1",
		Subject: "sess-1",
		Detail:  "security_level=standard",
	})
	trail.Record(ctx, Event{
		Action:      ActionSessionWiped,
		Actor:       "cleanup",
		Subject:     "sess-1",
		PatternHash: "deadbeef",
	})

	entries, err := trail.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	// Newest first.
	if entries[0].Action != ActionSessionWiped {
		t.Errorf("entries[0].Action = %s, want %s", entries[0].Action, ActionSessionWiped)
	}
	if entries[0].PatternHash != "deadbeef" {
		t.Errorf("PatternHash = %q, want deadbeef", entries[0].PatternHash)
	}

	for _, e := range entries {
		if e.ID == "" {
			t.Error("audit entry missing ID")
		}
		if e.Time.IsZero() {
			t.Error("audit entry missing timestamp")
		}
	}
}
