package session

import (
	"testing"
	"time"

	"mercator-hq/callisto/pkg/storage"
)

func TestSecureWipe_ScramblesFields(t *testing.T) {
	now := time.Now()
	s := &storage.Session{
		SessionID:      "sess-1",
		OwnerID:        "alice",
		SecurityLevel:  "enhanced",
		Classification: "confidential",
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
		ExtensionCount: 2,
		MaxExtensions:  3,
	}

	hash, err := secureWipe(s)
	if err != nil {
		t.Fatalf("secureWipe: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("pattern hash length = %d, want 64", len(hash))
	}
	if s.SessionID != "sess-1" {
		t.Error("session ID must survive the wipe")
	}
	if s.OwnerID == "alice" {
		t.Error("owner not scrambled")
	}
	if s.SecurityLevel == "enhanced" {
		t.Error("security level not scrambled")
	}
	if s.Classification == "confidential" {
		t.Error("classification not scrambled")
	}
	if len(s.OwnerID) != len("alice") {
		t.Errorf("scrambled owner length = %d, want %d", len(s.OwnerID), len("alice"))
	}
	if s.ExtensionCount != 0 || s.MaxExtensions != 0 || s.GracePeriodEndsAt != nil {
		t.Error("counters not cleared")
	}
	if s.OwnerID == s.SecurityLevel[:len(s.OwnerID)] {
		t.Error("fields share scramble bytes")
	}
}

func TestSecureWipe_FreshPatternPerCall(t *testing.T) {
	a := &storage.Session{SessionID: "a", OwnerID: "owner"}
	b := &storage.Session{SessionID: "b", OwnerID: "owner"}

	ha, err := secureWipe(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := secureWipe(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Error("pattern hashes repeat across wipes")
	}
	if a.OwnerID == b.OwnerID {
		t.Error("scrambled output repeats across wipes")
	}
}
