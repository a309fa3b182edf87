package retention

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/storage"
)

const testHash = "a3f5b8c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6c8d0e2f4a6b8c0d2e4f6a8"

func newTestCatalog(t *testing.T) (*Catalog, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	c := NewCatalog(backend, audit.NewTrail(backend))
	c.now = func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	if err := c.InstallPolicies(context.Background(), DefaultPolicies()); err != nil {
		t.Fatalf("installing default policies: %v", err)
	}
	return c, backend
}

func TestCatalog_Register(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	rec, err := c.Register(ctx, RegisterParams{
		DataType:      TypeAnalysisResult,
		ContentHash:   testHash,
		PolicyID:      "analysis-results",
		SecurityLevel: "standard",
		SizeBytes:     2048,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.DataID == "" {
		t.Error("empty data ID")
	}
	if want := c.now().Add(72 * time.Hour); !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
	}

	got, err := c.Record(ctx, rec.DataID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ContentHash != testHash {
		t.Errorf("stored record = %+v", got)
	}
}

func TestCatalog_Register_Validation(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		params  RegisterParams
		wantErr error
	}{
		{
			"short hash",
			RegisterParams{DataType: TypeAnalysisResult, ContentHash: "abc123", PolicyID: "analysis-results"},
			ErrInvalidContentHash,
		},
		{
			"non-hex hash",
			RegisterParams{DataType: TypeAnalysisResult, ContentHash: strings.Repeat("z", 64), PolicyID: "analysis-results"},
			ErrInvalidContentHash,
		},
		{
			"unknown policy",
			RegisterParams{DataType: TypeAnalysisResult, ContentHash: testHash, PolicyID: "nope"},
			ErrPolicyNotFound,
		},
		{
			"type mismatch",
			RegisterParams{DataType: TypeRiskAssessment, ContentHash: testHash, PolicyID: "analysis-results"},
			ErrInvalidPolicy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Register(ctx, tt.params); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalog_FindExpired(t *testing.T) {
	c, backend := newTestCatalog(t)
	ctx := context.Background()

	now := c.now()
	mk := func(id, policyID string, expires time.Time, archived bool) {
		t.Helper()
		if err := backend.PutRecord(ctx, &storage.RetentionRecord{
			DataID:      id,
			DataType:    TypeAnalysisResult,
			ContentHash: testHash,
			PolicyID:    policyID,
			ExpiresAt:   expires,
			Archived:    archived,
		}); err != nil {
			t.Fatal(err)
		}
	}
	mk("expired-1", "analysis-results", now.Add(-time.Hour), false)
	mk("expired-2", "session-metadata", now.Add(-time.Minute), false)
	mk("live", "analysis-results", now.Add(time.Hour), false)
	mk("archived", "analysis-results", now.Add(-time.Hour), true)

	expired, err := c.FindExpired(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 2 {
		t.Fatalf("expired count = %d, want 2", len(expired))
	}
	for _, r := range expired {
		if r.Archived {
			t.Error("archived record reported as expired")
		}
	}

	scoped, err := c.FindExpired(ctx, "session-metadata", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].DataID != "expired-2" {
		t.Errorf("scoped result = %+v", scoped)
	}
}

func TestCatalog_FindExpiringSoon(t *testing.T) {
	c, backend := newTestCatalog(t)
	ctx := context.Background()
	now := c.now()

	// analysis-results notifies 12h out.
	if err := backend.PutRecord(ctx, &storage.RetentionRecord{
		DataID:      "soon",
		DataType:    TypeAnalysisResult,
		ContentHash: testHash,
		PolicyID:    "analysis-results",
		ExpiresAt:   now.Add(3 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
	if err := backend.PutRecord(ctx, &storage.RetentionRecord{
		DataID:      "distant",
		DataType:    TypeAnalysisResult,
		ContentHash: testHash,
		PolicyID:    "analysis-results",
		ExpiresAt:   now.Add(48 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	soon, err := c.FindExpiringSoon(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(soon) != 1 {
		t.Fatalf("expiring soon count = %d, want 1", len(soon))
	}
	if soon[0].Record.DataID != "soon" || soon[0].TimeLeft != 3*time.Hour {
		t.Errorf("expiring record = %+v", soon[0])
	}
}

func TestCatalog_Summarize(t *testing.T) {
	c, backend := newTestCatalog(t)
	ctx := context.Background()
	now := c.now()

	for i, policyID := range []string{"analysis-results", "analysis-results", "session-metadata"} {
		rec := &storage.RetentionRecord{
			DataID:      string(rune('a' + i)),
			DataType:    TypeAnalysisResult,
			ContentHash: testHash,
			PolicyID:    policyID,
			ExpiresAt:   now.Add(time.Hour),
			Archived:    i == 1,
		}
		if policyID == "session-metadata" {
			rec.DataType = TypeSessionMetadata
		}
		if err := backend.PutRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := c.Summarize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRecords != 3 || stats.ArchivedRecords != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByPolicy["analysis-results"] != 2 || stats.ByDataType[TypeSessionMetadata] != 1 {
		t.Errorf("breakdowns = %+v / %+v", stats.ByPolicy, stats.ByDataType)
	}
}

func TestValidatePolicy(t *testing.T) {
	good := &storage.RetentionPolicy{
		PolicyID:              "p",
		DataType:              TypeAnalysisResult,
		RetentionPeriod:       time.Hour,
		NotificationThreshold: 30 * time.Minute,
	}
	if err := validatePolicy(good); err != nil {
		t.Errorf("valid policy rejected: %v", err)
	}

	bad := []*storage.RetentionPolicy{
		{DataType: TypeAnalysisResult, RetentionPeriod: time.Hour},
		{PolicyID: "p", RetentionPeriod: time.Hour},
		{PolicyID: "p", DataType: TypeAnalysisResult},
		{PolicyID: "p", DataType: TypeAnalysisResult, RetentionPeriod: time.Hour, NotificationThreshold: 2 * time.Hour},
	}
	for i, p := range bad {
		if err := validatePolicy(p); !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("bad policy %d: err = %v", i, err)
		}
	}
}
