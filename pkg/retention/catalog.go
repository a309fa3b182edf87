package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/storage"
)

// Well-known governed data types.
const (
	TypeAnalysisResult   = "analysis_result"
	TypeRiskAssessment   = "risk_assessment"
	TypeSessionMetadata  = "session_metadata"
	TypeUploadedDocument = "uploaded_document"
)

// Catalog registers governed artifacts under retention policies and answers
// expiry queries for the cleanup runner.
type Catalog struct {
	store  storage.RetentionStore
	trail  *audit.Trail
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewCatalog creates a retention catalog.
func NewCatalog(store storage.RetentionStore, trail *audit.Trail) *Catalog {
	return &Catalog{
		store:  store,
		trail:  trail,
		logger: slog.Default().With("component", "retention"),
		now:    time.Now,
	}
}

// SetNow overrides the catalog clock. Used by tests.
func (c *Catalog) SetNow(now func() time.Time) {
	c.now = now
}

// DefaultPolicies are installed when no policy file is configured.
func DefaultPolicies() []*storage.RetentionPolicy {
	return []*storage.RetentionPolicy{
		{
			PolicyID:              "analysis-results",
			DataType:              TypeAnalysisResult,
			RetentionPeriod:       72 * time.Hour,
			AutoCleanup:           true,
			SecureDelete:          true,
			NotificationThreshold: 12 * time.Hour,
		},
		{
			PolicyID:              "risk-assessments",
			DataType:              TypeRiskAssessment,
			RetentionPeriod:       48 * time.Hour,
			AutoCleanup:           true,
			ArchiveBeforeDelete:   true,
			NotificationThreshold: 6 * time.Hour,
		},
		{
			PolicyID:              "session-metadata",
			DataType:              TypeSessionMetadata,
			RetentionPeriod:       24 * time.Hour,
			AutoCleanup:           true,
			SecureDelete:          false,
			NotificationThreshold: 2 * time.Hour,
		},
		{
			PolicyID:              "uploaded-documents",
			DataType:              TypeUploadedDocument,
			RetentionPeriod:       8 * time.Hour,
			AutoCleanup:           true,
			SecureDelete:          true,
			NotificationThreshold: time.Hour,
		},
	}
}

// InstallPolicies validates and stores a policy set, replacing existing
// policies with the same IDs.
func (c *Catalog) InstallPolicies(ctx context.Context, policies []*storage.RetentionPolicy) error {
	for _, p := range policies {
		if err := validatePolicy(p); err != nil {
			return err
		}
	}
	for _, p := range policies {
		if err := c.store.PutPolicy(ctx, p); err != nil {
			return fmt.Errorf("storing policy %s: %w", p.PolicyID, err)
		}
	}
	c.logger.Info("retention policies installed", "count", len(policies))
	return nil
}

func validatePolicy(p *storage.RetentionPolicy) error {
	if p.PolicyID == "" {
		return fmt.Errorf("%w: missing policy ID", ErrInvalidPolicy)
	}
	if p.DataType == "" {
		return fmt.Errorf("%w: policy %s has no data type", ErrInvalidPolicy, p.PolicyID)
	}
	if p.RetentionPeriod <= 0 {
		return fmt.Errorf("%w: policy %s has non-positive retention period", ErrInvalidPolicy, p.PolicyID)
	}
	if p.NotificationThreshold < 0 || p.NotificationThreshold > p.RetentionPeriod {
		return fmt.Errorf("%w: policy %s notification threshold outside retention period", ErrInvalidPolicy, p.PolicyID)
	}
	return nil
}

// Policy returns a policy by ID.
func (c *Catalog) Policy(ctx context.Context, policyID string) (*storage.RetentionPolicy, error) {
	p, err := c.store.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, policyID)
	}
	return p, nil
}

// Policies returns all installed policies.
func (c *Catalog) Policies(ctx context.Context) ([]*storage.RetentionPolicy, error) {
	return c.store.ListPolicies(ctx)
}

// RegisterParams are the inputs for registering a governed artifact.
type RegisterParams struct {
	// DataID is the producer-assigned artifact identifier. Empty means
	// one is generated.
	DataID        string
	DataType      string
	ContentHash   string
	PolicyID      string
	ParentID      string
	SecurityLevel string
	SizeBytes     int64
}

// Register records a governed artifact under a retention policy and returns
// the record with its computed expiration.
func (c *Catalog) Register(ctx context.Context, p RegisterParams) (*storage.RetentionRecord, error) {
	if !isHexHash(p.ContentHash) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentHash, p.ContentHash)
	}
	policy, err := c.Policy(ctx, p.PolicyID)
	if err != nil {
		return nil, err
	}
	if p.DataType != policy.DataType {
		return nil, fmt.Errorf("%w: policy %s governs %s, not %s",
			ErrInvalidPolicy, policy.PolicyID, policy.DataType, p.DataType)
	}

	dataID := p.DataID
	if dataID == "" {
		dataID = uuid.NewString()
	}

	now := c.now()
	rec := &storage.RetentionRecord{
		DataID:        dataID,
		DataType:      p.DataType,
		ContentHash:   p.ContentHash,
		PolicyID:      policy.PolicyID,
		ParentID:      p.ParentID,
		SecurityLevel: p.SecurityLevel,
		SizeBytes:     p.SizeBytes,
		RegisteredAt:  now,
		ExpiresAt:     now.Add(policy.RetentionPeriod),
	}
	if err := c.store.PutRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing record: %w", err)
	}

	c.trail.Record(ctx, audit.Event{
		Action:  audit.ActionRecordRegistered,
		Actor:   "system",
		Subject: rec.DataID,
		Detail:  fmt.Sprintf("type=%s policy=%s expires=%s", rec.DataType, rec.PolicyID, rec.ExpiresAt.UTC().Format(time.RFC3339)),
	})
	return rec, nil
}

// isHexHash reports whether s is exactly 64 lowercase-or-uppercase hex chars.
func isHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Record returns a record by ID, or nil if not found.
func (c *Catalog) Record(ctx context.Context, dataID string) (*storage.RetentionRecord, error) {
	return c.store.GetRecord(ctx, dataID)
}

// Children returns the unarchived child records of an artifact.
func (c *Catalog) Children(ctx context.Context, parentID string) ([]*storage.RetentionRecord, error) {
	return c.store.QueryRecords(ctx, &storage.RecordQuery{ParentID: parentID})
}

// FindExpired returns unarchived records past their expiration. Empty
// policyID and dataType match everything.
func (c *Catalog) FindExpired(ctx context.Context, policyID, dataType string) ([]*storage.RetentionRecord, error) {
	cutoff := c.now()
	return c.store.QueryRecords(ctx, &storage.RecordQuery{
		PolicyID:      policyID,
		DataType:      dataType,
		ExpiresBefore: &cutoff,
	})
}

// ExpiringRecord pairs a record with its time left.
type ExpiringRecord struct {
	Record    *storage.RetentionRecord
	TimeLeft  time.Duration
	Threshold time.Duration
}

// FindExpiringSoon returns unexpired records inside their policy's
// notification threshold. Empty policyID and dataType match everything.
func (c *Catalog) FindExpiringSoon(ctx context.Context, policyID, dataType string) ([]*ExpiringRecord, error) {
	policies, err := c.store.ListPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}

	now := c.now()
	var out []*ExpiringRecord
	for _, policy := range policies {
		if policy.NotificationThreshold <= 0 {
			continue
		}
		if policyID != "" && policy.PolicyID != policyID {
			continue
		}
		horizon := now.Add(policy.NotificationThreshold)
		recs, err := c.store.QueryRecords(ctx, &storage.RecordQuery{
			PolicyID:      policy.PolicyID,
			DataType:      dataType,
			ExpiresAfter:  &now,
			ExpiresBefore: &horizon,
		})
		if err != nil {
			return nil, fmt.Errorf("querying policy %s: %w", policy.PolicyID, err)
		}
		for _, r := range recs {
			out = append(out, &ExpiringRecord{
				Record:    r,
				TimeLeft:  r.ExpiresAt.Sub(now),
				Threshold: policy.NotificationThreshold,
			})
		}
	}
	return out, nil
}

// Stats summarizes catalog contents.
type Stats struct {
	TotalRecords    int64
	ArchivedRecords int64
	ByPolicy        map[string]int64
	ByDataType      map[string]int64
}

// Summarize computes catalog statistics.
func (c *Catalog) Summarize(ctx context.Context) (*Stats, error) {
	recs, err := c.store.QueryRecords(ctx, &storage.RecordQuery{IncludeArchived: true})
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	stats := &Stats{
		ByPolicy:   make(map[string]int64),
		ByDataType: make(map[string]int64),
	}
	for _, r := range recs {
		stats.TotalRecords++
		if r.Archived {
			stats.ArchivedRecords++
		}
		stats.ByPolicy[r.PolicyID]++
		stats.ByDataType[r.DataType]++
	}
	return stats, nil
}
