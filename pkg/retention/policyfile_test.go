package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/storage"
)

const testPolicyYAML = `
policies:
  - id: analysis-results
    data_type: analysis_result
    retention_period: 72h
    auto_cleanup: true
    secure_delete: true
    notification_threshold: 12h
  - id: uploaded-documents
    data_type: uploaded_document
    retention_period: 8h
    auto_cleanup: true
    secure_delete: true
    archive_before_delete: true
    notification_threshold: 1h
`

func writePolicyFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "retention.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPolicyFile(t *testing.T) {
	path := writePolicyFile(t, t.TempDir(), testPolicyYAML)

	policies, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("LoadPolicyFile: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("policy count = %d, want 2", len(policies))
	}
	p := policies[0]
	if p.PolicyID != "analysis-results" || p.RetentionPeriod != 72*time.Hour || !p.SecureDelete {
		t.Errorf("policy = %+v", p)
	}
	if !policies[1].ArchiveBeforeDelete {
		t.Error("archive_before_delete not parsed")
	}
}

func TestLoadPolicyFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadPolicyFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := writePolicyFile(t, dir, "policies: []\n")
	if _, err := LoadPolicyFile(empty); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("empty file: err = %v", err)
	}

	dup := writePolicyFile(t, dir, `
policies:
  - id: a
    data_type: analysis_result
    retention_period: 1h
  - id: a
    data_type: analysis_result
    retention_period: 2h
`)
	if _, err := LoadPolicyFile(dup); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("duplicate IDs: err = %v", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writePolicyFile(t, dir, testPolicyYAML)

	backend := storage.NewMemoryBackend()
	catalog := NewCatalog(backend, audit.NewTrail(backend))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(path, catalog)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.Reloaded = make(chan struct{}, 1)
	go w.Run(ctx)

	updated := `
policies:
  - id: analysis-results
    data_type: analysis_result
    retention_period: 24h
    auto_cleanup: true
    notification_threshold: 2h
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload not observed")
	}

	p, err := catalog.Policy(ctx, "analysis-results")
	if err != nil {
		t.Fatal(err)
	}
	if p.RetentionPeriod != 24*time.Hour {
		t.Errorf("RetentionPeriod = %v, want 24h", p.RetentionPeriod)
	}
}

func TestWatcher_KeepsPoliciesOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := writePolicyFile(t, dir, testPolicyYAML)

	backend := storage.NewMemoryBackend()
	catalog := NewCatalog(backend, audit.NewTrail(backend))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policies, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := catalog.InstallPolicies(ctx, policies); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, catalog)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	go w.Run(ctx)

	if err := os.WriteFile(path, []byte("policies: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * reloadDebounce)

	p, err := catalog.Policy(ctx, "analysis-results")
	if err != nil {
		t.Fatal(err)
	}
	if p.RetentionPeriod != 72*time.Hour {
		t.Errorf("policies changed after failed reload: %v", p.RetentionPeriod)
	}
}
