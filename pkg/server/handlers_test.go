package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/cleanup"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/quota"
	"mercator-hq/callisto/pkg/retention"
	"mercator-hq/callisto/pkg/session"
	"mercator-hq/callisto/pkg/storage"
)

func newTestServer(t *testing.T, dailyLimit int) (*Server, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	trail := audit.NewTrail(backend)
	catalog := retention.NewCatalog(backend, trail)
	if err := catalog.InstallPolicies(context.Background(), retention.DefaultPolicies()); err != nil {
		t.Fatal(err)
	}

	sessions := session.NewManager(backend, trail, nil)
	arbiter := quota.NewArbiter(backend, trail, nil, quota.Config{
		DailyLimit:       dailyLimit,
		MaxReserveAmount: 10,
	})
	runner := cleanup.NewRunner(catalog, backend, backend, trail, nil, cleanup.RunnerConfig{BatchSize: 10})

	cfg := config.NewDefaultConfig()
	return NewServer(&cfg.Server, sessions, arbiter, runner), backend
}

func doJSON(t *testing.T, handler http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHandleCreateSession(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	h := srv.setupRoutes()

	rec := doJSON(t, h, http.MethodPost, "/v1/sessions", "alice", createSessionRequest{
		SecurityLevel:  "enhanced",
		Classification: "internal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[sessionResponse](t, rec)
	if resp.SessionID == "" || resp.MaxExtensions != 3 || resp.QuotaUsed != 1 {
		t.Errorf("response = %+v", resp)
	}

	status := doJSON(t, h, http.MethodGet, "/v1/sessions/"+resp.SessionID+"/status", "alice", nil)
	if status.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", status.Code)
	}
	st := decode[sessionStatusResponse](t, status)
	if st.Expired || !st.CanExtend {
		t.Errorf("status = %+v", st)
	}
}

func TestHandleCreateSession_Validation(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	h := srv.setupRoutes()

	if rec := doJSON(t, h, http.MethodPost, "/v1/sessions", "", createSessionRequest{}); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing identity: status = %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/sessions", "alice", createSessionRequest{SecurityLevel: "paranoid"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad level: status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/sessions", "alice", createSessionRequest{Classification: "secret"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad classification: status = %d", rec.Code)
	}
}

func TestHandleCreateSession_QuotaExhausted(t *testing.T) {
	srv, _ := newTestServer(t, 2)
	h := srv.setupRoutes()

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, h, http.MethodPost, "/v1/sessions", "alice", createSessionRequest{}); rec.Code != http.StatusCreated {
			t.Fatalf("create %d: status = %d", i, rec.Code)
		}
	}

	rec := doJSON(t, h, http.MethodPost, "/v1/sessions", "alice", createSessionRequest{})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	resp := decode[errorResponse](t, rec)
	if resp.Error.Code != "quota_exceeded" {
		t.Errorf("error code = %s", resp.Error.Code)
	}

	// Other users still admitted.
	if rec := doJSON(t, h, http.MethodPost, "/v1/sessions", "bob", createSessionRequest{}); rec.Code != http.StatusCreated {
		t.Errorf("bob: status = %d", rec.Code)
	}
}

func TestHandleExtendSession(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	h := srv.setupRoutes()

	created := decode[sessionResponse](t, doJSON(t, h, http.MethodPost, "/v1/sessions", "alice", createSessionRequest{}))

	rec := doJSON(t, h, http.MethodPost, "/v1/sessions/"+created.SessionID+"/extend", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[extendResponse](t, rec)
	if !resp.Extended {
		t.Errorf("response = %+v", resp)
	}

	if rec := doJSON(t, h, http.MethodPost, "/v1/sessions/"+created.SessionID+"/extend", "mallory", nil); rec.Code != http.StatusForbidden {
		t.Errorf("wrong owner: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/sessions/nope/extend", "alice", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d", rec.Code)
	}
}

func TestHandleQuota(t *testing.T) {
	srv, _ := newTestServer(t, 5)
	h := srv.setupRoutes()

	rec := doJSON(t, h, http.MethodPost, "/v1/quota/alice/reserve", "alice", reserveRequest{Amount: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("reserve: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp := decode[reserveResponse](t, rec); !resp.Reserved || resp.Used != 3 {
		t.Errorf("reserve response = %+v", resp)
	}

	st := decode[quotaStatusResponse](t, doJSON(t, h, http.MethodGet, "/v1/quota/alice", "alice", nil))
	if st.Used != 3 || st.Remaining != 2 {
		t.Errorf("status = %+v", st)
	}

	if rec := doJSON(t, h, http.MethodPost, "/v1/quota/alice/reserve", "alice", reserveRequest{Amount: 0}); rec.Code != http.StatusBadRequest {
		t.Errorf("zero amount: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/quota/alice/reserve", "alice", reserveRequest{Amount: 11}); rec.Code != http.StatusBadRequest {
		t.Errorf("oversized amount: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/quota/alice/reserve", "alice", reserveRequest{Amount: 3}); rec.Code != http.StatusTooManyRequests {
		t.Errorf("over limit: status = %d", rec.Code)
	}
}

func TestHandleCleanup(t *testing.T) {
	srv, backend := newTestServer(t, 10)
	h := srv.setupRoutes()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := backend.PutRecord(ctx, &storage.RetentionRecord{
			DataID:      fmt.Sprintf("rec-%d", i),
			DataType:    retention.TypeSessionMetadata,
			ContentHash: "a3f5b8c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6c8d0e2f4a6b8c0d2e4f6a8",
			PolicyID:    "session-metadata",
			ExpiresAt:   time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, h, http.MethodPost, "/v1/admin/cleanup", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	task := decode[cleanupTaskResponse](t, rec)
	if task.Status != storage.TaskCompleted || task.RecordsDeleted != 3 {
		t.Errorf("task = %+v", task)
	}

	get := doJSON(t, h, http.MethodGet, "/v1/admin/cleanup/"+task.TaskID, "admin", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get task: status = %d", get.Code)
	}

	verify := doJSON(t, h, http.MethodGet, "/v1/admin/cleanup/"+task.TaskID+"/verify", "admin", nil)
	if verify.Code != http.StatusOK {
		t.Fatalf("verify: status = %d", verify.Code)
	}
	report := decode[verifyResponse](t, verify)
	if !report.IsComplete || report.RemainingCount != 0 {
		t.Errorf("report = %+v", report)
	}

	if rec := doJSON(t, h, http.MethodPost, "/v1/admin/cleanup", "admin", runCleanupRequest{PolicyID: "nope"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown policy: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/v1/admin/cleanup/nope", "admin", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown task: status = %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	h := srv.setupRoutes()

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
