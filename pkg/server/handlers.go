package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/callisto/pkg/cleanup"
	"mercator-hq/callisto/pkg/quota"
	"mercator-hq/callisto/pkg/retention"
	"mercator-hq/callisto/pkg/session"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// callerID extracts the trusted identity set by the fronting auth layer.
func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

type createSessionRequest struct {
	SecurityLevel  string `json:"securityLevel"`
	Classification string `json:"classification"`
	RequestedHours int    `json:"requestedHours"`
}

type sessionResponse struct {
	SessionID     string    `json:"sessionId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	MaxExtensions int       `json:"maxExtensions"`
	QuotaUsed     int       `json:"quotaUsed"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user := callerID(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header required")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	if req.SecurityLevel == "" {
		req.SecurityLevel = string(session.LevelStandard)
	}
	if req.Classification == "" {
		req.Classification = string(session.ClassPublic)
	}
	level, err := session.ParseSecurityLevel(req.SecurityLevel)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_security_level", err.Error())
		return
	}
	class, err := session.ParseDataClassification(req.Classification)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_classification", err.Error())
		return
	}

	used, err := s.arbiter.CheckAndReserve(r.Context(), user, 1)
	if err != nil {
		s.writeQuotaError(w, err)
		return
	}

	sess, err := s.sessions.Create(r.Context(), session.CreateParams{
		OwnerID:        user,
		SecurityLevel:  level,
		Classification: class,
		RequestedHours: req.RequestedHours,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:     sess.SessionID,
		ExpiresAt:     sess.ExpiresAt.UTC(),
		MaxExtensions: sess.MaxExtensions,
		QuotaUsed:     used,
	})
}

type sessionStatusResponse struct {
	SessionID            string    `json:"sessionId"`
	Expired              bool      `json:"expired"`
	InGracePeriod        bool      `json:"inGracePeriod"`
	ExpiresAt            time.Time `json:"expiresAt"`
	TimeRemainingSeconds int64     `json:"timeRemainingSeconds"`
	CanExtend            bool      `json:"canExtend"`
	WarningAt            time.Time `json:"warningAt"`
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	st, err := s.sessions.GetStatus(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return
	}
	if !st.Exists {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionStatusResponse{
		SessionID:            sessionID,
		Expired:              st.Expired,
		InGracePeriod:        st.InGrace,
		ExpiresAt:            st.ExpiresAt.UTC(),
		TimeRemainingSeconds: int64(st.TimeRemaining.Seconds()),
		CanExtend:            st.CanExtend,
		WarningAt:            st.WarningTime.UTC(),
	})
}

type extendRequest struct {
	AdditionalHours int `json:"additionalHours"`
}

type extendResponse struct {
	Extended  bool      `json:"extended"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func (s *Server) handleExtendSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	user := callerID(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "missing_identity", "X-User-ID header required")
		return
	}

	var req extendRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
			return
		}
	}

	ok, err := s.sessions.Extend(r.Context(), sessionID, user, req.AdditionalHours)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	case errors.Is(err, session.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not_owner", "caller does not own this session")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to extend session")
		return
	}

	if !ok {
		writeJSON(w, http.StatusOK, extendResponse{Extended: false, Reason: "extension limit reached or session expired"})
		return
	}
	st, err := s.sessions.GetStatus(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, extendResponse{Extended: true, ExpiresAt: st.ExpiresAt.UTC()})
}

type quotaStatusResponse struct {
	UserID    string    `json:"userId"`
	PeriodKey string    `json:"periodKey"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Exceeded  bool      `json:"exceeded"`
	ResetAt   time.Time `json:"resetAt"`
}

func (s *Server) handleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	st, err := s.arbiter.Status(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load quota")
		return
	}
	writeJSON(w, http.StatusOK, quotaStatusResponse{
		UserID:    st.UserID,
		PeriodKey: st.PeriodKey,
		Used:      st.Used,
		Limit:     st.Limit,
		Remaining: st.Remaining,
		Exceeded:  st.Exceeded,
		ResetAt:   st.ResetAt.UTC(),
	})
}

type reserveRequest struct {
	Amount int `json:"amount"`
}

type reserveResponse struct {
	Reserved bool `json:"reserved"`
	Used     int  `json:"used"`
}

func (s *Server) handleQuotaReserve(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	req := reserveRequest{Amount: 1}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
			return
		}
	}

	used, err := s.arbiter.CheckAndReserve(r.Context(), userID, req.Amount)
	if err != nil {
		s.writeQuotaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reserveResponse{Reserved: true, Used: used})
}

func (s *Server) writeQuotaError(w http.ResponseWriter, err error) {
	var exceeded *quota.ExceededError
	switch {
	case errors.Is(err, quota.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.As(err, &exceeded):
		w.Header().Set("Retry-After", exceeded.ResetAt.UTC().Format(http.TimeFormat))
		writeError(w, http.StatusTooManyRequests, "quota_exceeded", exceeded.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "quota check failed")
	}
}

type runCleanupRequest struct {
	PolicyID string `json:"policyId"`
}

type cleanupTaskResponse struct {
	TaskID          string   `json:"taskId"`
	Status          string   `json:"status"`
	RecordsDeleted  int      `json:"recordsDeleted"`
	RecordsArchived int      `json:"recordsArchived"`
	ReclaimedBytes  int64    `json:"reclaimedBytes"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	DurationMs      int64    `json:"durationMs"`
}

func (s *Server) handleRunCleanup(w http.ResponseWriter, r *http.Request) {
	var req runCleanupRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
			return
		}
	}

	task, err := s.runner.Run(r.Context(), req.PolicyID)
	switch {
	case errors.Is(err, cleanup.ErrCleanupInProgress):
		writeError(w, http.StatusConflict, "cleanup_in_progress", "a cleanup run is already in flight")
		return
	case errors.Is(err, retention.ErrPolicyNotFound):
		writeError(w, http.StatusNotFound, "policy_not_found", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", "cleanup run failed")
		return
	}

	writeJSON(w, http.StatusOK, cleanupTaskResponse{
		TaskID:          task.TaskID,
		Status:          task.Status,
		RecordsDeleted:  task.RecordsDeleted,
		RecordsArchived: task.RecordsArchived,
		ReclaimedBytes:  task.ReclaimedBytes,
		Errors:          task.Errors,
		Warnings:        task.Warnings,
		DurationMs:      task.DurationMs,
	})
}

func (s *Server) handleCleanupTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	task, err := s.runner.Task(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task_not_found", "cleanup task not found")
		return
	}
	writeJSON(w, http.StatusOK, cleanupTaskResponse{
		TaskID:          task.TaskID,
		Status:          task.Status,
		RecordsDeleted:  task.RecordsDeleted,
		RecordsArchived: task.RecordsArchived,
		ReclaimedBytes:  task.ReclaimedBytes,
		Errors:          task.Errors,
		Warnings:        task.Warnings,
		DurationMs:      task.DurationMs,
	})
}

type verifyResponse struct {
	TaskID         string `json:"taskId"`
	Status         string `json:"status"`
	IsComplete     bool   `json:"isComplete"`
	RemainingCount int64  `json:"remainingCount"`
}

func (s *Server) handleVerifyCleanup(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	report, err := s.runner.Verify(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "task_not_found", "cleanup task not found")
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		TaskID:         report.TaskID,
		Status:         report.Status,
		IsComplete:     report.IsComplete,
		RemainingCount: report.RemainingCount,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
