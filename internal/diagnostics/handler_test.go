package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/server/middleware"
)

func setupRouter(t *testing.T) (*gin.Engine, *MemoryRepo, *queueStub, *time.Time) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	q := &queueStub{}
	clock := time.Now()
	h := NewHandler(&Service{Repo: repo, Queue: q})
	h.pollLimiter = newPollLimiter(time.Second, func() time.Time { return clock })

	router := gin.New()
	router.Use(middleware.RequestID())
	h.RegisterRoutes(router.Group("/api/diagnostic"))
	return router, repo, q, &clock
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateReturnsAccepted(t *testing.T) {
	router, repo, q, _ := setupRouter(t)

	resp := doJSON(router, http.MethodPost, "/api/diagnostic/create", map[string]string{
		"business_name":  "Acme",
		"website_url":    "https://acme.com",
		"target_market":  "SMB owners",
		"what_they_sell": "CRM",
		"mode":           "express",
	})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.JobID == "" || body.Status != StatusPending || body.Message != "Diagnostic generation started" {
		t.Fatalf("unexpected body: %+v", body)
	}
	d, err := repo.GetByID(context.Background(), body.JobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Inputs.Mode != ModeExpress {
		t.Fatalf("expected express mode, got %q", d.Inputs.Mode)
	}
	if len(q.messages) != 1 || q.messages[0].RequestID == "" {
		t.Fatalf("expected queued message carrying request id, got %+v", q.messages)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	router, _, _, _ := setupRouter(t)
	resp := doJSON(router, http.MethodPost, "/api/diagnostic/create", map[string]string{"business_name": "Acme"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestStatusNotFound(t *testing.T) {
	router, _, _, _ := setupRouter(t)
	resp := doJSON(router, http.MethodGet, "/api/diagnostic/status/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["detail"] != "Job not found" {
		t.Fatalf("unexpected detail: %v", body["detail"])
	}
}

func TestStatusReturnsCompletedReport(t *testing.T) {
	router, repo, _, clock := setupRouter(t)
	id := seedPending(t, repo, validInput())
	sp := "You are the Acme strategist."
	if err := repo.Complete(context.Background(), id, Output{
		Diagnostic:       "# report",
		ExecutiveSummary: "summary",
		SystemPrompt:     &sp,
		FollowUpPrompts:  []string{"one"},
	}, time.Now().UTC()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	resp := doJSON(router, http.MethodGet, "/api/diagnostic/status/"+id, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != StatusComplete || body["diagnostic"] != "# report" || body["system_prompt"] != sp {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["current_phase"].(float64) != 8 || body["total_phases"].(float64) != 8 {
		t.Fatalf("unexpected phases: %v", body)
	}

	// Immediate re-poll inside the window is limited.
	resp = doJSON(router, http.MethodGet, "/api/diagnostic/status/"+id, nil)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", resp.Header().Get("Retry-After"))
	}

	*clock = clock.Add(2 * time.Second)
	resp = doJSON(router, http.MethodGet, "/api/diagnostic/status/"+id, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 after window, got %d", resp.Code)
	}
}

func TestStatusOmitsResultWhileInProgress(t *testing.T) {
	router, repo, _, _ := setupRouter(t)
	id := seedPending(t, repo, validInput())
	if err := repo.UpdatePhase(context.Background(), id, StatusInProgress, 3, "Analyzing market trends"); err != nil {
		t.Fatalf("update: %v", err)
	}
	resp := doJSON(router, http.MethodGet, "/api/diagnostic/status/"+id, nil)
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if _, ok := body["diagnostic"]; ok {
		t.Fatalf("diagnostic must be absent while in progress")
	}
	if body["phase_name"] != "Analyzing market trends" {
		t.Fatalf("unexpected phase name: %v", body["phase_name"])
	}
}

func TestGetReturnsFullRecord(t *testing.T) {
	router, repo, _, _ := setupRouter(t)
	id := seedPending(t, repo, validInput())
	resp := doJSON(router, http.MethodGet, "/api/diagnostic/"+id, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var d Diagnostic
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID != id || d.Inputs.BusinessName != "Acme" {
		t.Fatalf("unexpected record: %+v", d)
	}
}
