package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/diagnostics"
	"marketsauce-agent/internal/llm"
	"marketsauce-agent/internal/services/health"
	"marketsauce-agent/internal/shared/config"
)

func newTestRouter(t *testing.T, rateLimited bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &diagnostics.Service{Repo: diagnostics.NewMemoryRepo(), LLM: llm.PlaceholderClient{}}
	return NewRouter(RouterDeps{
		Config:            config.Config{RateLimitEnabled: rateLimited},
		DiagnosticHandler: diagnostics.NewHandler(svc),
	})
}

func TestHealthReportsHealthy(t *testing.T) {
	r := newTestRouter(t, false)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRootReportsVersion(t *testing.T) {
	r := newTestRouter(t, false)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["version"] != Version || body["message"] != "MarketSauce Agent API" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDiagnosticRoutesMounted(t *testing.T) {
	r := newTestRouter(t, false)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/diagnostic/status/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHealthIsNotRateLimited(t *testing.T) {
	r := newTestRouter(t, true)
	for i := 0; i < 50; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.Code)
		}
	}
}

func TestRateGroupFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/health", want: rateGroupExempt},
		{path: "/health/ready", want: rateGroupExempt},
		{path: "/api/diagnostic/status/abc", want: "POLLING"},
		{path: "/api/chat/message", want: "CHAT"},
		{path: "/api/diagnostic/create", want: "DEFAULT"},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := rateGroupFor(c); got != tt.want {
			t.Fatalf("rateGroupFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAddr(t *testing.T) {
	if Addr("") != ":8000" || Addr("9000") != ":9000" || Addr(":7000") != ":7000" {
		t.Fatalf("unexpected addr normalization")
	}
}

func TestReadyReportsChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{Health: health.NewService(nil, false, false)})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body health.Report
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checks["database"].Status != "memory" || body.Checks["llm"].Status != "placeholder" {
		t.Fatalf("unexpected checks: %+v", body.Checks)
	}
}
