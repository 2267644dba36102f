package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(diagnosticStartedTotal)
	IncDiagnosticStarted()
	if got := testutil.ToFloat64(diagnosticStartedTotal); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}

	IncDiagnosticFailed("LLM_TIMEOUT")
	if got := testutil.ToFloat64(diagnosticFailedTotal.WithLabelValues("LLM_TIMEOUT")); got < 1 {
		t.Fatalf("expected failed counter >= 1, got %v", got)
	}
}

func TestHandlerServesPrometheusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncDiagnosticCompleted()
	ObserveDiagnosticDurationMs(1500)

	r := gin.New()
	r.GET("/metrics", Handler())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, name := range []string{"diagnostic_completed_total", "diagnostic_duration_ms_bucket"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
