package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/diagnostics"
	"marketsauce-agent/internal/llm"
	"marketsauce-agent/internal/shared/config"
)

func devConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		LLMProvider:     "anthropic",
	}
}

func TestBuildDevUsesMemoryRepos(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(devConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected no database in dev without DATABASE_URL")
	}
	if _, ok := app.DiagnosticsRepo.(*diagnostics.MemoryRepo); !ok {
		t.Fatalf("expected memory diagnostics repo, got %T", app.DiagnosticsRepo)
	}
	if app.Queue != nil {
		t.Fatalf("expected no queue without MS_SQS_QUEUE_URL")
	}
	if llm.IsConfigured(app.LLM) {
		t.Fatalf("expected placeholder llm without an api key")
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", resp.Code)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildLLMRequiresKeyOutsideDev(t *testing.T) {
	if _, err := buildLLM(config.Config{Env: "production", LLMProvider: "anthropic"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	client, err := buildLLM(config.Config{Env: "production", LLMProvider: "none"})
	if err != nil || llm.IsConfigured(client) {
		t.Fatalf("expected placeholder for provider none, got %T %v", client, err)
	}
}

type overrideProcessor struct{}

func (overrideProcessor) Process(ctx context.Context, jobID string) error { return nil }

func TestProcessorPrefersOverride(t *testing.T) {
	app := &App{DiagnosticsService: &diagnostics.Service{}}
	if _, ok := app.Processor().(*diagnostics.Service); !ok {
		t.Fatalf("expected diagnostics service by default")
	}
	app.DiagnosticProcessor = overrideProcessor{}
	if _, ok := app.Processor().(overrideProcessor); !ok {
		t.Fatalf("expected override processor")
	}
	var nilApp *App
	if nilApp.Processor() != nil {
		t.Fatalf("expected nil processor for nil app")
	}
}
