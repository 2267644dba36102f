package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")

	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port 8000, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("expected anthropic provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMMaxTokens != 16000 {
		t.Fatalf("expected 16000 max tokens, got %d", cfg.LLMMaxTokens)
	}
	if len(cfg.CORSAllowOrigin) != 2 {
		t.Fatalf("expected 2 default origins, got %v", cfg.CORSAllowOrigin)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("FRONTEND_URL", "https://app.marketsauce.test")
	t.Setenv("FIRECRAWL_BASE_URL", "https://scrape.test/v1/")
	t.Setenv("DATABASE_URL", "postgres://x")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3, got %q", cfg.ObjectStoreType)
	}
	if cfg.FirecrawlBaseURL != "https://scrape.test/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.FirecrawlBaseURL)
	}
	want := []string{"http://a.test", "http://b.test", "https://app.marketsauce.test"}
	if len(cfg.CORSAllowOrigin) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.CORSAllowOrigin)
	}
	for i := range want {
		if cfg.CORSAllowOrigin[i] != want[i] {
			t.Fatalf("origin %d: expected %q, got %q", i, want[i], cfg.CORSAllowOrigin[i])
		}
	}
}
