package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketsauce-agent/internal/llm"
)

func TestCompleteSendsMessagesRequest(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("missing version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"# Acme Diagnostic"}],"usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	client, err := NewClient("sk-test", "claude-sonnet-4-20250514", server.URL+"/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Complete(context.Background(), llm.Request{
		System:    "You are MarketSauce Agent",
		Messages:  llm.UserMessage("analyze"),
		MaxTokens: 16000,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "# Acme Diagnostic" {
		t.Fatalf("unexpected output %q", out)
	}
	if got.MaxTokens != 16000 || got.System != "You are MarketSauce Agent" {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != llm.RoleUser {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestCompleteReportsHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	client, err := NewClient("sk-test", "m", server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{Messages: llm.UserMessage("x")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "http status 503") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client, err := NewClient("sk-test", "m", server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{Messages: llm.UserMessage("x")})
	if !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "m", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
