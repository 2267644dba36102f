package queue

import (
	"strings"
	"testing"
	"time"
)

func TestNewMessageStampsVersion(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.FixedZone("X", 3600))
	msg := NewMessage("job-123", "req-456", now)

	if msg.Version != CurrentVersion {
		t.Fatalf("expected version %d, got %d", CurrentVersion, msg.Version)
	}
	if msg.EnqueuedAt != "2026-03-02T09:00:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", msg.EnqueuedAt)
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	if !strings.Contains(string(payload), `"jobId":"job-123"`) {
		t.Fatalf("expected jobId key in payload, got %s", payload)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
