package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"marketsauce-agent/internal/shared/storage/object"
)

func TestPutThenOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.Put(ctx, "reports/abc/Acme_Diagnostic.md", "text/markdown", strings.NewReader("# Acme"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected 6 bytes written, got %d", n)
	}

	rc, err := store.Open(ctx, "reports/abc/Acme_Diagnostic.md")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "# Acme" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Put(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := store.Open(context.Background(), ".."); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey on open, got %v", err)
	}
}

func TestPutHonorsCancelledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "a.txt", "text/plain", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	_, err := New(t.TempDir()).Open(context.Background(), "reports/none/Acme_Diagnostic.md")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
