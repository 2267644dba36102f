package health

import (
	"context"
	"errors"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestReadyWithoutDatabase(t *testing.T) {
	rep, ok := NewService(nil, false, true).Ready(context.Background())
	if !ok || rep.Status != "healthy" {
		t.Fatalf("expected healthy, got %+v", rep)
	}
	if rep.Checks["database"].Status != "memory" {
		t.Fatalf("unexpected database check: %+v", rep.Checks["database"])
	}
	if rep.Checks["llm"].Status != "placeholder" || rep.Checks["research"].Status != "configured" {
		t.Fatalf("unexpected provider checks: %+v", rep.Checks)
	}
}

func TestReadyFailsWhenPingFails(t *testing.T) {
	svc := NewService(pingerFunc(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("ping should carry a deadline")
		}
		return errors.New("connection refused")
	}), true, true)

	rep, ok := svc.Ready(context.Background())
	if ok {
		t.Fatalf("expected unready")
	}
	if rep.Status != "unhealthy" || rep.Checks["database"].Error != "connection refused" {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestReadyWithDatabaseUp(t *testing.T) {
	rep, ok := NewService(pingerFunc(func(context.Context) error { return nil }), true, false).Ready(context.Background())
	if !ok || rep.Checks["database"].Status != "up" {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
