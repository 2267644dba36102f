package diagnostics

import (
	"context"
	"time"
)

// Repo persists diagnostic jobs.
type Repo interface {
	Create(ctx context.Context, d Diagnostic) error
	GetByID(ctx context.Context, id string) (Diagnostic, error)
	UpdatePhase(ctx context.Context, id, status string, phase int, phaseName string) error
	Complete(ctx context.Context, id string, out Output, completedAt time.Time) error
	Fail(ctx context.Context, id, code, message string, completedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]Diagnostic, error)
}
