package diagnostics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores diagnostics in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Diagnostic
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Diagnostic)}
}

// Create stores the diagnostic.
func (r *MemoryRepo) Create(ctx context.Context, d Diagnostic) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	r.byID[d.ID] = cloneDiagnostic(d)
	return nil
}

// GetByID returns a diagnostic by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return Diagnostic{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return Diagnostic{}, ErrNotFound
	}
	return cloneDiagnostic(d), nil
}

// UpdatePhase sets status and phase. The phase never moves backwards.
func (r *MemoryRepo) UpdatePhase(ctx context.Context, id, status string, phase int, phaseName string) error {
	return r.update(ctx, id, func(d *Diagnostic, now time.Time) {
		d.Status = status
		if phase >= d.CurrentPhase {
			d.CurrentPhase = phase
			d.PhaseName = phaseName
		}
		if status == StatusInProgress && d.StartedAt == nil {
			d.StartedAt = &now
		}
	})
}

// Complete stores the report and marks the job complete.
func (r *MemoryRepo) Complete(ctx context.Context, id string, out Output, completedAt time.Time) error {
	return r.update(ctx, id, func(d *Diagnostic, _ time.Time) {
		d.Status = StatusComplete
		d.CurrentPhase = d.TotalPhases
		d.Diagnostic = out.Diagnostic
		d.ExecutiveSummary = out.ExecutiveSummary
		d.SystemPrompt = out.SystemPrompt
		d.FollowUpPrompts = append([]string(nil), out.FollowUpPrompts...)
		d.CompletedAt = &completedAt
	})
}

// Fail marks the job as errored.
func (r *MemoryRepo) Fail(ctx context.Context, id, code, message string, completedAt time.Time) error {
	return r.update(ctx, id, func(d *Diagnostic, _ time.Time) {
		d.Status = StatusError
		d.ErrorCode = code
		d.ErrorMessage = message
		d.CompletedAt = &completedAt
	})
}

// List returns diagnostics newest first.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Diagnostic, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, cloneDiagnostic(d))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Diagnostic{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(d *Diagnostic, now time.Time)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	fn(&d, now)
	d.UpdatedAt = now
	r.byID[id] = d
	return nil
}

func cloneDiagnostic(d Diagnostic) Diagnostic {
	if d.FollowUpPrompts != nil {
		d.FollowUpPrompts = append([]string(nil), d.FollowUpPrompts...)
	}
	if d.SystemPrompt != nil {
		sp := *d.SystemPrompt
		d.SystemPrompt = &sp
	}
	return d
}
