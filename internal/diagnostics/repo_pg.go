package diagnostics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `
	id, status, current_phase, total_phases, phase_name, inputs, diagnostic, executive_summary,
	system_prompt, follow_up_prompts, error_code, error_message, created_at, started_at,
	completed_at, updated_at`

// Create inserts a new diagnostic.
func (r *PGRepo) Create(ctx context.Context, d Diagnostic) error {
	const query = `
INSERT INTO diagnostics (id, status, current_phase, total_phases, phase_name, inputs, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	inputs, err := json.Marshal(d.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = d.CreatedAt
	}
	_, err = r.DB.ExecContext(ctx, query,
		d.ID, d.Status, d.CurrentPhase, d.TotalPhases, d.PhaseName, inputs, d.CreatedAt, updatedAt)
	return err
}

// GetByID fetches a diagnostic by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Diagnostic, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM diagnostics WHERE id = $1`, id)
	d, err := scanDiagnostic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Diagnostic{}, ErrNotFound
	}
	return d, err
}

// UpdatePhase advances the job. GREATEST keeps the phase monotonic.
func (r *PGRepo) UpdatePhase(ctx context.Context, id, status string, phase int, phaseName string) error {
	const query = `
UPDATE diagnostics
SET status = $2,
    phase_name = CASE WHEN $3 >= current_phase THEN $4 ELSE phase_name END,
    current_phase = GREATEST(current_phase, $3),
    started_at = CASE WHEN $2 = 'in_progress' THEN COALESCE(started_at, now()) ELSE started_at END,
    updated_at = now()
WHERE id = $1`
	return r.execOne(ctx, query, id, status, phase, phaseName)
}

// Complete stores the report.
func (r *PGRepo) Complete(ctx context.Context, id string, out Output, completedAt time.Time) error {
	const query = `
UPDATE diagnostics
SET status = $2,
    current_phase = total_phases,
    diagnostic = $3,
    executive_summary = $4,
    system_prompt = $5,
    follow_up_prompts = $6,
    completed_at = $7,
    updated_at = now()
WHERE id = $1`
	var prompts any
	if out.FollowUpPrompts != nil {
		raw, err := json.Marshal(out.FollowUpPrompts)
		if err != nil {
			return fmt.Errorf("marshal follow up prompts: %w", err)
		}
		prompts = raw
	}
	var systemPrompt any
	if out.SystemPrompt != nil {
		systemPrompt = *out.SystemPrompt
	}
	return r.execOne(ctx, query, id, StatusComplete, out.Diagnostic, out.ExecutiveSummary, systemPrompt, prompts, completedAt)
}

// Fail records the failure.
func (r *PGRepo) Fail(ctx context.Context, id, code, message string, completedAt time.Time) error {
	const query = `
UPDATE diagnostics
SET status = $2, error_code = $3, error_message = $4, completed_at = $5, updated_at = now()
WHERE id = $1`
	return r.execOne(ctx, query, id, StatusError, code, message, completedAt)
}

// List returns diagnostics newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Diagnostic, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM diagnostics ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		d, err := scanDiagnostic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagnostic(row rowScanner) (Diagnostic, error) {
	var (
		d            Diagnostic
		inputs       []byte
		diagnostic   sql.NullString
		summary      sql.NullString
		systemPrompt sql.NullString
		prompts      []byte
		errorCode    sql.NullString
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	if err := row.Scan(
		&d.ID, &d.Status, &d.CurrentPhase, &d.TotalPhases, &d.PhaseName, &inputs,
		&diagnostic, &summary, &systemPrompt, &prompts, &errorCode, &errorMessage,
		&d.CreatedAt, &startedAt, &completedAt, &d.UpdatedAt,
	); err != nil {
		return Diagnostic{}, err
	}
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &d.Inputs); err != nil {
			return Diagnostic{}, fmt.Errorf("decode inputs: %w", err)
		}
	}
	if len(prompts) > 0 {
		if err := json.Unmarshal(prompts, &d.FollowUpPrompts); err != nil {
			return Diagnostic{}, fmt.Errorf("decode follow up prompts: %w", err)
		}
	}
	d.Diagnostic = diagnostic.String
	d.ExecutiveSummary = summary.String
	if systemPrompt.Valid {
		sp := systemPrompt.String
		d.SystemPrompt = &sp
	}
	d.ErrorCode = errorCode.String
	d.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		t := startedAt.Time
		d.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return d, nil
}
