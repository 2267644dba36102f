package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateStoresInputsAsJSON(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	d := Diagnostic{
		ID:           "8f0c6b0e-1111-4b7a-9c55-6c7a1f2e3d4c",
		Status:       StatusPending,
		CurrentPhase: 0,
		TotalPhases:  8,
		PhaseName:    "Initializing",
		Inputs:       Input{BusinessName: "Acme", WebsiteURL: "https://acme.com", Mode: ModeStrategic},
		CreatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO diagnostics").
		WithArgs(d.ID, StatusPending, 0, 8, "Initializing", sqlmock.AnyArg(), now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "status", "current_phase", "total_phases", "phase_name", "inputs", "diagnostic",
		"executive_summary", "system_prompt", "follow_up_prompts", "error_code", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).AddRow(
		"job-1", StatusComplete, 8, 8, "Compiling final report",
		[]byte(`{"business_name":"Acme","mode":"full"}`), "# report", "summary",
		"you are", []byte(`["one","two"]`), nil, nil, now, now, now, now,
	)
	mock.ExpectQuery("SELECT .* FROM diagnostics WHERE id = \\$1").
		WithArgs("job-1").
		WillReturnRows(rows)

	d, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d.Inputs.BusinessName != "Acme" || d.Inputs.Mode != ModeFull {
		t.Fatalf("unexpected inputs: %+v", d.Inputs)
	}
	if d.SystemPrompt == nil || *d.SystemPrompt != "you are" {
		t.Fatalf("unexpected system prompt: %v", d.SystemPrompt)
	}
	if len(d.FollowUpPrompts) != 2 || d.FollowUpPrompts[1] != "two" {
		t.Fatalf("unexpected prompts: %v", d.FollowUpPrompts)
	}
	if d.ErrorMessage != "" || d.CompletedAt == nil {
		t.Fatalf("unexpected error/completed fields: %+v", d)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT .* FROM diagnostics").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdatePhaseMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE diagnostics").
		WithArgs("job-1", StatusInProgress, 2, "Researching competitors").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePhase(context.Background(), "job-1", StatusInProgress, 2, "Researching competitors")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoFail(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()
	mock.ExpectExec("UPDATE diagnostics").
		WithArgs("job-1", StatusError, ErrorCodeLLM, "boom", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Fail(context.Background(), "job-1", ErrorCodeLLM, "boom", at); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
