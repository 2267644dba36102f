package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoAppendMessagesInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE chat_sessions SET updated_at").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO chat_messages").WithArgs("s1", RoleUser, "hi").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO chat_messages").WithArgs("s1", RoleAssistant, "hello").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err = repo.AppendMessages(context.Background(), "s1",
		Message{Role: RoleUser, Content: "hi"},
		Message{Role: RoleAssistant, Content: "hello"})
	if err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoAppendMessagesMissingSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE chat_sessions").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.AppendMessages(context.Background(), "gone", Message{Role: RoleUser, Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetLoadsMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, diagnostic_id").WithArgs("s1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "diagnostic_id", "diagnostic_context", "system_prompt", "created_at", "updated_at"}).
			AddRow("s1", nil, "ctx", "prompt", now, now))
	mock.ExpectQuery("SELECT role, content FROM chat_messages").WithArgs("s1").WillReturnRows(
		sqlmock.NewRows([]string{"role", "content"}).
			AddRow(RoleUser, "hi").
			AddRow(RoleAssistant, "hello"))

	sess, err := repo.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.DiagnosticID != "" || len(sess.Messages) != 2 || sess.Messages[1].Content != "hello" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}
