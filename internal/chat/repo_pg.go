package chat

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, s Session) error {
	const query = `
INSERT INTO chat_sessions (id, diagnostic_id, diagnostic_context, system_prompt, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	var diagnosticID any
	if s.DiagnosticID != "" {
		diagnosticID = s.DiagnosticID
	}
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.CreatedAt
	}
	_, err := r.DB.ExecContext(ctx, query, s.ID, diagnosticID, s.DiagnosticContext, s.SystemPrompt, s.CreatedAt, updatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Session, error) {
	var (
		s            Session
		diagnosticID sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
SELECT id, diagnostic_id, diagnostic_context, system_prompt, created_at, updated_at
FROM chat_sessions WHERE id = $1`, id).
		Scan(&s.ID, &diagnosticID, &s.DiagnosticContext, &s.SystemPrompt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	s.DiagnosticID = diagnosticID.String

	rows, err := r.DB.QueryContext(ctx, `SELECT role, content FROM chat_messages WHERE session_id = $1 ORDER BY id`, id)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()
	s.Messages = []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return Session{}, err
		}
		s.Messages = append(s.Messages, m)
	}
	return s, rows.Err()
}

// AppendMessages inserts msgs in order inside one transaction.
func (r *PGRepo) AppendMessages(ctx context.Context, id string, msgs ...Message) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)`,
			id, m.Role, m.Content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	return err
}
