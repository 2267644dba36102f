package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO generated_documents (id, job_id, business_name, format, file_name, storage_key, size_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var jobID sql.NullString
	if doc.JobID != "" {
		jobID = sql.NullString{String: doc.JobID, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID, jobID, doc.BusinessName, string(doc.Format), doc.FileName, doc.StorageKey, doc.SizeBytes, doc.CreatedAt)
	return err
}

// GetByID fetches a record by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT id, job_id, business_name, format, file_name, storage_key, size_bytes, created_at
FROM generated_documents WHERE id = $1`

	var (
		doc    Document
		jobID  sql.NullString
		format string
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &jobID, &doc.BusinessName, &format, &doc.FileName, &doc.StorageKey, &doc.SizeBytes, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.JobID = jobID.String
	doc.Format = Format(format)
	return doc, nil
}
