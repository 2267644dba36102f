package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/storage/object"
	"marketsauce-agent/internal/shared/telemetry"
	"marketsauce-agent/internal/shared/util"
)

// GenerateInput is the body of POST /api/documents/generate.
type GenerateInput struct {
	Diagnostic   string `json:"diagnostic"`
	BusinessName string `json:"business_name"`
	Format       string `json:"format"`
	JobID        string `json:"job_id,omitempty"`
}

// Service renders and archives report exports.
type Service struct {
	Store object.Store
	Repo  Repo
	Now   func() time.Time
}

// Generate renders the report and archives it. Archiving is best effort:
// when the store or repo fails the rendered bytes are still returned.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (Document, []byte, error) {
	if strings.TrimSpace(in.Diagnostic) == "" {
		return Document{}, nil, fmt.Errorf("%w: diagnostic is required", ErrInvalidInput)
	}
	format, err := ParseFormat(in.Format)
	if err != nil {
		return Document{}, nil, err
	}

	now := s.now()
	name := strings.TrimSpace(in.BusinessName)
	doc := Document{
		ID:           uuid.NewString(),
		JobID:        strings.TrimSpace(in.JobID),
		BusinessName: name,
		Format:       format,
		FileName:     util.ReportFileName(name, string(format)),
		CreatedAt:    now,
	}

	var content []byte
	switch format {
	case FormatMarkdown:
		content = []byte(in.Diagnostic)
	default:
		title := name + " Market Diagnostic"
		if name == "" {
			title = "MarketSauce Market Diagnostic"
		}
		content, err = RenderDocx(title, in.Diagnostic, now)
		if err != nil {
			return Document{}, nil, fmt.Errorf("render docx: %w", err)
		}
	}
	doc.SizeBytes = int64(len(content))
	metrics.IncDocumentsGenerated(string(format))

	if err := s.archive(ctx, &doc, content); err != nil {
		telemetry.Warn("documents.archive.failed", map[string]any{
			"document_id": doc.ID,
			"job_id":      doc.JobID,
			"error":       err,
		})
		doc.StorageKey = ""
	}
	return doc, content, nil
}

func (s *Service) archive(ctx context.Context, doc *Document, content []byte) error {
	if s.Store == nil || s.Repo == nil {
		return nil
	}
	doc.StorageKey = path.Join("reports", doc.CreatedAt.Format("2006/01/02"), doc.ID, doc.FileName)
	if _, err := s.Store.Put(ctx, doc.StorageKey, doc.Format.ContentType(), bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage put: %w", err)
	}
	if err := s.Repo.Create(ctx, *doc); err != nil {
		return fmt.Errorf("storage record: %w", err)
	}
	return nil
}

// Open returns an archived export and its content.
func (s *Service) Open(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	if s.Repo == nil || s.Store == nil {
		return Document{}, nil, ErrNotFound
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if errors.Is(err, object.ErrNotFound) {
		return Document{}, nil, ErrNotFound
	}
	if err != nil {
		return Document{}, nil, fmt.Errorf("storage open: %w", err)
	}
	return doc, body, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
