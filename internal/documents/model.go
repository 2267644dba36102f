package documents

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnknownFormat = errors.New("unknown document format")
)

// Format is an export file type.
type Format string

const (
	FormatDocx     Format = "docx"
	FormatMarkdown Format = "md"
)

const (
	ContentTypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
)

// ParseFormat accepts docx, md and markdown. Empty means docx.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "docx":
		return FormatDocx, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", ErrUnknownFormat
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return ContentTypeMarkdown
	}
	return ContentTypeDocx
}

// Document is an exported report archived in the object store.
type Document struct {
	ID           string    `json:"document_id"`
	JobID        string    `json:"job_id,omitempty"`
	BusinessName string    `json:"business_name"`
	Format       Format    `json:"format"`
	FileName     string    `json:"file_name"`
	StorageKey   string    `json:"-"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
