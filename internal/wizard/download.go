package wizard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marketsauce-agent/internal/mode"
	"marketsauce-agent/internal/notify"
	"marketsauce-agent/internal/shared/util"
)

// DownloadKind selects what Download exports.
type DownloadKind string

const (
	DownloadReport       DownloadKind = "report"
	DownloadSystemPrompt DownloadKind = "system_prompt"
)

const exportTimeout = 30 * time.Second

// File is an exported artifact.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Saver persists exported files, returning where the file ended up.
type Saver interface {
	Save(ctx context.Context, f File) (string, error)
}

// DirSaver writes files into Dir.
type DirSaver struct {
	Dir string
}

// Save writes f under Dir, creating it when missing.
func (d DirSaver) Save(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := util.SanitizeFileName(f.Name)
	if err != nil {
		return "", err
	}
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return path, nil
}

type exportRequest struct {
	Diagnostic   string `json:"diagnostic"`
	BusinessName string `json:"business_name"`
	Format       string `json:"format"`
}

// Download exports the report or the system prompt from RESULTS. A LIVE
// report goes through the documents endpoint as docx; everything else,
// including a failed export, is saved as markdown.
func (w *Wizard) Download(ctx context.Context, kind DownloadKind) (string, error) {
	w.mu.Lock()
	if w.view != ViewResults || w.result == nil {
		view := w.view
		w.mu.Unlock()
		return "", fmt.Errorf("%w: download from %s", ErrInvalidTransition, view)
	}
	res := *w.result
	w.mu.Unlock()

	if w.cfg.Saver == nil {
		return "", fmt.Errorf("download: no saver configured")
	}

	exportFailed := false
	if kind == DownloadReport && w.cfg.Mode.Mode() == mode.Live && w.cfg.API != nil {
		blob, err := w.cfg.API.Download(ctx, "export", "/api/documents/generate", exportTimeout, exportRequest{
			Diagnostic:   res.DiagnosticText,
			BusinessName: res.BusinessName,
			Format:       "docx",
		})
		if err == nil {
			name := blob.FileName
			if strings.TrimSpace(name) == "" {
				name = util.ReportFileName(res.BusinessName, "docx")
			}
			path, err := w.cfg.Saver.Save(ctx, File{Name: name, ContentType: blob.ContentType, Data: blob.Data})
			if err == nil {
				w.cfg.Notifier.Notify(notify.Toast{Message: msgReportDownloaded, Level: notify.Success})
				return path, nil
			}
		}
		exportFailed = true
	}

	content, name := markdownExport(res.BusinessName, res.DiagnosticText, res.SystemPrompt, kind)
	path, err := w.cfg.Saver.Save(ctx, File{Name: name, ContentType: "text/markdown", Data: []byte(content)})
	if err != nil {
		w.cfg.Notifier.Notify(notify.Toast{Message: "Error: " + err.Error(), Level: notify.Error})
		return "", err
	}
	if exportFailed {
		w.cfg.Notifier.Notify(notify.Toast{Message: msgMarkdownFallback, Level: notify.Warning})
	} else {
		w.cfg.Notifier.Notify(notify.Toast{Message: msgMarkdownDownloaded, Level: notify.Success})
	}
	return path, nil
}

// markdownExport picks the content and file name. The system prompt
// falls back to the report text when the diagnostic has none.
func markdownExport(businessName, diagnostic, systemPrompt string, kind DownloadKind) (string, string) {
	if kind == DownloadSystemPrompt {
		content := systemPrompt
		if strings.TrimSpace(content) == "" {
			content = diagnostic
		}
		return content, util.ExportFileName(businessName, "System_Prompt", "md")
	}
	return diagnostic, util.ReportFileName(businessName, "md")
}
