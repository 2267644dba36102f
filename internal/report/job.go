package report

import (
	"strings"

	"marketsauce-agent/internal/shared/util"
)

// JobStatus is the client view of a diagnostic job's status.
type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusComplete   JobStatus = "COMPLETE"
	StatusError      JobStatus = "ERROR"
)

// Terminal reports whether no further status change is expected.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ParseWireStatus maps backend status strings. "processing" is accepted
// as a synonym of in_progress.
func ParseWireStatus(raw string) (JobStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued":
		return StatusPending, true
	case "in_progress", "processing":
		return StatusInProgress, true
	case "complete", "completed":
		return StatusComplete, true
	case "error", "failed":
		return StatusError, true
	}
	return "", false
}

// Job is one in-flight or finished diagnostic request.
type Job struct {
	ID           string
	Status       JobStatus
	Phase        int
	PhaseName    string
	TotalPhases  int
	Result       *DiagnosticResult
	ErrorMessage string
}

// Progress returns the job's phase as a Progress value.
func (j Job) Progress() Progress {
	total := j.TotalPhases
	if total <= 0 {
		total = len(Phases)
	}
	return Progress{Index: j.Phase, Name: j.PhaseName, Total: total}
}

// DiagnosticResult is a produced report, live or demo.
type DiagnosticResult struct {
	BusinessName     string
	TargetMarket     string
	DiagnosticText   string
	ExecutiveSummary string
	SystemPrompt     string
	FollowUpPrompts  []string
	Demo             bool
}

const summaryLimit = 600

// SummaryFromText derives an executive summary from the report body:
// the first paragraphs after the title, cut on a word boundary.
func SummaryFromText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || trimmed == "---" {
			continue
		}
		kept = append(kept, trimmed)
	}
	body := strings.Join(kept, " ")
	if len(body) <= summaryLimit {
		return body
	}
	head := util.Truncate(body, summaryLimit)
	if cut := strings.LastIndexByte(head, ' '); cut > 0 {
		head = head[:cut]
	}
	return strings.TrimSpace(head) + "..."
}
