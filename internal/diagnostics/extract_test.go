package diagnostics

import (
	"strings"
	"testing"
)

const sampleReport = `# Acme Diagnostic

## PHASE 1
Research notes.

## PHASE 8
Acme should own the implementation niche.

## PHASE 9
### 9.2 System Prompt
You are the Acme strategist.

## PHASE 10
**1.** What should I post this week?
**2.** Which competitor is weakest?
**3.** How do I price the premium tier?
`

func TestExtractExecutiveSummaryUsesPhase8Section(t *testing.T) {
	got := ExtractExecutiveSummary(sampleReport)
	if !strings.HasPrefix(got, "## PHASE 8") {
		t.Fatalf("expected summary to start at phase 8, got %q", got)
	}
	if strings.Contains(got, "PHASE 9") {
		t.Fatalf("summary leaked into phase 9: %q", got)
	}
}

func TestExtractExecutiveSummaryFallsBackToHead(t *testing.T) {
	diag := strings.Repeat("x", 2500)
	if got := ExtractExecutiveSummary(diag); len(got) != 2000 {
		t.Fatalf("expected 2000 byte fallback, got %d", len(got))
	}
	if got := ExtractExecutiveSummary("short"); got != "short" {
		t.Fatalf("unexpected short fallback: %q", got)
	}
}

func TestExtractExecutiveSummaryCapsUnterminatedSection(t *testing.T) {
	diag := "## Executive Summary\n" + strings.Repeat("y", 4000)
	if got := ExtractExecutiveSummary(diag); len(got) != 3000 {
		t.Fatalf("expected 3000 byte section, got %d", len(got))
	}
}

func TestExtractSystemPrompt(t *testing.T) {
	got := ExtractSystemPrompt(sampleReport)
	if got == nil {
		t.Fatalf("expected system prompt")
	}
	if !strings.Contains(*got, "You are the Acme strategist.") || strings.Contains(*got, "PHASE 10") {
		t.Fatalf("unexpected system prompt: %q", *got)
	}
	if ExtractSystemPrompt("# nothing here") != nil {
		t.Fatalf("expected nil when no system prompt section")
	}
}

func TestExtractFollowUpPrompts(t *testing.T) {
	got := ExtractFollowUpPrompts(sampleReport)
	if len(got) != 3 {
		t.Fatalf("expected 3 prompts, got %d: %q", len(got), got)
	}
	if got[0] != "**1.** What should I post this week?" {
		t.Fatalf("unexpected first prompt: %q", got[0])
	}
	if !strings.HasSuffix(got[2], "premium tier?") {
		t.Fatalf("unexpected last prompt: %q", got[2])
	}
	if ExtractFollowUpPrompts("no phase ten") != nil {
		t.Fatalf("expected nil without phase 10")
	}
}
