package diagnostics

import (
	"strconv"
	"strings"
)

const (
	summarySectionLimit  = 3000
	summaryFallbackLimit = 2000
	promptSectionLimit   = 5000
	maxFollowUps         = 15
)

// ExtractExecutiveSummary returns the executive summary section or the
// head of the report when there is none.
func ExtractExecutiveSummary(diag string) string {
	if !strings.Contains(diag, "## PHASE 8") && !strings.Contains(diag, "## Executive Summary") {
		return headBytes(diag, summaryFallbackLimit)
	}
	start := firstIndex(diag, "## PHASE 8", "## Executive Summary", "### Executive Summary")
	if start < 0 {
		return headBytes(diag, summaryFallbackLimit)
	}
	rest := diag[start:]
	end := firstIndex(rest, "## PHASE 9", "## PHASE 10")
	if end < 0 {
		end = min(summarySectionLimit, len(rest))
	}
	return strings.TrimSpace(rest[:end])
}

// ExtractSystemPrompt returns the generated system prompt section, or nil.
func ExtractSystemPrompt(diag string) *string {
	if !strings.Contains(diag, "### 9.2") && !strings.Contains(diag, "## System Prompt") {
		return nil
	}
	start := firstIndex(diag, "### 9.2 System Prompt", "## System Prompt", "### System Prompt")
	if start < 0 {
		return nil
	}
	rest := diag[start:]
	end := strings.Index(rest, "## PHASE 10")
	if end < 0 {
		end = min(promptSectionLimit, len(rest))
	}
	out := strings.TrimSpace(rest[:end])
	return &out
}

// ExtractFollowUpPrompts returns the numbered prompts under "## PHASE 10".
func ExtractFollowUpPrompts(diag string) []string {
	start := strings.Index(diag, "## PHASE 10")
	if start < 0 {
		return nil
	}
	section := diag[start:]

	var prompts []string
	for i := 1; i <= maxFollowUps; i++ {
		from, marker := firstMatch(section, numberMarkers(i)...)
		if from < 0 {
			continue
		}
		rest := section[from:]
		to := len(rest)
		if next, _ := firstMatch(rest[len(marker):], numberMarkers(i+1)...); next >= 0 {
			to = next + len(marker)
		}
		prompt := strings.TrimSpace(rest[:to])
		if prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	if len(prompts) == 0 {
		return nil
	}
	return prompts
}

func numberMarkers(i int) []string {
	n := strconv.Itoa(i)
	return []string{"**" + n + ".", n + ".", "**" + n + ")**", n + ")"}
}

// firstIndex returns the index of the first marker, tried in order, found in s.
func firstIndex(s string, markers ...string) int {
	idx, _ := firstMatch(s, markers...)
	return idx
}

func firstMatch(s string, markers ...string) (int, string) {
	for _, m := range markers {
		if idx := strings.Index(s, m); idx >= 0 {
			return idx, m
		}
	}
	return -1, ""
}

func headBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
