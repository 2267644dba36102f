package diagnostics

import (
	"time"

	"marketsauce-agent/internal/research"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// Input is the intake submitted to POST /api/diagnostic/create.
type Input struct {
	BusinessName string `json:"business_name"`
	WebsiteURL   string `json:"website_url"`
	TargetMarket string `json:"target_market"`
	WhatTheySell string `json:"what_they_sell"`
	Competitors  string `json:"competitors,omitempty"`
	Challenges   string `json:"challenges,omitempty"`
	Goals        string `json:"goals,omitempty"`
	Context      string `json:"context,omitempty"`
	Mode         Mode   `json:"mode"`
}

// ResearchInput narrows the intake to what research needs.
func (in Input) ResearchInput() research.Input {
	return research.Input{
		BusinessName: in.BusinessName,
		WebsiteURL:   in.WebsiteURL,
		TargetMarket: in.TargetMarket,
		Competitors:  in.Competitors,
	}
}

// Diagnostic is one job and, once complete, its report.
type Diagnostic struct {
	ID               string     `json:"job_id"`
	Status           string     `json:"status"`
	CurrentPhase     int        `json:"current_phase"`
	TotalPhases      int        `json:"total_phases"`
	PhaseName        string     `json:"phase_name"`
	Inputs           Input      `json:"inputs"`
	Diagnostic       string     `json:"diagnostic,omitempty"`
	ExecutiveSummary string     `json:"executive_summary,omitempty"`
	SystemPrompt     *string    `json:"system_prompt,omitempty"`
	FollowUpPrompts  []string   `json:"follow_up_prompts,omitempty"`
	ErrorCode        string     `json:"error_code,omitempty"`
	ErrorMessage     string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Output is what the final phase writes onto a job.
type Output struct {
	Diagnostic       string
	ExecutiveSummary string
	SystemPrompt     *string
	FollowUpPrompts  []string
}
