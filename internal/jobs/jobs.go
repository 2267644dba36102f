// Package jobs submits diagnostic jobs and polls them to completion.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketsauce-agent/internal/apiclient"
	"marketsauce-agent/internal/report"
)

const (
	DefaultMaxAttempts    = 120
	DefaultInterval       = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultSubmitTimeout  = 30 * time.Second

	fallbackBusinessName = "Your Business"
)

var (
	// ErrJobFailed is returned when the backend reports status "error".
	ErrJobFailed = errors.New("diagnostic job failed")
	// ErrPollTimeout is returned after MaxAttempts non-terminal polls.
	ErrPollTimeout = errors.New("diagnostic generation timed out")
	// ErrConnectionLost is an ErrPollTimeout whose final attempt failed
	// at the transport level.
	ErrConnectionLost = fmt.Errorf("%w: lost connection to server", ErrPollTimeout)
)

// JobError carries the backend's error message for a failed job.
type JobError struct {
	JobID   string
	Message string
}

func (e *JobError) Error() string {
	if e.Message == "" {
		return ErrJobFailed.Error()
	}
	return e.Message
}

func (e *JobError) Is(target error) bool { return target == ErrJobFailed }

// Options tunes the protocol. Zero values use the defaults above.
type Options struct {
	MaxAttempts    int
	Interval       time.Duration
	RequestTimeout time.Duration
	SubmitTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = DefaultSubmitTimeout
	}
	return o
}

// Client speaks the job protocol over an apiclient.Client.
type Client struct {
	api  *apiclient.Client
	opts Options
}

// New returns a Client.
func New(api *apiclient.Client, opts Options) *Client {
	return &Client{api: api, opts: opts.withDefaults()}
}

type createRequest struct {
	BusinessName string  `json:"business_name"`
	WebsiteURL   string  `json:"website_url"`
	TargetMarket string  `json:"target_market"`
	WhatTheySell string  `json:"what_they_sell"`
	Competitors  *string `json:"competitors"`
	Challenges   *string `json:"challenges"`
	Goals        *string `json:"goals"`
	Context      *string `json:"context"`
	Mode         string  `json:"mode"`
}

type createResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Submit creates a job and returns its id.
func (c *Client) Submit(ctx context.Context, intake report.IntakeData, tier report.Tier) (string, error) {
	in := intake.Normalized()
	body := createRequest{
		BusinessName: in.BusinessName,
		WebsiteURL:   in.WebsiteURL,
		TargetMarket: in.TargetMarket,
		WhatTheySell: in.WhatTheySell,
		Competitors:  optional(in.Competitors),
		Challenges:   optional(in.Challenges),
		Goals:        optional(in.Goals),
		Context:      optional(in.Context),
		Mode:         tier.WireMode(),
	}
	var out createResponse
	if err := c.api.DoJSON(ctx, "submit", http.MethodPost, "/api/diagnostic/create", c.opts.SubmitTimeout, body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.JobID) == "" {
		return "", &apiclient.Error{Kind: apiclient.KindMalformed, Op: "submit", Detail: "missing job_id"}
	}
	return out.JobID, nil
}

type statusInputs struct {
	BusinessName string `json:"business_name"`
	TargetMarket string `json:"target_market"`
}

type statusResponse struct {
	JobID            string        `json:"job_id"`
	Status           string        `json:"status"`
	CurrentPhase     int           `json:"current_phase"`
	TotalPhases      int           `json:"total_phases"`
	PhaseName        string        `json:"phase_name"`
	Diagnostic       string        `json:"diagnostic"`
	ExecutiveSummary string        `json:"executive_summary"`
	SystemPrompt     *string       `json:"system_prompt"`
	FollowUpPrompts  []string      `json:"follow_up_prompts"`
	Inputs           *statusInputs `json:"inputs"`
	Error            string        `json:"error"`
}

// Status fetches one status snapshot. An unknown status string is a
// MALFORMED_RESPONSE error.
func (c *Client) Status(ctx context.Context, jobID string) (report.Job, error) {
	var out statusResponse
	path := "/api/diagnostic/status/" + url.PathEscape(jobID)
	if err := c.api.DoJSON(ctx, "status", http.MethodGet, path, c.opts.RequestTimeout, nil, &out); err != nil {
		return report.Job{}, err
	}
	status, ok := report.ParseWireStatus(out.Status)
	if !ok {
		return report.Job{}, &apiclient.Error{Kind: apiclient.KindMalformed, Op: "status", Detail: fmt.Sprintf("unknown status %q", out.Status)}
	}
	job := report.Job{
		ID:          jobID,
		Status:      status,
		Phase:       out.CurrentPhase,
		PhaseName:   out.PhaseName,
		TotalPhases: out.TotalPhases,
	}
	switch status {
	case report.StatusComplete:
		job.Result = resultFrom(out)
	case report.StatusError:
		job.ErrorMessage = out.Error
	}
	return job, nil
}

// Poll repeats Status until the job is terminal or MaxAttempts polls
// have been made. Every attempt counts, whether it failed or returned a
// running status. onUpdate sees each successfully decoded snapshot.
// Cancelling ctx stops the loop with no further requests or callbacks.
func (c *Client) Poll(ctx context.Context, jobID string, onUpdate func(report.Job)) (report.Job, error) {
	timer := time.NewTimer(c.opts.Interval)
	defer timer.Stop()

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(c.opts.Interval)
			select {
			case <-ctx.Done():
				return report.Job{}, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return report.Job{}, err
		}

		job, err := c.Status(ctx, jobID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report.Job{}, ctxErr
		}
		lastErr = err
		if err != nil {
			continue
		}
		if onUpdate != nil {
			onUpdate(job)
		}
		switch job.Status {
		case report.StatusComplete:
			if job.Result == nil {
				lastErr = &apiclient.Error{Kind: apiclient.KindMalformed, Op: "status", Detail: "complete without result"}
				continue
			}
			return job, nil
		case report.StatusError:
			return job, &JobError{JobID: jobID, Message: job.ErrorMessage}
		}
	}

	timedOut := report.Job{ID: jobID, Status: report.StatusError, ErrorMessage: ErrPollTimeout.Error()}
	if lastErr != nil {
		return timedOut, fmt.Errorf("%w: %v", ErrConnectionLost, lastErr)
	}
	return timedOut, ErrPollTimeout
}

func resultFrom(out statusResponse) *report.DiagnosticResult {
	res := &report.DiagnosticResult{
		BusinessName:     fallbackBusinessName,
		DiagnosticText:   out.Diagnostic,
		ExecutiveSummary: out.ExecutiveSummary,
		FollowUpPrompts:  out.FollowUpPrompts,
	}
	if out.Inputs != nil {
		if name := strings.TrimSpace(out.Inputs.BusinessName); name != "" {
			res.BusinessName = name
		}
		res.TargetMarket = out.Inputs.TargetMarket
	}
	if out.SystemPrompt != nil {
		res.SystemPrompt = *out.SystemPrompt
	}
	if strings.TrimSpace(res.ExecutiveSummary) == "" {
		res.ExecutiveSummary = report.SummaryFromText(res.DiagnosticText)
	}
	return res
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
