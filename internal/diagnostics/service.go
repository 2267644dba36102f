package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketsauce-agent/internal/events"
	"marketsauce-agent/internal/llm"
	"marketsauce-agent/internal/queue"
	"marketsauce-agent/internal/report"
	"marketsauce-agent/internal/research"
	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/telemetry"
	"marketsauce-agent/internal/shared/util"
)

const defaultMaxTokens = 16000

// Service contains business logic for diagnostic jobs.
type Service struct {
	Repo         Repo
	Research     research.Researcher
	LLM          llm.Client
	Queue        queue.Client
	Events       events.Publisher
	SystemPrompt string
	MaxTokens    int
	Now          func() time.Time
}

// Create validates the intake, stores a pending job and starts the pipeline
// through the queue when one is configured, otherwise in a goroutine.
func (s *Service) Create(ctx context.Context, in Input) (Diagnostic, error) {
	in = normalizeInput(in)
	if err := ValidateInput(in); err != nil {
		return Diagnostic{}, err
	}

	now := s.now()
	d := Diagnostic{
		ID:           uuid.NewString(),
		Status:       StatusPending,
		CurrentPhase: 0,
		TotalPhases:  len(report.Phases),
		PhaseName:    report.InitialPhaseName,
		Inputs:       in,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		return Diagnostic{}, fmt.Errorf("storage create diagnostic: %w", err)
	}

	if s.Queue != nil {
		msg := queue.NewMessage(d.ID, RequestIDFromContext(ctx), now)
		err := s.Queue.Send(ctx, msg)
		if err == nil {
			return d, nil
		}
		telemetry.Warn("diagnostic.enqueue.failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     d.ID,
			"error":      sanitizeError(err),
		})
	}

	go s.completeAsync(backgroundWithRequestID(ctx), d.ID)
	return d, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (Diagnostic, error) {
	if strings.TrimSpace(id) == "" {
		return Diagnostic{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns jobs newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Diagnostic, error) {
	return s.Repo.List(ctx, limit, offset)
}

// ValidateInput checks the fields the pipeline cannot run without.
func ValidateInput(in Input) error {
	var missing []string
	if in.BusinessName == "" {
		missing = append(missing, "business_name")
	}
	if in.WebsiteURL == "" {
		missing = append(missing, "website_url")
	} else if !report.IsWebURL(in.WebsiteURL) {
		return fmt.Errorf("%w: website_url must be an absolute http(s) URL", ErrValidation)
	}
	if in.TargetMarket == "" {
		missing = append(missing, "target_market")
	}
	if in.WhatTheySell == "" {
		missing = append(missing, "what_they_sell")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func normalizeInput(in Input) Input {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	in.TargetMarket = strings.TrimSpace(in.TargetMarket)
	in.WhatTheySell = strings.TrimSpace(in.WhatTheySell)
	in.Competitors = strings.TrimSpace(in.Competitors)
	in.Challenges = strings.TrimSpace(in.Challenges)
	in.Goals = strings.TrimSpace(in.Goals)
	in.Context = strings.TrimSpace(in.Context)
	in.Mode = ParseMode(string(in.Mode))
	return in
}

func (s *Service) completeAsync(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncPanic("diagnostic")
			s.failDiagnostic(ctx, id, fmt.Errorf("panic: %v", r), nil)
		}
	}()
	_ = s.Process(ctx, id)
}

// Process runs the pipeline for one job. Jobs that already finished are
// left untouched so redelivered queue messages are harmless. A pipeline
// failure is recorded on the job and also returned.
func (s *Service) Process(ctx context.Context, id string) error {
	d, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("diagnostic lookup: %w", err)
	}
	if d.Status == StatusComplete || d.Status == StatusError {
		telemetry.Info("diagnostic.skip", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     id,
			"status":     d.Status,
		})
		return nil
	}

	startedAt := s.now()
	metrics.IncDiagnosticStarted()
	telemetry.Info("diagnostic.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"job_id":            id,
		"business_name":     d.Inputs.BusinessName,
		"mode":              string(d.Inputs.Mode),
		"status":            StatusInProgress,
		"status_transition": d.Status + "->" + StatusInProgress,
	})

	out, err := s.run(ctx, d)
	if err != nil {
		s.failDiagnostic(ctx, id, err, &startedAt)
		return err
	}

	completedAt := s.now()
	if err := s.Repo.Complete(ctx, id, out, completedAt); err != nil {
		err = fmt.Errorf("storage complete diagnostic: %w", err)
		s.failDiagnostic(ctx, id, err, &startedAt)
		return err
	}
	metrics.IncDiagnosticCompleted()
	metrics.ObserveDiagnosticDurationMs(durationMs(&startedAt, &completedAt))
	s.publish(ctx, events.Update{
		JobID:        id,
		Status:       StatusComplete,
		CurrentPhase: len(report.Phases),
		PhaseName:    report.PhaseName(len(report.Phases)),
	})
	telemetry.Info("diagnostic.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"job_id":            id,
		"status":            StatusComplete,
		"status_transition": StatusInProgress + "->" + StatusComplete,
		"duration_ms":       durationMs(&startedAt, &completedAt),
		"report_bytes":      len(out.Diagnostic),
	})
	return nil
}

func (s *Service) run(ctx context.Context, d Diagnostic) (Output, error) {
	in := d.Inputs
	rin := in.ResearchInput()
	plan := research.DiagnosticPlan()
	var data research.Data

	if err := s.advance(ctx, d.ID, 1); err != nil {
		return Output{}, err
	}
	if s.Research != nil {
		page, err := s.Research.Scrape(ctx, in.WebsiteURL)
		if err != nil {
			telemetry.Warn("research.scrape.failed", map[string]any{"job_id": d.ID, "url": in.WebsiteURL, "error": err})
			page = research.Page{URL: in.WebsiteURL, Markdown: "[Could not fetch " + in.WebsiteURL + "]"}
		}
		data.Website = &page
	}

	if err := s.advance(ctx, d.ID, 2); err != nil {
		return Output{}, err
	}
	if s.Research != nil {
		competitors, err := research.ResearchCompetitors(ctx, s.Research, in.Competitors, plan)
		if err != nil {
			return Output{}, fmt.Errorf("research competitors: %w", err)
		}
		data.Competitors = competitors
	}

	if err := s.advance(ctx, d.ID, 3); err != nil {
		return Output{}, err
	}
	if s.Research != nil {
		data.Trends = research.ResearchTrends(ctx, s.Research, in.TargetMarket, plan)
	}

	for phase := 4; phase <= 6; phase++ {
		if err := s.advance(ctx, d.ID, phase); err != nil {
			return Output{}, err
		}
	}

	var out Output
	if llm.IsConfigured(s.LLM) {
		client := newRetryingLLM(s.LLM, d.ID, RequestIDFromContext(ctx))
		text, err := client.Complete(ctx, llm.Request{
			System:    s.systemPrompt(),
			Messages:  llm.UserMessage(BuildPrompt(in, data)),
			MaxTokens: s.maxTokens(),
		})
		if err != nil {
			return Output{}, fmt.Errorf("llm generate diagnostic: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return Output{}, fmt.Errorf("llm generate diagnostic: %w", llm.ErrEmptyCompletion)
		}
		out.Diagnostic = text
	} else {
		out.Diagnostic = research.BuildReport(rin, data)
	}

	for phase := 7; phase <= 8; phase++ {
		if err := s.advance(ctx, d.ID, phase); err != nil {
			return Output{}, err
		}
	}

	if llm.IsConfigured(s.LLM) {
		out.ExecutiveSummary = ExtractExecutiveSummary(out.Diagnostic)
		out.SystemPrompt = ExtractSystemPrompt(out.Diagnostic)
		out.FollowUpPrompts = ExtractFollowUpPrompts(out.Diagnostic)
	} else {
		out.ExecutiveSummary = research.ExecutiveSummary(in.BusinessName)
	}
	return out, nil
}

// advance persists, counts and publishes the move to phase n.
func (s *Service) advance(ctx context.Context, id string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := report.PhaseName(n)
	if err := s.Repo.UpdatePhase(ctx, id, StatusInProgress, n, name); err != nil {
		return fmt.Errorf("storage update phase %d: %w", n, err)
	}
	metrics.IncDiagnosticPhase(name)
	s.publish(ctx, events.Update{
		JobID:        id,
		Status:       StatusInProgress,
		CurrentPhase: n,
		PhaseName:    name,
	})
	telemetry.Info("diagnostic.phase", map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"job_id":     id,
		"phase":      n,
		"phase_name": name,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, u events.Update) {
	if s.Events == nil {
		return
	}
	u.Type = events.TypeDiagnosticUpdate
	if u.At.IsZero() {
		u.At = s.now()
	}
	if err := s.Events.PublishUpdate(ctx, u); err != nil {
		telemetry.Warn("diagnostic.publish.failed", map[string]any{"job_id": u.JobID, "error": err})
	}
}

func (s *Service) failDiagnostic(ctx context.Context, id string, err error, startedAt *time.Time) {
	code, _ := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := s.now()
	if updateErr := s.Repo.Fail(context.Background(), id, code, msg, completedAt); updateErr != nil {
		telemetry.Error("diagnostic.fail.update_failed", map[string]any{
			"job_id":   id,
			"error":    updateErr,
			"original": msg,
		})
	}
	metrics.IncDiagnosticFailed(code)
	if startedAt != nil {
		metrics.ObserveDiagnosticDurationMs(durationMs(startedAt, &completedAt))
	}
	s.publish(context.Background(), events.Update{JobID: id, Status: StatusError, Error: msg})
	telemetry.Error("diagnostic.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"job_id":            id,
		"status":            StatusError,
		"status_transition": StatusInProgress + "->" + StatusError,
		"error_code":        code,
		"error":             msg,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func (s *Service) systemPrompt() string {
	if strings.TrimSpace(s.SystemPrompt) == "" {
		return DefaultSystemPrompt
	}
	return s.SystemPrompt
}

func (s *Service) maxTokens() int {
	if s.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return s.MaxTokens
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, ErrValidation) {
		return ErrorCodeValidation, false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "llm") || strings.Contains(msg, "anthropic") || strings.Contains(msg, "openai") {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") {
			return ErrorCodeLLMTimeout, true
		}
		return ErrorCodeLLM, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "research") || strings.Contains(msg, "firecrawl") {
		return ErrorCodeResearch, true
	}
	if strings.Contains(msg, "storage") || strings.Contains(msg, "diagnostic lookup") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	return util.Truncate(msg, maxLen)
}
