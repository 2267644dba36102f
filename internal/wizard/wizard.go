// Package wizard is the top-level controller: it owns the current view,
// the submitted intake, the diagnostic result and the chat session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"marketsauce-agent/internal/apiclient"
	"marketsauce-agent/internal/conversation"
	"marketsauce-agent/internal/demo"
	"marketsauce-agent/internal/jobs"
	"marketsauce-agent/internal/mode"
	"marketsauce-agent/internal/notify"
	"marketsauce-agent/internal/report"
)

// View is a wizard screen. Chat lives inside RESULTS.
type View string

const (
	ViewPricing    View = "PRICING"
	ViewIntake     View = "INTAKE"
	ViewProcessing View = "PROCESSING"
	ViewResults    View = "RESULTS"
)

// ErrInvalidTransition is returned when an action is not allowed from
// the current view. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid wizard transition")

// Toast texts.
const (
	msgBackendUnavailable = "Backend not available. Running in demo mode with sample data."
	msgSubmitFallback     = "Could not reach server. Generating demo diagnostic..."
	msgDemoComplete       = "Demo diagnostic complete!"
	msgLiveComplete       = "Diagnostic complete!"
	msgTimedOut           = "Diagnostic generation timed out. Please try again."
	msgConnectionLost     = "Lost connection to server. Please try again."
	msgReportDownloaded   = "Report downloaded!"
	msgMarkdownDownloaded = "File downloaded as Markdown!"
	msgMarkdownFallback   = "Downloaded as Markdown (server unavailable)"
)

// State is a snapshot for rendering.
type State struct {
	View     View
	Tier     report.Tier
	Mode     mode.Mode
	Intake   report.IntakeData
	Progress report.Progress
	JobID    string
	Result   *report.DiagnosticResult
	// Err is the intake validation error shown on INTAKE.
	Err error
}

// Config wires a Wizard. API and Jobs may be nil for a demo-only wizard.
type Config struct {
	API      *apiclient.Client
	Jobs     *jobs.Client
	Demo     *demo.Generator
	Replies  *demo.Replies
	Mode     *mode.Switch
	Notifier notify.Notifier
	Saver    Saver
	Chat     conversation.Options
	Phases   []string
	// OnChange is called after every state change, outside the lock.
	OnChange func(State)
}

// Wizard is safe for concurrent use.
type Wizard struct {
	cfg Config

	mu       sync.Mutex
	view     View
	tier     report.Tier
	intake   report.IntakeData
	progress report.Progress
	jobID    string
	result   *report.DiagnosticResult
	chat     *conversation.Session
	lastErr  error
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
}

// New returns a wizard on PRICING.
func New(cfg Config) *Wizard {
	if cfg.Mode == nil {
		cfg.Mode = mode.NewSwitch()
	}
	if cfg.Demo == nil {
		cfg.Demo = demo.NewGenerator()
	}
	if cfg.Replies == nil {
		cfg.Replies = demo.NewReplies(nil)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if len(cfg.Phases) == 0 {
		cfg.Phases = report.Phases
	}
	if cfg.Jobs == nil && cfg.API != nil {
		cfg.Jobs = jobs.New(cfg.API, jobs.Options{})
	}
	return &Wizard{
		cfg:      cfg,
		view:     ViewPricing,
		tier:     report.DefaultTier,
		progress: report.InitialProgress(),
	}
}

// Start runs the availability probe once and decides the mode.
func (w *Wizard) Start(ctx context.Context) mode.Mode {
	available := false
	if w.cfg.API != nil {
		available = w.cfg.API.CheckAvailable(ctx)
	}
	m := w.cfg.Mode.Decide(available)
	if m == mode.Demo {
		w.cfg.Notifier.Notify(notify.Toast{Message: msgBackendUnavailable, Level: notify.Warning})
	}
	w.changed()
	return m
}

// Mode returns the session mode.
func (w *Wizard) Mode() mode.Mode { return w.cfg.Mode.Mode() }

// SelectTier records t and moves PRICING to INTAKE.
func (w *Wizard) SelectTier(t report.Tier) error {
	tier, err := report.ParseTier(string(t))
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.view != ViewPricing {
		view := w.view
		w.mu.Unlock()
		return fmt.Errorf("%w: select tier from %s", ErrInvalidTransition, view)
	}
	w.tier = tier
	w.view = ViewIntake
	w.lastErr = nil
	w.mu.Unlock()
	w.changed()
	return nil
}

// SubmitIntake validates in and, when valid, moves INTAKE to PROCESSING
// and starts the live or demo run in the background. An invalid intake
// keeps the wizard on INTAKE and returns the *report.ValidationError.
func (w *Wizard) SubmitIntake(in report.IntakeData) error {
	in = in.Normalized()

	w.mu.Lock()
	if w.view != ViewIntake {
		view := w.view
		w.mu.Unlock()
		return fmt.Errorf("%w: submit intake from %s", ErrInvalidTransition, view)
	}
	if err := in.Validate(); err != nil {
		w.lastErr = err
		w.mu.Unlock()
		w.changed()
		return err
	}

	w.gen++
	gen := w.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.view = ViewProcessing
	w.intake = in
	w.progress = report.InitialProgress()
	w.jobID = ""
	w.lastErr = nil
	w.cancel = cancel
	w.done = done
	tier := w.tier
	w.mu.Unlock()

	w.changed()
	go func() {
		defer close(done)
		defer cancel()
		w.run(ctx, gen, in, tier)
	}()
	return nil
}

// ShowPlans returns to PRICING from any view, cancelling in-flight work
// and discarding the result and chat session.
func (w *Wizard) ShowPlans() {
	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()
	w.changed()
}

// Close cancels any in-flight run.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.gen++
	w.mu.Unlock()
}

// WaitIdle blocks until the current run, if any, has returned.
func (w *Wizard) WaitIdle(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Chat returns the RESULTS chat session, or nil outside RESULTS.
func (w *Wizard) Chat() *conversation.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.view != ViewResults {
		return nil
	}
	return w.chat
}

func (w *Wizard) snapshotLocked() State {
	st := State{
		View:     w.view,
		Tier:     w.tier,
		Mode:     w.cfg.Mode.Mode(),
		Intake:   w.intake,
		Progress: w.progress,
		JobID:    w.jobID,
		Err:      w.lastErr,
	}
	if w.result != nil {
		res := *w.result
		res.FollowUpPrompts = append([]string(nil), w.result.FollowUpPrompts...)
		st.Result = &res
	}
	return st
}

func (w *Wizard) resetLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.chat != nil {
		w.chat.Close()
		w.chat = nil
	}
	w.gen++
	w.view = ViewPricing
	w.intake = report.IntakeData{}
	w.result = nil
	w.jobID = ""
	w.lastErr = nil
	w.progress = report.InitialProgress()
}

func (w *Wizard) changed() {
	if w.cfg.OnChange == nil {
		return
	}
	w.cfg.OnChange(w.Snapshot())
}

// applyIfCurrent runs fn under the lock only while gen is the live run
// and the wizard is still PROCESSING. It reports whether fn ran.
func (w *Wizard) applyIfCurrent(gen uint64, fn func()) bool {
	w.mu.Lock()
	if gen != w.gen || w.view != ViewProcessing {
		w.mu.Unlock()
		return false
	}
	fn()
	w.mu.Unlock()
	w.changed()
	return true
}
