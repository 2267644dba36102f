package wizard

import (
	"context"
	"errors"

	"marketsauce-agent/internal/conversation"
	"marketsauce-agent/internal/jobs"
	"marketsauce-agent/internal/notify"
	"marketsauce-agent/internal/report"
)

func (w *Wizard) run(ctx context.Context, gen uint64, in report.IntakeData, tier report.Tier) {
	if w.cfg.Mode.IsDemo() || w.cfg.Jobs == nil {
		w.runDemo(ctx, gen, in, msgDemoComplete)
		return
	}

	jobID, err := w.cfg.Jobs.Submit(ctx, in, tier)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		w.cfg.Mode.Degrade()
		w.notify(gen, msgSubmitFallback, notify.Warning)
		w.runDemo(ctx, gen, in, "")
		return
	}
	if !w.applyIfCurrent(gen, func() { w.jobID = jobID }) {
		return
	}

	job, err := w.cfg.Jobs.Poll(ctx, jobID, func(j report.Job) {
		w.setProgress(gen, j.Progress())
	})
	if ctx.Err() != nil {
		return
	}
	switch {
	case err == nil:
		w.finish(gen, *job.Result, msgLiveComplete)
	case errors.Is(err, jobs.ErrJobFailed):
		w.fail(gen, "Error: "+err.Error())
	case errors.Is(err, jobs.ErrConnectionLost):
		w.fail(gen, msgConnectionLost)
	default:
		w.fail(gen, msgTimedOut)
	}
}

// runDemo animates the phases through setProgress like the live path.
// An empty successMsg finishes without a toast.
func (w *Wizard) runDemo(ctx context.Context, gen uint64, in report.IntakeData, successMsg string) {
	res, err := w.cfg.Demo.Generate(ctx, in, w.cfg.Phases, func(p report.Progress) {
		w.setProgress(gen, p)
	})
	if err != nil {
		return
	}
	w.finish(gen, res, successMsg)
}

// setProgress is the single writer of the progress tracker for both
// paths. The phase index never moves backwards within a run.
func (w *Wizard) setProgress(gen uint64, p report.Progress) {
	w.applyIfCurrent(gen, func() {
		if p.Index >= w.progress.Index {
			w.progress = p
		}
	})
}

func (w *Wizard) finish(gen uint64, res report.DiagnosticResult, successMsg string) {
	if res.ExecutiveSummary == "" {
		res.ExecutiveSummary = report.SummaryFromText(res.DiagnosticText)
	}
	applied := w.applyIfCurrent(gen, func() {
		w.result = &res
		w.view = ViewResults
		w.cancel = nil
		w.chat = conversation.New(conversation.Config{
			API:     w.cfg.API,
			Mode:    w.cfg.Mode,
			Replies: w.cfg.Replies,
			Context: res.DiagnosticText,
			Options: w.cfg.Chat,
		})
	})
	if applied && successMsg != "" {
		w.cfg.Notifier.Notify(notify.Toast{Message: successMsg, Level: notify.Success})
	}
}

func (w *Wizard) fail(gen uint64, msg string) {
	applied := w.applyIfCurrent(gen, func() {
		w.resetLocked()
	})
	if applied {
		w.cfg.Notifier.Notify(notify.Toast{Message: msg, Level: notify.Error})
	}
}

// notify emits a toast only for the live run.
func (w *Wizard) notify(gen uint64, msg string, level notify.Level) {
	w.mu.Lock()
	current := gen == w.gen && w.view == ViewProcessing
	w.mu.Unlock()
	if current {
		w.cfg.Notifier.Notify(notify.Toast{Message: msg, Level: level})
	}
}
