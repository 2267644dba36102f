package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"marketsauce-agent/internal/conversation"
	"marketsauce-agent/internal/notify"
	"marketsauce-agent/internal/report"
	"marketsauce-agent/internal/wizard"
)

const barWidth = 20

// renderer prints view changes and progress steps. OnChange may be
// called from the wizard's background run.
type renderer struct {
	mu    sync.Mutex
	out   io.Writer
	view  wizard.View
	phase int
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) OnChange(s wizard.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.View != r.view {
		r.view = s.View
		r.phase = -1
		fmt.Fprintf(r.out, "== %s (%s mode) ==\n", s.View, s.Mode)
	}
	if s.View == wizard.ViewProcessing && s.Progress.Index != r.phase {
		r.phase = s.Progress.Index
		fmt.Fprintln(r.out, progressLine(s.Progress))
	}
}

func progressLine(p report.Progress) string {
	filled := int(p.Fraction()*barWidth + 0.5)
	name := p.Name
	if name == "" {
		name = report.PhaseName(p.Index)
	}
	return fmt.Sprintf("[%s%s] %d/%d %s", strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), p.Index, p.Total, name)
}

func printToasts(out io.Writer, events <-chan notify.Event) {
	for e := range events {
		if e.Dismissed {
			continue
		}
		fmt.Fprintf(out, "(%s) %s\n", e.Toast.Level, e.Toast.Message)
	}
}

func printResult(out io.Writer, s wizard.State) {
	res := s.Result
	fmt.Fprintf(out, "\n%s\n\n", res.ExecutiveSummary)
	fmt.Fprintln(out, res.DiagnosticText)
	if len(res.FollowUpPrompts) > 0 {
		fmt.Fprintln(out, "\nTry asking:")
		for _, p := range res.FollowUpPrompts {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}
}

const chatHelp = "Commands: /download, /prompt, /plans, /quit"

// runChat reads one message per line until EOF, /quit or /plans.
func runChat(ctx context.Context, w *wizard.Wizard, in io.Reader, out io.Writer) error {
	session := w.Chat()
	if session == nil {
		return errors.New("no diagnostic to chat about")
	}
	for _, m := range session.Messages() {
		printMessage(out, m)
	}
	fmt.Fprintln(out, chatHelp)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/plans":
			w.ShowPlans()
			return nil
		case "/download", "/prompt":
			kind := wizard.DownloadReport
			if line == "/prompt" {
				kind = wizard.DownloadSystemPrompt
			}
			path, err := w.Download(ctx, kind)
			if err != nil {
				fmt.Fprintf(out, "download failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "saved %s\n", path)
			continue
		}

		printMessage(out, conversation.Message{Role: conversation.RoleUser, Content: line})
		reply, err := session.Send(ctx, line)
		if errors.Is(err, conversation.ErrBusy) || errors.Is(err, conversation.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			return err
		}
		printMessage(out, reply)
	}
	return scanner.Err()
}

func printMessage(out io.Writer, m conversation.Message) {
	who := "you"
	if m.Role == conversation.RoleAssistant {
		who = "marketsauce"
	}
	fmt.Fprintf(out, "%s> %s\n", who, m.Content)
}
