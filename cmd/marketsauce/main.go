package main

// Run a diagnostic from the terminal:
//   go run ./cmd/marketsauce -business "Acme" -website https://acme.com \
//     -market "SMB owners" -sells "CRM" -tier strategic
//
// The backend defaults to MARKETSAUCE_API_URL, then http://localhost:8000.
// When it is unreachable the run falls back to a demo report.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"marketsauce-agent/internal/apiclient"
	"marketsauce-agent/internal/mode"
	"marketsauce-agent/internal/notify"
	"marketsauce-agent/internal/report"
	"marketsauce-agent/internal/wizard"
)

func main() {
	apiURL := flag.String("api", envOr("MARKETSAUCE_API_URL", apiclient.DefaultBaseURL), "MarketSauce backend URL")
	tier := flag.String("tier", string(report.DefaultTier), "pricing tier: express, strategic or prime")
	business := flag.String("business", "", "business name")
	website := flag.String("website", "", "website URL")
	market := flag.String("market", "", "target market")
	sells := flag.String("sells", "", "what the business sells")
	competitors := flag.String("competitors", "", "known competitors (optional)")
	challenges := flag.String("challenges", "", "current challenges (optional)")
	goals := flag.String("goals", "", "goals (optional)")
	extra := flag.String("context", "", "additional context (optional)")
	outDir := flag.String("out", ".", "directory for downloaded files")
	forceDemo := flag.Bool("demo", false, "skip the backend and generate a demo report")
	noChat := flag.Bool("no-chat", false, "exit after the report instead of opening the strategy chat")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toasts := notify.NewChannel(notify.ChannelOptions{})
	toastsDone := make(chan struct{})
	go func() {
		defer close(toastsDone)
		printToasts(os.Stdout, toasts.Events())
	}()

	sw := mode.NewSwitch()
	if *forceDemo {
		sw = mode.Fixed(mode.Demo)
	}
	r := newRenderer(os.Stdout)
	w := wizard.New(wizard.Config{
		API:      apiclient.New(*apiURL),
		Mode:     sw,
		Notifier: toasts,
		Saver:    wizard.DirSaver{Dir: *outDir},
		OnChange: r.OnChange,
	})
	defer w.Close()

	code := run(ctx, w, !*forceDemo, *tier, report.IntakeData{
		BusinessName: *business,
		WebsiteURL:   *website,
		TargetMarket: *market,
		WhatTheySell: *sells,
		Competitors:  *competitors,
		Challenges:   *challenges,
		Goals:        *goals,
		Context:      *extra,
	}, !*noChat)

	toasts.Close()
	<-toastsDone
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, w *wizard.Wizard, probe bool, tier string, in report.IntakeData, chat bool) int {
	if probe {
		w.Start(ctx)
	}
	t, err := report.ParseTier(tier)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := w.SelectTier(t); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := w.SubmitIntake(in); err != nil {
		var verr *report.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(os.Stderr, "-%s %s\n", flagFor(f.Field), f.Issue)
			}
			return 2
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := w.WaitIdle(ctx); err != nil {
		return 130
	}

	st := w.Snapshot()
	if st.View != wizard.ViewResults || st.Result == nil {
		return 1
	}
	printResult(os.Stdout, st)
	if !chat {
		return 0
	}
	if err := runChat(ctx, w, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func flagFor(field string) string {
	switch field {
	case "business_name":
		return "business"
	case "website_url":
		return "website"
	case "target_market":
		return "market"
	case "what_they_sell":
		return "sells"
	}
	return field
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
