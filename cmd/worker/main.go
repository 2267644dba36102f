package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"marketsauce-agent/internal/bootstrap"
	"marketsauce-agent/internal/shared/config"
	"marketsauce-agent/internal/shared/telemetry"
	"marketsauce-agent/internal/workerproc"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 1200
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
	defaultMaxReceives        = 5
)

func main() {
	defer func() { _ = telemetry.Logger().Sync() }()
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.QueueURL)
	if queueURL == "" {
		log.Fatal("MS_SQS_QUEUE_URL is required")
	}
	region := strings.TrimSpace(cfg.AWSRegion)
	if region == "" {
		region = defaultRegion
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibility := time.Duration(envInt("MS_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)) * time.Second
	shutdownTimeout := time.Duration(envInt("MS_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	c := &consumer{
		client:      sqs.NewFromConfig(awsCfg),
		runner: workerproc.Runner{
			Processor:   app.Processor(),
			MaxReceives: envInt("MS_SQS_MAX_RECEIVES", defaultMaxReceives),
		},
		queueURL:    queueURL,
		visibility:  visibility,
		heartbeat:   visibility / 2,
		concurrency: envInt("MS_WORKER_CONCURRENCY", defaultWorkerConcurrency),
		waitSeconds: 20,
	}
	telemetry.Info("worker.started", map[string]any{
		"queue_url":    queueURL,
		"concurrency":  c.concurrency,
		"visibility_s": int(visibility / time.Second),
		"max_receives": c.runner.MaxReceives,
	})

	drained := c.run(ctx)

	telemetry.Info("worker.shutdown_requested", map[string]any{"timeout": shutdownTimeout.String()})
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": shutdownTimeout.String()})
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
