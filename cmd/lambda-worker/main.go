package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"marketsauce-agent/internal/bootstrap"
	"marketsauce-agent/internal/queue"
	"marketsauce-agent/internal/shared/config"
	"marketsauce-agent/internal/shared/telemetry"
	"marketsauce-agent/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"error": initErr.Error(), "records": len(event.Records)})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, workerproc.Runner{Processor: app.Processor()}, event), nil
}

// processBatch reports retryable failures back to SQS as partial batch
// failures. Dropped payloads are acknowledged so they do not cycle until
// the DLQ; redrive after repeated failures is left to the queue policy.
func processBatch(ctx context.Context, runner workerproc.Runner, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		res := runner.Run(ctx, delivery(record))
		if res.Outcome == workerproc.Retry {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func delivery(record events.SQSMessage) workerproc.Delivery {
	d := workerproc.Delivery{MessageID: record.MessageId, Body: record.Body}
	if attr, ok := record.MessageAttributes[queue.AttrRequestID]; ok && attr.StringValue != nil {
		d.RequestID = *attr.StringValue
	}
	if n, err := strconv.Atoi(record.Attributes["ApproximateReceiveCount"]); err == nil {
		d.ReceiveCount = n
	}
	return d
}

func main() {
	lambda.Start(handler)
}
