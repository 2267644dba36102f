package main

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"marketsauce-agent/internal/queue"
	"marketsauce-agent/internal/shared/telemetry"
	"marketsauce-agent/internal/workerproc"
)

const receiveCountAttr = "ApproximateReceiveCount"

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// consumer long-polls the diagnostic queue and runs one pipeline per
// message, at most concurrency at a time.
type consumer struct {
	client      sqsAPI
	runner      workerproc.Runner
	queueURL    string
	visibility  time.Duration
	heartbeat   time.Duration
	concurrency int
	waitSeconds int32
}

// run polls until ctx is cancelled and returns a channel closed once
// every in-flight message has been handled.
func (c *consumer) run(ctx context.Context) <-chan struct{} {
	sem := make(chan struct{}, max(1, c.concurrency))
	var wg sync.WaitGroup

	c.poll(ctx, sem, &wg)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (c *consumer) poll(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	for ctx.Err() == nil {
		resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(c.queueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       c.waitSeconds,
			VisibilityTimeout:     int32(c.visibility / time.Second),
			AttributeNames:        []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName(receiveCountAttr)},
			MessageAttributeNames: []string{queue.AttrJobID, queue.AttrRequestID},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handle(ctx, m)
			}(msg)
		}
	}
}

func (c *consumer) handle(ctx context.Context, msg sqstypes.Message) {
	stopHeartbeat := c.keepInvisible(ctx, msg)
	res := c.runner.Run(ctx, workerproc.Delivery{
		MessageID:    aws.ToString(msg.MessageId),
		Body:         aws.ToString(msg.Body),
		RequestID:    attrRequestID(msg),
		ReceiveCount: receiveCount(msg),
	})
	stopHeartbeat()

	if res.Outcome == workerproc.Retry {
		return
	}
	// A finished job is acknowledged even when shutdown began mid-run.
	c.delete(context.WithoutCancel(ctx), msg, res.Message.JobID)
}

// keepInvisible extends the message's visibility every heartbeat until
// the returned stop function is called, so a slow pipeline is not
// redelivered to another worker mid-run.
func (c *consumer) keepInvisible(ctx context.Context, msg sqstypes.Message) func() {
	receipt := aws.ToString(msg.ReceiptHandle)
	if c.heartbeat <= 0 || receipt == "" {
		return func() {}
	}
	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, err := c.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
					QueueUrl:          aws.String(c.queueURL),
					ReceiptHandle:     aws.String(receipt),
					VisibilityTimeout: int32(c.visibility / time.Second),
				})
				if err != nil && ctx.Err() == nil {
					telemetry.Warn("worker.diagnostic.heartbeat_failed", map[string]any{
						"sqs_message_id": aws.ToString(msg.MessageId),
						"error":          err.Error(),
					})
				}
			}
		}
	}()
	return func() {
		close(stop)
		<-finished
	}
}

func (c *consumer) delete(ctx context.Context, msg sqstypes.Message, jobID string) {
	fields := map[string]any{"job_id": jobID, "sqs_message_id": aws.ToString(msg.MessageId)}
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.diagnostic.delete_failed", fields)
		return
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.diagnostic.delete_failed", fields)
	}
}

func attrRequestID(msg sqstypes.Message) string {
	if attr, ok := msg.MessageAttributes[queue.AttrRequestID]; ok {
		return aws.ToString(attr.StringValue)
	}
	return ""
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[receiveCountAttr]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
