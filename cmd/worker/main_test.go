package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"marketsauce-agent/internal/diagnostics"
	"marketsauce-agent/internal/queue"
	"marketsauce-agent/internal/workerproc"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]sqstypes.Message
	deleted  []string
	extended []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extended = append(f.extended, aws.ToString(params.ReceiptHandle))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeProcessor struct {
	err   error
	delay time.Duration

	mu        sync.Mutex
	jobs      []string
	requestID string
}

func (f *fakeProcessor) Process(ctx context.Context, jobID string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.jobs = append(f.jobs, jobID)
	f.requestID = diagnostics.RequestIDFromContext(ctx)
	f.mu.Unlock()
	return f.err
}

func newConsumer(client *fakeSQS, p *fakeProcessor) *consumer {
	return &consumer{
		client:      client,
		runner:      workerproc.Runner{Processor: p, MaxReceives: 5},
		queueURL:    "queue",
		visibility:  time.Minute,
		concurrency: 2,
	}
}

func jobMessage(t *testing.T, id, receipt string, msg queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{receiveCountAttr: "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	p := &fakeProcessor{}
	newConsumer(client, p).handle(context.Background(), jobMessage(t, "m1", "r1", queue.Message{JobID: "job-1", RequestID: "req-1"}))

	if got := client.deletes(); len(got) != 1 || got[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", got)
	}
	if p.requestID != "req-1" {
		t.Fatalf("expected request id on context, got %q", p.requestID)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	newConsumer(client, &fakeProcessor{err: errors.New("boom")}).
		handle(context.Background(), jobMessage(t, "m2", "r2", queue.Message{JobID: "job-2"}))

	if got := client.deletes(); len(got) != 0 {
		t.Fatalf("expected no delete, got %v", got)
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	p := &fakeProcessor{}
	newConsumer(client, p).handle(context.Background(), sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	})

	if got := client.deletes(); len(got) != 1 {
		t.Fatalf("expected delete, got %v", got)
	}
	if len(p.jobs) != 0 {
		t.Fatalf("processor should not run")
	}
}

func TestWorkerDeletesOnMissingJobID(t *testing.T) {
	client := &fakeSQS{}
	newConsumer(client, &fakeProcessor{}).handle(context.Background(), jobMessage(t, "m4", "r4", queue.Message{RequestID: "req-4"}))

	if got := client.deletes(); len(got) != 1 || got[0] != "r4" {
		t.Fatalf("expected delete of r4, got %v", got)
	}
}

func TestWorkerDropsPoisonMessage(t *testing.T) {
	client := &fakeSQS{}
	p := &fakeProcessor{}
	msg := jobMessage(t, "m5", "r5", queue.Message{JobID: "job-5"})
	msg.Attributes[receiveCountAttr] = "6"

	newConsumer(client, p).handle(context.Background(), msg)

	if got := client.deletes(); len(got) != 1 || got[0] != "r5" {
		t.Fatalf("expected delete of r5, got %v", got)
	}
	if len(p.jobs) != 0 {
		t.Fatalf("poison message must not be processed")
	}
}

func TestWorkerTakesRequestIDFromAttributes(t *testing.T) {
	client := &fakeSQS{}
	p := &fakeProcessor{}
	msg := jobMessage(t, "m6", "r6", queue.Message{JobID: "job-6"})
	msg.MessageAttributes = map[string]sqstypes.MessageAttributeValue{
		queue.AttrRequestID: {DataType: aws.String("String"), StringValue: aws.String("req-attr")},
	}

	newConsumer(client, p).handle(context.Background(), msg)

	if p.requestID != "req-attr" {
		t.Fatalf("expected attribute request id, got %q", p.requestID)
	}
}

func TestWorkerExtendsVisibilityForSlowJobs(t *testing.T) {
	client := &fakeSQS{}
	c := newConsumer(client, &fakeProcessor{delay: 30 * time.Millisecond})
	c.heartbeat = 5 * time.Millisecond

	c.handle(context.Background(), jobMessage(t, "m7", "r7", queue.Message{JobID: "job-7"}))

	client.mu.Lock()
	extended := len(client.extended)
	client.mu.Unlock()
	if extended == 0 {
		t.Fatalf("expected at least one visibility extension")
	}
}

func TestRunProcessesBatchesAndDrains(t *testing.T) {
	client := &fakeSQS{batches: [][]sqstypes.Message{{
		jobMessage(t, "a", "ra", queue.Message{JobID: "job-a"}),
		jobMessage(t, "b", "rb", queue.Message{JobID: "job-b"}),
	}}}
	p := &fakeProcessor{}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		deadline := time.After(2 * time.Second)
		for len(client.deletes()) < 2 {
			select {
			case <-deadline:
				cancel()
				return
			case <-time.After(time.Millisecond):
			}
		}
		cancel()
	}()

	select {
	case <-newConsumer(client, p).run(ctx):
	case <-time.After(3 * time.Second):
		t.Fatalf("consumer did not drain")
	}
	if got := client.deletes(); len(got) != 2 {
		t.Fatalf("expected both messages deleted, got %v", got)
	}
}

func TestReceiveCountParsesAttribute(t *testing.T) {
	msg := sqstypes.Message{Attributes: map[string]string{receiveCountAttr: "3"}}
	if got := receiveCount(msg); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0 without attributes, got %d", got)
	}
}
