// Package workerproc turns one queue delivery into one diagnostic pipeline
// run. Both the long-polling worker and the SQS-triggered Lambda use it, so
// they agree on what is retried and what is dropped.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"marketsauce-agent/internal/diagnostics"
	"marketsauce-agent/internal/queue"
	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/telemetry"
)

// Processor runs the pipeline for one queued diagnostic job.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

var (
	ErrEmptyBody    = errors.New("empty message body")
	ErrMissingJobID = errors.New("missing job id")
	ErrPoison       = errors.New("receive limit exceeded")
	ErrNoProcessor  = errors.New("diagnostic processor not configured")
)

// RejectError marks a payload that can never be processed.
type RejectError struct {
	BodyLen int
	BodySHA string
	Err     error
}

func (e *RejectError) Error() string { return "reject message: " + e.Err.Error() }

func (e *RejectError) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message should be dropped
// rather than retried.
func Unrecoverable(err error) bool {
	var rej *RejectError
	return errors.As(err, &rej)
}

// Delivery is a queue message as either runtime received it.
type Delivery struct {
	MessageID string
	Body      string
	// RequestID comes from message attributes and is used when the body
	// carries none.
	RequestID    string
	ReceiveCount int
}

// Outcome tells the runtime what to do with the message.
type Outcome int

const (
	// Done means the job ran; acknowledge the message.
	Done Outcome = iota
	// Retry leaves the message for redelivery.
	Retry
	// Drop acknowledges a message that was never processed.
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Retry:
		return "retry"
	case Drop:
		return "drop"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the classified outcome of one delivery.
type Result struct {
	Outcome Outcome
	Message queue.Message
	Err     error
}

// Decode validates the payload. Failures are *RejectError.
func Decode(body string) (queue.Message, error) {
	reject := func(err error) error {
		sum := sha256.Sum256([]byte(body))
		return &RejectError{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:]), Err: err}
	}
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, reject(ErrEmptyBody)
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, reject(err)
	}
	if strings.TrimSpace(msg.JobID) == "" {
		return msg, reject(ErrMissingJobID)
	}
	return msg, nil
}

// Runner processes deliveries. A zero MaxReceives disables the poison
// check, leaving redrive to the queue's own policy.
type Runner struct {
	Processor   Processor
	MaxReceives int
}

// Run decodes d, runs the pipeline and classifies the result. It logs and
// counts every outcome.
func (r Runner) Run(ctx context.Context, d Delivery) Result {
	metrics.IncDiagnosticJobsReceived()

	msg, err := Decode(d.Body)
	if msg.RequestID == "" {
		msg.RequestID = d.RequestID
	}
	fields := logFields(d, msg)
	if err != nil {
		var rej *RejectError
		if errors.As(err, &rej) {
			fields["body_len"] = rej.BodyLen
			fields["body_sha256"] = rej.BodySHA
		}
		return r.drop("worker.diagnostic.unrecoverable", fields, msg, err)
	}
	if r.MaxReceives > 0 && d.ReceiveCount > r.MaxReceives {
		fields["max_receives"] = r.MaxReceives
		return r.drop("worker.diagnostic.poison", fields, msg, &RejectError{Err: ErrPoison})
	}
	if r.Processor == nil {
		fields["error"] = ErrNoProcessor.Error()
		telemetry.Error("worker.diagnostic.failed", fields)
		metrics.IncDiagnosticJobsFailed()
		return Result{Outcome: Retry, Message: msg, Err: ErrNoProcessor}
	}

	telemetry.Info("worker.diagnostic.received", fields)
	if err := r.Processor.Process(diagnostics.WithRequestID(ctx, msg.RequestID), msg.JobID); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.diagnostic.failed", fields)
		metrics.IncDiagnosticJobsFailed()
		return Result{Outcome: Retry, Message: msg, Err: fmt.Errorf("process diagnostic %s: %w", msg.JobID, err)}
	}
	telemetry.Info("worker.diagnostic.completed", fields)
	metrics.IncDiagnosticJobsCompleted()
	return Result{Outcome: Done, Message: msg}
}

func (r Runner) drop(event string, fields map[string]any, msg queue.Message, err error) Result {
	fields["error"] = err.Error()
	telemetry.Error(event, fields)
	metrics.IncDiagnosticJobsDeletedUnrecoverable()
	return Result{Outcome: Drop, Message: msg, Err: err}
}

func logFields(d Delivery, msg queue.Message) map[string]any {
	fields := map[string]any{
		"job_id":         msg.JobID,
		"sqs_message_id": d.MessageID,
		"receive_count":  d.ReceiveCount,
	}
	if msg.RequestID != "" {
		fields["request_id"] = msg.RequestID
	}
	return fields
}
