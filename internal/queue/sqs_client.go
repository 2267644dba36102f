package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const defaultRegion = "us-east-1"

// Message attribute names copied from the body so consumers can log and
// route without decoding it.
const (
	AttrJobID     = "job_id"
	AttrRequestID = "request_id"
	AttrVersion   = "schema_version"
)

type sendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient sends diagnostic job messages to AWS SQS.
type SQSClient struct {
	api      sendAPI
	queueURL string
}

// NewSQSClient constructs an SQS-backed queue client for queueURL.
func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("MS_SQS_QUEUE_URL is required")
	}
	if strings.TrimSpace(region) == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSQSClient(sqs.NewFromConfig(cfg), queueURL), nil
}

func newSQSClient(api sendAPI, queueURL string) *SQSClient {
	return &SQSClient{api: api, queueURL: queueURL}
}

// Send delivers msg. A message without a job id is rejected before it
// reaches the queue, since the worker would only drop it.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.JobID) == "" {
		return fmt.Errorf("sqs send message: job id is required")
	}
	if msg.Version == 0 {
		msg.Version = CurrentVersion
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: attributesFor(msg),
	})
	if err != nil {
		return fmt.Errorf("sqs send message for job %s: %w", msg.JobID, err)
	}
	return nil
}

func attributesFor(msg Message) map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{
		AttrJobID:   {DataType: aws.String("String"), StringValue: aws.String(msg.JobID)},
		AttrVersion: {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(msg.Version))},
	}
	if msg.RequestID != "" {
		attrs[AttrRequestID] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(msg.RequestID)}
	}
	return attrs
}

var _ Client = (*SQSClient)(nil)
