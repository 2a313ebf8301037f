/*
Copyright 2026 The EchoScribe Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package queue provides the SQS-backed message source for the dispatcher.
// Visibility and redelivery stay with SQS; the dispatcher only deletes a
// message once its item reached a terminal outcome.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"k8s.io/klog/v2"

	"github.com/echoscribe/job-dispatcher/internal/dispatch"
)

const (
	DefaultWaitTime = 10 * time.Second
	MaxBatchSize    = 10
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Message is one received queue record: the opaque payload handed to the
// dispatcher plus the receipt handle needed to acknowledge it.
type Message struct {
	dispatch.RawMessage
	ReceiptHandle string
}

type SQSSource struct {
	sqsClient sqsAPI
	queueURL  string
	waitTime  time.Duration
}

type Config struct {
	QueueURL        string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	WaitTime        time.Duration
}

func New(ctx context.Context, cfg Config) (*SQSSource, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("queue URL is empty")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var sqsOpts []func(*sqs.Options)
	if cfg.Endpoint != "" {
		sqsOpts = append(sqsOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	waitTime := cfg.WaitTime
	if waitTime <= 0 {
		waitTime = DefaultWaitTime
	}
	return &SQSSource{
		sqsClient: sqs.NewFromConfig(awsCfg, sqsOpts...),
		queueURL:  cfg.QueueURL,
		waitTime:  waitTime,
	}, nil
}

// Receive long-polls the queue for up to max messages. An empty slice and a
// nil error means the poll simply timed out with nothing to do.
func (s *SQSSource) Receive(ctx context.Context, max int) ([]Message, error) {
	logger := klog.FromContext(ctx)

	if max <= 0 || max > MaxBatchSize {
		max = MaxBatchSize
	}
	out, err := s.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(s.waitTime / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			RawMessage: dispatch.RawMessage{
				ID:   aws.ToString(m.MessageId),
				Body: aws.ToString(m.Body),
			},
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	if len(msgs) > 0 {
		logger.V(2).Info("Receive: got messages", "count", len(msgs))
	}
	return msgs, nil
}

// Delete acknowledges one message so it is not redelivered.
func (s *SQSSource) Delete(ctx context.Context, receiptHandle string) error {
	_, err := s.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
