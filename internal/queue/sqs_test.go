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

// The file contains unit tests for the SQS message source.
package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type mockSQSClient struct {
	messages   []types.Message
	receiveErr error
	deleteErr  error
	lastIn     *sqs.ReceiveMessageInput
	deleted    []string
}

func (m *mockSQSClient) ReceiveMessage(_ context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	m.lastIn = params
	if m.receiveErr != nil {
		return nil, m.receiveErr
	}
	max := int(params.MaxNumberOfMessages)
	if max > len(m.messages) {
		max = len(m.messages)
	}
	return &sqs.ReceiveMessageOutput{Messages: m.messages[:max]}, nil
}

func (m *mockSQSClient) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	m.deleted = append(m.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func newTestSource(mock *mockSQSClient) *SQSSource {
	return &SQSSource{
		sqsClient: mock,
		queueURL:  "https://example.com/queue",
		waitTime:  time.Second,
	}
}

func TestReceive(t *testing.T) {
	mock := &mockSQSClient{
		messages: []types.Message{
			{
				MessageId:     aws.String("m-1"),
				Body:          aws.String(`{"job_id":"job-1"}`),
				ReceiptHandle: aws.String("rh-1"),
			},
			{
				MessageId:     aws.String("m-2"),
				Body:          aws.String(`{"job_id":"job-2"}`),
				ReceiptHandle: aws.String("rh-2"),
			},
		},
	}
	source := newTestSource(mock)

	msgs, err := source.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "m-1" || msgs[0].Body != `{"job_id":"job-1"}` || msgs[0].ReceiptHandle != "rh-1" {
		t.Errorf("first message not mapped correctly: %+v", msgs[0])
	}
	if aws.ToString(mock.lastIn.QueueUrl) != "https://example.com/queue" {
		t.Errorf("wrong queue url: %q", aws.ToString(mock.lastIn.QueueUrl))
	}
}

func TestReceiveEmptyPoll(t *testing.T) {
	source := newTestSource(&mockSQSClient{})

	msgs, err := source.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}

func TestReceiveClampsBatchSize(t *testing.T) {
	mock := &mockSQSClient{}
	source := newTestSource(mock)

	if _, err := source.Receive(context.Background(), 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastIn.MaxNumberOfMessages != MaxBatchSize {
		t.Errorf("expected clamp to %d, got %d", MaxBatchSize, mock.lastIn.MaxNumberOfMessages)
	}

	if _, err := source.Receive(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastIn.MaxNumberOfMessages != MaxBatchSize {
		t.Errorf("expected clamp to %d, got %d", MaxBatchSize, mock.lastIn.MaxNumberOfMessages)
	}
}

func TestReceiveError(t *testing.T) {
	source := newTestSource(&mockSQSClient{receiveErr: errors.New("throttled")})

	if _, err := source.Receive(context.Background(), 10); err == nil {
		t.Error("expected an error")
	}
}

func TestDelete(t *testing.T) {
	mock := &mockSQSClient{}
	source := newTestSource(mock)

	if err := source.Delete(context.Background(), "rh-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.deleted) != 1 || mock.deleted[0] != "rh-1" {
		t.Errorf("expected rh-1 deleted, got %v", mock.deleted)
	}

	mock.deleteErr = errors.New("gone")
	if err := source.Delete(context.Background(), "rh-2"); err == nil {
		t.Error("expected an error")
	}
}

func TestNewRequiresQueueURL(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected an error for empty queue URL")
	}
}
