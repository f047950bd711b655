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

	"tender-backend/internal/jobs"
	"tender-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err   error
	calls []string
}

func (f *fakeProcessor) Run(ctx context.Context, jobID string) (jobs.Status, error) {
	f.calls = append(f.calls, jobID)
	if f.err != nil {
		return jobs.Status{}, f.err
	}
	return jobs.Status{JobID: jobID, State: jobs.StateCompleted}, nil
}

func message(t *testing.T, id, receipt string, m queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}

	handleMessage(context.Background(), client, "queue", proc, message(t, "m1", "r1", queue.Message{JobID: "job-1", RequestID: "req-1"}))

	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
	if len(proc.calls) != 1 || proc.calls[0] != "job-1" {
		t.Fatalf("expected job-1 to run, got %v", proc.calls)
	}
}

func TestWorkerKeepsMessageOnTransientFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: errors.New("db unavailable")}

	handleMessage(context.Background(), client, "queue", proc, message(t, "m2", "r2", queue.Message{JobID: "job-2"}))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
}

func TestWorkerDeletesUnrecoverableMessages(t *testing.T) {
	cases := map[string]sqstypes.Message{
		"invalid json": {MessageId: aws.String("m3"), ReceiptHandle: aws.String("r3"), Body: aws.String("{bad-json")},
		"empty body":   {MessageId: aws.String("m4"), ReceiptHandle: aws.String("r4"), Body: aws.String("")},
		"missing id":   message(t, "m5", "r5", queue.Message{RequestID: "req-5"}),
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			client := &fakeSQS{}
			proc := &fakeProcessor{}
			handleMessage(context.Background(), client, "queue", proc, msg)
			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %v", client.deleted)
			}
			if len(proc.calls) != 0 {
				t.Fatalf("processor should not run, got %v", proc.calls)
			}
		})
	}
}

func TestWorkerDeletesMessageForUnknownJob(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: jobs.ErrNotFound}

	handleMessage(context.Background(), client, "queue", proc, message(t, "m6", "r6", queue.Message{JobID: "gone"}))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete for unknown job, got %v", client.deleted)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

type countingExpirer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingExpirer) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, nil
}

func (c *countingExpirer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSweepRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exp := &countingExpirer{}
	done := make(chan struct{})
	go func() {
		sweep(ctx, exp, 5*time.Millisecond, time.Minute)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for exp.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if exp.count() == 0 {
		t.Fatalf("expected at least one sweep")
	}
}
