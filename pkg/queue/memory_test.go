// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package queue

import (
	"context"
	"testing"
)

func TestMemoryQueueReceiveAndAck(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	q.Publish("body-1")
	q.Publish("body-2")

	messages, err := q.Receive(ctx, 10)
	if err != nil {
		t.Fatalf("Receive() returned error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Receive() returned %d messages, want 2", len(messages))
	}
	if messages[0].Body != "body-1" || messages[1].Body != "body-2" {
		t.Errorf("unexpected bodies: %q, %q", messages[0].Body, messages[1].Body)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after receive, want 0", q.Len())
	}

	if err := q.Ack(ctx, messages[0]); err != nil {
		t.Fatalf("Ack() returned error: %v", err)
	}
}

func TestMemoryQueueReceiveMax(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q.Publish("body")
	}

	messages, err := q.Receive(ctx, 2)
	if err != nil {
		t.Fatalf("Receive() returned error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Receive(max=2) returned %d messages", len(messages))
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}
}

func TestMemoryQueueRedeliver(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	q.Publish("body-1")
	q.Publish("body-2")

	messages, _ := q.Receive(ctx, 10)
	_ = q.Ack(ctx, messages[0])

	q.Redeliver()
	if q.Len() != 1 {
		t.Fatalf("Len() after redeliver = %d, want 1", q.Len())
	}

	redelivered, _ := q.Receive(ctx, 10)
	if len(redelivered) != 1 || redelivered[0].Body != "body-2" {
		t.Errorf("unexpected redelivered messages: %+v", redelivered)
	}
}

func TestMemoryQueueEmptyReceive(t *testing.T) {
	q := NewMemoryQueue()

	messages, err := q.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("Receive() on empty queue returned error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Receive() on empty queue returned %d messages", len(messages))
	}
}

func TestMemoryQueueContextCancellation(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Receive(ctx, 10); err == nil {
		t.Error("Receive() with cancelled context returned nil")
	}
	if err := q.Ack(ctx, Message{}); err == nil {
		t.Error("Ack() with cancelled context returned nil")
	}
}
