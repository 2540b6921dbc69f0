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
	"fmt"
	"sync"
)

// MemoryQueue is an in-memory Consumer for tests and local pipeline runs.
// Unacked messages return to the queue on Redeliver, modelling at-least-once
// delivery.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []Message
	inflight map[string]Message
	seq      int
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{inflight: make(map[string]Message)}
}

// Publish enqueues a message body.
func (q *MemoryQueue) Publish(body string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	id := fmt.Sprintf("msg-%d", q.seq)
	q.pending = append(q.pending, Message{ID: id, Body: body, ReceiptHandle: id})
}

// Receive returns up to max pending messages and marks them in flight.
func (q *MemoryQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || max > len(q.pending) {
		max = len(q.pending)
	}

	batch := q.pending[:max]
	q.pending = q.pending[max:]
	out := make([]Message, len(batch))
	copy(out, batch)
	for _, m := range batch {
		q.inflight[m.ReceiptHandle] = m
	}
	return out, nil
}

// Ack removes a message permanently.
func (q *MemoryQueue) Ack(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	q.mu.Lock()
	delete(q.inflight, msg.ReceiptHandle)
	q.mu.Unlock()
	return nil
}

// Redeliver returns all unacked in-flight messages to the queue, as a
// visibility timeout expiry would.
func (q *MemoryQueue) Redeliver() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for handle, m := range q.inflight {
		q.pending = append(q.pending, m)
		delete(q.inflight, handle)
	}
}

// Len returns the number of pending messages. Useful for testing.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
