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

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-bucketwatch/pkg/changelog"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/memory"
	"github.com/jeremyhahn/go-bucketwatch/pkg/metrics"
	"github.com/jeremyhahn/go-bucketwatch/pkg/queue"
	"github.com/jeremyhahn/go-bucketwatch/pkg/tracker"
)

func eventBody(eventName, bucket, key string, size int64) string {
	return fmt.Sprintf(`{"Records":[{"eventSource":"aws:s3","eventName":%q,"s3":{"bucket":{"name":%q},"object":{"key":%q,"size":%d}}}]}`,
		eventName, bucket, key, size)
}

type recordingHandler struct {
	batches [][]common.MutationNotification
	err     error
}

func (h *recordingHandler) HandleBatch(ctx context.Context, batch []common.MutationNotification) error {
	h.batches = append(h.batches, batch)
	return h.err
}

func TestProcessOnceAcksProcessedMessages(t *testing.T) {
	q := queue.NewMemoryQueue()
	handler := &recordingHandler{}
	runner := NewRunner("test", q, handler, nil)

	q.Publish(eventBody("ObjectCreated:Put", "my-bucket", "a.txt", 19))
	q.Publish(eventBody("ObjectCreated:Put", "my-bucket", "b.txt", 28))

	acked, err := runner.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, acked)
	assert.Len(t, handler.batches, 2)

	// Everything was acked; nothing comes back.
	q.Redeliver()
	assert.Equal(t, 0, q.Len())
}

func TestProcessOncePolicyFailLeavesMessageUnacked(t *testing.T) {
	q := queue.NewMemoryQueue()
	handler := &recordingHandler{err: assert.AnError}
	runner := NewRunner("test", q, handler, nil, WithErrorPolicy(PolicyFail))

	q.Publish(eventBody("ObjectCreated:Put", "my-bucket", "a.txt", 19))

	acked, err := runner.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, acked)

	q.Redeliver()
	assert.Equal(t, 1, q.Len(), "failed message must return for redelivery")
}

func TestProcessOncePolicyContinueAcksFailedMessage(t *testing.T) {
	q := queue.NewMemoryQueue()
	handler := &recordingHandler{err: assert.AnError}
	runner := NewRunner("test", q, handler, nil, WithErrorPolicy(PolicyContinue))

	q.Publish(eventBody("ObjectCreated:Put", "my-bucket", "a.txt", 19))

	acked, err := runner.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, acked)

	q.Redeliver()
	assert.Equal(t, 0, q.Len(), "continue policy drops the failed message")
}

func TestProcessOnceDropsUndecodableMessage(t *testing.T) {
	q := queue.NewMemoryQueue()
	handler := &recordingHandler{}
	runner := NewRunner("test", q, handler, nil, WithErrorPolicy(PolicyFail))

	q.Publish("not a storage event")

	acked, err := runner.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, acked, "a poison message is acked regardless of policy")
	assert.Empty(t, handler.batches)

	q.Redeliver()
	assert.Equal(t, 0, q.Len())
}

func TestProcessOnceBatchSize(t *testing.T) {
	q := queue.NewMemoryQueue()
	handler := &recordingHandler{}
	runner := NewRunner("test", q, handler, nil, WithBatchSize(1))

	q.Publish(eventBody("ObjectCreated:Put", "my-bucket", "a.txt", 1))
	q.Publish(eventBody("ObjectCreated:Put", "my-bucket", "b.txt", 2))

	acked, err := runner.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	assert.Equal(t, 1, q.Len())
}

// countingConsumer is an always-empty consumer that counts receives.
type countingConsumer struct {
	mu       sync.Mutex
	receives int
}

func (c *countingConsumer) Receive(ctx context.Context, max int) ([]queue.Message, error) {
	c.mu.Lock()
	c.receives++
	c.mu.Unlock()
	return nil, nil
}

func (c *countingConsumer) Ack(ctx context.Context, msg queue.Message) error {
	return nil
}

func (c *countingConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receives
}

func TestRunIdlesOnEmptyQueue(t *testing.T) {
	consumer := &countingConsumer{}
	runner := NewRunner("test", consumer, &recordingHandler{}, nil,
		WithIdleWait(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 100ms of empty polls at a 10ms idle wait is on the order of ten
	// receives. Anything in the hundreds means Run is spinning.
	assert.LessOrEqual(t, consumer.count(), 30, "empty polls must pause between receives")
}

// TestPipelineEndToEnd drives both consumers through the memory backends:
// two uploads land in the bucket, both queues deliver the matching events,
// the tracker appends recomputed snapshots and the changelog accumulates
// the metric stream that crosses the 20-byte threshold.
func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	bucket := "my-bucket"

	storage := memory.New()
	store := ledger.NewMemoryStore()
	series := metrics.NewMemorySeries()
	sink := changelog.NewMemorySink()

	trackerQueue := queue.NewMemoryQueue()
	changelogQueue := queue.NewMemoryQueue()

	trackerRunner := NewRunner("tracker", trackerQueue, tracker.New(storage, store, bucket, nil), nil)
	changelogRunner := NewRunner("changelog", changelogQueue, changelog.New(store, sink, series, bucket, nil), nil)

	// First upload: 19 bytes, under the threshold.
	require.NoError(t, storage.Put("sample-a.txt", strings.NewReader(strings.Repeat("x", 19))))
	body := eventBody("ObjectCreated:Put", bucket, "sample-a.txt", 19)
	trackerQueue.Publish(body)
	changelogQueue.Publish(body)

	// Second upload: 28 bytes, pushing the cumulative sum to 47.
	require.NoError(t, storage.Put("sample-b.txt", strings.NewReader(strings.Repeat("x", 28))))
	body = eventBody("ObjectCreated:Put", bucket, "sample-b.txt", 28)
	trackerQueue.Publish(body)
	changelogQueue.Publish(body)

	_, err := trackerRunner.ProcessOnce(ctx)
	require.NoError(t, err)
	_, err = changelogRunner.ProcessOnce(ctx)
	require.NoError(t, err)

	// The tracker recomputed from the full bucket on each event.
	records, err := store.QueryRecent(ctx, bucket, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(47), records[0].TotalSize)
	assert.Equal(t, int64(47), records[1].TotalSize)

	max, err := store.QueryMax(ctx, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(47), max)

	// The changelog emitted both deltas and the windowed sum crossed the
	// default 20-byte threshold.
	entries := sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(19), entries[0].SizeDelta)
	assert.Equal(t, int64(28), entries[1].SizeDelta)

	sum, err := series.WindowSum(ctx, time.Minute)
	require.NoError(t, err)
	assert.Greater(t, sum, int64(20))
}
