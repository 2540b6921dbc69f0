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

package tracker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/memory"
	"github.com/jeremyhahn/go-bucketwatch/pkg/observability"
)

func created(bucket, key string, size int64) common.MutationNotification {
	return common.MutationNotification{BucketKey: bucket, ObjectKey: key, Kind: common.EventCreated, SizeBytes: size}
}

func TestHandleBatchRecordsSnapshot(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, storage.Put("a.txt", strings.NewReader(strings.Repeat("x", 19))))
	require.NoError(t, storage.Put("b.txt", strings.NewReader(strings.Repeat("x", 28))))

	tracker := New(storage, store, "my-bucket", nil)
	err := tracker.HandleBatch(ctx, []common.MutationNotification{created("my-bucket", "b.txt", 28)})
	require.NoError(t, err)

	records, err := store.QueryRecent(ctx, "my-bucket", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(47), records[0].TotalSize)
	assert.Equal(t, int64(2), records[0].ObjectCount)
	assert.Equal(t, "my-bucket", records[0].BucketKey)

	_, err = time.Parse(time.RFC3339Nano, records[0].Timestamp)
	assert.NoError(t, err, "timestamp must be RFC 3339")
}

func TestHandleBatchSkipsForeignBucket(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()

	tracker := New(storage, store, "my-bucket", nil)
	err := tracker.HandleBatch(context.Background(), []common.MutationNotification{
		created("other-bucket", "a.txt", 19),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len("my-bucket"), "foreign-bucket events must not produce records")
}

func TestHandleBatchOneRecordPerNotification(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()

	require.NoError(t, storage.Put("a.txt", strings.NewReader("xxx")))

	tracker := New(storage, store, "my-bucket", nil)
	err := tracker.HandleBatch(context.Background(), []common.MutationNotification{
		created("my-bucket", "a.txt", 3),
		created("my-bucket", "a.txt", 3),
		created("other-bucket", "z.txt", 9),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len("my-bucket"))
}

func TestHandleBatchIdempotentUnderRedelivery(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, storage.Put("a.txt", strings.NewReader(strings.Repeat("x", 19))))

	tracker := New(storage, store, "my-bucket", nil)
	batch := []common.MutationNotification{created("my-bucket", "a.txt", 19)}

	require.NoError(t, tracker.HandleBatch(ctx, batch))
	require.NoError(t, tracker.HandleBatch(ctx, batch))

	records, err := store.QueryRecent(ctx, "my-bucket", "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Full recomputation: a duplicate delivery repeats the same total
	// instead of double-counting.
	assert.Equal(t, records[0].TotalSize, records[1].TotalSize)
}

func TestHandleBatchMonotonicTimestamps(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, storage.Put("a.txt", strings.NewReader("x")))

	tracker := New(storage, store, "my-bucket", nil)
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	step := 0
	tracker.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	batch := []common.MutationNotification{
		created("my-bucket", "a.txt", 1),
		created("my-bucket", "a.txt", 1),
	}
	require.NoError(t, tracker.HandleBatch(ctx, batch))

	records, err := store.QueryRecent(ctx, "my-bucket", "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Less(t, records[0].Timestamp, records[1].Timestamp)
}

func TestHandleBatchEmptyBucket(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	tracker := New(storage, store, "my-bucket", nil)
	err := tracker.HandleBatch(ctx, []common.MutationNotification{
		{BucketKey: "my-bucket", ObjectKey: "gone.txt", Kind: common.EventRemoved},
	})
	require.NoError(t, err)

	records, err := store.QueryRecent(ctx, "my-bucket", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0].TotalSize)
	assert.Equal(t, int64(0), records[0].ObjectCount)
}

func TestHandleBatchCountsLedgerAppends(t *testing.T) {
	storage := memory.New()
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, storage.Put("a.txt", strings.NewReader("xxx")))

	m := observability.NewPipelineMetrics(prometheus.NewRegistry())
	tracker := New(storage, store, "my-bucket", nil).WithMetrics(m)

	err := tracker.HandleBatch(ctx, []common.MutationNotification{
		created("my-bucket", "a.txt", 3),
		created("my-bucket", "a.txt", 3),
		created("other-bucket", "z.txt", 9),
	})
	require.NoError(t, err)
	// One increment per appended record; skipped notifications don't count.
	assert.Equal(t, float64(2), testutil.ToFloat64(m.LedgerAppends))
}

type failingLedger struct {
	ledger.Ledger
	err error
}

func (f *failingLedger) Append(ctx context.Context, record *common.SizeRecord) error {
	return f.err
}

func TestHandleBatchCollectsPerNotificationErrors(t *testing.T) {
	storage := memory.New()
	failing := &failingLedger{err: assert.AnError}

	tracker := New(storage, failing, "my-bucket", nil)
	err := tracker.HandleBatch(context.Background(), []common.MutationNotification{
		created("my-bucket", "a.txt", 1),
		created("my-bucket", "b.txt", 2),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
