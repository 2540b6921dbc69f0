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

package changelog

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/metrics"
)

func created(key string, size int64) common.MutationNotification {
	return common.MutationNotification{BucketKey: "my-bucket", ObjectKey: key, Kind: common.EventCreated, SizeBytes: size}
}

func removed(key string) common.MutationNotification {
	return common.MutationNotification{BucketKey: "my-bucket", ObjectKey: key, Kind: common.EventRemoved}
}

func TestCreatedEmitsPositiveDelta(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	series := metrics.NewMemorySeries()
	logger := New(store, sink, series, "my-bucket", nil)
	ctx := context.Background()

	require.NoError(t, logger.HandleBatch(ctx, []common.MutationNotification{created("file.txt", 28)}))

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].ObjectKey)
	assert.Equal(t, int64(28), entries[0].SizeDelta)

	size, err := store.GetSize(ctx, "my-bucket", "file.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(28), size)
}

func TestRemovedEmitsNegativeDelta(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	logger := New(store, sink, nil, "my-bucket", nil)
	ctx := context.Background()

	require.NoError(t, logger.HandleBatch(ctx, []common.MutationNotification{created("file.txt", 28)}))
	require.NoError(t, logger.HandleBatch(ctx, []common.MutationNotification{removed("file.txt")}))

	entries := sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-28), entries[1].SizeDelta)

	// The index entry is cleared once consumed.
	_, err := store.GetSize(ctx, "my-bucket", "file.txt")
	assert.ErrorIs(t, err, common.ErrSizeNotFound)
}

func TestRemovedWithoutRecordedSizeDefaultsToZero(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	logger := New(store, sink, nil, "my-bucket", nil)

	err := logger.HandleBatch(context.Background(), []common.MutationNotification{removed("unknown.txt")})
	require.NoError(t, err, "a missing size is a defined degradation, not a failure")

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].SizeDelta)
}

func TestSkipsForeignBucket(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	logger := New(store, sink, nil, "my-bucket", nil)

	err := logger.HandleBatch(context.Background(), []common.MutationNotification{
		{BucketKey: "other-bucket", ObjectKey: "a.txt", Kind: common.EventCreated, SizeBytes: 5},
	})
	require.NoError(t, err)
	assert.Empty(t, sink.Entries())
}

func TestMetricPublished(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	series := metrics.NewMemorySeries()
	logger := New(store, sink, series, "my-bucket", nil)
	ctx := context.Background()

	require.NoError(t, logger.HandleBatch(ctx, []common.MutationNotification{created("a.txt", 19)}))
	require.NoError(t, logger.HandleBatch(ctx, []common.MutationNotification{created("b.txt", 28)}))

	sum, err := series.WindowSum(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(47), sum)
}

type failingPublisher struct{}

func (f *failingPublisher) PublishDelta(ctx context.Context, delta int64) error {
	return assert.AnError
}

func TestMetricFailureDoesNotFailProcessing(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	logger := New(store, sink, &failingPublisher{}, "my-bucket", nil)

	err := logger.HandleBatch(context.Background(), []common.MutationNotification{created("a.txt", 19)})
	require.NoError(t, err, "metric emission failures must be logged and swallowed")
	assert.Len(t, sink.Entries(), 1)
}

func TestSinkFailureFailsProcessing(t *testing.T) {
	store := ledger.NewMemoryStore()
	sink := NewMemorySink()
	sink.FailWith(assert.AnError)
	logger := New(store, sink, nil, "my-bucket", nil)

	err := logger.HandleBatch(context.Background(), []common.MutationNotification{created("a.txt", 19)})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWriterSinkEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	require.NoError(t, sink.Emit(context.Background(), common.SizeDeltaEntry{ObjectKey: "file.txt", SizeDelta: -28}))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "file.txt", entry["object_name"])
	assert.Equal(t, float64(-28), entry["size_delta"])
}
