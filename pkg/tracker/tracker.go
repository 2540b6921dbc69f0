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

// Package tracker implements the size aggregator: for every bucket
// mutation it recomputes the bucket's total size from a full listing and
// appends one snapshot record to the ledger.
//
// The aggregator deliberately ignores the delta carried by the
// notification. Recomputing from scratch makes it idempotent under the
// queue's at-least-once delivery: a duplicate or reordered notification
// produces another record with correct totals instead of double-counting.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/observability"
)

// Tracker is the size aggregator handler.
type Tracker struct {
	storage common.Storage
	ledger  ledger.Ledger
	bucket  string
	logger  adapters.Logger
	metrics *observability.PipelineMetrics
	now     func() time.Time
}

// New creates a Tracker for the given target bucket.
func New(storage common.Storage, l ledger.Ledger, bucket string, logger adapters.Logger) *Tracker {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Tracker{
		storage: storage,
		ledger:  l,
		bucket:  bucket,
		logger:  logger,
		now:     time.Now,
	}
}

// WithMetrics attaches process counters and returns the Tracker.
func (t *Tracker) WithMetrics(m *observability.PipelineMetrics) *Tracker {
	t.metrics = m
	return t
}

// HandleBatch processes one delivered batch of mutation notifications.
// Notifications for other buckets are skipped at info level. Each matching
// notification triggers a full recomputation and one ledger append; a batch
// of N matching notifications produces N records. Failures are collected
// per notification and joined, so one bad record cannot silently swallow
// the rest of the batch.
func (t *Tracker) HandleBatch(ctx context.Context, batch []common.MutationNotification) error {
	var errs []error
	for _, n := range batch {
		if n.BucketKey != t.bucket {
			t.logger.Info(ctx, "skipping event for foreign bucket",
				adapters.F("bucket", n.BucketKey),
				adapters.F("object_key", n.ObjectKey))
			continue
		}
		if err := t.recordSnapshot(ctx); err != nil {
			t.logger.Error(ctx, "failed to record bucket size",
				adapters.F("bucket", t.bucket),
				adapters.F("object_key", n.ObjectKey),
				adapters.F("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recordSnapshot lists the entire bucket, sums sizes and counts, and
// appends one size record at the current timestamp.
func (t *Tracker) recordSnapshot(ctx context.Context) error {
	objects, err := common.ListAll(ctx, t.storage, "")
	if err != nil {
		return fmt.Errorf("list bucket %s: %w", t.bucket, err)
	}

	var totalSize int64
	for _, obj := range objects {
		totalSize += obj.Size
	}

	record := &common.SizeRecord{
		BucketKey:   t.bucket,
		Timestamp:   t.now().UTC().Format(time.RFC3339Nano),
		TotalSize:   totalSize,
		ObjectCount: int64(len(objects)),
	}
	if err := t.ledger.Append(ctx, record); err != nil {
		return err
	}
	if t.metrics != nil {
		t.metrics.LedgerAppends.Inc()
	}

	t.logger.Info(ctx, "stored bucket size record",
		adapters.F("bucket", t.bucket),
		adapters.F("total_size", totalSize),
		adapters.F("object_count", len(objects)))
	return nil
}
