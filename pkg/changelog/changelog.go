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

// Package changelog implements the change logger / metric emitter: the
// second, independent consumer of the mutation stream. For every event it
// derives a signed size delta, emits a greppable log record, and publishes
// the delta into the cumulative metric stream the threshold alarm watches.
//
// Removal deltas come from the last-known-size index maintained on Created
// events. The index replaces the reference system's best-effort backward
// log scan; the log record itself remains an observability side effect,
// not a lookup source.
package changelog

import (
	"context"
	"errors"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/metrics"
)

// ChangeLogger is the change-logging handler.
type ChangeLogger struct {
	sizes     ledger.SizeIndex
	sink      DeltaSink
	publisher metrics.Publisher
	bucket    string
	logger    adapters.Logger
}

// New creates a ChangeLogger for the given target bucket. publisher may be
// nil when metric emission is disabled by configuration.
func New(sizes ledger.SizeIndex, sink DeltaSink, publisher metrics.Publisher, bucket string, logger adapters.Logger) *ChangeLogger {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &ChangeLogger{
		sizes:     sizes,
		sink:      sink,
		publisher: publisher,
		bucket:    bucket,
		logger:    logger,
	}
}

// HandleBatch processes one delivered batch of mutation notifications.
// Per-notification failures are collected and joined rather than aborting
// the rest of the batch.
func (c *ChangeLogger) HandleBatch(ctx context.Context, batch []common.MutationNotification) error {
	var errs []error
	for _, n := range batch {
		if n.BucketKey != c.bucket {
			c.logger.Info(ctx, "skipping event for foreign bucket",
				adapters.F("bucket", n.BucketKey),
				adapters.F("object_key", n.ObjectKey))
			continue
		}
		if err := c.process(ctx, n); err != nil {
			c.logger.Error(ctx, "failed to process change event",
				adapters.F("object_key", n.ObjectKey),
				adapters.F("kind", string(n.Kind)),
				adapters.F("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *ChangeLogger) process(ctx context.Context, n common.MutationNotification) error {
	var delta int64

	switch n.Kind {
	case common.EventCreated:
		delta = n.SizeBytes
		if err := c.sizes.PutSize(ctx, n.BucketKey, n.ObjectKey, n.SizeBytes); err != nil {
			return err
		}

	case common.EventRemoved:
		size, err := c.sizes.GetSize(ctx, n.BucketKey, n.ObjectKey)
		switch {
		case errors.Is(err, common.ErrSizeNotFound):
			// Defined degradation, never a failure: the delta defaults
			// to 0 and the miss is auditable in the log.
			c.logger.Warn(ctx, "no recorded size for removed object, using delta 0",
				adapters.F("object_key", n.ObjectKey))
			delta = 0
		case err != nil:
			return err
		default:
			delta = -size
			if err := c.sizes.DeleteSize(ctx, n.BucketKey, n.ObjectKey); err != nil {
				return err
			}
		}

	default:
		c.logger.Warn(ctx, "ignoring notification with unknown kind",
			adapters.F("kind", string(n.Kind)),
			adapters.F("object_key", n.ObjectKey))
		return nil
	}

	return c.emit(ctx, common.SizeDeltaEntry{ObjectKey: n.ObjectKey, SizeDelta: delta})
}

// emit writes the log record and then publishes the metric point. The log
// record is written first and a metric failure is logged and swallowed:
// observability must not become a cause of message-processing failure.
func (c *ChangeLogger) emit(ctx context.Context, entry common.SizeDeltaEntry) error {
	if err := c.sink.Emit(ctx, entry); err != nil {
		return err
	}

	if c.publisher == nil {
		return nil
	}
	if err := c.publisher.PublishDelta(ctx, entry.SizeDelta); err != nil {
		c.logger.Error(ctx, "failed to publish size delta metric",
			adapters.F("object_key", entry.ObjectKey),
			adapters.F("size_delta", entry.SizeDelta),
			adapters.F("error", err.Error()))
	}
	return nil
}
